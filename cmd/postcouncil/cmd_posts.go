package main

import (
	"fmt"
	"strings"

	"postcouncil/internal/types"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	postsCampaign string
	postsStatus   string
	postsPlain    bool
)

// postsCmd lists generated posts
var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List generated posts awaiting review",
	Long: `Lists stored posts for a campaign, newest first, with a rendered preview
and how each was produced (single call or council, judge reasoning).

Examples:
  postcouncil posts --campaign spring-launch
  postcouncil posts --campaign spring-launch --status all --plain`,
	RunE: runPosts,
}

func init() {
	postsCmd.Flags().StringVar(&postsCampaign, "campaign", "", "Campaign id (required)")
	postsCmd.Flags().StringVar(&postsStatus, "status", string(types.PostPendingReview), "Post status, or all")
	postsCmd.Flags().BoolVar(&postsPlain, "plain", false, "Print raw markdown without terminal styling")
	postsCmd.MarkFlagRequired("campaign")
}

func runPosts(cmd *cobra.Command, args []string) error {
	status := types.PostStatus(postsStatus)
	if postsStatus == "all" {
		status = ""
	}

	s, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	posts, err := s.ListPosts(cmd.Context(), postsCampaign, status)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(posts) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no posts"))
		return nil
	}

	md := postsMarkdown(posts)
	if postsPlain {
		fmt.Fprint(out, md)
		return nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render posts: %w", err)
	}
	fmt.Fprint(out, rendered)
	return nil
}

// postsMarkdown renders posts as one markdown document.
func postsMarkdown(posts []types.Post) string {
	var b strings.Builder
	for i, p := range posts {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		m := p.Metadata
		fmt.Fprintf(&b, "## %s\n\n", p.AuthorID)
		fmt.Fprintf(&b, "*%s* · `%s` · %s via %s", p.CreatedAt.Local().Format("2006-01-02 15:04"), p.ExecutionID, m.Model, m.Method)
		if m.Method == types.MethodCouncil {
			fmt.Fprintf(&b, " (%d candidates: %s)", m.CouncilSize, strings.Join(m.Sources, ", "))
		}
		b.WriteString("\n\n")
		if m.Reasoning != "" {
			fmt.Fprintf(&b, "> %s\n\n", m.Reasoning)
		}
		b.WriteString(p.Content)
		b.WriteString("\n")
	}
	return b.String()
}
