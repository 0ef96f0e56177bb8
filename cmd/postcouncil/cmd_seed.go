package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"postcouncil/internal/logging"
	"postcouncil/internal/provider"
	"postcouncil/internal/store"
	"postcouncil/internal/types"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML seed document.
type Fixture struct {
	Campaigns    []types.Campaign    `yaml:"campaigns"`
	Subjects     []types.Subject     `yaml:"subjects"`
	Enrollments  []Enrollment        `yaml:"enrollments"`
	VoiceSamples []types.VoiceSample `yaml:"voice_samples"`
}

// Enrollment is one roster row of a fixture.
type Enrollment struct {
	CampaignID string `yaml:"campaign_id"`
	UserID     string `yaml:"user_id"`
	Active     *bool  `yaml:"active,omitempty"`
}

// seedCounts reports what a seed run wrote.
type seedCounts struct {
	Campaigns, Subjects, Enrollments, VoiceSamples int
}

var seedVoicesCSV string

// seedCmd loads a YAML fixture
var seedCmd = &cobra.Command{
	Use:   "seed <fixture.yaml>",
	Short: "Load campaigns, people, rosters and voice samples from a fixture",
	Long: `Upserts every record of a YAML fixture. Running it twice is harmless.

  campaigns:
    - id: spring-launch
      name: Spring launch
      status: active
      workflow_type: complex
      posts_per_employee: 2
      workflow_config:
        selection_method: llm_judge
  subjects:
    - {id: u-1, name: Dana Ortiz, email: dana@example.com}
  enrollments:
    - {campaign_id: spring-launch, user_id: u-1}
  voice_samples:
    - {email: dana@example.com, blurb: "Practice owner", example_post_1: "..."}`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

// seedVoicesCmd imports voice samples from CSV
var seedVoicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "Import voice samples from a CSV export",
	Long: `Reads a CSV with the header
  email,example_post_1,example_post_2,example_post_3,blurb,is_sample
and upserts one voice sample per row, keyed by email.`,
	Args: cobra.NoArgs,
	RunE: runSeedVoices,
}

func init() {
	seedVoicesCmd.Flags().StringVar(&seedVoicesCSV, "csv", "", "CSV file (- for stdin)")
	seedVoicesCmd.MarkFlagRequired("csv")
	seedCmd.AddCommand(seedVoicesCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read fixture: %w", err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("failed to parse fixture: %w", err)
	}

	s, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := applyFixture(cmd.Context(), s, &fx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d campaigns, %d people, %d enrollments, %d voice samples\n",
		headerStyle.Render("seeded"), n.Campaigns, n.Subjects, n.Enrollments, n.VoiceSamples)
	for _, c := range fx.Campaigns {
		for _, w := range styleWarnings(c) {
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("warning: "+w))
		}
	}
	return nil
}

// styleWarnings names council branches whose style the backend does not know.
// Such branches still run, with the backend's default style.
func styleWarnings(c types.Campaign) []string {
	var out []string
	for i, b := range c.Workflow.Council {
		style := strings.ToLower(strings.TrimSpace(b.Style))
		if style == "" {
			continue
		}
		backend, err := types.ParseBackend(string(b.Provider))
		if err != nil {
			continue
		}
		known := provider.Styles(backend)
		if slices.Contains(known, style) {
			continue
		}
		def, _ := provider.ResolveStyle(backend, "")
		out = append(out, fmt.Sprintf("campaign %s: council[%d] style %q unknown to %s, using %q (known: %s)",
			c.ID, i, b.Style, backend, def, strings.Join(known, ", ")))
	}
	return out
}

// applyFixture upserts a fixture. Campaign workflow configs are validated
// first so a bad fixture writes nothing.
func applyFixture(ctx context.Context, s *store.Store, fx *Fixture) (seedCounts, error) {
	var n seedCounts
	for _, c := range fx.Campaigns {
		if c.ID == "" {
			return n, errors.New("fixture campaign without id")
		}
		if _, err := types.ParseStrategy(c.WorkflowType); err != nil {
			return n, fmt.Errorf("campaign %s: %w", c.ID, err)
		}
		if err := c.Workflow.Validate(); err != nil {
			return n, fmt.Errorf("campaign %s: %w", c.ID, err)
		}
	}

	for _, c := range fx.Campaigns {
		if c.Status == "" {
			c.Status = types.CampaignActive
		}
		if err := s.UpsertCampaign(ctx, c); err != nil {
			return n, err
		}
		n.Campaigns++
	}
	for _, sub := range fx.Subjects {
		if err := s.UpsertSubject(ctx, sub); err != nil {
			return n, err
		}
		n.Subjects++
	}
	for _, e := range fx.Enrollments {
		active := e.Active == nil || *e.Active
		if err := s.Enroll(ctx, e.CampaignID, e.UserID, active); err != nil {
			return n, err
		}
		n.Enrollments++
	}
	for _, v := range fx.VoiceSamples {
		if err := s.UpsertVoiceSample(ctx, v); err != nil {
			return n, err
		}
		n.VoiceSamples++
	}
	logging.Store("Seeded %+v", n)
	return n, nil
}

func runSeedVoices(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if seedVoicesCSV != "-" {
		f, err := os.Open(seedVoicesCSV)
		if err != nil {
			return fmt.Errorf("failed to open csv: %w", err)
		}
		defer f.Close()
		r = f
	}

	samples, err := parseVoiceCSV(r)
	if err != nil {
		return err
	}

	s, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	for _, v := range samples {
		if err := s.UpsertVoiceSample(cmd.Context(), v); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d voice samples\n", headerStyle.Render("imported"), len(samples))
	return nil
}

var voiceColumns = []string{"email", "example_post_1", "example_post_2", "example_post_3", "blurb", "is_sample"}

// parseVoiceCSV reads voice samples by header name. Only email is required;
// column order is free and unknown columns are ignored.
func parseVoiceCSV(r io.Reader) ([]types.VoiceSample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["email"]; !ok {
		return nil, fmt.Errorf("csv header has no email column (want %s)", strings.Join(voiceColumns, ","))
	}

	var out []types.VoiceSample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		email := strings.ToLower(get("email"))
		if email == "" {
			logging.StoreWarn("csv line %d has no email, skipping", line)
			continue
		}
		v := types.VoiceSample{
			Email:        email,
			ExamplePost1: get("example_post_1"),
			ExamplePost2: get("example_post_2"),
			ExamplePost3: get("example_post_3"),
			Blurb:        get("blurb"),
		}
		if raw := get("is_sample"); raw != "" {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: is_sample %q: %w", line, raw, err)
			}
			v.IsSample = b
		}
		out = append(out, v)
	}
	return out, nil
}
