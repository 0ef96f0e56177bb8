package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"postcouncil/internal/campaign"
	"postcouncil/internal/logging"

	"github.com/spf13/cobra"
)

var (
	activateCampaign string
	activateTrigger  string
	activateEvent    string
	activateJSON     bool
	activateProgress bool
)

// activateCmd runs one campaign activation
var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Activate a campaign and generate its posts",
	Long: `Fans the campaign out into one unit per enrolled person and post slot,
generates every post, and stores winners as pending review.

The trigger is either flags or a JSON event:
  {"campaign_id": "...", "trigger": "scheduled"}

Examples:
  postcouncil activate --campaign spring-launch --trigger manual
  postcouncil activate --event event.json
  echo '{"campaign_id":"spring-launch"}' | postcouncil activate --event -
  postcouncil activate --campaign spring-launch --progress`,
	RunE: runActivate,
}

func init() {
	activateCmd.Flags().StringVar(&activateCampaign, "campaign", "", "Campaign id")
	activateCmd.Flags().StringVar(&activateTrigger, "trigger", "manual", "Trigger reason recorded in the log")
	activateCmd.Flags().StringVar(&activateEvent, "event", "", "JSON activation event file (- for stdin)")
	activateCmd.Flags().BoolVar(&activateJSON, "json", false, "Print the summary as JSON")
	activateCmd.Flags().BoolVar(&activateProgress, "progress", false, "Show a progress bar on stderr while units run")
	activateCmd.MarkFlagsMutuallyExclusive("campaign", "event")
}

func runActivate(cmd *cobra.Command, args []string) error {
	req, err := activationRequest(cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var bar *progressRun
	var observe campaign.ProgressFunc
	if activateProgress {
		bar = newProgressRun(cmd.ErrOrStderr())
		observe = bar.Observe
	}

	orch, err := buildOrchestrator(cfg, s, observe)
	if err != nil {
		return err
	}

	timer := logging.StartTimer(logging.CategoryBoot, "activate command")
	var summary *campaign.Summary
	if bar != nil {
		summary, err = bar.Activate(ctx, orch, req)
	} else {
		summary, err = orch.Activate(ctx, req)
	}
	timer.StopWithInfo()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if activateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	fmt.Fprintln(out, renderSummary(summary))
	return nil
}

// activationRequest reads the trigger from --event or the flags.
func activationRequest(stdin io.Reader) (campaign.ActivationRequest, error) {
	var req campaign.ActivationRequest
	if activateEvent != "" {
		var (
			data []byte
			err  error
		)
		if activateEvent == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(activateEvent)
		}
		if err != nil {
			return req, fmt.Errorf("failed to read event: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("failed to parse event: %w", err)
		}
		if req.Trigger == "" {
			req.Trigger = "event"
		}
	} else {
		req = campaign.ActivationRequest{CampaignID: activateCampaign, Trigger: activateTrigger}
	}
	if req.CampaignID == "" {
		return req, fmt.Errorf("campaign id is required (--campaign or campaign_id in --event)")
	}
	return req, nil
}
