package main

import (
	"encoding/json"
	"fmt"

	"postcouncil/internal/types"

	"github.com/spf13/cobra"
)

var (
	logsExecution string
	logsCampaign  string
	logsStep      string
	logsStatus    string
	logsLimit     int
	logsJSON      bool
)

// logsCmd reads back the execution log
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the execution log",
	Long: `Lists execution log entries in the order they were written.

--execution matches by prefix, so an activation id shows every unit of
that activation:
  postcouncil logs --execution exec_20250301_120000_abcd1234
  postcouncil logs --campaign spring-launch --status error`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsExecution, "execution", "", "Execution id prefix")
	logsCmd.Flags().StringVar(&logsCampaign, "campaign", "", "Campaign id")
	logsCmd.Flags().StringVar(&logsStep, "step", "", "Step name (e.g. llm_aggregator)")
	logsCmd.Flags().StringVar(&logsStatus, "status", "", "success, partial or error")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 200, "Maximum entries (0 for all)")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "Print entries as JSON lines")
}

func runLogs(cmd *cobra.Command, args []string) error {
	switch types.LogStatus(logsStatus) {
	case "", types.LogSuccess, types.LogPartial, types.LogError:
	default:
		return fmt.Errorf("unknown status %q (valid: success, partial, error)", logsStatus)
	}

	s, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.ListLogs(cmd.Context(), types.LogFilter{
		ExecutionPrefix: logsExecution,
		CampaignID:      logsCampaign,
		Step:            logsStep,
		Status:          types.LogStatus(logsStatus),
		Limit:           logsLimit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if logsJSON {
		enc := json.NewEncoder(out)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no log entries"))
		return nil
	}
	fmt.Fprintln(out, renderLogs(entries))
	return nil
}
