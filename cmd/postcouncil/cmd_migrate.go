package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// migrateCmd applies pending schema migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Long: `Opens the configured database, applying any pending embedded migrations,
and lists every migration applied so far. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		applied, err := s.AppliedMigrations(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", headerStyle.Render(s.Path()))
		for _, m := range applied {
			fmt.Fprintf(out, "  %s  %s\n", m.Name, mutedStyle.Render(m.AppliedAt.Local().Format(time.DateTime)))
		}
		return nil
	},
}
