package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"petquest.ai/internal/host"
)

var replayDir string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "re-execute the audit log against a fresh store and compare response digests",
	RunE: func(cmd *cobra.Command, args []string) error {
		tune, log, err := loadTuning()
		if err != nil {
			return err
		}
		dir := replayDir
		if dir == "" {
			dir = tune.AuditDir
		}
		if dir == "" {
			return errors.New("missing --audit and audit_dir is not configured")
		}
		rep, err := host.Replay(cmd.Context(), tune, dir, log)
		if err != nil {
			return err
		}
		if err := printJSON(rep); err != nil {
			return err
		}
		if len(rep.Mismatches) > 0 {
			return fmt.Errorf("%d of %d entries diverged", len(rep.Mismatches), rep.Entries)
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayDir, "audit", "", "audit dir (default: audit_dir)")
	rootCmd.AddCommand(replayCmd)
}
