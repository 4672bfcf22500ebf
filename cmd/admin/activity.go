package main

import (
	"errors"

	"github.com/spf13/cobra"

	"petquest.ai/internal/persistence/indexdb"
)

var activityLimit int

var activityCmd = &cobra.Command{
	Use:   "activity <address>",
	Short: "show indexed requests and token volumes for an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tune, _, err := loadTuning()
		if err != nil {
			return err
		}
		if tune.IndexPath == "" {
			return errors.New("index_path is not configured")
		}
		idx, err := indexdb.OpenSQLite(tune.IndexPath)
		if err != nil {
			return err
		}
		defer idx.Close()

		ctx := cmd.Context()
		acts, err := idx.Activity(ctx, args[0], activityLimit)
		if err != nil {
			return err
		}
		vol, err := idx.Volumes(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(struct {
			Address  string             `json:"address"`
			Volume   indexdb.Volume     `json:"volume"`
			Requests []indexdb.Activity `json:"requests"`
		}{args[0], vol, acts})
	},
}

func init() {
	activityCmd.Flags().IntVar(&activityLimit, "limit", 30, "max requests to show")
	rootCmd.AddCommand(activityCmd)
}
