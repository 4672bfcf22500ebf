package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"petquest.ai/internal/persistence/kv"
	"petquest.ai/internal/persistence/snapshot"
	"petquest.ai/internal/sim/state"
)

var (
	snapOut      string
	snapRequests uint64
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "export, import or inspect state snapshots",
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export",
	Short: "write the store at store_path to a snapshot file",
	RunE: func(cmd *cobra.Command, args []string) error {
		tune, log, err := loadTuning()
		if err != nil {
			return err
		}
		if tune.StorePath == "" {
			return errors.New("store_path is not configured")
		}
		out := snapOut
		if out == "" {
			if tune.SnapshotDir == "" {
				return errors.New("missing --out and snapshot_dir is not configured")
			}
			out = snapshot.PathFor(tune.SnapshotDir, snapRequests)
		}

		store, err := kv.OpenBolt(tune.StorePath, state.Buckets...)
		if err != nil {
			return err
		}
		defer store.Close()

		snap, err := snapshot.Capture(cmd.Context(), store, snapRequests)
		if err != nil {
			return err
		}
		if err := snapshot.WriteSnapshot(out, snap); err != nil {
			return err
		}
		log.WithField("path", out).Info("snapshot exported")
		return printJSON(snap.Header)
	},
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "replace the store at store_path with a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tune, log, err := loadTuning()
		if err != nil {
			return err
		}
		if tune.StorePath == "" {
			return errors.New("store_path is not configured")
		}
		snap, err := snapshot.ReadSnapshot(args[0])
		if err != nil {
			return err
		}
		store, err := kv.OpenBolt(tune.StorePath, state.Buckets...)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := snapshot.Restore(cmd.Context(), store, snap); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"path": args[0], "pets": snap.Header.Pets}).Info("snapshot imported")
		return nil
	},
}

var snapshotInfoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "print a snapshot header",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := snapshot.ReadHeader(args[0])
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		return printJSON(h)
	},
}

func init() {
	snapshotExportCmd.Flags().StringVar(&snapOut, "out", "", "output path (default: <snapshot_dir>/<requests>.snap.zst)")
	snapshotExportCmd.Flags().Uint64Var(&snapRequests, "requests", 0, "request sequence recorded in the header")
	snapshotCmd.AddCommand(snapshotExportCmd, snapshotImportCmd, snapshotInfoCmd)
	rootCmd.AddCommand(snapshotCmd)
}
