package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"petquest.ai/internal/logging"
	"petquest.ai/internal/sim/tuning"
)

var tuningPath string

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "petquest maintenance tools",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tuningPath, "tuning", "", "path to tuning.yaml (PETQUEST_* env vars override it)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "admin:", err)
		os.Exit(1)
	}
}

func loadTuning() (tuning.Tuning, *logrus.Logger, error) {
	tune, err := tuning.LoadAll(tuningPath)
	if err != nil {
		return tune, nil, fmt.Errorf("load tuning: %w", err)
	}
	log, err := logging.New(tune.LogLevel, tune.LogFormat)
	if err != nil {
		return tune, nil, err
	}
	return tune, log, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
