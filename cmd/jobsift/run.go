package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one batch and exit",
	Long:  "Scrape, enrich, snapshot, store and classify once. Exits non-zero when the batch could not run or a stage failed.",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()
	logConfig(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, closeStore, err := openRunner(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up run", "error", err)
		return err
	}
	defer closeStore()

	report, err := runner.Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err, "report", report)
		return err
	}
	if err := report.Err(); err != nil {
		logger.Error("run finished with errors", "report", report)
		return err
	}
	logger.Info("run finished", "report", report)
	return nil
}
