package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/amishk599/jobsift/internal/config"
	"github.com/amishk599/jobsift/internal/scheduler"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scraping daemon",
	Long:  "Start the scheduler daemon: one run immediately, then one per schedule.interval. Blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

// setup loads the config and builds the logger described by it. The
// returned cleanup flushes and closes the log file.
func setup() (*config.Config, *slog.Logger, func() error, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load config", "error", err)
		return nil, nil, nil, err
	}
	logger, cleanup := config.SetupLogger(debug, cfg.LogFile)
	return cfg, logger, cleanup, nil
}

func runStart(cmd *cobra.Command, args []string) error {
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

	sched := scheduler.NewScheduler(runner, cfg.Schedule.Interval, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		return err
	}

	logger.Info("goodbye")
	return nil
}
