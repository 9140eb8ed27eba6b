package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/amishk599/jobsift/internal/notifier"
	"github.com/amishk599/jobsift/internal/store"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run once without persisting anything",
	Long:  "Dry run: scrapes, enriches and classifies once, prints a summary and exits. Writes no rows, no snapshot and takes no lock.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("check mode: nothing will be stored")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := buildComponents(cfg, logger)
	if err != nil {
		logger.Error("invalid search config", "error", err)
		return err
	}
	classifier, err := setupClassifier(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up classifier", "error", err)
		return err
	}

	// Matches are printed through the log notifier; nothing leaves the machine.
	runner := buildRunner(cfg, c, classifier, store.NewNopStore(), nil, notifier.NewLogNotifier(logger), "", logger)
	report, err := runner.Run(ctx)
	if err != nil {
		logger.Error("check failed", "error", err)
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "search:      %s\n", c.searchURL)
	fmt.Fprintf(out, "extracted:   %d\n", report.Extracted)
	fmt.Fprintf(out, "matched:     %d\n", report.Matched)
	fmt.Fprintf(out, "enriched:    %d (%d failed)\n", report.Enriched, report.FetchFailed)
	fmt.Fprintf(out, "classified:  %d (%d unclassified, %d violations)\n", report.Classified, report.Unclassified, report.Violations)
	fmt.Fprintf(out, "new:         %d\n", report.Notified)
	if err := report.Err(); err != nil {
		fmt.Fprintf(out, "errors:      %v\n", err)
	}

	logger.Info("check complete")
	return nil
}
