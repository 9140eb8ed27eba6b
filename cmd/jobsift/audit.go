package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/amishk599/jobsift/internal/ai"
	"github.com/amishk599/jobsift/internal/audit"
	"github.com/amishk599/jobsift/internal/config"
	"github.com/amishk599/jobsift/internal/filter"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/scrape"
	"github.com/amishk599/jobsift/internal/store"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse listings interactively (TUI)",
	Long:  "Shows the source picker TUI, then launches the split-pane audit view. Nothing is written to the store.",
	RunE:  runAuditCmd,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		return err
	}

	// Any log output while the alt-screen is up corrupts the display.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := buildComponents(cfg, silentLogger)
	if err != nil {
		return err
	}
	classifier, err := setupClassifier(context.Background(), cfg, silentLogger)
	if err != nil {
		fmt.Printf("Classifier disabled: %v\n", err)
		classifier = ai.NewNopClassifier()
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		fmt.Printf("Store unavailable: %v\n", err)
	} else {
		defer sqlStore.Close()
	}

	runAudit(cfg, c, classifier, sqlStore, silentLogger)
	return nil
}

func runAudit(cfg *config.Config, c *components, classifier model.Classifier, sqlStore *store.SQLiteStore, logger *slog.Logger) {
	sources := []audit.Source{
		{Label: "Scrape search page now", Hint: c.searchURL},
	}
	if sqlStore != nil {
		sources = append(sources, audit.Source{Label: "Browse stored listings", Hint: cfg.Storage.DBPath})
	}

	jobFilter := filter.NewTitleKeywordFilter(cfg.Filters.TitleKeywords)
	taxonomy := ai.DefaultTaxonomy()

	for {
		choice, err := audit.RunSourcePicker(sources)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return
		}
		if choice < 0 {
			return
		}

		var (
			jobs            []model.JobListing
			classifications map[string]model.Classification
		)
		switch choice {
		case 0:
			jobs, err = audit.RunLoader("search page", func(ctx context.Context) ([]model.JobListing, error) {
				doc, err := c.searchFetcher.Fetch(ctx, c.searchURL)
				if err != nil {
					return nil, err
				}
				return scrape.ExtractListings(doc, cfg.Search.ViewURL, logger)
			})
		case 1:
			jobs, err = audit.RunLoader(cfg.Storage.DBPath, func(ctx context.Context) ([]model.JobListing, error) {
				listings, err := sqlStore.ListListings(ctx, cfg.Storage.ListingsTable)
				if err != nil {
					return nil, err
				}
				classifications, err = loadClassifications(ctx, sqlStore, cfg.Storage.ClassificationsTable, listings)
				return listings, err
			})
		}
		if err != nil {
			fmt.Printf("Error loading listings: %v\n", err)
			continue
		}

		var matched []model.JobListing
		for _, j := range jobs {
			if jobFilter.Match(j) {
				matched = append(matched, j)
			}
		}

		opts := audit.Options{
			Enrich: func(ctx context.Context, job model.JobListing) (model.JobListing, error) {
				err := c.enricher.EnrichOne(ctx, &job)
				return job, err
			},
			Classifier:      classifier,
			Violations:      taxonomy.Violations,
			Classifications: classifications,
		}
		wantQuit, err := audit.RunAuditTUI(jobs, matched, opts)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return
		}
		// else: loop → back to picker
	}
}

func loadClassifications(ctx context.Context, sqlStore *store.SQLiteStore, table string, listings []model.JobListing) (map[string]model.Classification, error) {
	out := make(map[string]model.Classification)
	for _, l := range listings {
		c, ok, err := sqlStore.GetClassification(ctx, table, l.JobURL)
		if err != nil {
			return nil, err
		}
		if ok {
			out[l.JobURL] = c
		}
	}
	return out, nil
}
