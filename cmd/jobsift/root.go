package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/amishk599/jobsift/internal/ai"
	"github.com/amishk599/jobsift/internal/config"
	"github.com/amishk599/jobsift/internal/filter"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/notifier"
	"github.com/amishk599/jobsift/internal/pipeline"
	"github.com/amishk599/jobsift/internal/ratelimit"
	"github.com/amishk599/jobsift/internal/retry"
	"github.com/amishk599/jobsift/internal/scrape"
	"github.com/amishk599/jobsift/internal/secrets"
	"github.com/amishk599/jobsift/internal/snapshot"
	"github.com/amishk599/jobsift/internal/store"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:           "jobsift",
	Short:         "Scrape, enrich and classify job postings",
	Long:          "jobsift scrapes a job search page, enriches matching postings with their detail page, classifies them with an LLM and stores the results.",
	SilenceUsage:  true,
	SilenceErrors: true,
	// Default to `start` so that `jobsift` with no args runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSIFT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSIFT_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBSIFT_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// setupNotifier returns the configured notifier, or nil for "none".
func setupNotifier(cfg *config.Config, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, &http.Client{Timeout: 30 * time.Second}, logger)
	case "none":
		return nil
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// setupClassifier builds the LLM classifier for cfg.AI, or a NopClassifier
// when classification is disabled.
func setupClassifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (model.Classifier, error) {
	if !cfg.AI.Enabled {
		logger.Info("classification disabled")
		return ai.NewNopClassifier(), nil
	}

	var apiKey string
	if cfg.AI.NeedsAPIKey() {
		key, err := secrets.ResolveAPIKey(cfg.AI.Provider, cfg.AI.APIKey)
		if err != nil {
			return nil, fmt.Errorf("ai.api_key not set and %w (run `jobsift secret set %s`)", err, cfg.AI.Provider)
		}
		apiKey = key
	}

	taxonomy := ai.DefaultTaxonomy()
	var (
		provider ai.LLMProvider
		err      error
	)
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		httpClient := &http.Client{Timeout: cfg.AI.Timeout}
		provider = ai.NewOpenAIProvider(cfg.AI.BaseURL, apiKey, cfg.AI.Model, taxonomy.JSONSchema(), httpClient)
	case config.ProviderGemini:
		provider, err = ai.NewGeminiProvider(ctx, apiKey, cfg.AI.Model)
	case config.ProviderOllama:
		provider, err = ai.NewOllamaProvider(cfg.AI.BaseURL, cfg.AI.Model)
	case config.ProviderAnthropic:
		provider, err = ai.NewAnthropicProvider(apiKey, cfg.AI.Model)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.AI.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.AI.Provider, err)
	}

	logger.Info("classification enabled", "provider", cfg.AI.Provider, "model", cfg.AI.Model)
	policy := ai.RetryPolicy{MaxRetries: cfg.AI.MaxRetries, Delay: cfg.AI.RetryDelay}
	return ai.NewClassifier(provider, ai.ClassifyTemplate, taxonomy, policy, logger), nil
}

// components is everything a batch needs apart from its sinks.
type components struct {
	detailFetcher model.Fetcher
	searchFetcher model.Fetcher
	enricher      *scrape.Enricher
	searchURL     string
}

func buildComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	searchURL, err := scrape.SearchURL(cfg.Search.SearchURL, cfg.Search.Keywords, cfg.Search.Location, cfg.Search.LookbackSeconds())
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout}
	fetcher := scrape.NewHTTPFetcher(httpClient, cfg.Fetch.UserAgent, cfg.Fetch.RequestsPerSecond)
	jobFilter := filter.NewTitleKeywordFilter(cfg.Filters.TitleKeywords)
	pacer := ratelimit.NewPacer(cfg.Fetch.MinDelay, cfg.Fetch.MaxDelay)

	logger.Info("enrichment filter", "title_keywords", jobFilter.Keywords())
	logger.Info("fetcher configured",
		"timeout", cfg.Fetch.Timeout.String(),
		"rps", cfg.Fetch.RequestsPerSecond,
		"min_delay", cfg.Fetch.MinDelay.String(),
		"max_delay", cfg.Fetch.MaxDelay.String(),
	)

	return &components{
		detailFetcher: fetcher,
		searchFetcher: retry.NewRetryFetcher(fetcher, cfg.Fetch.SearchRetries, cfg.Fetch.SearchRetryDelay, logger),
		enricher:      scrape.NewEnricher(fetcher, jobFilter, pacer, logger),
		searchURL:     searchURL,
	}, nil
}

// buildRunner wires a pipeline runner. snap and n may be nil, lock may be empty.
func buildRunner(cfg *config.Config, c *components, classifier model.Classifier, st pipeline.Store, snap pipeline.Snapshotter, n model.Notifier, lockPath string, logger *slog.Logger) *pipeline.Runner {
	opts := pipeline.Options{
		SearchURL:            c.searchURL,
		ViewURL:              cfg.Search.ViewURL,
		ListingsTable:        cfg.Storage.ListingsTable,
		ClassificationsTable: cfg.Storage.ClassificationsTable,
		LockPath:             lockPath,
	}
	return pipeline.NewRunner(c.searchFetcher, c.enricher, classifier, ai.DefaultTaxonomy(), st, snap, n, opts, logger)
}

// openRunner wires the persisting runner shared by run and start: SQLite
// store, Parquet snapshot, configured notifier and the run lock. The
// returned close releases the store.
func openRunner(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Runner, func() error, error) {
	c, err := buildComponents(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid search config: %w", err)
	}
	classifier, err := setupClassifier(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("set up classifier: %w", err)
	}
	sqlStore, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	snap := snapshot.NewWriter(cfg.Storage.OutputDir, cfg.Search.LookbackDays)
	lockPath := cfg.Storage.DBPath + ".lock"
	runner := buildRunner(cfg, c, classifier, sqlStore, snap, setupNotifier(cfg, logger), lockPath, logger)
	return runner, sqlStore.Close, nil
}

func logConfig(cfg *config.Config, logger *slog.Logger) {
	logger.Info("config loaded",
		"keywords", cfg.Search.Keywords,
		"location", cfg.Search.Location,
		"lookback_days", cfg.Search.LookbackDays,
		"title_keywords", len(cfg.Filters.TitleKeywords),
		"db", cfg.Storage.DBPath,
		"interval", cfg.Schedule.Interval.String(),
	)
}
