package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"github.com/amishk599/jobsift/internal/ai"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/scrape"
	"github.com/amishk599/jobsift/internal/store"
)

// ErrRunLocked is returned when another process holds the run lock.
var ErrRunLocked = errors.New("another run is in progress")

// Store persists flat rows with upsert semantics.
type Store interface {
	Upsert(ctx context.Context, table string, ds store.Dataset, rows []store.Row) error
}

// KeyStore is implemented by stores that can report which listings they
// already hold. Without it every enriched listing counts as new.
type KeyStore interface {
	Keys(ctx context.Context, table string) (map[string]bool, error)
}

// Snapshotter writes the per-run audit file and returns its path.
type Snapshotter interface {
	Write(listings []model.JobListing) (string, error)
}

// Options names where a run reads from and writes to.
type Options struct {
	SearchURL            string // fully built search-results URL
	ViewURL              string // prefix for canonical posting URLs
	ListingsTable        string
	ClassificationsTable string
	LockPath             string // empty disables the run lock
}

// Runner owns one full batch: search -> extract -> enrich -> snapshot ->
// store listings -> classify -> store classifications.
type Runner struct {
	fetcher    model.Fetcher
	enricher   *scrape.Enricher
	classifier model.Classifier
	taxonomy   ai.Taxonomy
	store      Store
	snapshot   Snapshotter
	notifier   model.Notifier
	opts       Options
	logger     *slog.Logger
}

// NewRunner creates a runner wired with all its dependencies. snapshot may be
// nil to skip the Parquet file, notifier nil to skip alerts.
func NewRunner(
	fetcher model.Fetcher,
	enricher *scrape.Enricher,
	classifier model.Classifier,
	taxonomy ai.Taxonomy,
	st Store,
	snapshot Snapshotter,
	notifier model.Notifier,
	opts Options,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		fetcher:    fetcher,
		enricher:   enricher,
		classifier: classifier,
		taxonomy:   taxonomy,
		store:      st,
		snapshot:   snapshot,
		notifier:   notifier,
		opts:       opts,
		logger:     logger,
	}
}

// Run executes one batch. The returned error is fatal: the lock was held, the
// search page could not be fetched or parsed, or ctx was cancelled. Failures
// of later stages are collected in Report.Err and do not stop the run.
func (r *Runner) Run(ctx context.Context) (report Report, err error) {
	report.Started = time.Now()
	defer func() { report.Duration = time.Since(report.Started) }()

	if r.opts.LockPath != "" {
		lock := flock.New(r.opts.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return report, fmt.Errorf("acquiring run lock: %w", err)
		}
		if !locked {
			return report, fmt.Errorf("%s: %w", r.opts.LockPath, ErrRunLocked)
		}
		defer lock.Unlock()
	}

	doc, err := r.fetcher.Fetch(ctx, r.opts.SearchURL)
	if err != nil {
		return report, fmt.Errorf("fetching search page: %w", err)
	}

	listings, err := scrape.ExtractListings(doc, r.opts.ViewURL, r.logger)
	if err != nil {
		return report, fmt.Errorf("extracting listings: %w", err)
	}
	report.Extracted = len(listings)

	stats, err := r.enricher.Enrich(ctx, listings)
	report.Matched = stats.Matched
	report.Enriched = stats.Enriched
	report.FetchFailed = stats.Failed
	if err != nil {
		return report, fmt.Errorf("enriching listings: %w", err)
	}

	described := make([]model.JobListing, 0, len(listings))
	for _, j := range listings {
		if j.Description != "" {
			described = append(described, j)
		}
	}
	report.Described = len(described)
	r.logger.Info("listings with description", "count", len(described))
	if len(described) == 0 {
		return report, nil
	}

	if r.snapshot != nil {
		path, err := r.snapshot.Write(described)
		if err != nil {
			report.AddError("snapshot", err)
		} else {
			report.Snapshot = path
			r.logger.Info("wrote snapshot", "path", path, "rows", len(described))
		}
	}

	known, notify := r.knownListings(ctx, &report)

	rows := make([]store.Row, len(described))
	for i, j := range described {
		rows[i] = j.Row()
	}
	if err := r.store.Upsert(ctx, r.opts.ListingsTable, store.DatasetListings, rows); err != nil {
		report.AddError("store listings", err)
		notify = false
	} else {
		report.StoredListings = len(rows)
		r.logger.Info("stored listings", "table", r.opts.ListingsTable, "rows", len(rows))
	}

	classified, results := r.classify(ctx, described, &report)
	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	if len(classified) > 0 {
		if err := r.store.Upsert(ctx, r.opts.ClassificationsTable, store.DatasetClassifications, classified); err != nil {
			report.AddError("store classifications", err)
		} else {
			report.StoredClassifications = len(classified)
			r.logger.Info("stored classifications", "table", r.opts.ClassificationsTable, "rows", len(classified))
		}
	}

	if notify {
		r.notify(ctx, described, known, results, &report)
	}
	return report, nil
}

// knownListings loads the job URLs stored before this run. ok is false when
// alerts must be skipped.
func (r *Runner) knownListings(ctx context.Context, report *Report) (known map[string]bool, ok bool) {
	if r.notifier == nil {
		return nil, false
	}
	ks, isKeyStore := r.store.(KeyStore)
	if !isKeyStore {
		return nil, true
	}
	known, err := ks.Keys(ctx, r.opts.ListingsTable)
	if err != nil {
		report.AddError("notify", err)
		return nil, false
	}
	return known, true
}

// notify announces enriched listings that were not stored before this run.
func (r *Runner) notify(ctx context.Context, listings []model.JobListing, known map[string]bool, results map[string]model.Classification, report *Report) {
	var alerts []model.Alert
	for _, j := range listings {
		if !j.Enriched() || known[j.JobURL] {
			continue
		}
		c, ok := results[j.JobURL]
		alerts = append(alerts, model.Alert{Job: j, Classification: c, Classified: ok})
	}
	if len(alerts) == 0 {
		return
	}
	if err := r.notifier.Notify(ctx, alerts); err != nil {
		report.AddError("notify", err)
		return
	}
	report.Notified = len(alerts)
}

// classify runs the classifier over every listing with a real description.
// Out-of-taxonomy values are logged and kept.
func (r *Runner) classify(ctx context.Context, listings []model.JobListing, report *Report) ([]store.Row, map[string]model.Classification) {
	var rows []store.Row
	results := make(map[string]model.Classification)
	for _, j := range listings {
		if ctx.Err() != nil {
			break
		}
		if !j.Enriched() {
			report.SkippedSentinel++
			continue
		}

		c, ok := r.classifier.Classify(ctx, j.Description)
		if !ok {
			report.Unclassified++
			r.logger.Warn("no classification", "job_url", j.JobURL)
			continue
		}
		c.JobURL = j.JobURL

		if v := r.taxonomy.Violations(c); len(v) > 0 {
			report.Violations += len(v)
			r.logger.Warn("classification outside taxonomy", "job_url", j.JobURL, "violations", v)
		}
		report.Classified++
		rows = append(rows, c.Row())
		results[j.JobURL] = c
	}
	return rows, results
}
