package scrape

import (
	"context"
	"errors"
	"log/slog"

	"github.com/amishk599/jobsift/internal/model"
)

// Pacer blocks between consecutive detail fetches.
type Pacer interface {
	Wait(ctx context.Context) error
}

// EnrichStats counts what one Enrich call did.
type EnrichStats struct {
	Matched  int // listings whose title matched the filter
	Skipped  int // already enriched
	Enriched int
	Failed   int
}

// Enricher fetches detail pages for keyword-matched listings and merges the
// description and criteria into them.
type Enricher struct {
	fetcher model.Fetcher
	filter  model.JobFilter
	pacer   Pacer
	logger  *slog.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(fetcher model.Fetcher, filter model.JobFilter, pacer Pacer, logger *slog.Logger) *Enricher {
	return &Enricher{
		fetcher: fetcher,
		filter:  filter,
		pacer:   pacer,
		logger:  logger,
	}
}

// Enrich mutates listings in place. A failed detail fetch leaves the listing
// skeletal and the loop continues; only context cancellation is returned.
func (e *Enricher) Enrich(ctx context.Context, listings []model.JobListing) (EnrichStats, error) {
	var stats EnrichStats
	for i := range listings {
		job := &listings[i]
		if !e.filter.Match(*job) {
			continue
		}
		stats.Matched++

		if job.Enriched() {
			stats.Skipped++
			continue
		}

		if err := e.pacer.Wait(ctx); err != nil {
			return stats, err
		}

		e.logger.Info("fetching job details", "title", job.Title, "company", job.Company)
		if err := e.EnrichOne(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stats, err
			}
			e.logger.Error("failed to fetch job details", "job_url", job.JobURL, "error", err)
			stats.Failed++
			continue
		}
		stats.Enriched++
	}
	return stats, nil
}

// EnrichOne fetches the detail page of job and merges it in, regardless of
// the filter and without pacing.
func (e *Enricher) EnrichOne(ctx context.Context, job *model.JobListing) error {
	doc, err := e.fetcher.Fetch(ctx, job.JobURL)
	if err != nil {
		return err
	}

	detail := ParseDetail(doc, e.logger)
	job.Description = detail.Description
	if len(detail.Criteria) > 0 {
		if job.Criteria == nil {
			job.Criteria = make(map[string]string, len(detail.Criteria))
		}
		for k, v := range detail.Criteria {
			job.Criteria[k] = v
		}
	}
	e.logger.Debug("enriched listing", "job_url", job.JobURL, "criteria", len(detail.Criteria))
	return nil
}
