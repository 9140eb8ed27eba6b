package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Report summarises one run.
type Report struct {
	Started  time.Time
	Duration time.Duration

	Extracted   int // cards on the search page
	Matched     int // titles that passed the keyword filter
	Enriched    int
	FetchFailed int
	Described   int // listings carrying any description, sentinel included

	Snapshot              string
	StoredListings        int
	Classified            int
	Unclassified          int
	SkippedSentinel       int
	Violations            int
	StoredClassifications int
	Notified              int // alerts sent for listings new to the store

	errs []error
}

// AddError records a contained failure of one stage.
func (r *Report) AddError(stage string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s: %w", stage, err))
}

// Err joins the errors of every stage that failed, or returns nil.
func (r Report) Err() error {
	return errors.Join(r.errs...)
}

// LogValue implements slog.LogValuer.
func (r Report) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("extracted", r.Extracted),
		slog.Int("matched", r.Matched),
		slog.Int("enriched", r.Enriched),
		slog.Int("fetch_failed", r.FetchFailed),
		slog.Int("described", r.Described),
		slog.Int("stored_listings", r.StoredListings),
		slog.Int("classified", r.Classified),
		slog.Int("unclassified", r.Unclassified),
		slog.Int("stored_classifications", r.StoredClassifications),
		slog.Int("notified", r.Notified),
		slog.Duration("duration", r.Duration.Round(time.Millisecond)),
	}
	if r.Snapshot != "" {
		attrs = append(attrs, slog.String("snapshot", r.Snapshot))
	}
	if err := r.Err(); err != nil {
		attrs = append(attrs, slog.String("errors", err.Error()))
	}
	return slog.GroupValue(attrs...)
}
