package notifier

import (
	"context"
	"log/slog"
	"strings"

	"github.com/amishk599/jobsift/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new listings to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each listing via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each listing with its classification when one exists.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, alerts []model.Alert) error {
	for _, a := range alerts {
		j := a.Job
		args := []any{"company", j.Company, "title", j.Title, "location", j.Location, "url", j.JobURL}
		if j.PostingDate != "" {
			args = append(args, "posted", j.PostingDate)
		}
		if a.Classified {
			args = append(args,
				"seniority", a.Classification.Value(model.FieldSeniorityLevel),
				"cloud", a.Classification.Value(model.FieldCloudPreference),
				"skills", strings.Join(a.Classification.Skills(), ","),
			)
		}
		n.logger.Info("new listing", args...)
	}
	return nil
}
