package notifier

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/amishk599/jobsift/internal/model"
)

func TestLogNotifier_Notify_zeroAlerts(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestLogNotifier_Notify_includesClassification(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	alerts := []model.Alert{
		{
			Job: model.JobListing{Company: "Acme", Title: "Data Engineer", JobURL: "https://example.com/1", PostingDate: "2026-10-17"},
			Classification: model.Classification{Fields: map[string]any{
				model.FieldSeniorityLevel:  "Junior",
				model.FieldSkillsMentioned: []any{"APIs", "Migration"},
			}},
			Classified: true,
		},
		{Job: model.JobListing{Company: "Beta", Title: "Analyst", JobURL: "https://example.com/2"}},
	}
	if err := n.Notify(context.Background(), alerts); err != nil {
		t.Fatalf("Notify = %v, want nil", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "seniority=Junior") || !strings.Contains(lines[0], "skills=APIs,Migration") {
		t.Errorf("first line missing classification: %q", lines[0])
	}
	if strings.Contains(lines[1], "seniority=") || strings.Contains(lines[1], "posted=") {
		t.Errorf("second line should carry neither classification nor date: %q", lines[1])
	}
}
