package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/jobsift/internal/model"
)

func TestFileName(t *testing.T) {
	day := time.Date(2025, 4, 8, 13, 0, 0, 0, time.UTC)
	if got := FileName(1, day); got != "jobs_from_1_days_2025-04-08.parquet" {
		t.Errorf("FileName = %q", got)
	}
}

func TestWriter_WritesReadableFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	w := NewWriter(dir, 7)
	w.now = func() time.Time { return time.Date(2025, 4, 8, 0, 0, 0, 0, time.UTC) }

	listings := []model.JobListing{
		{
			Title:       "Data Engineer",
			Company:     "Acme",
			PostingDate: "2025-04-07",
			JobURL:      "https://www.linkedin.com/jobs/view/1/",
			Description: "Build pipelines",
			Criteria:    map[string]string{"seniority_level": "entry_level"},
		},
		{
			Title:       "Analytics Engineer",
			JobURL:      "https://www.linkedin.com/jobs/view/2/",
			Description: "Model data",
		},
	}

	path, err := w.Write(listings)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != "jobs_from_7_days_2025-04-08.parquet" {
		t.Errorf("path = %q", path)
	}

	records, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].JobDescription != "Build pipelines" || records[0].Criteria["seniority_level"] != "entry_level" {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[1].PostingDate != "" {
		t.Errorf("record 1 PostingDate = %q, want empty", records[1].PostingDate)
	}
}
