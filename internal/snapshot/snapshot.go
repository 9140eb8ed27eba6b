package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/amishk599/jobsift/internal/model"
)

// Record is one row of the per-run Parquet snapshot.
type Record struct {
	Title          string            `parquet:"title"`
	Company        string            `parquet:"company"`
	Location       string            `parquet:"location"`
	PostingDate    string            `parquet:"posting_date,optional"`
	JobURL         string            `parquet:"job_url"`
	JobDescription string            `parquet:"job_description"`
	Criteria       map[string]string `parquet:"criteria"`
}

// Writer writes one Parquet file per run into dir.
type Writer struct {
	dir          string
	lookbackDays int
	now          func() time.Time
}

// NewWriter creates a Writer. lookbackDays only appears in the file name.
func NewWriter(dir string, lookbackDays int) *Writer {
	return &Writer{dir: dir, lookbackDays: lookbackDays, now: time.Now}
}

// FileName returns the snapshot file name for a run on day.
func FileName(lookbackDays int, day time.Time) string {
	return fmt.Sprintf("jobs_from_%d_days_%s.parquet", lookbackDays, day.Format(time.DateOnly))
}

// Write stores listings and returns the file path. A second run on the same
// day replaces the earlier file.
func (w *Writer) Write(listings []model.JobListing) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	records := make([]Record, len(listings))
	for i, j := range listings {
		records[i] = Record{
			Title:          j.Title,
			Company:        j.Company,
			Location:       j.Location,
			PostingDate:    j.PostingDate,
			JobURL:         j.JobURL,
			JobDescription: j.Description,
			Criteria:       j.Criteria,
		}
	}

	path := filepath.Join(w.dir, FileName(w.lookbackDays, w.now()))
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// Read loads a snapshot file.
func Read(path string) ([]Record, error) {
	records, err := parquet.ReadFile[Record](path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return records, nil
}
