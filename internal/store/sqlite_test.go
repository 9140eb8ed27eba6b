package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/scrape"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const (
	listings        = "base_table"
	classifications = "genai_table"
	jobURL          = "https://www.linkedin.com/jobs/view/1/"
)

func TestUpsert_EmptyBatchIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.Upsert(context.Background(), listings, DatasetListings, nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	// The table is not created for an empty batch and reads as empty.
	got, err := s.ListListings(context.Background(), listings)
	if err != nil {
		t.Fatalf("ListListings: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListListings = %v, want none", got)
	}
	if _, ok, err := s.GetClassification(context.Background(), classifications, jobURL); ok || err != nil {
		t.Errorf("GetClassification on missing table = ok %v, err %v", ok, err)
	}
}

func TestUpsert_SecondBatchOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []Row{{"job_url": jobURL, "title": "Data Engineer", "company": "Acme", "posting_date": "2025-04-01"}}
	second := []Row{{"job_url": jobURL, "title": "Senior Data Engineer", "company": "Acme Corp", "posting_date": "2025-04-08"}}

	if err := s.Upsert(ctx, listings, DatasetListings, first); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	if err := s.Upsert(ctx, listings, DatasetListings, second); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, err := s.ListListings(ctx, listings)
	if err != nil {
		t.Fatalf("ListListings: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].Title != "Senior Data Engineer" || got[0].Company != "Acme Corp" {
		t.Errorf("row not overwritten: %+v", got[0])
	}
	if got[0].PostingDate != "2025-04-08" {
		t.Errorf("PostingDate = %q", got[0].PostingDate)
	}
}

func TestUpsert_LastRowWinsWithinBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := []Row{
		{"job_url": jobURL, "title": "first"},
		{"job_url": jobURL, "title": "second"},
	}
	if err := s.Upsert(ctx, listings, DatasetListings, rows); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := s.ListListings(ctx, listings)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "second" {
		t.Errorf("got %+v", got)
	}
}

func TestUpsert_KeyOnlyBatchLeavesRowUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, listings, DatasetListings, []Row{{"job_url": jobURL, "title": "Data Engineer"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, listings, DatasetListings, []Row{{"job_url": jobURL}}); err != nil {
		t.Fatalf("key-only Upsert: %v", err)
	}

	got, err := s.ListListings(ctx, listings)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Data Engineer" {
		t.Errorf("row changed by key-only batch: %+v", got)
	}
}

func TestUpsert_AddsCriteriaColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := model.JobListing{
		Title:       "Data Engineer",
		JobURL:      jobURL,
		Description: "Build pipelines",
		Criteria:    map[string]string{"seniority_level": "entry_level", "remote_policy": "hybrid"},
	}
	if err := s.Upsert(ctx, listings, DatasetListings, []Row{job.Row()}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.ListListings(ctx, listings)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Criteria["remote_policy"] != "hybrid" || got[0].Criteria["seniority_level"] != "entry_level" {
		t.Errorf("Criteria = %v", got[0].Criteria)
	}
	if got[0].PostingDate != "" {
		t.Errorf("PostingDate = %q, want empty for NULL", got[0].PostingDate)
	}
}

func TestUpsert_MissingValuesBindNull(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := []Row{
		{"job_url": jobURL, "title": "A", "company": "Acme"},
		{"job_url": "https://www.linkedin.com/jobs/view/2/", "title": "B"},
	}
	if err := s.Upsert(ctx, listings, DatasetListings, rows); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := s.ListListings(ctx, listings)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Company != "" {
		t.Errorf("got %+v", got)
	}
}

func TestUpsert_Errors(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		ds      Dataset
		rows    []Row
		wantErr error
	}{
		{
			name:    "missing key",
			table:   listings,
			ds:      DatasetListings,
			rows:    []Row{{"title": "no key"}},
			wantErr: ErrMissingKey,
		},
		{
			name:    "unknown classification column",
			table:   classifications,
			ds:      DatasetClassifications,
			rows:    []Row{{"job_url": jobURL, "salary": "100k"}},
			wantErr: ErrUnknownColumn,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			err := s.Upsert(context.Background(), tt.table, tt.ds, tt.rows)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpsert_RejectsBadIdentifiers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "jobs; DROP TABLE x", DatasetListings, []Row{{"job_url": jobURL}}); err == nil {
		t.Error("expected error for invalid table name")
	}
	if err := s.Upsert(ctx, listings, DatasetListings, []Row{{"job_url": jobURL, "Bad Column": "x"}}); err == nil {
		t.Error("expected error for invalid column name")
	}
}

func TestUpsert_FailedBatchIsRolledBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := model.Classification{JobURL: jobURL, Fields: map[string]any{model.FieldTaskClarity: "High"}}
	if err := s.Upsert(ctx, classifications, DatasetClassifications, []Row{c.Row()}); err != nil {
		t.Fatal(err)
	}

	bad := []Row{
		{"job_url": "https://www.linkedin.com/jobs/view/2/", "task_clarity": "Low"},
		{"job_url": "https://www.linkedin.com/jobs/view/3/", "salary": "100k"},
	}
	if err := s.Upsert(ctx, classifications, DatasetClassifications, bad); err == nil {
		t.Fatal("expected error")
	}
	if _, ok, err := s.GetClassification(ctx, classifications, "https://www.linkedin.com/jobs/view/2/"); err != nil || ok {
		t.Errorf("partial batch persisted: ok=%v err=%v", ok, err)
	}
}

func TestClassificationRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := model.Classification{JobURL: jobURL, Fields: map[string]any{
		model.FieldTaskClarity:     "High",
		model.FieldCloudPreference: "GCP",
		model.FieldSkillsMentioned: []any{"APIs", "Migration"},
	}}
	if err := s.Upsert(ctx, classifications, DatasetClassifications, []Row{c.Row()}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, ok, err := s.GetClassification(ctx, classifications, jobURL)
	if err != nil || !ok {
		t.Fatalf("GetClassification: ok=%v err=%v", ok, err)
	}
	if got.Value(model.FieldCloudPreference) != "GCP" {
		t.Errorf("cloud_preference = %q", got.Value(model.FieldCloudPreference))
	}
	if skills := got.Skills(); len(skills) != 2 || skills[1] != "Migration" {
		t.Errorf("skills = %v", skills)
	}
}

func TestNopStore(t *testing.T) {
	s := NewNopStore()
	if err := s.Upsert(context.Background(), listings, DatasetListings, []Row{{"title": "no key"}}); err != nil {
		t.Errorf("NopStore.Upsert: %v", err)
	}
}

func TestKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	keys, err := s.Keys(ctx, listings)
	if err != nil || len(keys) != 0 {
		t.Fatalf("Keys on missing table = %v, %v", keys, err)
	}

	rows := []Row{
		{KeyColumn: jobURL, "title": "A"},
		{KeyColumn: "https://www.linkedin.com/jobs/view/2/", "title": "B"},
	}
	if err := s.Upsert(ctx, listings, DatasetListings, rows); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	keys, err = s.Keys(ctx, listings)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || !keys[jobURL] {
		t.Errorf("Keys = %v", keys)
	}
	if _, err := s.Keys(ctx, "bad-name;"); err == nil {
		t.Error("expected error for invalid table name")
	}
}

const spanishCriteria = `<html><body>
<div class="description__text description__text--rich"><p>Construimos pipelines.</p></div>
<ul class="description__job-criteria-list">
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">Nivel de antigüedad</h3>
    <span class="description__job-criteria-text--criteria">Sin experiencia</span>
  </li>
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">Tipo de empleo</h3>
    <span class="description__job-criteria-text--criteria">Jornada completa</span>
  </li>
</ul>
</body></html>`

func TestUpsert_SpanishCriteriaStoreAlongsideEnglish(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(spanishCriteria))
	if err != nil {
		t.Fatal(err)
	}
	detail := scrape.ParseDetail(doc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	english := model.JobListing{
		Title:       "Data Engineer",
		JobURL:      jobURL,
		Description: "Build pipelines",
		Criteria:    map[string]string{"seniority_level": "entry_level"},
	}
	spanish := model.JobListing{
		Title:       "Ingeniero de datos",
		JobURL:      "https://www.linkedin.com/jobs/view/2/",
		Description: detail.Description,
		Criteria:    detail.Criteria,
	}
	if err := s.Upsert(ctx, listings, DatasetListings, []Row{english.Row(), spanish.Row()}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	keys, err := s.Keys(ctx, listings)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("stored keys = %v, want both listings", keys)
	}

	got, err := s.ListListings(ctx, listings)
	if err != nil {
		t.Fatal(err)
	}
	for _, j := range got {
		if j.JobURL != spanish.JobURL {
			continue
		}
		if j.Criteria["nivel_de_antiguedad"] != "sin_experiencia" || j.Criteria["tipo_de_empleo"] != "jornada_completa" {
			t.Errorf("Criteria = %v", j.Criteria)
		}
	}
}
