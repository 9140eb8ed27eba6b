package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsift/internal/filter"
	"github.com/amishk599/jobsift/internal/model"
)

const viewURL = "https://www.linkedin.com/jobs/view/"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func card(urn, inner string) string {
	return fmt.Sprintf(`<li><div class="base-card" data-entity-urn="%s"><div class="base-search-card__info">%s</div></div></li>`, urn, inner)
}

func TestExtractListings_NoCards(t *testing.T) {
	doc := mustDoc(t, `<html><body><p>No matching jobs found.</p></body></html>`)
	listings, err := ExtractListings(doc, viewURL, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listings == nil || len(listings) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", listings)
	}
}

func TestExtractListings_FullCard(t *testing.T) {
	markup := `<ul>` + card("urn:li:jobPosting:4012345678", `
		<h3 class="base-search-card__title"> Data Engineer </h3>
		<h4><a class="hidden-nested-link">Acme
Corp</a></h4>
		<span class="job-search-card__location">Madrid, Spain</span>
		<time class="job-search-card__listdate" datetime="2025-04-01">1 week ago</time>
		<time class="job-search-card__listdate--new" datetime="2025-04-08">1 hour ago</time>`) + `</ul>`

	listings, err := ExtractListings(mustDoc(t, markup), viewURL, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}

	j := listings[0]
	if j.Title != "Data Engineer" {
		t.Errorf("Title = %q", j.Title)
	}
	if j.Company != "Acme Corp" {
		t.Errorf("Company = %q, want newline replaced", j.Company)
	}
	if j.Location != "Madrid, Spain" {
		t.Errorf("Location = %q", j.Location)
	}
	if j.PostingDate != "2025-04-08" {
		t.Errorf("PostingDate = %q, want new-format date", j.PostingDate)
	}
	if j.JobURL != viewURL+"4012345678/" {
		t.Errorf("JobURL = %q", j.JobURL)
	}
	if j.Description != "" {
		t.Errorf("Description = %q, want empty before enrichment", j.Description)
	}
}

func TestExtractListings_OptionalFields(t *testing.T) {
	markup := `<ul>` +
		card("urn:li:jobPosting:1", `<h3>Analyst</h3><time class="job-search-card__listdate" datetime="2025-03-30">x</time>`) +
		card("urn:li:jobPosting:2", `<h3>Engineer</h3>`) +
		`</ul>`

	listings, err := ExtractListings(mustDoc(t, markup), viewURL, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}
	if listings[0].PostingDate != "2025-03-30" {
		t.Errorf("legacy date = %q", listings[0].PostingDate)
	}
	if listings[1].PostingDate != "" || listings[1].Company != "" || listings[1].Location != "" {
		t.Errorf("optional fields should be empty, got %+v", listings[1])
	}
}

func TestExtractListings_SkipsBadURNAndDuplicates(t *testing.T) {
	markup := `<ul>` +
		card("", `<h3>No urn</h3>`) +
		card("urn:li:jobPosting:", `<h3>Trailing colon</h3>`) +
		card("urn:li:jobPosting:7", `<h3>First</h3>`) +
		card("urn:li:jobPosting:7", `<h3>Duplicate</h3>`) +
		`</ul>`

	listings, err := ExtractListings(mustDoc(t, markup), viewURL, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 1 || listings[0].Title != "First" {
		t.Fatalf("expected only the first valid card, got %+v", listings)
	}
}

func TestExtractListings_MissingTitleAborts(t *testing.T) {
	markup := `<ul>` +
		card("urn:li:jobPosting:1", `<h3>Ok</h3>`) +
		card("urn:li:jobPosting:2", `<span class="job-search-card__location">Nowhere</span>`) +
		`</ul>`

	_, err := ExtractListings(mustDoc(t, markup), viewURL, discardLogger())
	if !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
}

const detailPage = `<html><body>
<div class="description__text description__text--rich">
  <section><div>
    <p>We build pipelines.</p>
    <ul><li>Python</li><li>SQL</li></ul>
    <span>tracking text</span>
    <a href="#">apply link</a>
  </div></section>
  <button>Show more</button>
</div>
<ul class="description__job-criteria-list">
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">Seniority level</h3>
    <span class="description__job-criteria-text description__job-criteria-text--criteria">Entry level</span>
  </li>
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">Employment type</h3>
    <span class="description__job-criteria-text description__job-criteria-text--criteria">Full-time</span>
  </li>
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">Broken</h3>
  </li>
</ul>
</body></html>`

func TestParseDetail(t *testing.T) {
	d := ParseDetail(mustDoc(t, detailPage), discardLogger())

	want := "We build pipelines.\n- Python\n- SQL"
	if d.Description != want {
		t.Errorf("Description = %q, want %q", d.Description, want)
	}
	if len(d.Criteria) != 2 {
		t.Fatalf("expected 2 criteria, got %v", d.Criteria)
	}
	if d.Criteria["seniority_level"] != "entry_level" {
		t.Errorf("seniority_level = %q", d.Criteria["seniority_level"])
	}
	if d.Criteria["employment_type"] != "full-time" {
		t.Errorf("employment_type = %q", d.Criteria["employment_type"])
	}
}

const spanishDetailPage = `<html><body>
<div class="description__text description__text--rich"><p>Construimos pipelines.</p></div>
<ul class="description__job-criteria-list">
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">Nivel de antigüedad</h3>
    <span class="description__job-criteria-text--criteria">Sin experiencia</span>
  </li>
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">Función laboral</h3>
    <span class="description__job-criteria-text--criteria">Tecnología de la información</span>
  </li>
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">Sectores (IT/Software)</h3>
    <span class="description__job-criteria-text--criteria">Software</span>
  </li>
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">2º idioma</h3>
    <span class="description__job-criteria-text--criteria">Inglés</span>
  </li>
  <li class="description__job-criteria-item">
    <h3 class="description__job-criteria-subheader">¿?</h3>
    <span class="description__job-criteria-text--criteria">x</span>
  </li>
</ul>
</body></html>`

func TestParseDetail_NonASCIILabelsBecomeColumnNames(t *testing.T) {
	d := ParseDetail(mustDoc(t, spanishDetailPage), discardLogger())

	want := map[string]string{
		"nivel_de_antiguedad":  "sin_experiencia",
		"funcion_laboral":      "tecnología_de_la_información",
		"sectores_it_software": "software",
	}
	if len(d.Criteria) != len(want) {
		t.Fatalf("Criteria = %v, want %v", d.Criteria, want)
	}
	for k, v := range want {
		if d.Criteria[k] != v {
			t.Errorf("Criteria[%q] = %q, want %q", k, d.Criteria[k], v)
		}
	}
}

func TestCriterionKey(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Seniority level", "seniority_level"},
		{"  Employment   type ", "employment_type"},
		{"Nivel de antigüedad", "nivel_de_antiguedad"},
		{"Función laboral", "funcion_laboral"},
		{"Job-function / Área", "job_function_area"},
		{"¿?", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := criterionKey(tt.label); got != tt.want {
				t.Errorf("criterionKey(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestParseDetail_MissingContainers(t *testing.T) {
	d := ParseDetail(mustDoc(t, `<html><body><h1>Sign in</h1></body></html>`), discardLogger())
	if d.Description != model.DescriptionNotFound {
		t.Errorf("Description = %q, want sentinel", d.Description)
	}
	if len(d.Criteria) != 0 {
		t.Errorf("Criteria = %v, want empty", d.Criteria)
	}
}

type fakeFetcher struct {
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*goquery.Document, error) {
	f.calls = append(f.calls, url)
	page, ok := f.pages[url]
	if !ok {
		return nil, &model.HTTPError{URL: url, StatusCode: http.StatusNotFound}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(page))
}

type countingPacer struct{ waits int }

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func TestEnricher_OnlyMatchingListings(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		viewURL + "1/": detailPage,
	}}
	pacer := &countingPacer{}
	e := NewEnricher(fetcher, filter.NewTitleKeywordFilter([]string{"data"}), pacer, discardLogger())

	listings := []model.JobListing{
		{Title: "Senior Data Engineer", JobURL: viewURL + "1/"},
		{Title: "Sales Manager", JobURL: viewURL + "2/"},
		{Title: "Big DATA Analyst", JobURL: viewURL + "3/"},
	}
	stats, err := e.Enrich(context.Background(), listings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Matched != 2 || stats.Enriched != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if pacer.waits != 2 {
		t.Errorf("pacer waits = %d, want 2", pacer.waits)
	}
	if !listings[0].Enriched() || listings[0].Criteria["seniority_level"] != "entry_level" {
		t.Errorf("listing 0 not enriched: %+v", listings[0])
	}
	if listings[1].Description != "" {
		t.Errorf("non-matching listing was enriched")
	}
	if listings[2].Description != "" {
		t.Errorf("failed fetch should leave listing skeletal, got %q", listings[2].Description)
	}
}

func TestEnricher_Idempotent(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{viewURL + "1/": detailPage}}
	pacer := &countingPacer{}
	e := NewEnricher(fetcher, filter.NewTitleKeywordFilter([]string{"data"}), pacer, discardLogger())

	listings := []model.JobListing{{Title: "Data Engineer", JobURL: viewURL + "1/"}}
	if _, err := e.Enrich(context.Background(), listings); err != nil {
		t.Fatal(err)
	}
	first := listings[0].Description

	stats, err := e.Enrich(context.Background(), listings)
	if err != nil {
		t.Fatal(err)
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("fetch calls = %d, want 1", len(fetcher.calls))
	}
	if stats.Skipped != 1 || listings[0].Description != first {
		t.Errorf("second pass changed listing: stats=%+v", stats)
	}
}

func TestEnricher_StopsOnCancel(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}
	e := NewEnricher(fetcher, filter.NewTitleKeywordFilter([]string{"data"}), &countingPacer{}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Enrich(ctx, []model.JobListing{{Title: "Data Engineer", JobURL: viewURL + "1/"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetcher called after cancel")
	}
}

func TestHTTPFetcher(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`<html><body><h1>hello</h1></body></html>`))
		case "/busy":
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client(), "test-agent/1.0", 0)

	doc, err := f.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Find("h1").Text() != "hello" {
		t.Errorf("unexpected body")
	}
	if gotUA != "test-agent/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}

	_, err = f.Fetch(context.Background(), srv.URL+"/busy")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests || httpErr.RetryAfter != 30*time.Second {
		t.Errorf("HTTPError = %+v", httpErr)
	}
}

func TestSearchURL(t *testing.T) {
	got, err := SearchURL("https://www.linkedin.com/jobs/search", "data engineer", "Spain", 86400)
	if err != nil {
		t.Fatal(err)
	}
	want := "https://www.linkedin.com/jobs/search?f_TPR=r86400&keywords=data+engineer&location=Spain"
	if got != want {
		t.Errorf("SearchURL = %q, want %q", got, want)
	}
}
