package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DescriptionNotFound is stored as the description when a detail page has
// no description container.
const DescriptionNotFound = "Could not find Job Description"

// JobListing is one job posting as scraped from a search-results page and,
// later, its detail page.
type JobListing struct {
	Title       string
	Company     string
	Location    string
	PostingDate string            // ISO date, empty when the card has no date tag
	JobURL      string            // canonical view URL, unique business key
	Description string            // empty until enriched
	Criteria    map[string]string // dynamic detail-page criteria, e.g. seniority_level
}

// Enriched reports whether the listing already carries a real description.
func (j JobListing) Enriched() bool {
	return j.Description != "" && j.Description != DescriptionNotFound
}

// Row flattens the listing into a column -> value map. Criteria keys become
// columns next to the fixed fields.
func (j JobListing) Row() map[string]any {
	row := map[string]any{
		"title":           j.Title,
		"company":         j.Company,
		"location":        j.Location,
		"posting_date":    nullIfEmpty(j.PostingDate),
		"job_url":         j.JobURL,
		"job_description": j.Description,
	}
	for k, v := range j.Criteria {
		if _, fixed := row[k]; fixed {
			continue
		}
		row[k] = v
	}
	return row
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Classification field names, in the order the model is asked for them.
const (
	FieldTaskClarity            = "task_clarity"
	FieldSeniorityLevel         = "seniority_level_ai"
	FieldRequiresDegreeIT       = "requires_degree_it"
	FieldMentionsCertifications = "mentions_certifications"
	FieldYearsOfExperience      = "years_of_experience"
	FieldIsInEnglish            = "is_in_english"
	FieldCloudPreference        = "cloud_preference"
	FieldSkillsMentioned        = "skills_mentioned"
)

// ClassificationFields lists the eight keys every classification must carry.
var ClassificationFields = []string{
	FieldTaskClarity,
	FieldSeniorityLevel,
	FieldRequiresDegreeIT,
	FieldMentionsCertifications,
	FieldYearsOfExperience,
	FieldIsInEnglish,
	FieldCloudPreference,
	FieldSkillsMentioned,
}

// Classification is the validated model output for one listing.
type Classification struct {
	JobURL string
	Fields map[string]any // parsed JSON object, all ClassificationFields present
}

// Value returns a scalar field as a string. Non-string JSON values are
// rendered with fmt so a loosely typed answer ("Yes" vs true) is still kept.
func (c Classification) Value(key string) string {
	v, ok := c.Fields[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Skills returns skills_mentioned as a string slice. A single string answer
// is treated as a one-element list.
func (c Classification) Skills() []string {
	switch v := c.Fields[FieldSkillsMentioned].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}
		}
		return []string{v}
	default:
		return []string{}
	}
}

// Row flattens the classification into a column -> value map keyed by job_url.
func (c Classification) Row() map[string]any {
	row := map[string]any{"job_url": c.JobURL}
	for _, f := range ClassificationFields {
		if f == FieldSkillsMentioned {
			row[f] = c.Skills()
			continue
		}
		row[f] = c.Value(f)
	}
	return row
}

// Fetcher retrieves and parses a markup document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Classifier turns a job description into a Classification. ok is false
// when no valid classification could be produced.
type Classifier interface {
	Classify(ctx context.Context, description string) (result Classification, ok bool)
}

// JobFilter decides whether a listing should be enriched.
type JobFilter interface {
	Match(job JobListing) bool
}

// Alert is one listing stored for the first time, announced after a run.
type Alert struct {
	Job            JobListing
	Classification Classification
	Classified     bool // false when the classifier gave up or was disabled
}

// Notifier announces newly stored listings.
type Notifier interface {
	Notify(ctx context.Context, alerts []Alert) error
}
