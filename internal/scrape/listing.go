package scrape

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsift/internal/model"
)

// ErrMissingTitle is returned when a search card has no title heading.
var ErrMissingTitle = errors.New("search card has no title")

const (
	cardSelector     = "div.base-search-card__info"
	companySelector  = "a.hidden-nested-link"
	locationSelector = "span.job-search-card__location"
	dateNewSelector  = "time.job-search-card__listdate--new"
	dateSelector     = "time.job-search-card__listdate"
	entityURNAttr    = "data-entity-urn"
)

// ExtractListings turns a search-results document into skeletal listings in
// document order. Cards without a usable posting id are skipped with a
// warning; a card without a title aborts extraction.
func ExtractListings(doc *goquery.Document, viewBaseURL string, logger *slog.Logger) ([]model.JobListing, error) {
	cards := doc.Find(cardSelector)
	listings := make([]model.JobListing, 0, cards.Length())
	seen := make(map[string]bool, cards.Length())

	var extractErr error
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		title := card.Find("h3").First()
		if title.Length() == 0 {
			extractErr = fmt.Errorf("card %d: %w", i, ErrMissingTitle)
			return false
		}

		urn, _ := card.Parent().Attr(entityURNAttr)
		id := postingID(urn)
		if id == "" {
			logger.Warn("skipping card without posting id", "index", i, "urn", urn)
			return true
		}

		job := model.JobListing{
			Title:       strings.TrimSpace(title.Text()),
			Company:     strings.ReplaceAll(strings.TrimSpace(card.Find(companySelector).First().Text()), "\n", " "),
			Location:    strings.TrimSpace(card.Find(locationSelector).First().Text()),
			PostingDate: postingDate(card),
			JobURL:      viewBaseURL + id + "/",
		}

		if seen[job.JobURL] {
			logger.Warn("dropping duplicate card", "job_url", job.JobURL)
			return true
		}
		seen[job.JobURL] = true
		listings = append(listings, job)
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}

	logger.Info("extracted listings", "cards", cards.Length(), "listings", len(listings))
	return listings, nil
}

// postingID returns the last ':'-separated segment of an entity urn such as
// "urn:li:jobPosting:4012345678", or "" if the urn is malformed.
func postingID(urn string) string {
	urn = strings.TrimSpace(urn)
	idx := strings.LastIndex(urn, ":")
	if idx < 0 || idx == len(urn)-1 {
		return ""
	}
	return urn[idx+1:]
}

// postingDate prefers the new-posting tag over the regular listing date.
func postingDate(card *goquery.Selection) string {
	for _, sel := range []string{dateNewSelector, dateSelector} {
		if v, ok := card.Find(sel).First().Attr("datetime"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
