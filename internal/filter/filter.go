package filter

import (
	"strings"

	"github.com/amishk599/jobsift/internal/model"
)

// TitleKeywordFilter matches listings whose title contains any of the
// keywords. Matching is case-insensitive. An empty keyword list matches
// nothing, so a misconfigured run never fetches every detail page.
type TitleKeywordFilter struct {
	keywords []string
}

// NewTitleKeywordFilter returns a filter over a lower-cased copy of keywords.
func NewTitleKeywordFilter(keywords []string) *TitleKeywordFilter {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &TitleKeywordFilter{keywords: lowered}
}

// Match returns true if the listing's title contains any keyword.
func (f *TitleKeywordFilter) Match(job model.JobListing) bool {
	titleLower := strings.ToLower(job.Title)
	for _, kw := range f.keywords {
		if strings.Contains(titleLower, kw) {
			return true
		}
	}
	return false
}

// Keywords returns the normalized keyword list.
func (f *TitleKeywordFilter) Keywords() []string {
	out := make([]string, len(f.keywords))
	copy(out, f.keywords)
	return out
}
