package scrape

import (
	"fmt"
	"net/url"
	"strconv"
)

// SearchURL builds the guest search URL for keywords in location, limited to
// postings from the last lookbackSeconds.
func SearchURL(base, keywords, location string, lookbackSeconds int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse search url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("keywords", keywords)
	if location != "" {
		q.Set("location", location)
	}
	if lookbackSeconds > 0 {
		q.Set("f_TPR", "r"+strconv.Itoa(lookbackSeconds))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
