package scrape

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/amishk599/jobsift/internal/model"
)

const (
	descriptionSelector   = "div.description__text.description__text--rich"
	criteriaListSelector  = "ul.description__job-criteria-list"
	criteriaItemSelector  = "li.description__job-criteria-item"
	criteriaKeySelector   = "h3.description__job-criteria-subheader"
	criteriaValueSelector = "span.description__job-criteria-text--criteria"
)

// columnRe matches criterion keys usable as store column names.
var columnRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Detail is what a job detail page contributes to a listing.
type Detail struct {
	Description string
	Criteria    map[string]string
}

// ParseDetail extracts the description text and the criteria list from a
// job detail document. A missing description yields model.DescriptionNotFound.
func ParseDetail(doc *goquery.Document, logger *slog.Logger) Detail {
	return Detail{
		Description: parseDescription(doc),
		Criteria:    parseCriteria(doc, logger),
	}
}

func parseDescription(doc *goquery.Document) string {
	desc := doc.Find(descriptionSelector).First()
	if desc.Length() == 0 {
		return model.DescriptionNotFound
	}

	// Criteria values and "show more" toggles live in span/a.
	desc.Find("span, a").Remove()
	desc.Find("ul li").PrependHtml("-")

	var parts []string
	for _, n := range desc.Nodes {
		collectText(n, &parts)
	}

	text := strings.Join(parts, "\n")
	text = strings.ReplaceAll(text, "\n\n", "")
	text = strings.ReplaceAll(text, "::marker", "-")
	text = strings.ReplaceAll(text, "-\n", "- ")
	text = strings.ReplaceAll(text, "Show less", "")
	text = strings.ReplaceAll(text, "Show more", "")
	return strings.TrimSpace(text)
}

// collectText appends every non-blank text node under n in document order.
func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			*parts = append(*parts, s)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

func parseCriteria(doc *goquery.Document, logger *slog.Logger) map[string]string {
	criteria := make(map[string]string)

	list := doc.Find(criteriaListSelector).First()
	if list.Length() == 0 {
		logger.Warn("detail page has no criteria list")
		return criteria
	}

	list.Find(criteriaItemSelector).Each(func(i int, item *goquery.Selection) {
		key := item.Find(criteriaKeySelector).First()
		value := item.Find(criteriaValueSelector).First()
		if key.Length() == 0 || value.Length() == 0 {
			logger.Warn("skipping malformed criteria item", "index", i)
			return
		}
		name := criterionKey(key.Text())
		if !columnRe.MatchString(name) {
			logger.Warn("skipping criteria item with unusable label", "index", i, "label", strings.TrimSpace(key.Text()))
			return
		}
		criteria[name] = normalizeCriterion(value.Text())
	})
	return criteria
}

// criterionKey turns a criteria label into a column name: accents are
// stripped, letters lower-cased and every run of other characters becomes
// one underscore, e.g. "Nivel de antigüedad" -> "nivel_de_antiguedad".
func criterionKey(label string) string {
	var b strings.Builder
	underscore := false
	for _, r := range norm.NFD.String(strings.ToLower(label)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		default:
			if !underscore && b.Len() > 0 {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// normalizeCriterion lower-cases s and joins its words with underscores,
// e.g. "Seniority level" -> "seniority_level".
func normalizeCriterion(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "_"))
}
