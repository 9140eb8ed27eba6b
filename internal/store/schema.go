package store

import (
	"fmt"
	"regexp"
	"strings"
)

// Row is one flat record: column name -> value. Lists are stored as JSON text.
type Row = map[string]any

// Dataset selects the schema a table is created with.
type Dataset int

const (
	// DatasetListings is the scraped listing table. Its schema is open: new
	// criteria columns are added on demand.
	DatasetListings Dataset = iota + 1
	// DatasetClassifications is the model output table. Its schema is closed.
	DatasetClassifications
)

// KeyColumn is the business key of every dataset.
const KeyColumn = "job_url"

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type column struct {
	name string
	decl string
}

type schema struct {
	columns []column
	open    bool
}

var schemas = map[Dataset]schema{
	DatasetListings: {
		open: true,
		columns: []column{
			{"title", "TEXT"},
			{"company", "TEXT"},
			{"location", "TEXT"},
			{"posting_date", "DATE"},
			{KeyColumn, "TEXT PRIMARY KEY"},
			{"job_description", "TEXT"},
			{"seniority_level", "TEXT"},
			{"employment_type", "TEXT"},
			{"job_function", "TEXT"},
			{"industries", "TEXT"},
		},
	},
	DatasetClassifications: {
		columns: []column{
			{KeyColumn, "TEXT PRIMARY KEY"},
			{"task_clarity", "TEXT"},
			{"seniority_level_ai", "TEXT"},
			{"requires_degree_it", "TEXT"},
			{"mentions_certifications", "TEXT"},
			{"years_of_experience", "TEXT"},
			{"is_in_english", "TEXT"},
			{"cloud_preference", "TEXT"},
			{"skills_mentioned", "TEXT"},
		},
	},
}

func (d Dataset) String() string {
	switch d {
	case DatasetListings:
		return "listings"
	case DatasetClassifications:
		return "classifications"
	default:
		return fmt.Sprintf("dataset(%d)", int(d))
	}
}

func (d Dataset) schema() (schema, error) {
	s, ok := schemas[d]
	if !ok {
		return schema{}, fmt.Errorf("unknown dataset %d", int(d))
	}
	return s, nil
}

func (s schema) createSQL(table string) string {
	defs := make([]string, len(s.columns))
	for i, c := range s.columns {
		defs[i] = quoteIdent(c.name) + " " + c.decl
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdent(table), strings.Join(defs, ",\n\t"))
}

// quoteIdent quotes a name already checked against identRe.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
