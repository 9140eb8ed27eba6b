package ai

import (
	"fmt"
	"slices"

	"github.com/amishk599/jobsift/internal/model"
)

// Taxonomy holds the allowed values for every classification field. It is
// immutable once built; accessors return copies.
type Taxonomy struct {
	domains map[string][]string // scalar field -> allowed values
	skills  []string
}

// NewTaxonomy builds a Taxonomy from scalar domains and the skills catalogue.
func NewTaxonomy(domains map[string][]string, skills []string) Taxonomy {
	t := Taxonomy{
		domains: make(map[string][]string, len(domains)),
		skills:  slices.Clone(skills),
	}
	for field, values := range domains {
		t.domains[field] = slices.Clone(values)
	}
	return t
}

// DefaultTaxonomy returns the data-engineering taxonomy jobsift ships with.
func DefaultTaxonomy() Taxonomy {
	return NewTaxonomy(map[string][]string{
		model.FieldTaskClarity:            {"High", "Medium", "Low"},
		model.FieldSeniorityLevel:         {"Junior", "Mid-Senior", "Senior", "Lead"},
		model.FieldRequiresDegreeIT:       {"Yes", "No"},
		model.FieldMentionsCertifications: {"Yes", "No"},
		model.FieldYearsOfExperience:      {"0-1", "1+", "2+", "3+", "5+", "7+"},
		model.FieldIsInEnglish:            {"Yes", "No"},
		model.FieldCloudPreference:        {"AWS", "Azure", "GCP", "No preference", "No mention"},
	}, []string{
		"Databricks or snowflake",
		"Develop pipelines or ETL/ELT processes",
		"Data modeling",
		"Data analysis or visualization",
		"Data quality",
		"Data governance",
		"Knowledge of Machine Learning or MLOps",
		"CI/CD",
		"Collaboration with data scientists or analysts",
		"Automation/Orchestration (Airflow, Prefect, Dagster, etc.)",
		"Data monitoring",
		"Migration",
		"Version control (GIT or similar)",
		"APIs",
		"Spark knowledge",
		"None of the above mentioned skills",
	})
}

// Values returns the allowed values for field. For skills_mentioned this is
// the skills catalogue.
func (t Taxonomy) Values(field string) []string {
	if field == model.FieldSkillsMentioned {
		return slices.Clone(t.skills)
	}
	return slices.Clone(t.domains[field])
}

// Violations lists every value in c that falls outside its domain. An empty
// result means the classification fits the taxonomy.
func (t Taxonomy) Violations(c model.Classification) []string {
	var out []string
	for _, field := range model.ClassificationFields {
		if field == model.FieldSkillsMentioned {
			for _, s := range c.Skills() {
				if !slices.Contains(t.skills, s) {
					out = append(out, fmt.Sprintf("%s: %q not in catalogue", field, s))
				}
			}
			continue
		}
		allowed, ok := t.domains[field]
		if !ok {
			continue
		}
		if v := c.Value(field); !slices.Contains(allowed, v) {
			out = append(out, fmt.Sprintf("%s: %q not in %v", field, v, allowed))
		}
	}
	return out
}

// JSONSchema renders the taxonomy as a strict JSON Schema object, used for
// providers that support server-side structured outputs.
func (t Taxonomy) JSONSchema() map[string]any {
	props := make(map[string]any, len(model.ClassificationFields))
	for _, field := range model.ClassificationFields {
		if field == model.FieldSkillsMentioned {
			props[field] = map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "enum": t.Values(field)},
			}
			continue
		}
		props[field] = map[string]any{"type": "string", "enum": t.Values(field)}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             slices.Clone(model.ClassificationFields),
	}
}
