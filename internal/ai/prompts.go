package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/amishk599/jobsift/internal/model"
)

//go:embed prompts/classify.md
var classifyPromptRaw string

// ClassifyTemplate is the parsed prompt template for job classification.
// Parsed once at package init; reused on every Classify call.
var ClassifyTemplate = template.Must(template.New("classify").Funcs(template.FuncMap{
	"join": func(values []string) string {
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	},
}).Parse(classifyPromptRaw))

type promptField struct {
	Name   string
	Values []string
}

type promptData struct {
	Description string
	Fields      []promptField
	Skills      []string
}

// renderPrompt executes tmpl with the description and every taxonomy domain.
func renderPrompt(tmpl *template.Template, taxonomy Taxonomy, description string) (string, error) {
	data := promptData{
		Description: description,
		Skills:      taxonomy.Values(model.FieldSkillsMentioned),
	}
	for _, f := range model.ClassificationFields {
		if f == model.FieldSkillsMentioned {
			continue
		}
		data.Fields = append(data.Fields, promptField{Name: f, Values: taxonomy.Values(f)})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
