package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/amishk599/jobsift/internal/model"
)

var (
	errNoJSONObject = errors.New("no JSON object in response")
	errUnbalanced   = errors.New("unbalanced JSON object in response")
	errNotObject    = errors.New("response is not a JSON object")
)

// RetryPolicy bounds the classification attempts for one description.
type RetryPolicy struct {
	MaxRetries int           // total attempts, at least 1
	Delay      time.Duration // slept before every attempt, including the first
}

// LLMClassifier implements model.Classifier on top of an LLMProvider.
type LLMClassifier struct {
	provider LLMProvider
	tmpl     *template.Template
	taxonomy Taxonomy
	policy   RetryPolicy
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewClassifier creates a classifier. A policy with MaxRetries < 1 is
// treated as a single attempt.
func NewClassifier(provider LLMProvider, tmpl *template.Template, taxonomy Taxonomy, policy RetryPolicy, logger *slog.Logger) *LLMClassifier {
	if policy.MaxRetries < 1 {
		policy.MaxRetries = 1
	}
	return &LLMClassifier{
		provider: provider,
		tmpl:     tmpl,
		taxonomy: taxonomy,
		policy:   policy,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Taxonomy returns the taxonomy the classifier prompts with.
func (c *LLMClassifier) Taxonomy() Taxonomy {
	return c.taxonomy
}

// Classify asks the model to classify description. ok is false when every
// attempt failed or ctx was cancelled; the caller should treat that as
// "no classification" rather than an error.
func (c *LLMClassifier) Classify(ctx context.Context, description string) (model.Classification, bool) {
	prompt, err := renderPrompt(c.tmpl, c.taxonomy, description)
	if err != nil {
		c.logger.Error("failed to render classification prompt", "error", err)
		return model.Classification{}, false
	}

	for attempt := 1; attempt <= c.policy.MaxRetries; attempt++ {
		if err := c.sleep(ctx, c.policy.Delay); err != nil {
			c.logger.Warn("classification cancelled", "attempt", attempt, "error", err)
			return model.Classification{}, false
		}

		fields, err := c.attempt(ctx, prompt)
		if err == nil {
			return model.Classification{Fields: fields}, true
		}
		if ctx.Err() != nil {
			c.logger.Warn("classification cancelled", "attempt", attempt, "error", err)
			return model.Classification{}, false
		}

		c.logger.Warn("classification attempt failed",
			"attempt", attempt,
			"max_retries", c.policy.MaxRetries,
			"error", err,
		)
	}

	c.logger.Error("classification gave up", "attempts", c.policy.MaxRetries)
	return model.Classification{}, false
}

// attempt performs one provider call and runs the response through the
// extract, parse and validate steps.
func (c *LLMClassifier) attempt(ctx context.Context, prompt string) (map[string]any, error) {
	raw, err := c.provider.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	text, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	v, err := parseJSON(text)
	if err != nil {
		return nil, err
	}

	return validateKeys(v)
}

// extractJSON returns the text between the first '{' and the last '}' of raw,
// provided its braces and brackets balance. Characters inside JSON strings
// are ignored when balancing.
func extractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", errNoJSONObject
	}
	candidate := raw[start : end+1]

	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(candidate); i++ {
		ch := candidate[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			open := byte('{')
			if ch == ']' {
				open = '['
			}
			if len(stack) == 0 || stack[len(stack)-1] != open {
				return "", errUnbalanced
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) != 0 || inString {
		return "", errUnbalanced
	}
	return candidate, nil
}

// parseJSON decodes text into a generic JSON value.
func parseJSON(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

// validateKeys checks that v is an object carrying every classification field.
func validateKeys(v any) (map[string]any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	var missing []string
	for _, f := range model.ClassificationFields {
		if _, ok := obj[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("response missing keys %v", missing)
	}
	return obj, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
