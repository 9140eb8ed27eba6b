package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobsift/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

const messageGap = 500 * time.Millisecond

// SlackNotifier sends listing alerts to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each listing to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends each alert as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(ctx context.Context, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	failures := 0
	for i, a := range alerts {
		if i > 0 {
			if err := sleep(ctx, messageGap); err != nil {
				return err
			}
		}

		if err := s.sendMessage(ctx, a); err != nil {
			s.logger.Error("slack notification failed", "company", a.Job.Company, "title", a.Job.Title, "error", err)
			failures++
		}
	}

	sent := len(alerts) - failures
	if failures == len(alerts) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "sent", sent, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(ctx context.Context, a model.Alert) error {
	body, err := json.Marshal(buildPayload(a))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}

	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter.String())
		if err := sleep(ctx, retryAfter); err != nil {
			return err
		}
		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		s.logger.Info("slack message sent", "company", a.Job.Company, "title", a.Job.Title, "retried", true)
		return nil
	}

	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Info("slack message sent", "company", a.Job.Company, "title", a.Job.Title)
	return nil
}

// post sends body once and reports the status and the Retry-After delay
// (at least one second).
func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

// SendTestMessage sends a dummy listing to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	test := model.Alert{
		Job: model.JobListing{
			Title:       "Test Notification",
			Company:     "jobsift",
			Location:    "Everywhere",
			PostingDate: time.Now().Format(time.DateOnly),
			JobURL:      "https://www.linkedin.com/jobs/",
			Criteria:    map[string]string{"seniority_level": "entry_level"},
		},
	}
	return n.Notify(ctx, []model.Alert{test})
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}

func buildPayload(a model.Alert) slackPayload {
	j := a.Job
	posted := "Not listed"
	if j.PostingDate != "" {
		posted = j.PostingDate
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "🚀 " + j.Company + ": " + j.Title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Company:*\n" + orNA(j.Company)},
				{Type: "mrkdwn", Text: "*Location:*\n" + orNA(j.Location)},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Posted:*\n" + posted},
				{Type: "mrkdwn", Text: "*Level:*\n" + orNA(j.Criteria["seniority_level"])},
			},
		},
	}

	if a.Classified {
		c := a.Classification
		text := fmt.Sprintf("*Seniority:* %s   *Exp:* %s   *Cloud:* %s\n*Skills:* %s",
			orNA(c.Value(model.FieldSeniorityLevel)),
			orNA(c.Value(model.FieldYearsOfExperience)),
			orNA(c.Value(model.FieldCloudPreference)),
			orNA(strings.Join(c.Skills(), ", ")),
		)
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "View Posting"},
					URL:   j.JobURL,
					Style: "primary",
				},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}
