package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

// stubModel is a minimal llms.Model returning a fixed reply.
type stubModel struct {
	reply  string
	err    error
	prompt string
}

func (m *stubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if tp, ok := part.(llms.TextContent); ok {
				m.prompt = tp.Text
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLangChainProvider_Complete(t *testing.T) {
	m := &stubModel{reply: validAnswer}
	p := NewLangChainProvider(m, llms.WithTemperature(0))

	got, err := p.Complete(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != validAnswer {
		t.Errorf("got %q", got)
	}
	if m.prompt != "classify this" {
		t.Errorf("model saw prompt %q", m.prompt)
	}
}

func TestLangChainProvider_WrapsError(t *testing.T) {
	sentinel := errors.New("quota exceeded")
	p := NewLangChainProvider(&stubModel{err: sentinel})

	if _, err := p.Complete(context.Background(), "x"); !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped sentinel", err)
	}
}
