package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangChainProvider adapts any langchaingo model to LLMProvider.
type LangChainProvider struct {
	llm  llms.Model
	opts []llms.CallOption
}

// NewLangChainProvider wraps llm. opts are passed on every call.
func NewLangChainProvider(llm llms.Model, opts ...llms.CallOption) *LangChainProvider {
	return &LangChainProvider{llm: llm, opts: opts}
}

// Complete sends prompt as a single human message and returns the text reply.
func (p *LangChainProvider) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, p.llm, prompt, p.opts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

// NewGeminiProvider creates a Google Gemini provider.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*LangChainProvider, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini model: %w", err)
	}
	return NewLangChainProvider(llm, llms.WithTemperature(0), llms.WithJSONMode()), nil
}

// NewOllamaProvider creates a provider for a local Ollama server.
func NewOllamaProvider(serverURL, model string) (*LangChainProvider, error) {
	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(serverURL),
		ollama.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	return NewLangChainProvider(llm, llms.WithTemperature(0)), nil
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(apiKey, model string) (*LangChainProvider, error) {
	llm, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create anthropic model: %w", err)
	}
	return NewLangChainProvider(llm, llms.WithTemperature(0), llms.WithMaxTokens(512)), nil
}
