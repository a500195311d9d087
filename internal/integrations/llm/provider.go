// Package llm adapts hosted text-generation APIs to the extractor's
// Generator interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"updatestracker/internal/config"
)

// Provider performs a single completion call. Retries, rate limiting and the
// overall deadline are the Adapter's job.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// Params are the bounded sampling parameters sent with every call.
type Params struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
}

func paramsFromConfig(cfg config.Config) Params {
	return Params{
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		TopP:        0.9,
	}
}

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error: status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.Code, e.Message)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return !errors.Is(err, errNoContent)
}

var errNoContent = errors.New("no text content in response")

// NewProvider builds the provider selected by cfg.LLMProvider. It returns
// nil for the "none" provider.
func NewProvider(ctx context.Context, cfg config.Config, client *http.Client) (Provider, error) {
	params := paramsFromConfig(cfg)
	switch cfg.LLMProvider {
	case config.ProviderHuggingFace:
		return NewHuggingFaceProvider(client, cfg.HuggingFaceBaseURL, cfg.HuggingFaceAPIKey, params), nil
	case config.ProviderOpenAI:
		return NewOpenAIProvider(client, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, params), nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(client, "", cfg.AnthropicAPIKey, params), nil
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, client, "", cfg.GeminiAPIKey, params)
	case config.ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}
