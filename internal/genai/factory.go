package genai

import (
	"fmt"

	"bank-assistant/internal/common/config"
)

// Backend is both a Generator and an Embedder.
type Backend interface {
	Generator
	Embedder
}

// NewGenerator builds the configured generation backend with the given retry budget.
// The intent classifier passes zero so that a failed call falls back immediately.
func NewGenerator(cfg config.LLMConfig, maxRetries int) (Generator, error) {
	return newBackend(cfg.Provider, cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout, maxRetries)
}

func NewEmbedder(cfg config.EmbeddingConfig, maxRetries int) (Embedder, error) {
	return newBackend(cfg.Provider, cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout, maxRetries)
}

func newBackend(provider, baseURL, apiKey, model string, timeoutMs, maxRetries int) (Backend, error) {
	switch provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Model:      model,
			Timeout:    config.GetDuration(timeoutMs),
			MaxRetries: maxRetries,
		}), nil
	case config.ProviderGateway:
		return NewGatewayClient(GatewayConfig{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Model:      model,
			Timeout:    config.GetDuration(timeoutMs),
			MaxRetries: maxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown genai provider %q", provider)
	}
}
