package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	commonhttp "bank-assistant/internal/common/http"
)

// GatewayConfig targets the in-house GenAI gateway (/api/ai/generate, /api/ai/embed).
type GatewayConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// GatewayClient implements Generator and Embedder over the gateway's JSON API.
type GatewayClient struct {
	http    *commonhttp.Client
	baseURL string
	model   string
	timeout time.Duration
}

type gatewayGenerateRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type gatewayGenerateResponse struct {
	Text string `json:"text"`
}

type gatewayEmbedRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type gatewayEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func NewGatewayClient(cfg GatewayConfig) *GatewayClient {
	client := commonhttp.NewClient(0, cfg.MaxRetries)
	if cfg.APIKey != "" {
		client.WithHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &GatewayClient{
		http:    client,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

func (g *GatewayClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var resp gatewayGenerateResponse
	err := g.http.PostJSON(ctx, g.baseURL+"/api/ai/generate", gatewayGenerateRequest{
		Prompt:      prompt,
		Model:       g.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}, &resp)
	if err != nil {
		return "", mapHTTPError(err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenAIRequestFailed)
	}
	return text, nil
}

func (g *GatewayClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var resp gatewayEmbedResponse
	err := g.http.PostJSON(ctx, g.baseURL+"/api/ai/embed", gatewayEmbedRequest{
		Text:  text,
		Model: g.model,
	}, &resp)
	if err != nil {
		return nil, mapHTTPError(err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrGenAIRequestFailed)
	}
	return resp.Embedding, nil
}

func (g *GatewayClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func mapHTTPError(err error) error {
	if errors.Is(err, commonhttp.ErrRequestTimeout) {
		return ErrGenAITimeout
	}
	return fmt.Errorf("%w: %v", ErrGenAIRequestFailed, err)
}
