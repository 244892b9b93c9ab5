// Package gemini implements the streaming remote generation backend on top
// of the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"tarotd/internal/backend"
)

const defaultModel = "gemini-2.5-flash-lite"

// Config carries the Gemini-specific settings.
type Config struct {
	// APIKey from GEMINI_API_KEY. Empty means the backend is present but
	// unavailable; every Generate fails fast without a network call.
	APIKey string
	Model  string
}

// Client streams completions from the Gemini API. It is multilingual, so it
// reports no working language and bypasses the translation pipeline.
type Client struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

// New builds the client. A missing API key is not a constructor error: the
// process still starts (health endpoints stay useful) and requests surface a
// distinct unavailable error instead.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	c := &Client{model: model, logger: logger}
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn().Msg("GEMINI_API_KEY is not set; readings will fail until it is configured")
		return c, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c.client = client
	return c, nil
}

func (c *Client) Name() string        { return "gemini" }
func (c *Client) WorkingLang() string { return "" }
func (c *Client) Streaming() bool     { return true }

// Generate streams the completion, forwarding each fragment as it arrives.
func (c *Client) Generate(ctx context.Context, req backend.Request, onFragment func(string) error) (string, error) {
	if c.client == nil {
		return "", backend.ErrUnavailable("gemini backend is not configured: GEMINI_API_KEY is missing")
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Params.Temperature)),
		TopP:              genai.Ptr(float32(req.Params.TopP)),
		TopK:              genai.Ptr(float32(req.Params.TopK)),
		MaxOutputTokens:   int32(req.Params.MaxTokens),
		StopSequences:     req.Params.Stop,
	}

	var b strings.Builder
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, genai.Text(req.Prompt), cfg) {
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return "", backend.ErrTimeout(err)
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("gemini stream: %w", err)
		}
		text := resp.Text()
		if text == "" {
			continue
		}
		b.WriteString(text)
		if onFragment != nil {
			if err := onFragment(text); err != nil {
				// Consumer went away; stop requesting fragments.
				return "", err
			}
		}
	}
	return b.String(), nil
}
