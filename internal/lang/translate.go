package lang

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Translator converts text between the detected query language and a
// backend's working language. Failures must surface as a translation error;
// passing untranslated text downstream would corrupt the language contract
// of the response.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// translationError wraps any translate failure (network, quota, bad input).
type translationError struct{ err error }

func (e translationError) Error() string { return "translation failed: " + e.err.Error() }
func (e translationError) Unwrap() error { return e.err }

// ErrTranslation constructs a translationError.
func ErrTranslation(err error) error { return translationError{err: err} }

// IsTranslationError reports whether err came from the translation pipeline.
func IsTranslationError(err error) bool {
	var e translationError
	return errors.As(err, &e)
}

// HTTPTranslator speaks the LibreTranslate wire protocol: POST /translate
// with {q, source, target} returning {translatedText}.
type HTTPTranslator struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     zerolog.Logger
}

func NewHTTPTranslator(httpClient *http.Client, baseURL, apiKey string, logger zerolog.Logger) *HTTPTranslator {
	return &HTTPTranslator{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

func (t *HTTPTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Q:      text,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: t.apiKey,
	})
	if err != nil {
		return "", ErrTranslation(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", ErrTranslation(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", ErrTranslation(fmt.Errorf("http call: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ErrTranslation(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		t.logger.Warn().Int("status", resp.StatusCode).Str("target", target).Msg("translate call failed")
		return "", ErrTranslation(fmt.Errorf("translate status %d: %s", resp.StatusCode, string(respBody)))
	}

	var out translateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", ErrTranslation(fmt.Errorf("decode response: %w", err))
	}
	if strings.TrimSpace(out.TranslatedText) == "" {
		return "", ErrTranslation(fmt.Errorf("empty translation for %d chars", len(text)))
	}
	return out.TranslatedText, nil
}
