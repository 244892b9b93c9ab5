package backend

import (
	"context"
	"strings"
)

// Params captures decoding parameters passed to a generator. Values are
// resolved per layout by the config package before each request.
type Params struct {
	MaxTokens     int
	Temperature   float64
	TopK          int
	TopP          float64
	RepeatPenalty float64
	Stop          []string
}

// Request is a synthesized prompt ready for generation.
type Request struct {
	// System is the layout-specific system instruction.
	System string
	// Prompt is the user content (spread narration plus question).
	Prompt string
	Params Params
}

// Generator abstracts the generation backend. Exactly one implementation is
// selected at startup; request handling never branches on the concrete type.
type Generator interface {
	// Name identifies the backend for logs and metrics.
	Name() string
	// WorkingLang returns the language tag the underlying model operates in,
	// or "" when it handles the query language natively. A non-empty value
	// makes the reading service translate the query out and the answer back.
	WorkingLang() string
	// Streaming reports whether Generate emits incremental fragments.
	Streaming() bool
	// Generate produces a completion for req. Streaming implementations
	// invoke onFragment for every fragment in emission order and must stop
	// when it returns an error or ctx is canceled; onFragment may be nil.
	// The returned string is always the full answer.
	Generate(ctx context.Context, req Request, onFragment func(string) error) (string, error)
}

// Finalize strips stop sequences from the end of a completed answer and
// trims surrounding whitespace. Runners cut generation at a stop sequence
// but may leave the sequence itself in the tail.
func Finalize(text string, stop []string) string {
	text = strings.TrimSpace(text)
	for changed := true; changed; {
		changed = false
		for _, s := range stop {
			if s == "" {
				continue
			}
			if trimmed := strings.TrimSuffix(text, s); trimmed != text {
				text = strings.TrimRight(trimmed, " \t\n")
				changed = true
			}
		}
	}
	return strings.TrimSpace(text)
}
