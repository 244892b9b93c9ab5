//go:build !llama

package local

import (
	"context"
	"testing"
	"time"

	"tarotd/internal/backend"
)

func TestStubRunner_Unavailable(t *testing.T) {
	b := newTestBackend(stubRunner{}, 2, time.Second)
	_, err := b.Generate(context.Background(), backend.Request{Prompt: "p"}, nil)
	if err == nil || !backend.IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}
