package local

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tarotd/internal/backend"
)

// fakeRunner counts overlapping Predict calls and can block until released.
type fakeRunner struct {
	mu         sync.Mutex
	inFlight   int32
	maxSeen    int32
	block      chan struct{} // non-nil: Predict waits here
	lastPrompt string
	lastParams backend.Params
	answer     string
	err        error
	closed     bool
}

func (r *fakeRunner) Predict(ctx context.Context, prompt string, params backend.Params) (string, error) {
	n := atomic.AddInt32(&r.inFlight, 1)
	defer atomic.AddInt32(&r.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&r.maxSeen)
		if n <= prev || atomic.CompareAndSwapInt32(&r.maxSeen, prev, n) {
			break
		}
	}
	r.mu.Lock()
	r.lastPrompt = prompt
	r.lastParams = params
	block := r.block
	r.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.answer, r.err
}

func (r *fakeRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func newTestBackend(r Runner, queueDepth int, maxWait time.Duration) *Backend {
	return newWithRunner(r, Config{
		WorkingLang:   "en",
		MaxQueueDepth: queueDepth,
		MaxWait:       maxWait,
	}, zerolog.New(io.Discard))
}

func TestCapabilities(t *testing.T) {
	b := newTestBackend(&fakeRunner{}, 2, time.Second)
	if b.Streaming() {
		t.Error("local backend must not stream")
	}
	if b.WorkingLang() != "en" {
		t.Errorf("working language %q, want en", b.WorkingLang())
	}
	if b.Name() != "local" {
		t.Errorf("unexpected name %s", b.Name())
	}
}

func TestGenerate_PassesPromptAndParams(t *testing.T) {
	r := &fakeRunner{answer: "reading"}
	b := newTestBackend(r, 2, time.Second)

	params := backend.Params{MaxTokens: 123, Temperature: 0.5, TopK: 10, TopP: 0.9, RepeatPenalty: 1.1, Stop: []string{"</s>"}}
	out, err := b.Generate(context.Background(), backend.Request{
		System: "You are a reader.",
		Prompt: "Cards: ...",
		Params: params,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "reading" {
		t.Errorf("unexpected answer %q", out)
	}
	if r.lastParams.MaxTokens != 123 || len(r.lastParams.Stop) != 1 {
		t.Errorf("params not passed through: %+v", r.lastParams)
	}
	if r.lastPrompt != "You are a reader.\n\nCards: ..." {
		t.Errorf("system and user prompt not joined: %q", r.lastPrompt)
	}
}

func TestGenerate_SerializesAccess(t *testing.T) {
	r := &fakeRunner{answer: "ok"}
	b := newTestBackend(r, 8, 5*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Generate(context.Background(), backend.Request{Prompt: "p"}, nil); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&r.maxSeen); got != 1 {
		t.Fatalf("runner saw %d overlapping predictions, want 1", got)
	}
}

func TestGenerate_TooBusyOnOverflow(t *testing.T) {
	block := make(chan struct{})
	r := &fakeRunner{answer: "ok", block: block}
	// Queue of 1 and a short wait: one request runs, one queues, the rest
	// must be rejected quickly.
	b := newTestBackend(r, 1, 50*time.Millisecond)

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = b.Generate(context.Background(), backend.Request{Prompt: "running"}, nil)
	}()
	<-started
	time.Sleep(10 * time.Millisecond)

	queued := make(chan error, 1)
	go func() {
		_, err := b.Generate(context.Background(), backend.Request{Prompt: "queued"}, nil)
		queued <- err
	}()
	time.Sleep(10 * time.Millisecond)

	_, err := b.Generate(context.Background(), backend.Request{Prompt: "rejected"}, nil)
	if err == nil || !backend.IsTooBusy(err) {
		t.Fatalf("expected too-busy error, got %v", err)
	}

	close(block)
	if err := <-queued; err != nil {
		t.Fatalf("queued request failed: %v", err)
	}
}

func TestGenerate_CanceledWhileQueued(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	r := &fakeRunner{block: block}
	b := newTestBackend(r, 2, 5*time.Second)

	go func() { _, _ = b.Generate(context.Background(), backend.Request{Prompt: "running"}, nil) }()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := b.Generate(ctx, backend.Request{Prompt: "waiting"}, nil)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("canceled request did not return")
	}
}

func TestGenerate_DeadlineMapsToTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	r := &fakeRunner{block: block}
	b := newTestBackend(r, 2, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.Generate(ctx, backend.Request{Prompt: "slow"}, nil)
	if err == nil || !backend.IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestClose_ReleasesRunner(t *testing.T) {
	r := &fakeRunner{}
	b := newTestBackend(r, 1, time.Second)
	if err := b.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.closed {
		t.Error("runner not closed")
	}
}
