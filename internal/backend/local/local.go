// Package local implements the synchronous local generation backend around
// a single llama.cpp model handle.
package local

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tarotd/internal/backend"
	"tarotd/internal/lang"
)

// Defaults mirror the reference deployment of the bundled TinyLlama model.
const (
	defaultCtxSize       = 3072
	defaultThreads       = 6
	defaultBatchSize     = 512
	defaultMaxQueueDepth = 8
	defaultMaxWait       = 30 * time.Second
)

// Config carries the local runner settings.
type Config struct {
	ModelPath string
	CtxSize   int
	Threads   int
	GPULayers int
	BatchSize int
	// WorkingLang is the language the model was tuned for. Queries in other
	// languages are translated out and back by the reading service.
	WorkingLang string
	// Admission discipline around the non-reentrant model handle.
	MaxQueueDepth int
	MaxWait       time.Duration
}

func (c Config) withDefaults() Config {
	if c.CtxSize <= 0 {
		c.CtxSize = defaultCtxSize
	}
	if c.Threads <= 0 {
		c.Threads = defaultThreads
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.WorkingLang == "" {
		c.WorkingLang = lang.English
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = defaultMaxQueueDepth
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	return c
}

// Runner is the loaded model handle. Implementations are not required to be
// safe for concurrent prediction; the backend serializes access.
type Runner interface {
	// Predict blocks until the full completion is produced. It must return
	// early when ctx is canceled.
	Predict(ctx context.Context, prompt string, params backend.Params) (string, error)
	Close() error
}

// Backend admits one generation at a time to the runner through a bounded
// FIFO queue; overflow or wait timeout reports too-busy.
type Backend struct {
	runner      Runner
	workingLang string
	maxWait     time.Duration
	genCh       chan struct{} // size 1: single in-flight generation
	queueCh     chan struct{} // buffered: queue slots
	logger      zerolog.Logger
}

// New loads the model once and wraps it with the admission queue. The model
// stays loaded for the process lifetime.
func New(cfg Config, logger zerolog.Logger) (*Backend, error) {
	cfg = cfg.withDefaults()
	runner, err := newRunner(cfg, logger)
	if err != nil {
		return nil, err
	}
	return newWithRunner(runner, cfg, logger), nil
}

func newWithRunner(runner Runner, cfg Config, logger zerolog.Logger) *Backend {
	cfg = cfg.withDefaults()
	return &Backend{
		runner:      runner,
		workingLang: cfg.WorkingLang,
		maxWait:     cfg.MaxWait,
		genCh:       make(chan struct{}, 1),
		queueCh:     make(chan struct{}, cfg.MaxQueueDepth),
		logger:      logger,
	}
}

func (b *Backend) Name() string        { return "local" }
func (b *Backend) WorkingLang() string { return b.workingLang }
func (b *Backend) Streaming() bool     { return false }

// Generate blocks until the runner finishes. The caller's goroutine is the
// worker context; concurrent requests wait in the admission queue rather
// than overlapping on the model handle. onFragment is ignored: this variant
// returns the answer as one unit.
func (b *Backend) Generate(ctx context.Context, req backend.Request, _ func(string) error) (string, error) {
	release, err := b.admit(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	prompt := req.System + "\n\n" + req.Prompt
	start := time.Now()
	text, err := b.runner.Predict(ctx, prompt, req.Params)
	if err != nil {
		if ctx.Err() != nil && ctx.Err() == context.DeadlineExceeded {
			return "", backend.ErrTimeout(err)
		}
		return "", err
	}
	b.logger.Debug().Dur("dur", time.Since(start)).Int("len", len(text)).Msg("local generation done")
	return text, nil
}

// Close releases the model handle.
func (b *Backend) Close() error { return b.runner.Close() }

// admit reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred.
func (b *Backend) admit(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(b.maxWait)
	defer timer.Stop()
	select {
	case b.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, backend.ErrTooBusy(b.Name())
	}

	acquired := false
	defer func() {
		if !acquired {
			<-b.queueCh
		}
	}()
	timer2 := time.NewTimer(b.maxWait)
	defer timer2.Stop()
	select {
	case b.genCh <- struct{}{}:
		acquired = true
		return func() { <-b.genCh; <-b.queueCh }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer2.C:
		return nil, backend.ErrTooBusy(b.Name())
	}
}
