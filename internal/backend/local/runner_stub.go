//go:build !llama

package local

// This file provides a no-CGO stub for the llama runner. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real runner lives in runner_llama.go (tagged 'llama').

import (
	"context"

	"github.com/rs/zerolog"

	"tarotd/internal/backend"
)

var llamaBuilt = false

type stubRunner struct{}

// newRunner succeeds so the process can start and serve health endpoints;
// every prediction reports unavailable instead.
func newRunner(cfg Config, logger zerolog.Logger) (Runner, error) {
	logger.Warn().Msg("local inference not built (missing 'llama' build tag); readings will fail")
	return stubRunner{}, nil
}

func (stubRunner) Predict(ctx context.Context, _ string, _ backend.Params) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return "", backend.ErrUnavailable("local inference not built (missing 'llama' build tag)")
}

func (stubRunner) Close() error { return nil }
