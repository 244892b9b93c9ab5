//go:build llama

package local

import (
	"context"
	"errors"
	"fmt"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"

	"tarotd/internal/backend"
	"tarotd/internal/common/fsutil"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaRunner owns the loaded model handle. Not safe for concurrent Predict;
// the Backend admission queue guarantees single access.
type llamaRunner struct {
	model   *llama.LLama
	threads int
	logger  zerolog.Logger
}

func newRunner(cfg Config, logger zerolog.Logger) (Runner, error) {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	path, err := fsutil.ExpandHome(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	if !fsutil.PathExists(path) {
		return nil, fmt.Errorf("model file not found: %s", path)
	}
	mo := []llama.ModelOption{
		llama.SetContext(cfg.CtxSize),
		llama.SetNBatch(cfg.BatchSize),
	}
	if cfg.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(cfg.GPULayers))
	}
	logger.Info().Str("model", path).Int("ctx", cfg.CtxSize).Msg("loading local model")
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaRunner{model: m, threads: cfg.Threads, logger: logger}, nil
}

func (r *llamaRunner) Predict(ctx context.Context, prompt string, params backend.Params) (string, error) {
	if r.model == nil {
		return "", errors.New("llama model not initialized")
	}
	// Token callback only checks cancellation; the answer is returned whole.
	r.model.SetTokenCallback(func(string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	text, err := r.model.Predict(prompt, mapPredictOptions(params, r.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return text, nil
}

func (r *llamaRunner) Close() error {
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}

// mapPredictOptions converts generation params into go-llama.cpp options.
func mapPredictOptions(params backend.Params, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, params.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(float32(params.TopP), llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(params.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(float32(params.Temperature), llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(float32(params.RepeatPenalty), llama.DefaultOptions.Penalty)),
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}
