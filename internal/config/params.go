package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"tarotd/internal/backend"
)

// Documented decoding defaults, applied when neither the config file nor the
// environment overrides a field.
const (
	defaultMaxTokens         = 800
	defaultTemperature       = 0.7
	defaultTopK              = 25
	defaultTopP              = 0.85
	defaultRepetitionPenalty = 1.15
)

// defaultStop terminates generation early; matched sequences are stripped
// from the returned text.
var defaultStop = []string{"</s>", "[INST]", "Question:", "Cards:", "\n\n\n\n", "QUESTION:"}

// DefaultStop returns a copy of the default stop sequence list.
func DefaultStop() []string {
	return append([]string(nil), defaultStop...)
}

// ParamsFor resolves decoding parameters for a layout: package defaults,
// then the file-level defaults table, then the layout's own entry. Zero
// values mean "unset" at every level.
func (c Config) ParamsFor(layout string) backend.Params {
	p := backend.Params{
		MaxTokens:     defaultMaxTokens,
		Temperature:   defaultTemperature,
		TopK:          defaultTopK,
		TopP:          defaultTopP,
		RepeatPenalty: defaultRepetitionPenalty,
		Stop:          DefaultStop(),
	}
	merge(&p, c.Generation.Defaults)
	if over, ok := c.Generation.Layouts[layout]; ok {
		merge(&p, over)
	}
	return p
}

func merge(p *backend.Params, o ParamsConfig) {
	p.MaxTokens = zn(o.MaxTokens, p.MaxTokens)
	p.Temperature = zf(o.Temperature, p.Temperature)
	p.TopK = zn(o.TopK, p.TopK)
	p.TopP = zf(o.TopP, p.TopP)
	p.RepeatPenalty = zf(o.RepetitionPenalty, p.RepeatPenalty)
	if len(o.Stop) > 0 {
		p.Stop = append([]string(nil), o.Stop...)
	}
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

// applyEnv folds TAROTD_<LAYOUT>_<PARAM> environment overrides into the
// layout table, e.g. TAROTD_ADVICE_MAX_TOKENS=400. A malformed value is a
// startup error rather than a silently ignored knob.
func (c *Config) applyEnv() error {
	for _, layout := range []string{"linear", "balance", "advice"} {
		over := c.Generation.Layouts[layout]
		changed := false
		prefix := "TAROTD_" + strings.ToUpper(layout) + "_"

		if v, ok := os.LookupEnv(prefix + "MAX_TOKENS"); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %sMAX_TOKENS %q: %w", prefix, v, err)
			}
			over.MaxTokens = n
			changed = true
		}
		if v, ok := os.LookupEnv(prefix + "TEMPERATURE"); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %sTEMPERATURE %q: %w", prefix, v, err)
			}
			over.Temperature = f
			changed = true
		}
		if v, ok := os.LookupEnv(prefix + "TOP_K"); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %sTOP_K %q: %w", prefix, v, err)
			}
			over.TopK = n
			changed = true
		}
		if v, ok := os.LookupEnv(prefix + "TOP_P"); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %sTOP_P %q: %w", prefix, v, err)
			}
			over.TopP = f
			changed = true
		}
		if v, ok := os.LookupEnv(prefix + "REPETITION_PENALTY"); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %sREPETITION_PENALTY %q: %w", prefix, v, err)
			}
			over.RepetitionPenalty = f
			changed = true
		}

		if changed {
			if c.Generation.Layouts == nil {
				c.Generation.Layouts = make(map[string]ParamsConfig)
			}
			c.Generation.Layouts[layout] = over
		}
	}
	return nil
}
