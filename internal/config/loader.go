package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults.
type Config struct {
	Addr     string `json:"addr" yaml:"addr" toml:"addr"`
	Backend  string `json:"backend" yaml:"backend" toml:"backend"`
	CardData string `json:"card_data" yaml:"card_data" toml:"card_data"`
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`

	Gemini    GeminiConfig    `json:"gemini" yaml:"gemini" toml:"gemini"`
	Local     LocalConfig     `json:"local" yaml:"local" toml:"local"`
	Translate TranslateConfig `json:"translate" yaml:"translate" toml:"translate"`

	Generation GenerationConfig `json:"generation" yaml:"generation" toml:"generation"`
}

// GeminiConfig configures the streaming remote backend. The API key is never
// read from a file; it comes from the GEMINI_API_KEY environment variable.
type GeminiConfig struct {
	Model          string `json:"model" yaml:"model" toml:"model"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// LocalConfig configures the synchronous local runner backend.
type LocalConfig struct {
	ModelPath      string `json:"model_path" yaml:"model_path" toml:"model_path"`
	CtxSize        int    `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	Threads        int    `json:"threads" yaml:"threads" toml:"threads"`
	GPULayers      int    `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	BatchSize      int    `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	WorkingLang    string `json:"working_lang" yaml:"working_lang" toml:"working_lang"`
	MaxQueueDepth  int    `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSeconds int    `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`
}

// TranslateConfig configures the translate-out/translate-back HTTP service
// used when the active backend has a fixed working language.
type TranslateConfig struct {
	URL            string `json:"url" yaml:"url" toml:"url"`
	APIKey         string `json:"api_key" yaml:"api_key" toml:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// GenerationConfig is the per-layout decoding parameter table. Layout
// entries override Defaults field by field; zero means "use the default".
type GenerationConfig struct {
	Defaults ParamsConfig            `json:"defaults" yaml:"defaults" toml:"defaults"`
	Layouts  map[string]ParamsConfig `json:"layouts" yaml:"layouts" toml:"layouts"`
}

// ParamsConfig mirrors backend decoding parameters in config form.
type ParamsConfig struct {
	MaxTokens         int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Temperature       float64  `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopK              int      `json:"top_k" yaml:"top_k" toml:"top_k"`
	TopP              float64  `json:"top_p" yaml:"top_p" toml:"top_p"`
	RepetitionPenalty float64  `json:"repetition_penalty" yaml:"repetition_penalty" toml:"repetition_penalty"`
	Stop              []string `json:"stop" yaml:"stop" toml:"stop"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns a Config with no file-level overrides, env applied.
func Default() (Config, error) {
	var cfg Config
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
