package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tarotd/internal/backend"
	"tarotd/internal/backend/gemini"
	"tarotd/internal/backend/local"
	"tarotd/internal/catalog"
	"tarotd/internal/config"
	"tarotd/internal/httpapi"
	"tarotd/internal/lang"
	"tarotd/internal/reading"
)

// stdRNG delegates to the shared math/rand/v2 generator.
type stdRNG struct{}

func (stdRNG) IntN(n int) int { return rand.IntN(n) }

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type options struct {
	addr       string
	configPath string
	cardData   string
	backend    string
	logLevel   string
}

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	root := &cobra.Command{
		Use:           "tarotd",
		Short:         "HTTP service that answers questions with tarot card readings",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
	fl := root.PersistentFlags()
	fl.StringVar(&opts.addr, "addr", envDefault("TAROTD_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	fl.StringVar(&opts.configPath, "config", envDefault("TAROTD_CONFIG", ""), "Optional config file (.yaml/.json/.toml)")
	fl.StringVar(&opts.cardData, "card-data", envDefault("TAROTD_CARD_DATA", "card_data.json"), "Path to the card catalog JSON file")
	fl.StringVar(&opts.backend, "backend", envDefault("TAROTD_BACKEND", "gemini"), "Generation backend: gemini or local")
	fl.StringVar(&opts.logLevel, "log-level", envDefault("TAROTD_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	root.AddCommand(newCheckCmd(&opts))
	return root
}

// newCheckCmd validates the configuration and card catalog without serving.
func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and card catalog, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*opts)
			if err != nil {
				return err
			}
			cat, err := catalog.Load(cfg.CardData)
			if err != nil {
				return fmt.Errorf("card catalog: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: backend=%s catalog=%s cards=%d\n", cfg.Backend, cfg.CardData, cat.Len())
			return nil
		},
	}
}

// loadConfig reads the optional config file and folds command-line values
// over it. Flags win over file values, file values win over built-ins.
func loadConfig(opts options) (config.Config, error) {
	var cfg config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return cfg, err
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if opts.backend != "" {
		cfg.Backend = opts.backend
	}
	if cfg.Backend == "" {
		cfg.Backend = "gemini"
	}
	if opts.cardData != "" {
		cfg.CardData = opts.cardData
	}
	if cfg.CardData == "" {
		cfg.CardData = "card_data.json"
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(lvl)
}

// newGenerator builds the configured backend. The model or client is created
// once at startup and reused for every reading.
func newGenerator(ctx context.Context, cfg config.Config, logger zerolog.Logger) (backend.Generator, error) {
	switch cfg.Backend {
	case "gemini":
		return gemini.New(ctx, gemini.Config{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  cfg.Gemini.Model,
		}, logger)
	case "local":
		return local.New(local.Config{
			ModelPath:     cfg.Local.ModelPath,
			CtxSize:       cfg.Local.CtxSize,
			Threads:       cfg.Local.Threads,
			GPULayers:     cfg.Local.GPULayers,
			BatchSize:     cfg.Local.BatchSize,
			WorkingLang:   cfg.Local.WorkingLang,
			MaxQueueDepth: cfg.Local.MaxQueueDepth,
			MaxWait:       time.Duration(cfg.Local.MaxWaitSeconds) * time.Second,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q (want gemini or local)", cfg.Backend)
	}
}

func runServe(opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	cat, err := catalog.Load(cfg.CardData)
	if err != nil {
		return fmt.Errorf("card catalog: %w", err)
	}
	logger.Info().Str("path", cfg.CardData).Int("cards", cat.Len()).Msg("card catalog loaded")

	baseCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := newGenerator(baseCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("backend %s: %w", cfg.Backend, err)
	}
	if closer, ok := gen.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	var translator lang.Translator
	if cfg.Translate.URL != "" {
		client := &http.Client{Timeout: time.Duration(zn(cfg.Translate.TimeoutSeconds, 15)) * time.Second}
		translator = lang.NewHTTPTranslator(client, cfg.Translate.URL, cfg.Translate.APIKey, logger)
		logger.Info().Str("url", cfg.Translate.URL).Msg("translator configured")
	} else if gen.WorkingLang() != "" {
		logger.Warn().Str("working_lang", gen.WorkingLang()).Msg("no translator configured; non-working-language queries will fail")
	}

	svc := reading.NewService(cat, gen, translator, cfg.ParamsFor, stdRNG{}, logger)

	httpapi.SetLogger(logger)
	httpapi.SetBaseContext(baseCtx)
	// Browser frontends call this API directly.
	httpapi.SetCORSOptions(true, []string{"*"}, []string{http.MethodGet, http.MethodOptions}, []string{"*"})
	if cfg.Backend == "gemini" && cfg.Gemini.TimeoutSeconds > 0 {
		httpapi.SetReadingTimeoutSeconds(int64(cfg.Gemini.TimeoutSeconds))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("backend", gen.Name()).Msg("tarotd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-baseCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
