package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tarotd/internal/reading"
	"tarotd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Read(ctx context.Context, req reading.Request) (types.Reading, error)
	Stream(ctx context.Context, req reading.Request) (<-chan reading.Event, error)
	Layouts() []types.LayoutInfo
	Streaming() bool
	Ready() bool
}

// maxQueryLen mirrors the service-side limit so oversized queries are
// rejected before any work is admitted.
const maxQueryLen = 500

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints. SSE responses are flushed per event and
	// bypass buffering via the Flusher passthrough on statusRecorder.
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)

	r.Get("/tarot", func(w http.ResponseWriter, r *http.Request) {
		handleTarot(svc, w, r)
	})

	r.Get("/layouts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.LayoutsResponse{Layouts: svc.Layouts()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleTarot answers a question with a card reading. The response shape
// depends on the configured backend: streaming backends produce server-sent
// events, synchronous ones a single JSON document.
func handleTarot(svc Service, w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := reading.Request{Option: q.Get("option"), Query: q.Get("query")}
	// Reject oversized queries before admitting any work.
	if len([]rune(req.Query)) > maxQueryLen {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("query exceeds %d characters", maxQueryLen))
		return
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if readingTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, time.Duration(readingTimeout)*time.Second)
		defer tcancel()
	}

	if svc.Streaming() {
		streamReading(ctx, svc, w, r, req, lvl, start)
		return
	}

	out, err := svc.Read(ctx, req)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := writeError(w, err)
		logEnd(r, lvl, status, req.Option, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	IncrementReadings(out.Option, out.Language)
	ObserveReadingDuration(out.Option, time.Since(start).Seconds())
	logEnd(r, lvl, http.StatusOK, req.Option, nil)
}

// streamReading relays reading events as server-sent events. The event order
// on the wire is metadata, answer chunks, then the done sentinel. A failure
// mid-stream terminates the connection without the sentinel; the client
// treats a missing sentinel as an aborted reading.
func streamReading(ctx context.Context, svc Service, w http.ResponseWriter, r *http.Request, req reading.Request, lvl LogLevel, start time.Time) {
	events, err := svc.Stream(ctx, req)
	if err != nil {
		status := writeError(w, err)
		logEnd(r, lvl, status, req.Option, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}

	var language string
	for ev := range events {
		switch {
		case ev.Meta != nil:
			language = ev.Meta.Language
			if err := writeSSE(w, flush, ev.Meta); err != nil {
				return
			}
		case ev.Err != nil:
			// Already streaming; the status line is gone. Drop the
			// connection without the sentinel and log the cause.
			logEnd(r, lvl, http.StatusInternalServerError, req.Option, ev.Err)
			return
		case ev.Done:
			if err := writeSSE(w, flush, types.StreamDone{Done: true}); err != nil {
				return
			}
			IncrementReadings(req.Option, language)
			ObserveReadingDuration(req.Option, time.Since(start).Seconds())
			logEnd(r, lvl, http.StatusOK, req.Option, nil)
		default:
			if err := writeSSE(w, flush, types.StreamChunk{AnswerChunk: ev.Chunk}); err != nil {
				return
			}
		}
	}
}

// writeSSE emits a single SSE data frame and flushes it to the client.
func writeSSE(w http.ResponseWriter, flush func(), v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	if flush != nil {
		flush()
	}
	return nil
}
