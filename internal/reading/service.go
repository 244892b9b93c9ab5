package reading

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"tarotd/internal/backend"
	"tarotd/internal/catalog"
	"tarotd/internal/lang"
	"tarotd/pkg/types"
)

// maxQueryLen bounds the accepted question length in characters.
const maxQueryLen = 500

// Request is the application-level input of one reading.
type Request struct {
	Option string
	Query  string
}

// Event is one element of a streamed reading. Exactly one of the fields is
// set. The sequence is always: one Meta, zero or more Chunks, then one Done
// or one Err; the channel is closed after the terminal event.
type Event struct {
	Meta  *types.StreamMeta
	Chunk string
	Done  bool
	Err   error
}

// ParamsResolver resolves decoding parameters for a layout name.
type ParamsResolver func(layout string) backend.Params

// Service orchestrates spread drawing, prompt synthesis, translation and
// generation. It holds no per-request state; a session struct carries the
// request-scoped pieces.
type Service struct {
	catalog    *catalog.Catalog
	generator  backend.Generator
	translator lang.Translator // nil when no translate service is configured
	params     ParamsResolver
	rng        RNG
	logger     zerolog.Logger
}

func NewService(cat *catalog.Catalog, gen backend.Generator, tr lang.Translator, params ParamsResolver, rng RNG, logger zerolog.Logger) *Service {
	return &Service{
		catalog:    cat,
		generator:  gen,
		translator: tr,
		params:     params,
		rng:        rng,
		logger:     logger,
	}
}

// Streaming reports whether the active backend emits incremental fragments.
func (s *Service) Streaming() bool { return s.generator.Streaming() }

// Ready reports whether the service can serve readings.
func (s *Service) Ready() bool { return s.catalog != nil && s.generator != nil }

// Layouts lists the recognized layouts.
func (s *Service) Layouts() []types.LayoutInfo { return Layouts() }

// session holds everything resolved for one reading request.
type session struct {
	layout   Layout
	cards    []types.DrawnCard
	language string // detected query language
	genReq   backend.Request
	// backLang is non-empty when the answer must be translated back into
	// the detected language after generation.
	backLang string
}

// prepare validates the request, detects the language, translates the query
// when the backend requires a working language, draws the spread and renders
// the prompt.
func (s *Service) prepare(ctx context.Context, req Request) (*session, error) {
	layout, err := LayoutByName(req.Option)
	if err != nil {
		return nil, err
	}
	query := req.Query
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput("query is required")
	}
	if utf8.RuneCountInString(query) > maxQueryLen {
		return nil, ErrInvalidInput(fmt.Sprintf("query must be at most %d characters", maxQueryLen))
	}

	language := lang.Detect(query)
	workQuery := query
	backLang := ""
	if wl := s.generator.WorkingLang(); wl != "" && wl != language {
		if s.translator == nil {
			return nil, lang.ErrTranslation(fmt.Errorf("backend works in %q but no translator is configured", wl))
		}
		workQuery, err = s.translator.Translate(ctx, query, language, wl)
		if err != nil {
			return nil, err
		}
		backLang = language
	}

	cards, err := Draw(layout, s.catalog, s.rng)
	if err != nil {
		return nil, err
	}
	system, user := Render(layout, cards, workQuery)

	return &session{
		layout:   layout,
		cards:    cards,
		language: language,
		backLang: backLang,
		genReq: backend.Request{
			System: system,
			Prompt: user,
			Params: s.params(layout.Name),
		},
	}, nil
}

// Read produces a complete reading in one unit.
func (s *Service) Read(ctx context.Context, req Request) (types.Reading, error) {
	sess, err := s.prepare(ctx, req)
	if err != nil {
		return types.Reading{}, err
	}

	answer, err := s.generate(ctx, sess)
	if err != nil {
		return types.Reading{}, err
	}

	return types.Reading{
		Option:   sess.layout.Name,
		Query:    req.Query,
		Cards:    sess.cards,
		Answer:   answer,
		Language: sess.language,
	}, nil
}

// Stream produces a reading as a finite event sequence: metadata first so a
// consumer can render the spread before text arrives, then fragments, then a
// terminal event. Preparation errors are returned synchronously so the
// transport can still reject the request. The producer stops when ctx is
// canceled; fragments already emitted are never replayed.
func (s *Service) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	sess, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	events := make(chan Event)
	go func() {
		defer close(events)

		meta := &types.StreamMeta{
			Option:   sess.layout.Name,
			Query:    req.Query,
			Cards:    sess.cards,
			Language: sess.language,
		}
		if !s.send(ctx, events, Event{Meta: meta}) {
			return
		}

		// A working-language backend would need chunk-wise back-translation,
		// which breaks sentence boundaries; buffer and emit one fragment.
		if sess.backLang != "" {
			answer, err := s.generate(ctx, sess)
			if err != nil {
				s.send(ctx, events, Event{Err: err})
				return
			}
			if answer != "" && !s.send(ctx, events, Event{Chunk: answer}) {
				return
			}
			s.send(ctx, events, Event{Done: true})
			return
		}

		onFragment := func(fragment string) error {
			if !s.send(ctx, events, Event{Chunk: fragment}) {
				return ctx.Err()
			}
			return nil
		}
		if _, err := s.generator.Generate(ctx, sess.genReq, onFragment); err != nil {
			if ctx.Err() == nil {
				s.logger.Error().Err(err).Str("layout", sess.layout.Name).Msg("generation failed mid-stream")
				s.send(ctx, events, Event{Err: err})
			}
			return
		}
		s.send(ctx, events, Event{Done: true})
	}()
	return events, nil
}

// generate runs the backend synchronously, finalizes the text and applies
// back-translation when the session calls for it.
func (s *Service) generate(ctx context.Context, sess *session) (string, error) {
	raw, err := s.generator.Generate(ctx, sess.genReq, nil)
	if err != nil {
		return "", err
	}
	answer := backend.Finalize(raw, sess.genReq.Params.Stop)
	if sess.backLang != "" && answer != "" {
		answer, err = s.translator.Translate(ctx, answer, s.generator.WorkingLang(), sess.backLang)
		if err != nil {
			return "", err
		}
	}
	return answer, nil
}

// send delivers an event unless the consumer is gone.
func (s *Service) send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
