package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tarotd/internal/backend"
	"tarotd/internal/lang"
	"tarotd/internal/reading"
	"tarotd/pkg/types"
)

// mockService plays back canned results and records the request it received.
type mockService struct {
	streaming bool
	ready     bool
	reading   types.Reading
	events    []reading.Event
	err       error
	lastReq   reading.Request
	calls     int
}

func (m *mockService) Read(_ context.Context, req reading.Request) (types.Reading, error) {
	m.lastReq = req
	m.calls++
	if m.err != nil {
		return types.Reading{}, m.err
	}
	return m.reading, nil
}

func (m *mockService) Stream(_ context.Context, req reading.Request) (<-chan reading.Event, error) {
	m.lastReq = req
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan reading.Event, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (m *mockService) Layouts() []types.LayoutInfo {
	return []types.LayoutInfo{
		{Name: "linear", Slots: []string{"past", "present", "future"}},
		{Name: "balance", Slots: []string{"supporting force", "opposing force", "equilibrium"}},
		{Name: "advice", Slots: []string{"situation", "obstacle", "guidance"}},
	}
}

func (m *mockService) Streaming() bool { return m.streaming }
func (m *mockService) Ready() bool     { return m.ready }

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestTarot_JSONReading(t *testing.T) {
	svc := &mockService{ready: true, reading: types.Reading{
		Option:   "linear",
		Query:    "Will it rain?",
		Language: "en",
		Answer:   "The cards counsel patience.",
		Cards: []types.DrawnCard{
			{Slot: "past", Name: "The Fool", Orientation: types.Upright},
			{Slot: "present", Name: "The Tower", Orientation: types.Reversed},
			{Slot: "future", Name: "The Star", Orientation: types.Upright},
		},
	}}
	h := NewMux(svc)

	rr := doGet(t, h, "/tarot?option=linear&query=Will+it+rain%3F")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("unexpected content type %q", ct)
	}
	var out types.Reading
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Answer != "The cards counsel patience." || len(out.Cards) != 3 {
		t.Errorf("unexpected reading: %+v", out)
	}
	if svc.lastReq.Option != "linear" || svc.lastReq.Query != "Will it rain?" {
		t.Errorf("service saw wrong request: %+v", svc.lastReq)
	}
}

// sseData extracts the JSON payloads from an SSE body in wire order.
func sseData(t *testing.T, body string) []string {
	t.Helper()
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if rest, ok := strings.CutPrefix(line, "data: "); ok {
			out = append(out, rest)
		}
	}
	return out
}

func TestTarot_SSEEventOrder(t *testing.T) {
	meta := &types.StreamMeta{
		Option:   "balance",
		Query:    "q",
		Language: "en",
		Cards: []types.DrawnCard{
			{Slot: "supporting force", Name: "Strength", Orientation: types.Upright},
			{Slot: "opposing force", Name: "The Devil", Orientation: types.Reversed},
			{Slot: "equilibrium", Name: "Justice", Orientation: types.Upright},
		},
	}
	svc := &mockService{streaming: true, ready: true, events: []reading.Event{
		{Meta: meta},
		{Chunk: "The "},
		{Chunk: "scales "},
		{Chunk: "tip."},
		{Done: true},
	}}
	h := NewMux(svc)

	rr := doGet(t, h, "/tarot?option=balance&query=q")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	frames := sseData(t, rr.Body.String())
	if len(frames) != 5 {
		t.Fatalf("expected 5 SSE frames, got %d: %v", len(frames), frames)
	}
	var gotMeta types.StreamMeta
	if err := json.Unmarshal([]byte(frames[0]), &gotMeta); err != nil {
		t.Fatalf("first frame is not metadata: %v", err)
	}
	if gotMeta.Option != "balance" || len(gotMeta.Cards) != 3 {
		t.Errorf("unexpected metadata: %+v", gotMeta)
	}
	for i, want := range []string{"The ", "scales ", "tip."} {
		var chunk types.StreamChunk
		if err := json.Unmarshal([]byte(frames[i+1]), &chunk); err != nil || chunk.AnswerChunk != want {
			t.Errorf("frame %d = %q, want chunk %q", i+1, frames[i+1], want)
		}
	}
	var done types.StreamDone
	if err := json.Unmarshal([]byte(frames[4]), &done); err != nil || !done.Done {
		t.Errorf("last frame is not the done sentinel: %q", frames[4])
	}
}

func TestTarot_SSEErrorDropsSentinel(t *testing.T) {
	svc := &mockService{streaming: true, ready: true, events: []reading.Event{
		{Meta: &types.StreamMeta{Option: "linear", Language: "en"}},
		{Chunk: "partial"},
		{Err: errors.New("generation failed")},
	}}
	h := NewMux(svc)

	rr := doGet(t, h, "/tarot?option=linear&query=q")
	frames := sseData(t, rr.Body.String())
	if len(frames) != 2 {
		t.Fatalf("expected meta + chunk only, got %v", frames)
	}
	for _, f := range frames {
		if strings.Contains(f, `"done"`) {
			t.Errorf("done sentinel emitted after error: %q", f)
		}
	}
}

func TestTarot_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{reading.ErrInvalidInput("unknown layout"), http.StatusBadRequest},
		{backend.ErrTooBusy("local"), http.StatusTooManyRequests},
		{lang.ErrTranslation(errors.New("upstream 500")), http.StatusBadGateway},
		{backend.ErrUnavailable("no api key"), http.StatusServiceUnavailable},
		{backend.ErrTimeout(context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &mockService{ready: true, err: tc.err}
		rr := doGet(t, NewMux(svc), "/tarot?option=linear&query=q")
		if rr.Code != tc.want {
			t.Errorf("%v: status %d, want %d", tc.err, rr.Code, tc.want)
		}
		var er types.ErrorResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &er); err != nil {
			t.Errorf("%v: error body not JSON: %s", tc.err, rr.Body.String())
			continue
		}
		if er.Code != tc.want {
			t.Errorf("%v: body code %d, want %d", tc.err, er.Code, tc.want)
		}
	}
}

func TestTarot_ErrorBodyHidesInternalDetails(t *testing.T) {
	svc := &mockService{ready: true, err: errors.New("pointer dereference in spreader")}
	rr := doGet(t, NewMux(svc), "/tarot?option=linear&query=q")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "dereference") {
		t.Errorf("internal detail leaked: %s", rr.Body.String())
	}
}

func TestTarot_OversizedQueryRejectedBeforeService(t *testing.T) {
	svc := &mockService{ready: true}
	long := strings.Repeat("x", 501)
	rr := doGet(t, NewMux(svc), "/tarot?option=linear&query="+long)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rr.Code)
	}
	if svc.calls != 0 {
		t.Error("oversized query reached the service")
	}
}

func TestLayouts(t *testing.T) {
	rr := doGet(t, NewMux(&mockService{ready: true}), "/layouts")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out types.LayoutsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Layouts) != 3 || out.Layouts[0].Name != "linear" {
		t.Errorf("unexpected layouts: %+v", out.Layouts)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	if rr := doGet(t, NewMux(&mockService{}), "/healthz"); rr.Code != http.StatusOK {
		t.Errorf("/healthz status %d", rr.Code)
	}
	if rr := doGet(t, NewMux(&mockService{ready: true}), "/readyz"); rr.Code != http.StatusOK {
		t.Errorf("/readyz (ready) status %d", rr.Code)
	}
	if rr := doGet(t, NewMux(&mockService{ready: false}), "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz (not ready) status %d", rr.Code)
	}
}

func TestMetricsEndpointMounted(t *testing.T) {
	rr := doGet(t, NewMux(&mockService{}), "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status %d", rr.Code)
	}
}
