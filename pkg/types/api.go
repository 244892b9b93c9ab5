package types

// Reading is the full response of GET /tarot in synchronous mode.
type Reading struct {
	// Layout name the spread was drawn for.
	// example: advice
	Option string `json:"option" example:"advice"`
	// The question as asked by the caller.
	// example: Should I take the new job?
	Query string `json:"query" example:"Should I take the new job?"`
	// Drawn cards in slot order.
	Cards []DrawnCard `json:"cards"`
	// Generated interpretation.
	Answer string `json:"answer"`
	// Detected query language tag.
	// example: en
	Language string `json:"language" example:"en"`
}

// StreamMeta is the first SSE event of a streamed reading. It carries
// everything except the answer so a consumer can render the spread before
// any text arrives.
type StreamMeta struct {
	Option   string      `json:"option" example:"linear"`
	Query    string      `json:"query"`
	Cards    []DrawnCard `json:"cards"`
	Language string      `json:"language" example:"en"`
}

// StreamChunk is one incremental text fragment event.
type StreamChunk struct {
	AnswerChunk string `json:"answer_chunk"`
}

// StreamDone is the terminal SSE event.
type StreamDone struct {
	Done bool `json:"done" example:"true"`
}

// LayoutInfo describes one recognized layout for GET /layouts.
type LayoutInfo struct {
	// Layout name accepted by the option parameter.
	// example: linear
	Name string `json:"name" example:"linear"`
	// Slot labels in draw order.
	// example: ["past","present","future"]
	Slots []string `json:"slots" example:"past,present,future"`
}

// LayoutsResponse wraps the layout list returned by GET /layouts.
type LayoutsResponse struct {
	Layouts []LayoutInfo `json:"layouts"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: unknown layout "circular"
	Error string `json:"error" example:"unknown layout \"circular\""`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
