package types

// Card is one entry of the card catalog. The catalog is loaded once at
// startup and never mutated afterwards.
type Card struct {
	// Card name, unique within the catalog.
	// example: The Fool
	Name string `json:"name" example:"The Fool"`
	// Meaning text applied when the card is drawn upright.
	Upright string `json:"upright"`
	// Meaning text applied when the card is drawn reversed.
	Reversed string `json:"reversed"`
	// Optional image reference served by a frontend.
	// example: tarotdeck/00_fool.jpg
	Image string `json:"image,omitempty" example:"tarotdeck/00_fool.jpg"`
}

// Orientation is the upright/reversed state of a drawn card.
type Orientation string

const (
	Upright  Orientation = "upright"
	Reversed Orientation = "reversed"
)

// DrawnCard is one slot of a spread. Order within a spread is meaningful:
// index i maps to the layout's i-th slot label.
type DrawnCard struct {
	// Slot label assigned by the layout (e.g., "past").
	// example: past
	Slot string `json:"position" example:"past"`
	// Card name.
	// example: The Fool
	Name string `json:"name" example:"The Fool"`
	// Drawn orientation.
	// example: upright
	Orientation Orientation `json:"orientation" example:"upright"`
	// Image reference copied from the catalog entry.
	Image string `json:"image,omitempty"`
	// Orientation-appropriate meaning text. Prompt-side only, not part of
	// the wire payload.
	Meaning string `json:"-"`
}
