package reading

import (
	"tarotd/internal/catalog"
	"tarotd/pkg/types"
)

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// IntN returns a non-negative random int in [0, n).
	IntN(n int) int
}

// Draw samples len(layout.Slots) unique cards from the catalog and assigns
// slot labels in draw order. Orientation is a fair 50/50 flip per card.
func Draw(layout Layout, cat *catalog.Catalog, rng RNG) ([]types.DrawnCard, error) {
	n := len(layout.Slots)
	if cat.Len() < n {
		return nil, ErrCatalogExhausted(n, cat.Len())
	}

	// Fisher-Yates over index space; only the first n positions are used.
	indices := make([]int, cat.Len())
	for i := range indices {
		indices[i] = i
	}
	for i := len(indices) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		indices[i], indices[j] = indices[j], indices[i]
	}

	cards := make([]types.DrawnCard, n)
	for i := range n {
		card := cat.At(indices[i])
		orientation := types.Upright
		meaning := card.Upright
		if rng.IntN(2) == 1 {
			orientation = types.Reversed
			meaning = card.Reversed
		}
		cards[i] = types.DrawnCard{
			Slot:        layout.Slots[i],
			Name:        card.Name,
			Orientation: orientation,
			Image:       card.Image,
			Meaning:     meaning,
		}
	}
	return cards, nil
}
