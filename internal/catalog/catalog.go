package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"tarotd/internal/common/fsutil"
	"tarotd/pkg/types"
)

// Catalog is the immutable card reference data. It is loaded once at process
// start and shared read-only across requests.
type Catalog struct {
	cards []types.Card
}

// cardRecord mirrors one entry of the catalog file. The file is a JSON
// object keyed by card name.
type cardRecord struct {
	Upright  string `json:"upright"`
	Reversed string `json:"reversed"`
	Image    string `json:"image"`
}

// Load reads and validates the catalog file. Any missing or malformed data
// is an error; callers treat that as startup-fatal.
func Load(path string) (*Catalog, error) {
	base, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(base)
	if err != nil {
		return nil, fmt.Errorf("read card data: %w", err)
	}
	var records map[string]cardRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse card data %s: %w", base, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("card data %s contains no cards", base)
	}

	cards := make([]types.Card, 0, len(records))
	for name, rec := range records {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("card data %s: empty card name", base)
		}
		if strings.TrimSpace(rec.Upright) == "" || strings.TrimSpace(rec.Reversed) == "" {
			return nil, fmt.Errorf("card %q: upright and reversed meanings are required", name)
		}
		cards = append(cards, types.Card{
			Name:     name,
			Upright:  rec.Upright,
			Reversed: rec.Reversed,
			Image:    rec.Image,
		})
	}
	// Map iteration order is random; keep the catalog deterministic.
	sort.Slice(cards, func(i, j int) bool { return cards[i].Name < cards[j].Name })
	return &Catalog{cards: cards}, nil
}

// Len returns the number of distinct cards.
func (c *Catalog) Len() int { return len(c.cards) }

// At returns the i-th card in name order.
func (c *Catalog) At(i int) types.Card { return c.cards[i] }
