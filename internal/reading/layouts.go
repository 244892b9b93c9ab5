// Package reading implements the tarot reading engine: spread drawing,
// prompt synthesis and orchestration of the generation backend.
package reading

import (
	"fmt"

	"tarotd/pkg/types"
)

// Layout is a named spread shape: a fixed slot count with semantic labels
// and a narrative instruction for the generation backend.
type Layout struct {
	Name        string
	Slots       []string
	Instruction string
}

// The recognized layout set is fixed; unknown names are invalid input.
var layouts = map[string]Layout{
	"linear": {
		Name:        "linear",
		Slots:       []string{"past", "present", "future"},
		Instruction: "Read the spread as a timeline: let the past card explain how the situation arose, the present card describe where things stand, and the future card show where the current course leads. Tell it as one flowing narrative.",
	},
	"balance": {
		Name:        "balance",
		Slots:       []string{"supporting force", "opposing force", "equilibrium"},
		Instruction: "Frame the reading as a balance of opposing forces: what works in the querent's favour, what works against them, and where the point of equilibrium lies. Weigh both sides fairly before describing the balance.",
	},
	"advice": {
		Name:        "advice",
		Slots:       []string{"situation", "obstacle", "guidance"},
		Instruction: "Focus the reading on actionable guidance: describe the situation, name the obstacle, and close with concrete advice the querent can act on.",
	},
}

// layoutOrder keeps listings deterministic.
var layoutOrder = []string{"linear", "balance", "advice"}

// LayoutByName resolves a layout name. Unknown names yield invalid input,
// never a partial spread.
func LayoutByName(name string) (Layout, error) {
	l, ok := layouts[name]
	if !ok {
		return Layout{}, ErrInvalidInput(fmt.Sprintf("unknown layout %q", name))
	}
	return l, nil
}

// Layouts returns all recognized layouts in a fixed order.
func Layouts() []types.LayoutInfo {
	out := make([]types.LayoutInfo, 0, len(layoutOrder))
	for _, name := range layoutOrder {
		l := layouts[name]
		out = append(out, types.LayoutInfo{
			Name:  l.Name,
			Slots: append([]string(nil), l.Slots...),
		})
	}
	return out
}
