package reading

import (
	"fmt"
	"strings"

	"tarotd/pkg/types"
)

// Render synthesizes the system instruction and user content for a drawn
// spread. It is a pure function: identical inputs produce identical output.
// The query is assumed to be within the accepted length bound already.
func Render(layout Layout, cards []types.DrawnCard, query string) (system, user string) {
	var sys strings.Builder
	sys.WriteString("You are a tarot reader providing a thoughtful, grounded interpretation of a ")
	sys.WriteString(layout.Name)
	sys.WriteString(" spread.\n")
	sys.WriteString(layout.Instruction)
	sys.WriteString("\nMention each card by name in its position. Do not invent cards that were not drawn. Never present the reading as certainty about the future.")

	var b strings.Builder
	b.WriteString("Cards:\n")
	for i, c := range cards {
		fmt.Fprintf(&b, "%d. [%s] %s (%s): %s\n", i+1, c.Slot, c.Name, c.Orientation, c.Meaning)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", query)
	return sys.String(), b.String()
}
