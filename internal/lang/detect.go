// Package lang holds the language detection heuristic and the translation
// port used by backends with a fixed working language.
package lang

import "unicode"

// Supported language tags.
const (
	Russian = "ru"
	English = "en"
)

// Detect classifies text by script presence: any Cyrillic rune means "ru",
// everything else defaults to "en". This is a deliberate lightweight
// heuristic, not language identification; mixed-script input classifies as
// "ru" and third languages fall through to "en".
func Detect(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Cyrillic, r) {
			return Russian
		}
	}
	return English
}
