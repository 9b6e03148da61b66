package ocr

import (
	"strings"
	"unicode"
)

// CleanText flattens recognized text into a single narratable line. Output
// made only of punctuation, symbols and whitespace is treated as empty.
func CleanText(text string) string {
	if noiseOnly(text) {
		return ""
	}
	text = strings.ReplaceAll(text, "|", "")
	return strings.Join(strings.Fields(text), " ")
}

func noiseOnly(text string) bool {
	for _, r := range text {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
