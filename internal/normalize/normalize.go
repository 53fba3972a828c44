// Package normalize cleans recognizer output before intent matching.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// markers are sequence tags some speech models leave in their transcripts
var markers = strings.NewReplacer(
	"<s>", " ",
	"</s>", " ",
	"<pad>", " ",
	"<unk>", " ",
)

// Text strips recognizer markers, composes to NFC, lowercases and
// collapses whitespace. Empty input yields empty output.
func Text(raw string) string {
	if raw == "" {
		return ""
	}

	text := markers.Replace(raw)
	text = norm.NFC.String(text)

	// Casers keep state, so one per call
	text = cases.Lower(language.Und).String(text)

	return strings.Join(strings.Fields(text), " ")
}

// Words splits normalized text on whitespace
func Words(normalized string) []string {
	return strings.Fields(normalized)
}
