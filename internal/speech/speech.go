// Package speech turns recorded utterances into text for the intent pipeline.
package speech

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/language"
)

// ErrNoProvider is returned when no transcription provider is configured
var ErrNoProvider = errors.New("no transcription provider configured")

// Transcriber converts audio into text
type Transcriber interface {
	// Name returns the provider name
	Name() string

	// Transcribe returns the text spoken in audio. filename carries the
	// audio format by extension ("voice.wav"); tag is the BCP 47 language.
	Transcribe(ctx context.Context, audio []byte, filename, tag string) (string, error)
}

// BaseLanguage returns the ISO 639-1 code of tag ("hi-IN" -> "hi"), or ""
// when the tag cannot be parsed
func BaseLanguage(tag string) string {
	t, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
	if err != nil {
		return ""
	}
	base, conf := t.Base()
	if conf != language.Exact {
		return ""
	}
	return base.String()
}
