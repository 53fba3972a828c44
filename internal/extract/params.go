// Package extract pulls intent parameters (amount, recipient, period) out of
// normalized text using a language profile.
package extract

import (
	"strings"
	"unicode"

	"github.com/ppiankov/bankintent/internal/model"
	"github.com/ppiankov/bankintent/internal/numeral"
)

// ParamExtractor extracts parameters for one profile
type ParamExtractor struct {
	numerals  *numeral.Resolver
	recipient *model.RecipientRule
	periods   []model.PeriodCue
}

// NewParamExtractor creates an extractor from the profile's numeral
// vocabulary, recipient rule and period cues
func NewParamExtractor(profile *model.Profile) *ParamExtractor {
	return &ParamExtractor{
		numerals:  numeral.NewResolver(profile.Numerals, profile.Guards),
		recipient: profile.Recipient,
		periods:   profile.PeriodCues,
	}
}

// Extract builds the result for intent. Intents other than the three
// banking intents yield an unknown result with no parameters.
func (e *ParamExtractor) Extract(intent model.IntentType, normalized string, words []string) model.IntentResult {
	switch intent {
	case model.IntentCheckBalance:
		return model.IntentResult{IntentType: intent}

	case model.IntentTransferMoney:
		result := model.IntentResult{IntentType: intent}
		if amount, ok := e.Amount(normalized, words); ok {
			result.Parameters.Amount = model.Float(amount)
		}
		if recipient, ok := e.Recipient(words); ok {
			result.Parameters.Recipient = recipient
		}
		return result

	case model.IntentTransactionHistory:
		return model.IntentResult{
			IntentType: intent,
			Parameters: model.Parameters{Period: e.Period(normalized)},
		}
	}

	return model.UnknownResult()
}

// Amount resolves number words when the profile has a vocabulary and at
// least one number word is present, otherwise the first digit run. Number
// words that compose past int64 yield no amount.
func (e *ParamExtractor) Amount(normalized string, words []string) (float64, bool) {
	if !e.numerals.Empty() {
		if tokens := e.numerals.Scan(words); len(tokens) > 0 {
			value, ok := numeral.Compose(tokens)
			if !ok {
				return 0, false
			}
			return float64(value), true
		}
	}
	return numeral.FirstDecimal(normalized)
}

// Recipient returns the word next to the first marker word, on the side the
// profile's rule names. Surrounding punctuation is trimmed.
func (e *ParamExtractor) Recipient(words []string) (string, bool) {
	if e.recipient == nil || e.recipient.Marker == "" {
		return "", false
	}

	for i, w := range words {
		if w != e.recipient.Marker {
			continue
		}

		var candidate string
		switch e.recipient.Mode {
		case model.RecipientAfter:
			if i+1 < len(words) {
				candidate = words[i+1]
			}
		case model.RecipientBefore:
			if i > 0 {
				candidate = words[i-1]
			}
		}

		candidate = strings.TrimFunc(candidate, notWordRune)
		if candidate == "" {
			return "", false
		}
		return candidate, true
	}

	return "", false
}

// Period returns the period of the first cue found in the text, or recent
func (e *ParamExtractor) Period(normalized string) model.Period {
	for _, cue := range e.periods {
		if cue.Phrase != "" && strings.Contains(normalized, cue.Phrase) {
			return cue.Period
		}
	}
	return model.PeriodRecent
}

// notWordRune keeps letters, digits and combining marks (Devanagari vowel
// signs are marks)
func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
}
