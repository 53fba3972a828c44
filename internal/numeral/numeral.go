// Package numeral turns spoken number words and digit runs into amounts.
package numeral

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ppiankov/bankintent/internal/model"
)

// Token is a number word found in text
type Token struct {
	Position int // Word index in the text
	Word     string
	Value    int64
}

// IsMultiplier reports whether the token is a scale word
func (t Token) IsMultiplier() bool {
	return t.Value >= model.MultiplierThreshold
}

// Resolver composes number words of one language into quantities
type Resolver struct {
	vocabulary map[string]int64
	guards     map[string]struct{}
}

// NewResolver creates a resolver over the given vocabulary. A number word
// directly after one of the guard words is skipped (Hindi "भेज दो" is
// "send it", not "send two"). An empty vocabulary is valid and never
// resolves anything.
func NewResolver(words []model.NumberWord, guards []string) *Resolver {
	vocabulary := make(map[string]int64, len(words))
	for _, w := range words {
		vocabulary[w.Word] = w.Value
	}
	guardSet := make(map[string]struct{}, len(guards))
	for _, g := range guards {
		guardSet[g] = struct{}{}
	}
	return &Resolver{vocabulary: vocabulary, guards: guardSet}
}

// Empty reports whether the resolver has no vocabulary
func (r *Resolver) Empty() bool {
	return len(r.vocabulary) == 0
}

// Scan returns the number words among words, in text order
func (r *Resolver) Scan(words []string) []Token {
	var tokens []Token
	for i, word := range words {
		value, ok := r.vocabulary[word]
		if !ok {
			continue
		}
		if i > 0 {
			if _, guarded := r.guards[words[i-1]]; guarded {
				continue
			}
		}
		tokens = append(tokens, Token{Position: i, Word: word, Value: value})
	}
	return tokens
}

// Resolve scans words and composes the number words found.
// ok is false when no number word is present or the composition overflows.
func (r *Resolver) Resolve(words []string) (value int64, ok bool) {
	tokens := r.Scan(words)
	if len(tokens) == 0 {
		return 0, false
	}
	return Compose(tokens)
}

// Compose folds text-ordered tokens into one magnitude in a single pass.
//
// A base followed by a multiplier is held in current and scaled; a multiplier
// is flushed into total when it is last or the next token is a base.
// Consecutive multipliers multiply ("hundred thousand" = 100000).
// ok is false when the quantity does not fit in an int64.
func Compose(tokens []Token) (value int64, ok bool) {
	switch len(tokens) {
	case 0:
		return 0, true
	case 1:
		return tokens[0].Value, true
	}

	var total, current int64
	last := len(tokens) - 1

	for i, tok := range tokens {
		nextIsMultiplier := i < last && tokens[i+1].IsMultiplier()

		if tok.IsMultiplier() {
			if current == 0 {
				current = tok.Value
			} else if current, ok = mul(current, tok.Value); !ok {
				return 0, false
			}
			if !nextIsMultiplier {
				if total, ok = add(total, current); !ok {
					return 0, false
				}
				current = 0
			}
			continue
		}

		if nextIsMultiplier {
			current = tok.Value
		} else if total, ok = add(total, tok.Value); !ok {
			return 0, false
		}
	}

	return add(total, current)
}

// mul and add operate on non-negative values
func mul(a, b int64) (int64, bool) {
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

func add(a, b int64) (int64, bool) {
	if b > math.MaxInt64-a {
		return 0, false
	}
	return a + b, true
}

var digitsPattern = regexp.MustCompile(`\p{Nd}+(?:\.\p{Nd}+)?`)

// FirstDecimal returns the first digit run in text, with an optional
// fractional part. Digits from any script are accepted.
func FirstDecimal(text string) (float64, bool) {
	match := digitsPattern.FindString(text)
	if match == "" {
		return 0, false
	}

	ascii := strings.Map(func(r rune) rune {
		if r == '.' {
			return r
		}
		return '0' + rune(digitValue(r))
	}, match)

	value, err := strconv.ParseFloat(ascii, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// digitValue returns the value of a Unicode decimal digit. Decimal digits
// are encoded in contiguous runs that start at zero, so the offset from the
// start of the run, mod 10, is the value.
func digitValue(r rune) int {
	if r >= '0' && r <= '9' {
		return int(r - '0')
	}
	start := r
	for unicode.IsDigit(start - 1) {
		start--
	}
	return int(r-start) % 10
}
