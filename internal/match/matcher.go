// Package match evaluates a profile's ordered intent patterns against text.
package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/bankintent/internal/model"
)

// FuzzyOverlapThreshold is the share of a pattern's words that must appear
// in the text for a fuzzy match
const FuzzyOverlapThreshold = 0.5

// Match describes the pattern that won
type Match struct {
	Intent   model.IntentType
	Pattern  string
	Strategy model.Strategy
}

type compiledPattern struct {
	raw   string
	re    *regexp.Regexp
	words map[string]struct{}
}

type compiledRule struct {
	intent   model.IntentType
	patterns []compiledPattern
}

// Matcher holds one profile's compiled rules. It is immutable and safe for
// concurrent use.
type Matcher struct {
	mode  model.MatchMode
	rules []compiledRule
}

// NewMatcher compiles the profile's patterns in declaration order
func NewMatcher(profile *model.Profile) (*Matcher, error) {
	m := &Matcher{
		mode:  profile.Mode,
		rules: make([]compiledRule, 0, len(profile.Intents)),
	}

	for _, rule := range profile.Intents {
		cr := compiledRule{intent: rule.Intent}
		for _, pattern := range rule.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("compile pattern %q for %s: %w", pattern, rule.Intent, err)
			}
			cr.patterns = append(cr.patterns, compiledPattern{
				raw:   pattern,
				re:    re,
				words: wordSet(strings.Fields(strings.ToLower(pattern))),
			})
		}
		m.rules = append(m.rules, cr)
	}

	return m, nil
}

// Match returns the first pattern, in declaration order, that matches the
// normalized text. ok is false when nothing matched.
func (m *Matcher) Match(normalized string, words []string) (Match, bool) {
	if normalized == "" {
		return Match{}, false
	}

	var textWords map[string]struct{}
	if m.mode == model.MatchFuzzy {
		textWords = wordSet(words)
	}

	for _, rule := range m.rules {
		for _, p := range rule.patterns {
			if m.mode == model.MatchFuzzy && overlaps(p.words, textWords) {
				return Match{Intent: rule.intent, Pattern: p.raw, Strategy: model.StrategyFuzzy}, true
			}
			if p.re.MatchString(normalized) {
				return Match{Intent: rule.intent, Pattern: p.raw, Strategy: model.StrategyExact}, true
			}
		}
	}

	return Match{}, false
}

// overlaps reports whether enough pattern words occur in the text
func overlaps(patternWords, textWords map[string]struct{}) bool {
	if len(patternWords) == 0 {
		return false
	}

	common := 0
	for w := range patternWords {
		if _, ok := textWords[w]; ok {
			common++
		}
	}

	return float64(common) >= float64(len(patternWords))*FuzzyOverlapThreshold
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
