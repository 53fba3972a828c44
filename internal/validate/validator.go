package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/bankintent/internal/model"
)

// Issue is a single problem found in a language profile
type Issue struct {
	Tag     string // Profile tag
	Field   string // Offending field, e.g. "intents[1].patterns[0]"
	Message string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s: %s: %s", i.Tag, i.Field, i.Message)
}

// Validator checks language profiles before they are used for matching
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks all profiles and returns every issue found, joined.
// A nil error means the profiles are safe to load.
func (v *Validator) Validate(profiles []model.Profile) error {
	var errs []error
	seen := make(map[string]bool)

	for i := range profiles {
		p := &profiles[i]
		if p.Tag != "" {
			if seen[p.Tag] {
				errs = append(errs, Issue{Tag: p.Tag, Field: "tag", Message: "duplicate profile tag"})
			}
			seen[p.Tag] = true
		}
		for _, issue := range v.Profile(p) {
			errs = append(errs, issue)
		}
	}

	return errors.Join(errs...)
}

// Profile returns the issues found in one profile
func (v *Validator) Profile(p *model.Profile) []Issue {
	var issues []Issue
	add := func(field, format string, args ...interface{}) {
		issues = append(issues, Issue{Tag: p.Tag, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(p.Tag) == "" {
		add("tag", "tag is required")
	}

	switch p.Mode {
	case model.MatchExact, model.MatchFuzzy:
	default:
		add("mode", "unknown match mode %q (expected exact or fuzzy)", p.Mode)
	}

	if len(p.Intents) == 0 {
		add("intents", "at least one intent is required")
	}

	intents := make(map[model.IntentType]bool)
	for i, rule := range p.Intents {
		field := fmt.Sprintf("intents[%d]", i)

		switch {
		case rule.Intent == "":
			add(field+".intent", "intent name is required")
		case rule.Intent == model.IntentUnknown:
			add(field+".intent", "%q is reserved", model.IntentUnknown)
		case intents[rule.Intent]:
			add(field+".intent", "duplicate intent %q", rule.Intent)
		}
		intents[rule.Intent] = true

		if len(rule.Patterns) == 0 && len(rule.Keywords) == 0 {
			add(field, "intent %q has neither patterns nor keywords", rule.Intent)
		}

		for j, pattern := range rule.Patterns {
			pfield := fmt.Sprintf("%s.patterns[%d]", field, j)
			if strings.TrimSpace(pattern) == "" {
				add(pfield, "empty pattern matches everything")
				continue
			}
			if _, err := regexp.Compile(pattern); err != nil {
				add(pfield, "invalid regular expression: %v", err)
			}
		}

		for j, kw := range rule.Keywords {
			if strings.TrimSpace(kw) == "" {
				add(fmt.Sprintf("%s.keywords[%d]", field, j), "empty keyword")
			}
		}
	}

	issues = append(issues, v.numerals(p)...)

	if p.Recipient != nil {
		if strings.TrimSpace(p.Recipient.Marker) == "" {
			add("recipient.marker", "marker word is required")
		}
		switch p.Recipient.Mode {
		case model.RecipientAfter, model.RecipientBefore:
		default:
			add("recipient.mode", "unknown recipient mode %q (expected after or before)", p.Recipient.Mode)
		}
	}

	for i, cue := range p.PeriodCues {
		field := fmt.Sprintf("periods[%d]", i)
		if strings.TrimSpace(cue.Phrase) == "" {
			add(field+".phrase", "phrase is required")
		}
		if !cue.Period.Valid() {
			add(field+".period", "unknown period %q", cue.Period)
		}
	}

	return issues
}

// numerals checks the number-word vocabulary. Base values are 1-99;
// anything from 100 up is a multiplier and must be a power of ten.
func (v *Validator) numerals(p *model.Profile) []Issue {
	var issues []Issue
	words := make(map[string]bool)

	for i, n := range p.Numerals {
		field := fmt.Sprintf("numerals[%d]", i)

		if strings.TrimSpace(n.Word) == "" {
			issues = append(issues, Issue{Tag: p.Tag, Field: field + ".word", Message: "word is required"})
		} else if words[n.Word] {
			issues = append(issues, Issue{Tag: p.Tag, Field: field + ".word", Message: fmt.Sprintf("duplicate number word %q", n.Word)})
		}
		words[n.Word] = true

		switch {
		case n.Value <= 0:
			issues = append(issues, Issue{Tag: p.Tag, Field: field + ".value", Message: "value must be positive"})
		case n.IsMultiplier() && !isPowerOfTen(n.Value):
			issues = append(issues, Issue{Tag: p.Tag, Field: field + ".value", Message: fmt.Sprintf("multiplier %d is not a power of ten", n.Value)})
		}
	}

	return issues
}

func isPowerOfTen(v int64) bool {
	if v < 1 {
		return false
	}
	for v%10 == 0 {
		v /= 10
	}
	return v == 1
}
