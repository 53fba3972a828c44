package model

// MatchMode selects how a profile's patterns are evaluated
type MatchMode string

const (
	MatchExact MatchMode = "exact" // Patterns are regular expressions
	MatchFuzzy MatchMode = "fuzzy" // Patterns match by word overlap, regex as a second try
)

// RecipientMode says on which side of the marker word the recipient sits
type RecipientMode string

const (
	RecipientAfter  RecipientMode = "after"  // "send 10 to jane"
	RecipientBefore RecipientMode = "before" // "जॉन को सौ रुपये भेजिए"
)

// IntentRule is one intent with its ordered patterns and fallback keywords
type IntentRule struct {
	Intent   IntentType `yaml:"intent" json:"intent"`
	Patterns []string   `yaml:"patterns" json:"patterns"`
	Keywords []string   `yaml:"keywords,omitempty" json:"keywords,omitempty"`
}

// NumberWord maps a spoken number word to its value
type NumberWord struct {
	Word  string `yaml:"word" json:"word"`
	Value int64  `yaml:"value" json:"value"`
}

// MultiplierThreshold is the smallest value treated as a scale word
const MultiplierThreshold = 100

// IsMultiplier reports whether the word is a scale token (hundred, thousand, ...)
func (n NumberWord) IsMultiplier() bool {
	return n.Value >= MultiplierThreshold
}

// RecipientRule locates the recipient relative to a marker word
type RecipientRule struct {
	Marker string        `yaml:"marker" json:"marker"`
	Mode   RecipientMode `yaml:"mode" json:"mode"`
}

// PeriodCue maps a literal phrase to a history period
type PeriodCue struct {
	Phrase string `yaml:"phrase" json:"phrase"`
	Period Period `yaml:"period" json:"period"`
}

// Profile bundles everything needed to interpret one language
type Profile struct {
	Tag        string         `yaml:"tag" json:"tag"`
	Name       string         `yaml:"name,omitempty" json:"name,omitempty"`
	Mode       MatchMode      `yaml:"mode" json:"mode"`
	Intents    []IntentRule   `yaml:"intents" json:"intents"`
	Numerals   []NumberWord   `yaml:"numerals,omitempty" json:"numerals,omitempty"`
	Guards     []string       `yaml:"numeral_guards,omitempty" json:"numeral_guards,omitempty"` // Words after which a number word is not a number
	Recipient  *RecipientRule `yaml:"recipient,omitempty" json:"recipient,omitempty"`
	PeriodCues []PeriodCue    `yaml:"periods,omitempty" json:"periods,omitempty"`
}

// HasKeywords reports whether any intent declares fallback keywords
func (p *Profile) HasKeywords() bool {
	for _, rule := range p.Intents {
		if len(rule.Keywords) > 0 {
			return true
		}
	}
	return false
}
