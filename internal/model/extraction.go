package model

// Strategy names the stage that produced an intent
type Strategy string

const (
	StrategyNone    Strategy = "none"
	StrategyExact   Strategy = "pattern_exact"
	StrategyFuzzy   Strategy = "pattern_fuzzy"
	StrategyKeyword Strategy = "keyword"
)

// KeywordScore is the keyword hit count of one intent
type KeywordScore struct {
	Intent IntentType `json:"intent"`
	Hits   int        `json:"hits"`
}

// Extraction is an IntentResult plus how it was reached.
// Used by the CLI and HTTP surfaces; the engine contract is IntentResult.
type Extraction struct {
	Text       string         `json:"text"`
	Normalized string         `json:"normalized"`
	Language   string         `json:"language"` // Tag as supplied by the caller
	Profile    string         `json:"profile"`  // Tag of the profile actually used
	Strategy   Strategy       `json:"strategy"`
	Pattern    string         `json:"pattern,omitempty"` // Winning pattern, if any
	Scores     []KeywordScore `json:"keyword_scores,omitempty"`
	Result     IntentResult   `json:"intent"`
}
