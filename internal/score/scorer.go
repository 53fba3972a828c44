// Package score is the keyword-frequency fallback used when no pattern matched.
package score

import (
	"github.com/ppiankov/bankintent/internal/model"
)

type keywordSet struct {
	intent   model.IntentType
	keywords map[string]struct{}
}

// Scorer counts keyword hits per intent. Intents keep declaration order,
// which decides ties.
type Scorer struct {
	sets []keywordSet
}

// NewScorer creates a scorer from the intents' keyword tables. Intents
// without keywords are skipped.
func NewScorer(intents []model.IntentRule) *Scorer {
	s := &Scorer{}
	for _, rule := range intents {
		if len(rule.Keywords) == 0 {
			continue
		}
		set := keywordSet{intent: rule.Intent, keywords: make(map[string]struct{}, len(rule.Keywords))}
		for _, kw := range rule.Keywords {
			set.keywords[kw] = struct{}{}
		}
		s.sets = append(s.sets, set)
	}
	return s
}

// Empty reports whether the scorer has no keywords at all
func (s *Scorer) Empty() bool {
	return len(s.sets) == 0
}

// Score counts, for each intent, how many tokens are in its keyword set.
// Every occurrence counts. The strictly highest count wins; on a tie the
// intent declared first keeps the lead. All-zero scores select unknown.
func (s *Scorer) Score(tokens []string) (model.IntentType, []model.KeywordScore) {
	scores := make([]model.KeywordScore, len(s.sets))
	for i, set := range s.sets {
		hits := 0
		for _, tok := range tokens {
			if _, ok := set.keywords[tok]; ok {
				hits++
			}
		}
		scores[i] = model.KeywordScore{Intent: set.intent, Hits: hits}
	}

	best := model.IntentUnknown
	bestHits := 0
	for _, sc := range scores {
		if sc.Hits > bestHits {
			best = sc.Intent
			bestHits = sc.Hits
		}
	}

	return best, scores
}
