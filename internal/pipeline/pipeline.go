package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/bankintent/internal/extract"
	"github.com/ppiankov/bankintent/internal/match"
	"github.com/ppiankov/bankintent/internal/metrics"
	"github.com/ppiankov/bankintent/internal/model"
	"github.com/ppiankov/bankintent/internal/normalize"
	"github.com/ppiankov/bankintent/internal/rules"
	"github.com/ppiankov/bankintent/internal/score"
	"github.com/ppiankov/bankintent/internal/tokenize"
)

// profileEngine is everything compiled for one language profile
type profileEngine struct {
	profile *model.Profile
	matcher *match.Matcher
	scorer  *score.Scorer
	params  *extract.ParamExtractor
}

// Pipeline turns transcribed utterances into banking intents.
// It is immutable after New and safe for concurrent use.
type Pipeline struct {
	registry   *rules.Registry
	engines    map[string]*profileEngine
	tokenizers *tokenize.Provider
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger (no-op by default)
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records extraction metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithTokenizers sets the tokenizer provider used by keyword scoring
func WithTokenizers(t *tokenize.Provider) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tokenizers = t
		}
	}
}

// New compiles every profile in the registry
func New(registry *rules.Registry, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		registry:   registry,
		engines:    make(map[string]*profileEngine),
		tokenizers: tokenize.NewProvider(nil, 0, 30*time.Second),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	defaultScorer := score.NewScorer(registry.Default().Intents)

	for _, profile := range registry.Profiles() {
		matcher, err := match.NewMatcher(profile)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", profile.Tag, err)
		}

		scorer := score.NewScorer(profile.Intents)
		if scorer.Empty() {
			scorer = defaultScorer
		}

		p.engines[profile.Tag] = &profileEngine{
			profile: profile,
			matcher: matcher,
			scorer:  scorer,
			params:  extract.NewParamExtractor(profile),
		}
	}

	return p, nil
}

// ExtractIntent classifies text spoken in languageTag. It never fails:
// blank input, unrecognized utterances and internal faults all yield an
// unknown result.
func (p *Pipeline) ExtractIntent(text, languageTag string) model.IntentResult {
	return p.Extract(text, languageTag).Result
}

// Extract is ExtractIntent plus the trace of how the result was reached
func (p *Pipeline) Extract(text, languageTag string) (ext model.Extraction) {
	start := time.Now()
	ext = model.Extraction{
		Text:     text,
		Language: languageTag,
		Strategy: model.StrategyNone,
		Result:   model.UnknownResult(),
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("extraction panicked",
				zap.String("language", languageTag),
				zap.String("profile", ext.Profile),
				zap.Any("panic", r),
			)
			if p.metrics != nil {
				p.metrics.Recovered.Inc()
			}
			ext.Strategy = model.StrategyNone
			ext.Pattern = ""
			ext.Result = model.UnknownResult()
		}
		p.observe(ext, time.Since(start))
	}()

	profile, fellBack := p.registry.Lookup(languageTag)
	eng := p.engines[profile.Tag]
	ext.Profile = profile.Tag

	log := p.logger.With(zap.String("language", languageTag), zap.String("profile", profile.Tag))
	if fellBack {
		log.Debug("language tag not configured, using default profile")
		if p.metrics != nil {
			p.metrics.ProfileFallbacks.Inc()
		}
	}

	ext.Normalized = normalize.Text(text)
	if ext.Normalized == "" {
		log.Debug("blank utterance")
		return ext
	}
	words := normalize.Words(ext.Normalized)

	if m, ok := eng.matcher.Match(ext.Normalized, words); ok {
		ext.Strategy = m.Strategy
		ext.Pattern = m.Pattern
		ext.Result = eng.params.Extract(m.Intent, ext.Normalized, words)
		log.Debug("pattern matched",
			zap.String("normalized", ext.Normalized),
			zap.String("strategy", string(m.Strategy)),
			zap.String("pattern", m.Pattern),
			zap.String("intent", string(m.Intent)),
		)
		return ext
	}

	tokens, err := p.tokenizers.Tokens(profile.Tag, ext.Normalized)
	if err != nil {
		log.Warn("tokenizer unavailable, keyword scoring sees no tokens", zap.Error(err))
		if p.metrics != nil {
			p.metrics.TokenizerFailures.WithLabelValues(profile.Tag).Inc()
		}
		tokens = nil
	}

	intent, scores := eng.scorer.Score(tokens)
	ext.Scores = scores
	log.Debug("keyword scores",
		zap.String("normalized", ext.Normalized),
		zap.Any("scores", scores),
		zap.String("intent", string(intent)),
	)

	if intent != model.IntentUnknown {
		ext.Strategy = model.StrategyKeyword
		ext.Result = eng.params.Extract(intent, ext.Normalized, words)
	}

	return ext
}

func (p *Pipeline) observe(ext model.Extraction, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.Extractions.WithLabelValues(ext.Profile, string(ext.Result.IntentType), string(ext.Strategy)).Inc()
	p.metrics.ExtractionLatency.WithLabelValues(ext.Profile).Observe(elapsed.Seconds())
}

// Registry returns the profiles the pipeline was built from
func (p *Pipeline) Registry() *rules.Registry {
	return p.registry
}
