// Package rules loads language profiles and resolves language tags to them.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/bankintent/internal/model"
	"github.com/ppiankov/bankintent/internal/normalize"
	"github.com/ppiankov/bankintent/internal/validate"
)

//go:embed profiles.yaml
var builtinProfiles []byte

// ErrInvalidProfile is returned when profiles fail to parse or validate
var ErrInvalidProfile = errors.New("invalid language profile")

type profileFile struct {
	Profiles []model.Profile `yaml:"profiles"`
}

// Parse decodes a profiles YAML document
func Parse(data []byte) ([]model.Profile, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidProfile, err)
	}
	return f.Profiles, nil
}

// Builtin returns the embedded profiles
func Builtin() ([]model.Profile, error) {
	return Parse(builtinProfiles)
}

// LoadFile reads profiles from a YAML file
func LoadFile(path string) ([]model.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(data)
}

// Merge replaces base profiles with overrides of the same tag and appends
// overrides with new tags. Base order is kept.
func Merge(base, overrides []model.Profile) []model.Profile {
	merged := make([]model.Profile, len(base))
	copy(merged, base)

	index := make(map[string]int, len(merged))
	for i, p := range merged {
		index[CanonicalTag(p.Tag)] = i
	}

	for _, o := range overrides {
		if i, ok := index[CanonicalTag(o.Tag)]; ok {
			merged[i] = o
			continue
		}
		index[CanonicalTag(o.Tag)] = len(merged)
		merged = append(merged, o)
	}

	return merged
}

// Load builds a registry from the embedded profiles, merged with the
// override file when overridePath is not empty
func Load(overridePath, defaultTag string) (*Registry, error) {
	profiles, err := Builtin()
	if err != nil {
		return nil, err
	}

	if overridePath != "" {
		overrides, err := LoadFile(overridePath)
		if err != nil {
			return nil, err
		}
		profiles = Merge(profiles, overrides)
	}

	return NewRegistry(profiles, defaultTag)
}

// CanonicalTag returns the BCP 47 canonical form of tag ("hi_in" -> "hi-IN").
// Tags that do not parse are returned trimmed.
func CanonicalTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	parsed, err := language.Parse(strings.ReplaceAll(tag, "_", "-"))
	if err != nil {
		return tag
	}
	return parsed.String()
}

// Registry holds validated profiles keyed by canonical tag. It is read-only
// after construction.
type Registry struct {
	profiles   map[string]*model.Profile
	order      []string
	defaultTag string
}

// NewRegistry prepares and validates profiles. Words are normalized the same
// way input text is; patterns are only NFC-composed so regex escapes keep
// their case. Profiles without period cues inherit the default profile's.
func NewRegistry(profiles []model.Profile, defaultTag string) (*Registry, error) {
	if defaultTag == "" {
		defaultTag = model.DefaultLanguage
	}
	defaultTag = CanonicalTag(defaultTag)

	prepared := make([]model.Profile, len(profiles))
	for i, p := range profiles {
		prepared[i] = prepare(p, defaultTag)
	}

	if err := validate.NewValidator().Validate(prepared); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	r := &Registry{
		profiles:   make(map[string]*model.Profile, len(prepared)),
		defaultTag: defaultTag,
	}
	for i := range prepared {
		p := &prepared[i]
		r.profiles[p.Tag] = p
		r.order = append(r.order, p.Tag)
	}

	def, ok := r.profiles[defaultTag]
	if !ok {
		return nil, fmt.Errorf("%w: default profile %q not defined", ErrInvalidProfile, defaultTag)
	}

	for _, p := range r.profiles {
		if len(p.PeriodCues) == 0 {
			p.PeriodCues = def.PeriodCues
		}
	}

	return r, nil
}

func prepare(p model.Profile, defaultTag string) model.Profile {
	p.Tag = CanonicalTag(p.Tag)
	if p.Mode == "" {
		if p.Tag == defaultTag {
			p.Mode = model.MatchExact
		} else {
			p.Mode = model.MatchFuzzy
		}
	}

	intents := make([]model.IntentRule, len(p.Intents))
	for i, rule := range p.Intents {
		patterns := make([]string, len(rule.Patterns))
		for j, pattern := range rule.Patterns {
			patterns[j] = norm.NFC.String(pattern)
		}
		intents[i] = model.IntentRule{
			Intent:   rule.Intent,
			Patterns: patterns,
			Keywords: normalizeAll(rule.Keywords),
		}
	}
	p.Intents = intents

	numerals := make([]model.NumberWord, len(p.Numerals))
	for i, n := range p.Numerals {
		numerals[i] = model.NumberWord{Word: normalize.Text(n.Word), Value: n.Value}
	}
	p.Numerals = numerals
	p.Guards = normalizeAll(p.Guards)

	if p.Recipient != nil {
		p.Recipient = &model.RecipientRule{
			Marker: normalize.Text(p.Recipient.Marker),
			Mode:   p.Recipient.Mode,
		}
	}

	cues := make([]model.PeriodCue, len(p.PeriodCues))
	for i, c := range p.PeriodCues {
		cues[i] = model.PeriodCue{Phrase: normalize.Text(c.Phrase), Period: c.Period}
	}
	p.PeriodCues = cues

	return p
}

func normalizeAll(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = normalize.Text(w)
	}
	return out
}

// Lookup returns the profile for tag. Unknown or empty tags resolve to the
// default profile with fellBack set.
//
// The exception is a tag whose language is configured under another region
// or none: "hi" and "hi-US" resolve to hi-IN, the first profile of the same
// base language, and do not count as a fallback.
func (r *Registry) Lookup(tag string) (profile *model.Profile, fellBack bool) {
	canonical := CanonicalTag(tag)
	if p, ok := r.profiles[canonical]; ok {
		return p, false
	}

	if base := baseLanguage(canonical); base != "" {
		for _, t := range r.order {
			if baseLanguage(t) == base {
				return r.profiles[t], false
			}
		}
	}

	return r.profiles[r.defaultTag], true
}

// Default returns the default profile
func (r *Registry) Default() *model.Profile {
	return r.profiles[r.defaultTag]
}

// DefaultTag returns the canonical default tag
func (r *Registry) DefaultTag() string {
	return r.defaultTag
}

// Tags returns the configured tags in declaration order
func (r *Registry) Tags() []string {
	tags := make([]string, len(r.order))
	copy(tags, r.order)
	return tags
}

// Profiles returns the profiles in declaration order
func (r *Registry) Profiles() []*model.Profile {
	out := make([]*model.Profile, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.profiles[t])
	}
	return out
}

// Languages returns the distinct base languages, sorted
func (r *Registry) Languages() []string {
	seen := make(map[string]bool)
	var langs []string
	for _, t := range r.order {
		b := baseLanguage(t)
		if b != "" && !seen[b] {
			seen[b] = true
			langs = append(langs, b)
		}
	}
	sort.Strings(langs)
	return langs
}

func baseLanguage(tag string) string {
	if tag == "" {
		return ""
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, conf := parsed.Base()
	if conf != language.Exact {
		return ""
	}
	return base.String()
}
