package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/bankintent/internal/model"
)

func TestBuiltin_Loads(t *testing.T) {
	reg, err := Load("", model.DefaultLanguage)
	if err != nil {
		t.Fatalf("expected builtin profiles to load, got %v", err)
	}

	tags := reg.Tags()
	expected := []string{"en-US", "hi-IN", "ta-IN"}
	if len(tags) != len(expected) {
		t.Fatalf("expected %d tags, got %v", len(expected), tags)
	}
	for i, tag := range expected {
		if tags[i] != tag {
			t.Errorf("expected tag %d to be %s, got %s", i, tag, tags[i])
		}
	}

	if reg.Default().Mode != model.MatchExact {
		t.Errorf("expected default profile to be exact, got %s", reg.Default().Mode)
	}
}

func TestCanonicalTag(t *testing.T) {
	tests := map[string]string{
		"en-US":   "en-US",
		"en-us":   "en-US",
		"hi_IN":   "hi-IN",
		" ta-in ": "ta-IN",
		"":        "",
	}

	for input, expected := range tests {
		if got := CanonicalTag(input); got != expected {
			t.Errorf("CanonicalTag(%q): expected %q, got %q", input, expected, got)
		}
	}
}

func TestRegistry_Lookup(t *testing.T) {
	reg, err := Load("", model.DefaultLanguage)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	p, fellBack := reg.Lookup("hi-IN")
	if fellBack || p.Tag != "hi-IN" {
		t.Errorf("expected hi-IN without fallback, got %s (fellBack=%v)", p.Tag, fellBack)
	}

	p, fellBack = reg.Lookup("hi")
	if fellBack || p.Tag != "hi-IN" {
		t.Errorf("expected base language hi to resolve to hi-IN, got %s (fellBack=%v)", p.Tag, fellBack)
	}

	// Unconfigured regions resolve by base language, not to the default
	for _, tag := range []string{"hi-US", "hi_GB"} {
		p, fellBack = reg.Lookup(tag)
		if fellBack || p.Tag != "hi-IN" {
			t.Errorf("expected %s to resolve to hi-IN without fallback, got %s (fellBack=%v)", tag, p.Tag, fellBack)
		}
	}

	p, fellBack = reg.Lookup("en-GB")
	if fellBack || p.Tag != "en-US" {
		t.Errorf("expected en-GB to resolve to en-US without fallback, got %s (fellBack=%v)", p.Tag, fellBack)
	}

	p, fellBack = reg.Lookup("fr-FR")
	if !fellBack || p.Tag != "en-US" {
		t.Errorf("expected fr-FR to fall back to en-US, got %s (fellBack=%v)", p.Tag, fellBack)
	}

	p, fellBack = reg.Lookup("")
	if !fellBack || p.Tag != "en-US" {
		t.Errorf("expected empty tag to fall back to en-US, got %s (fellBack=%v)", p.Tag, fellBack)
	}

	p, fellBack = reg.Lookup("not a tag!")
	if !fellBack || p.Tag != "en-US" {
		t.Errorf("expected invalid tag to fall back to en-US, got %s (fellBack=%v)", p.Tag, fellBack)
	}
}

func TestRegistry_InheritsPeriodCues(t *testing.T) {
	reg, err := Load("", model.DefaultLanguage)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	ta, _ := reg.Lookup("ta-IN")
	if len(ta.PeriodCues) != len(reg.Default().PeriodCues) {
		t.Errorf("expected ta-IN to inherit %d period cues, got %d", len(reg.Default().PeriodCues), len(ta.PeriodCues))
	}
}

func TestRegistry_NormalizesWords(t *testing.T) {
	profiles := []model.Profile{{
		Tag: "en-US",
		Intents: []model.IntentRule{{
			Intent:   model.IntentCheckBalance,
			Patterns: []string{`\bbalance\b`},
			Keywords: []string{"  Balance "},
		}},
		Numerals:  []model.NumberWord{{Word: "Hundred", Value: 100}},
		Recipient: &model.RecipientRule{Marker: "TO", Mode: model.RecipientAfter},
	}}

	reg, err := NewRegistry(profiles, "en-US")
	if err != nil {
		t.Fatalf("expected registry, got %v", err)
	}

	p := reg.Default()
	if p.Mode != model.MatchExact {
		t.Errorf("expected default mode exact for default tag, got %s", p.Mode)
	}
	if p.Intents[0].Keywords[0] != "balance" {
		t.Errorf("expected keyword balance, got %q", p.Intents[0].Keywords[0])
	}
	if p.Numerals[0].Word != "hundred" {
		t.Errorf("expected numeral hundred, got %q", p.Numerals[0].Word)
	}
	if p.Recipient.Marker != "to" {
		t.Errorf("expected marker to, got %q", p.Recipient.Marker)
	}
	if p.Intents[0].Patterns[0] != `\bbalance\b` {
		t.Errorf("expected pattern to keep its escapes, got %q", p.Intents[0].Patterns[0])
	}

	// Caller's slice is not modified
	if profiles[0].Intents[0].Keywords[0] != "  Balance " {
		t.Errorf("expected input profile untouched, got %q", profiles[0].Intents[0].Keywords[0])
	}
}

func TestRegistry_DefaultModeFuzzy(t *testing.T) {
	profiles := []model.Profile{
		{Tag: "en-US", Intents: []model.IntentRule{{Intent: model.IntentCheckBalance, Patterns: []string{"balance"}}}},
		{Tag: "hi-IN", Intents: []model.IntentRule{{Intent: model.IntentCheckBalance, Patterns: []string{"बैलेंस"}}}},
	}

	reg, err := NewRegistry(profiles, "en-US")
	if err != nil {
		t.Fatalf("expected registry, got %v", err)
	}

	p, _ := reg.Lookup("hi-IN")
	if p.Mode != model.MatchFuzzy {
		t.Errorf("expected fuzzy mode for non-default profile, got %s", p.Mode)
	}
}

func TestRegistry_InvalidProfile(t *testing.T) {
	profiles := []model.Profile{{
		Tag:     "en-US",
		Intents: []model.IntentRule{{Intent: model.IntentCheckBalance, Patterns: []string{`(broken`}}},
	}}

	_, err := NewRegistry(profiles, "en-US")
	if !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestRegistry_MissingDefault(t *testing.T) {
	profiles := []model.Profile{{
		Tag:     "hi-IN",
		Intents: []model.IntentRule{{Intent: model.IntentCheckBalance, Patterns: []string{"बैलेंस"}}},
	}}

	_, err := NewRegistry(profiles, "en-US")
	if !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("expected ErrInvalidProfile for missing default, got %v", err)
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("profiles: [unterminated"))
	if !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestLoad_Override(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	data := `profiles:
  - tag: hi-IN
    intents:
      - intent: check_balance
        patterns: ['बैलेंस']
  - tag: es-ES
    mode: fuzzy
    intents:
      - intent: check_balance
        patterns: ['saldo']
        keywords: [saldo]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	reg, err := Load(path, model.DefaultLanguage)
	if err != nil {
		t.Fatalf("expected override to load, got %v", err)
	}

	tags := reg.Tags()
	if len(tags) != 4 || tags[3] != "es-ES" {
		t.Errorf("expected es-ES appended, got %v", tags)
	}

	hi, _ := reg.Lookup("hi-IN")
	if len(hi.Intents) != 1 {
		t.Errorf("expected hi-IN replaced with 1 intent, got %d", len(hi.Intents))
	}
	if len(hi.Numerals) != 0 {
		t.Errorf("expected replaced hi-IN to have no numerals, got %d", len(hi.Numerals))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), model.DefaultLanguage)
	if err == nil {
		t.Error("expected error for missing override file")
	}
}
