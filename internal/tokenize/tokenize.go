// Package tokenize provides per-language word tokenizers for keyword scoring.
package tokenize

import (
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/rivo/uniseg"

	"github.com/ppiankov/bankintent/internal/cache"
)

// ErrUnsupported is returned by loaders that have no tokenizer for a tag
var ErrUnsupported = errors.New("no tokenizer for language")

// Tokenizer splits normalized text into word tokens
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
}

// Loader builds the tokenizer for a language tag. Loading may be slow.
type Loader interface {
	Load(tag string) (Tokenizer, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(tag string) (Tokenizer, error)

// Load calls f
func (f LoaderFunc) Load(tag string) (Tokenizer, error) {
	return f(tag)
}

// SegmentTokenizer splits text on Unicode word boundaries (UAX #29) and
// keeps segments that contain a letter or digit
type SegmentTokenizer struct{}

// Tokenize returns the word segments of text
func (SegmentTokenizer) Tokenize(text string) ([]string, error) {
	var tokens []string
	state := -1
	rest := text
	for len(rest) > 0 {
		var word string
		word, rest, state = uniseg.FirstWordInString(rest, state)
		if isWord(word) {
			tokens = append(tokens, word)
		}
	}
	return tokens, nil
}

func isWord(segment string) bool {
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// SegmentLoader loads the built-in segment tokenizer for every tag
var SegmentLoader = LoaderFunc(func(string) (Tokenizer, error) {
	return SegmentTokenizer{}, nil
})

// Provider memoizes one tokenizer per tag. The first use of a tag loads it
// exactly once even under concurrent calls; failed loads are remembered
// for failureTTL.
type Provider struct {
	loader Loader
	memo   *cache.Memo[Tokenizer]
}

// NewProvider creates a provider over loader. A nil loader uses the segment
// tokenizer.
func NewProvider(loader Loader, ttl, failureTTL time.Duration) *Provider {
	if loader == nil {
		loader = SegmentLoader
	}
	return &Provider{
		loader: loader,
		memo:   cache.NewMemo[Tokenizer](ttl, failureTTL),
	}
}

// Get returns the tokenizer for tag
func (p *Provider) Get(tag string) (Tokenizer, error) {
	tok, err := p.memo.Get(tag, func() (Tokenizer, error) {
		t, err := p.loader.Load(tag)
		if err == nil && t == nil {
			err = ErrUnsupported
		}
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", tag, err)
	}
	return tok, nil
}

// Tokens loads the tokenizer for tag and tokenizes text
func (p *Provider) Tokens(tag, text string) ([]string, error) {
	tok, err := p.Get(tag)
	if err != nil {
		return nil, err
	}
	tokens, err := tok.Tokenize(text)
	if err != nil {
		return nil, fmt.Errorf("tokenize %s: %w", tag, err)
	}
	return tokens, nil
}
