package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/bankintent/internal/model"
)

// Extractor classifies one utterance
type Extractor interface {
	Extract(text, languageTag string) model.Extraction
}

// Utterance is one line of a batch input
type Utterance struct {
	Line     int    // 1-based line number in the input
	Language string // Tag from the line prefix, or the batch default
	Text     string
}

// ExtractJob classifies one utterance
type ExtractJob struct {
	Utterance Utterance
	Extractor Extractor
}

// Execute runs the extraction; a cancelled context yields an error result
func (j *ExtractJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &ExtractResult{Utterance: j.Utterance, Error: err}
	}
	ext := j.Extractor.Extract(j.Utterance.Text, j.Utterance.Language)
	return &ExtractResult{Utterance: j.Utterance, Extraction: ext}
}

// ExtractResult is the outcome of one ExtractJob
type ExtractResult struct {
	Utterance  Utterance
	Extraction model.Extraction
	Error      error
}

// GetError returns the error from the extraction result
func (r *ExtractResult) GetError() error {
	return r.Error
}

// BatchProcessor classifies many utterances concurrently
type BatchProcessor struct {
	extractor   Extractor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(extractor Extractor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		extractor:   extractor,
		concurrency: concurrency,
	}
}

// Process classifies utterances and returns results in input order
func (b *BatchProcessor) Process(ctx context.Context, utterances []Utterance) []*ExtractResult {
	jobs := make([]Job, len(utterances))
	for i, u := range utterances {
		jobs[i] = &ExtractJob{Utterance: u, Extractor: b.extractor}
	}

	results := NewPool(b.concurrency).Run(ctx, jobs)

	out := make([]*ExtractResult, len(results))
	for i, r := range results {
		if r == nil {
			out[i] = &ExtractResult{Utterance: utterances[i], Error: ctx.Err()}
			continue
		}
		out[i] = r.(*ExtractResult)
	}
	return out
}

// ProcessFile reads utterances from path and processes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, path, defaultTag string) ([]*ExtractResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	utterances, err := ReadUtterances(f, defaultTag)
	if err != nil {
		return nil, err
	}
	return b.Process(ctx, utterances), nil
}

// ReadUtterances parses one utterance per line. A line of the form
// "tag<TAB>text" sets its own language; other lines use defaultTag. Blank
// lines and lines starting with '#' are skipped.
func ReadUtterances(r io.Reader, defaultTag string) ([]Utterance, error) {
	var utterances []Utterance

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		u := Utterance{Line: line, Language: defaultTag, Text: raw}
		if tag, text, ok := strings.Cut(raw, "\t"); ok {
			u.Language = strings.TrimSpace(tag)
			u.Text = strings.TrimSpace(text)
		}
		utterances = append(utterances, u)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	return utterances, nil
}
