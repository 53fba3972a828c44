package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/bankintent/internal/model"
	"github.com/ppiankov/bankintent/internal/worker"
)

var (
	concurrency  int
	batchLang    string
	batchOutput  string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Extract intents for every line of a file in parallel",
	Long: `Batch classifies one utterance per line:
- Blank lines and lines starting with # are skipped
- A line may start with "<tag><TAB>" to set its language
- Utterances are processed in parallel with a bounded worker pool
- Results are written as JSON lines in input order

Example:
  bankintent batch utterances.txt
  bankintent batch utterances.txt --lang hi-IN --concurrency 8 --output results.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers, else number of CPUs)")
	batchCmd.Flags().StringVarP(&batchLang, "lang", "l", model.DefaultLanguage, "language tag for lines without a tag prefix")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "output file (default: stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

type batchLine struct {
	Line     int                 `json:"line"`
	Language string              `json:"language"`
	Text     string              `json:"text"`
	Result   *model.IntentResult `json:"result,omitempty"`
	Strategy model.Strategy      `json:"strategy,omitempty"`
	Error    string              `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	workers := concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p, err := buildPipeline(cfg, log, nil)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if batchOutput != "" {
		f, createErr := os.Create(batchOutput)
		if createErr != nil {
			return fmt.Errorf("create output: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		out = f
	}

	start := time.Now()
	processor := worker.NewBatchProcessor(p, workers)
	results, err := processor.ProcessFile(ctx, file, batchLang)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	failures := 0
	counts := make(map[model.IntentType]int)
	for _, r := range results {
		line := batchLine{
			Line:     r.Utterance.Line,
			Language: r.Utterance.Language,
			Text:     r.Utterance.Text,
		}
		if r.Error != nil {
			failures++
			line.Error = r.Error.Error()
		} else {
			result := r.Extraction.Result
			line.Result = &result
			line.Strategy = r.Extraction.Strategy
			counts[result.IntentType]++
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	log.Info("batch complete",
		zap.String("file", file),
		zap.Int("utterances", len(results)),
		zap.Int("failures", failures),
		zap.Int("workers", workers),
		zap.Int("check_balance", counts[model.IntentCheckBalance]),
		zap.Int("transfer_money", counts[model.IntentTransferMoney]),
		zap.Int("transaction_history", counts[model.IntentTransactionHistory]),
		zap.Int("unknown", counts[model.IntentUnknown]),
		zap.Duration("elapsed", time.Since(start)),
	)

	return nil
}
