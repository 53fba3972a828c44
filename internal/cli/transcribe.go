package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/bankintent/internal/ledger"
	"github.com/ppiankov/bankintent/internal/model"
	"github.com/ppiankov/bankintent/internal/speech"
)

var (
	transcribeLang    string
	transcribeProcess bool
	transcribeUser    string
	transcribeTimeout time.Duration
)

// transcribeCmd represents the transcribe command
var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio>",
	Short: "Transcribe an audio file and extract its intent",
	Long: `Transcribe sends an audio file to the configured speech provider,
then runs the transcript through intent extraction. With --process the
intent is also executed against the ledger for --user.

Transcripts are cached by audio content and language (speech.cache_dir).

Example:
  bankintent transcribe request.wav --lang hi-IN
  bankintent transcribe request.wav --lang en-US --process --user 1`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().StringVarP(&transcribeLang, "lang", "l", model.DefaultLanguage, "language tag of the recording")
	transcribeCmd.Flags().BoolVar(&transcribeProcess, "process", false, "execute the intent against the ledger")
	transcribeCmd.Flags().StringVar(&transcribeUser, "user", "1", "ledger user id for --process")
	transcribeCmd.Flags().DurationVar(&transcribeTimeout, "timeout", 2*time.Minute, "overall timeout")
}

type transcribeOutput struct {
	Transcript string             `json:"transcript"`
	Intent     model.IntentResult `json:"intent"`
	Response   *ledger.Response   `json:"response,omitempty"`
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), transcribeTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	audio, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	transcriber, err := speech.NewTranscriber(cfg.Speech, log)
	if errors.Is(err, speech.ErrNoProvider) {
		return fmt.Errorf("%w: set speech.provider (or BANKINTENT_SPEECH_PROVIDER) to openai", err)
	}
	if err != nil {
		return err
	}

	text, err := transcriber.Transcribe(ctx, audio, filepath.Base(args[0]), transcribeLang)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	p, err := buildPipeline(cfg, log, nil)
	if err != nil {
		return err
	}

	out := transcribeOutput{
		Transcript: text,
		Intent:     p.ExtractIntent(text, transcribeLang),
	}

	if transcribeProcess {
		store, err := openLedger(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		resp, err := store.Process(ctx, transcribeUser, out.Intent)
		if err != nil && resp == nil {
			return fmt.Errorf("process: %w", err)
		}
		out.Response = resp
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}
