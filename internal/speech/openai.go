package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/bankintent/internal/model"
	"github.com/ppiankov/bankintent/internal/util"
)

// WhisperTranscriber transcribes through the OpenAI audio API
type WhisperTranscriber struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewWhisperTranscriber creates a transcriber from the speech config
func NewWhisperTranscriber(cfg model.SpeechConfig) (*WhisperTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	httpClient, err := util.NewHTTPClient(timeout, cfg.HTTPProxy, cfg.HTTPSProxy)
	if err != nil {
		return nil, fmt.Errorf("build http client: %w", err)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = httpClient

	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.Whisper1
	}

	return &WhisperTranscriber{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   modelName,
		timeout: timeout,
	}, nil
}

// Name returns the provider name
func (w *WhisperTranscriber) Name() string {
	return "openai"
}

// Transcribe sends audio to the transcription endpoint. The language hint
// is the base language of tag.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, filename, tag string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("empty audio")
	}
	if filename == "" {
		filename = "audio.wav"
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: BaseLanguage(tag),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI transcription error: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
