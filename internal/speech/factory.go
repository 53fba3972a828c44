package speech

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/bankintent/internal/cache"
	"github.com/ppiankov/bankintent/internal/model"
)

// NewTranscriber creates the configured transcriber, wrapped in the
// memory/disk transcript cache when a cache directory is set
func NewTranscriber(cfg model.SpeechConfig, logger *zap.Logger) (Transcriber, error) {
	var t Transcriber

	switch strings.ToLower(cfg.Provider) {
	case "openai", "whisper":
		w, err := NewWhisperTranscriber(cfg)
		if err != nil {
			return nil, err
		}
		t = w

	case "":
		return nil, ErrNoProvider

	default:
		return nil, fmt.Errorf("unknown speech provider: %s (supported: openai)", cfg.Provider)
	}

	if cfg.CacheDir == "" {
		return t, nil
	}

	layered := cache.NewLayeredCache(cfg.MemoryTTL, cfg.CacheDir, cfg.DiskTTL)
	return NewCachedTranscriber(t, layered, cfg.DiskTTL, logger), nil
}
