package speech

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/bankintent/internal/cache"
)

// CachedTranscriber reuses transcripts of identical audio in the same
// language
type CachedTranscriber struct {
	inner  Transcriber
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedTranscriber wraps inner with c. ttl 0 uses the cache default.
func NewCachedTranscriber(inner Transcriber, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedTranscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedTranscriber{inner: inner, cache: c, ttl: ttl, logger: logger}
}

// Name returns the wrapped provider's name
func (c *CachedTranscriber) Name() string {
	return c.inner.Name()
}

// Transcribe returns a cached transcript or calls the wrapped provider.
// Cache write failures are logged, not returned.
func (c *CachedTranscriber) Transcribe(ctx context.Context, audio []byte, filename, tag string) (string, error) {
	key := cache.CacheKey("transcript", audio, []byte(tag))

	if text, ok := c.cache.Get(key); ok {
		c.logger.Debug("transcript cache hit", zap.String("language", tag))
		return string(text), nil
	}

	text, err := c.inner.Transcribe(ctx, audio, filename, tag)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(key, []byte(text), c.ttl); err != nil {
		c.logger.Warn("cache transcript", zap.Error(err))
	}
	return text, nil
}
