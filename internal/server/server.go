// Package server exposes intent extraction and intent processing over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/bankintent/internal/ledger"
	"github.com/ppiankov/bankintent/internal/metrics"
	"github.com/ppiankov/bankintent/internal/model"
	"github.com/ppiankov/bankintent/internal/speech"
	"github.com/ppiankov/bankintent/internal/worker"
)

// Extractor classifies an utterance
type Extractor interface {
	Extract(text, languageTag string) model.Extraction
}

// Processor executes an intent for a user
type Processor interface {
	Process(ctx context.Context, userID string, result model.IntentResult) (*ledger.Response, error)
}

// Server wires the HTTP API to the pipeline and its collaborators
type Server struct {
	extractor   Extractor
	processor   Processor          // nil disables /api/process*
	transcriber speech.Transcriber // nil disables /api/process-voice
	limiter     *worker.Limiter
	metrics     *metrics.Metrics
	logger      *zap.Logger
	cfg         model.ServerConfig
	languages   []string
}

// Option configures a Server
type Option func(*Server)

// WithProcessor enables the ledger endpoints
func WithProcessor(p Processor) Option {
	return func(s *Server) { s.processor = p }
}

// WithTranscriber enables voice processing
func WithTranscriber(t speech.Transcriber) Option {
	return func(s *Server) { s.transcriber = t }
}

// WithMetrics records request metrics and serves /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLanguages lists the configured language tags in /api/health
func WithLanguages(tags []string) Option {
	return func(s *Server) { s.languages = tags }
}

// New creates a server
func New(extractor Extractor, cfg model.ServerConfig, opts ...Option) *Server {
	s := &Server{
		extractor: extractor,
		limiter:   worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		logger:    zap.NewNop(),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxUploadBytes <= 0 {
		s.cfg.MaxUploadBytes = 10 << 20
	}
	return s
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/intent", s.instrument("intent", s.limited(http.HandlerFunc(s.handleIntent))))
	mux.Handle("POST /api/process", s.instrument("process", s.limited(http.HandlerFunc(s.handleProcess))))
	mux.Handle("POST /api/process-voice", s.instrument("process_voice", s.limited(http.HandlerFunc(s.handleProcessVoice))))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go s.pruneLimiter(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) pruneLimiter(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Prune(10 * time.Minute); n > 0 {
				s.logger.Debug("pruned idle rate limiters", zap.Int("count", n))
			}
		}
	}
}

// limited rejects clients that exhausted their token bucket
func (s *Server) limited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientKey(r)) {
			if s.metrics != nil {
				s.metrics.RateLimited.Inc()
			}
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests by route and status
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
		s.logger.Debug("request",
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}
