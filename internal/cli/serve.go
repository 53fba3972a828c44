package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/bankintent/internal/ledger"
	"github.com/ppiankov/bankintent/internal/metrics"
	"github.com/ppiankov/bankintent/internal/model"
	"github.com/ppiankov/bankintent/internal/server"
	"github.com/ppiankov/bankintent/internal/speech"
)

var noLedger bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes intent extraction over HTTP:

  POST /api/intent          {"text", "language"}
  POST /api/process         {"user_id", "text", "language"}
  POST /api/process-voice   multipart: audio, user_id, language
  GET  /api/health
  GET  /metrics

The ledger is a sqlite database (ledger.path), seeded with demo users on
first start. Voice processing needs a speech provider (speech.provider).

Example:
  bankintent serve --addr :8080 --db bankintent.db
  BANKINTENT_SPEECH_PROVIDER=openai OPENAI_API_KEY=sk-... bankintent serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
	serveCmd.Flags().String("db", "", "ledger sqlite path (default: ledger.path)")
	serveCmd.Flags().BoolVar(&noLedger, "no-ledger", false, "serve /api/intent only")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("ledger.path", serveCmd.Flags().Lookup("db"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	m := metrics.New(true)
	p, err := buildPipeline(cfg, log, m)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithLogger(log),
		server.WithMetrics(m),
		server.WithLanguages(p.Registry().Tags()),
	}

	if !noLedger {
		store, err := openLedger(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, server.WithProcessor(store))
	}

	transcriber, err := speech.NewTranscriber(cfg.Speech, log)
	switch {
	case errors.Is(err, speech.ErrNoProvider):
		log.Info("voice processing disabled: no speech provider configured")
	case err != nil:
		return fmt.Errorf("speech provider: %w", err)
	default:
		log.Info("voice processing enabled", zap.String("provider", transcriber.Name()))
		opts = append(opts, server.WithTranscriber(transcriber))
	}

	srv := server.New(p, cfg.Server, opts...)
	return srv.ListenAndServe(ctx)
}

// openLedger opens the configured store and seeds demo users if enabled
func openLedger(ctx context.Context, cfg *model.Config, log *zap.Logger) (*ledger.Store, error) {
	store, err := ledger.Open(ctx, cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	if cfg.Ledger.Seed {
		seeded, err := store.Seed(ctx)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("seed ledger: %w", err)
		}
		if seeded {
			log.Info("seeded demo users", zap.String("path", cfg.Ledger.Path))
		}
	}

	return store, nil
}
