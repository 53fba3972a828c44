package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/bankintent/internal/logger"
	"github.com/ppiankov/bankintent/internal/metrics"
	"github.com/ppiankov/bankintent/internal/model"
	"github.com/ppiankov/bankintent/internal/pipeline"
	"github.com/ppiankov/bankintent/internal/rules"
	"github.com/ppiankov/bankintent/internal/tokenize"
)

// Version is set at build time via -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bankintent",
	Short: "bankintent - multilingual banking intent extraction",
	Long: `bankintent turns short spoken or typed banking requests into a
structured intent (check_balance, transfer_money, transaction_history)
with its parameters (amount, recipient, period).

Languages are described by rule profiles: regex patterns, keywords,
number words, a recipient marker and period phrases. English, Hindi and
Tamil ship built in; more can be added with a rules file.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bankintent %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.bankintent/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	flags.String("rules", "", "rules file that replaces or extends the built-in language profiles")
	flags.String("default-language", "", "tag of the fallback language profile")

	// Bind flags to viper
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("rules.file", flags.Lookup("rules"))
	_ = viper.BindPFlag("rules.default_language", flags.Lookup("default-language"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and BANKINTENT_* variables
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error reading .env: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		} else {
			viper.AddConfigPath(filepath.Join(home, ".bankintent"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// BANKINTENT_SERVER_ADDR overrides server.addr
	viper.SetEnvPrefix("BANKINTENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults makes every config key known to viper so that
// environment variables are picked up by Unmarshal
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}

	var walk func(prefix string, node map[string]interface{})
	walk = func(prefix string, node map[string]interface{}) {
		for k, val := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := val.(map[string]interface{}); ok {
				walk(key, child)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)

	// Secrets are omitted from the YAML form but must still resolve from env
	for _, key := range []string{"speech.api_key", "speech.base_url", "speech.http_proxy", "speech.https_proxy"} {
		v.SetDefault(key, "")
	}
	return nil
}

// loadConfig resolves the effective configuration
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Speech.APIKey == "" {
		cfg.Speech.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the command logger from the log section
func newLogger(cfg *model.Config) *zap.Logger {
	return logger.New(cfg.Log.Level, cfg.Log.Format)
}

// buildPipeline loads the rule profiles and compiles the extraction engine
func buildPipeline(cfg *model.Config, log *zap.Logger, m *metrics.Metrics) (*pipeline.Pipeline, error) {
	registry, err := rules.Load(cfg.Rules.File, cfg.Rules.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithTokenizers(tokenize.NewProvider(nil, cfg.Tokenizer.TTL, cfg.Tokenizer.FailureTTL)),
	}
	if m != nil {
		opts = append(opts, pipeline.WithMetrics(m))
	}

	p, err := pipeline.New(registry, opts...)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return p, nil
}
