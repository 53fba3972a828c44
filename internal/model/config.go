package model

import "time"

// Config is the complete bankintent configuration
type Config struct {
	Rules       RulesConfig       `yaml:"rules" mapstructure:"rules"`
	Tokenizer   TokenizerConfig   `yaml:"tokenizer" mapstructure:"tokenizer"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Ledger      LedgerConfig      `yaml:"ledger" mapstructure:"ledger"`
	Speech      SpeechConfig      `yaml:"speech" mapstructure:"speech"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// RulesConfig controls where language profiles come from
type RulesConfig struct {
	File            string `yaml:"file" mapstructure:"file"`                         // Optional override/extension of the embedded profiles
	DefaultLanguage string `yaml:"default_language" mapstructure:"default_language"` // Fallback profile tag
}

// TokenizerConfig controls the per-language tokenizer memo
type TokenizerConfig struct {
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`                 // 0 keeps loaded tokenizers forever
	FailureTTL time.Duration `yaml:"failure_ttl" mapstructure:"failure_ttl"` // How long a failed load is remembered
}

// LogConfig selects zap level and encoding
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout       time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// LedgerConfig holds the account store settings
type LedgerConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
	Seed bool   `yaml:"seed" mapstructure:"seed"` // Create demo users on an empty store
}

// SpeechConfig configures the transcription provider
type SpeechConfig struct {
	Provider   string        `yaml:"provider" mapstructure:"provider"` // "openai" or "" (disabled)
	Model      string        `yaml:"model" mapstructure:"model"`
	APIKey     string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	CacheDir   string        `yaml:"cache_dir" mapstructure:"cache_dir"`
	MemoryTTL  time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL    time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// ConcurrencyConfig bounds batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// DefaultLanguage is the tag of the fallback profile
const DefaultLanguage = "en-US"

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Rules: RulesConfig{
			DefaultLanguage: DefaultLanguage,
		},
		Tokenizer: TokenizerConfig{
			TTL:        0,
			FailureTTL: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Addr:              ":8080",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			RequestsPerSecond: 5,
			Burst:             10,
			MaxUploadBytes:    10 << 20,
		},
		Ledger: LedgerConfig{
			Path: "bankintent.db",
			Seed: true,
		},
		Speech: SpeechConfig{
			Provider:  "",
			Model:     "whisper-1",
			Timeout:   60 * time.Second,
			CacheDir:  ".bankintent/transcripts",
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}
