package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Providers ProvidersConfig `yaml:"providers"`
	Limits    LimitsConfig    `yaml:"limits"`
	Assets    AssetsConfig    `yaml:"assets"`
	Auth      AuthConfig      `yaml:"auth"`
	Worker    WorkerConfig    `yaml:"worker"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig contains embedding service settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"-"` // env-only, never in YAML
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// VectorConfig contains Qdrant settings. Empty host keeps the
// service in local-scan mode.
type VectorConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"-"` // env-only, never in YAML
	Collection string `yaml:"collection"`
	UseTLS     bool   `yaml:"use_tls"`
}

// ProvidersConfig contains API keys and model choices for AI providers.
// All keys are env-only.
type ProvidersConfig struct {
	AnthropicAPIKey  string `yaml:"-"`
	ElevenLabsAPIKey string `yaml:"-"`
	MeshyAPIKey      string `yaml:"-"`
	TextModel        string `yaml:"text_model"`
	AnthropicModel   string `yaml:"anthropic_model"`
	VoiceModel       string `yaml:"voice_model"`
}

// LimitsConfig contains rate limiting and budget settings applied to
// every AI provider operation.
type LimitsConfig struct {
	PerMinute               int   `yaml:"per_minute"`
	PerHour                 int   `yaml:"per_hour"`
	PerDay                  int   `yaml:"per_day"`
	MonthlyBudgetMicrocents int64 `yaml:"monthly_budget_microcents"`
}

// AssetsConfig contains S3-compatible object storage settings for
// voice assets. Empty bucket keeps the service in local-only mode.
type AssetsConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	Region    string   `yaml:"region"`
	Bucket    string   `yaml:"bucket"`
	AccessKey string   `yaml:"-"` // env-only, never in YAML
	SecretKey string   `yaml:"-"` // env-only, never in YAML
	UseSSL    *bool    `yaml:"use_ssl"`
	URLExpiry Duration `yaml:"url_expiry"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// WorkerConfig contains background worker settings.
type WorkerConfig struct {
	EmbeddingInterval    Duration `yaml:"embedding_interval"`
	EmbeddingMaxAttempts int      `yaml:"embedding_max_attempts"`
	EmbeddingBatchSize   int      `yaml:"embedding_batch_size"`
	UsageReportInterval  Duration `yaml:"usage_report_interval"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("FABLEFORGE_CONFIG_PATH", "config/fableforge.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/fableforge.db",
		},
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		Vector: VectorConfig{
			Port:       6334,
			Collection: "fableforge-lore",
		},
		Providers: ProvidersConfig{
			TextModel:      "gpt-4o-mini",
			AnthropicModel: "claude-3-5-sonnet-latest",
			VoiceModel:     "eleven_multilingual_v2",
		},
		Limits: LimitsConfig{
			PerMinute:               20,
			PerHour:                 300,
			PerDay:                  2000,
			MonthlyBudgetMicrocents: 50_000_000_000, // $500
		},
		Assets: AssetsConfig{
			Region:    "us-east-1",
			URLExpiry: Duration(1 * time.Hour),
		},
		Worker: WorkerConfig{
			EmbeddingInterval:    Duration(30 * time.Second),
			EmbeddingMaxAttempts: 10,
			EmbeddingBatchSize:   50,
			UsageReportInterval:  Duration(1 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("FABLEFORGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	setDuration(&cfg.Server.ReadTimeout, "FABLEFORGE_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "FABLEFORGE_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "FABLEFORGE_SHUTDOWN_TIMEOUT")

	// Database
	if v := os.Getenv("FABLEFORGE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Embedding (OPENAI_API_KEY is industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("FABLEFORGE_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("FABLEFORGE_EMBEDDING_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimensions = n
		}
	}

	// Vector index
	if v := os.Getenv("FABLEFORGE_QDRANT_HOST"); v != "" {
		cfg.Vector.Host = v
	}
	if v := os.Getenv("FABLEFORGE_QDRANT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vector.Port = n
		}
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		cfg.Vector.APIKey = v
	}
	if v := os.Getenv("FABLEFORGE_QDRANT_COLLECTION"); v != "" {
		cfg.Vector.Collection = v
	}
	if v := os.Getenv("FABLEFORGE_QDRANT_USE_TLS"); v != "" {
		cfg.Vector.UseTLS = v == "true" || v == "1"
	}

	// Providers
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.AnthropicAPIKey = v
	}
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		cfg.Providers.ElevenLabsAPIKey = v
	}
	if v := os.Getenv("MESHY_API_KEY"); v != "" {
		cfg.Providers.MeshyAPIKey = v
	}
	if v := os.Getenv("FABLEFORGE_TEXT_MODEL"); v != "" {
		cfg.Providers.TextModel = v
	}
	if v := os.Getenv("FABLEFORGE_ANTHROPIC_MODEL"); v != "" {
		cfg.Providers.AnthropicModel = v
	}
	if v := os.Getenv("FABLEFORGE_VOICE_MODEL"); v != "" {
		cfg.Providers.VoiceModel = v
	}

	// Limits
	if v := os.Getenv("FABLEFORGE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.PerMinute = n
		}
	}
	if v := os.Getenv("FABLEFORGE_LIMIT_PER_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.PerHour = n
		}
	}
	if v := os.Getenv("FABLEFORGE_LIMIT_PER_DAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.PerDay = n
		}
	}
	if v := os.Getenv("FABLEFORGE_MONTHLY_BUDGET_MICROCENTS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Limits.MonthlyBudgetMicrocents = n
		}
	}

	// Assets
	if v := os.Getenv("FABLEFORGE_S3_ENDPOINT"); v != "" {
		cfg.Assets.Endpoint = v
	}
	if v := os.Getenv("FABLEFORGE_S3_REGION"); v != "" {
		cfg.Assets.Region = v
	}
	if v := os.Getenv("FABLEFORGE_S3_BUCKET"); v != "" {
		cfg.Assets.Bucket = v
	}
	if v := os.Getenv("FABLEFORGE_S3_ACCESS_KEY"); v != "" {
		cfg.Assets.AccessKey = v
	}
	if v := os.Getenv("FABLEFORGE_S3_SECRET_KEY"); v != "" {
		cfg.Assets.SecretKey = v
	}
	if v := os.Getenv("FABLEFORGE_S3_USE_SSL"); v != "" {
		b := v == "true" || v == "1"
		cfg.Assets.UseSSL = &b
	}
	setDuration(&cfg.Assets.URLExpiry, "FABLEFORGE_S3_URL_EXPIRY")

	// Auth
	if v := os.Getenv("FABLEFORGE_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	// Worker
	setDuration(&cfg.Worker.EmbeddingInterval, "FABLEFORGE_EMBEDDING_INTERVAL")
	if v := os.Getenv("FABLEFORGE_EMBEDDING_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.EmbeddingMaxAttempts = n
		}
	}
	if v := os.Getenv("FABLEFORGE_EMBEDDING_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.EmbeddingBatchSize = n
		}
	}
	setDuration(&cfg.Worker.UsageReportInterval, "FABLEFORGE_USAGE_REPORT_INTERVAL")

	// Log
	if v := os.Getenv("FABLEFORGE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FABLEFORGE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDuration parses an env var as a duration and assigns it if valid.
func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// validate checks that required configuration values are set.
// In dev mode (FABLEFORGE_DEV_MODE=true), API key validation is skipped.
func (c *Config) validate() error {
	if c.Limits.PerMinute <= 0 || c.Limits.PerHour <= 0 || c.Limits.PerDay <= 0 {
		return errors.New("rate limits must be positive")
	}
	if c.Limits.MonthlyBudgetMicrocents <= 0 {
		return errors.New("monthly budget must be positive")
	}

	// Dev mode bypasses API key validation
	if os.Getenv("FABLEFORGE_DEV_MODE") == "true" {
		return nil
	}

	if c.Embedding.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if c.Auth.APIKey == "" {
		return errors.New("FABLEFORGE_API_KEY is required")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
