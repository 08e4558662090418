package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "DEAL_SCREENER_CONFIG"
	redisAddrEnv     = "REDIS_ADDR"
	redisPasswordEnv = "REDIS_PASSWORD"
	databaseDSNEnv   = "DATABASE_DSN"
	openAIKeyEnv     = "OPENAI_API_KEY"
	openAIModelEnv   = "OPENAI_MODEL"
	openAIBaseURLEnv = "OPENAI_BASE_URL"
	httpAddrEnv      = "HTTP_ADDR"
	logLevelEnv      = "LOG_LEVEL"
)

// Duration wraps time.Duration so YAML values can be written as "90s" or "1h".
type Duration time.Duration

// UnmarshalYAML parses Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds high-level settings required across the application.
type Config struct {
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Worker   WorkerConfig   `yaml:"worker"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RedisConfig describes the queue/marker/pubsub transport.
type RedisConfig struct {
	Addr             string `yaml:"addr"`
	Password         string `yaml:"password"`
	DB               int    `yaml:"db"`
	QueueKey         string `yaml:"queueKey"`
	NotifyChannel    string `yaml:"notifyChannel"`
	JobStatusChannel string `yaml:"jobStatusChannel"`
	MarkerPrefix     string `yaml:"markerPrefix"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// LLMConfig defines how to reach the OpenAI-compatible evaluation capability.
type LLMConfig struct {
	BaseURL string   `yaml:"baseUrl"`
	Model   string   `yaml:"model"`
	APIKey  string   `yaml:"apiKey"`
	Timeout Duration `yaml:"timeout"`
}

// WorkerConfig tunes the consumer loop and pipeline.
type WorkerConfig struct {
	MaxChunkSize        int      `yaml:"maxChunkSize"`
	PollInterval        Duration `yaml:"pollInterval"`
	SubmissionDelay     Duration `yaml:"submissionDelay"`
	BackoffBase         Duration `yaml:"backoffBase"`
	BackoffCap          Duration `yaml:"backoffCap"`
	MaxConnectAttempts  int      `yaml:"maxConnectAttempts"`
	ReconnectCooldown   Duration `yaml:"reconnectCooldown"`
	FailureThreshold    int      `yaml:"failureThreshold"`
	FailureCooldown     Duration `yaml:"failureCooldown"`
	SubmissionMarkerTTL Duration `yaml:"submissionMarkerTTL"`
	MessageMarkerTTL    Duration `yaml:"messageMarkerTTL"`
	ShutdownTimeout     Duration `yaml:"shutdownTimeout"`
}

// HTTPConfig describes the liveness/metrics/ingress surface.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. Validation failures are the only fatal startup path.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the settings without which the worker cannot start.
func (c Config) Validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if c.Redis.QueueKey == "" {
		return fmt.Errorf("queue key is required")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm api key is required")
	}
	if c.LLM.BaseURL == "" || c.LLM.Model == "" {
		return fmt.Errorf("llm base url and model are required")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(openAIBaseURLEnv); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Redis.Addr != "" {
		base.Redis.Addr = override.Redis.Addr
	}
	if override.Redis.Password != "" {
		base.Redis.Password = override.Redis.Password
	}
	if override.Redis.DB != 0 {
		base.Redis.DB = override.Redis.DB
	}
	if override.Redis.QueueKey != "" {
		base.Redis.QueueKey = override.Redis.QueueKey
	}
	if override.Redis.NotifyChannel != "" {
		base.Redis.NotifyChannel = override.Redis.NotifyChannel
	}
	if override.Redis.JobStatusChannel != "" {
		base.Redis.JobStatusChannel = override.Redis.JobStatusChannel
	}
	if override.Redis.MarkerPrefix != "" {
		base.Redis.MarkerPrefix = override.Redis.MarkerPrefix
	}

	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.LLM.BaseURL != "" {
		base.LLM.BaseURL = override.LLM.BaseURL
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.Timeout != 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}

	if override.Worker.MaxChunkSize != 0 {
		base.Worker.MaxChunkSize = override.Worker.MaxChunkSize
	}
	if override.Worker.PollInterval != 0 {
		base.Worker.PollInterval = override.Worker.PollInterval
	}
	if override.Worker.SubmissionDelay != 0 {
		base.Worker.SubmissionDelay = override.Worker.SubmissionDelay
	}
	if override.Worker.BackoffBase != 0 {
		base.Worker.BackoffBase = override.Worker.BackoffBase
	}
	if override.Worker.BackoffCap != 0 {
		base.Worker.BackoffCap = override.Worker.BackoffCap
	}
	if override.Worker.MaxConnectAttempts != 0 {
		base.Worker.MaxConnectAttempts = override.Worker.MaxConnectAttempts
	}
	if override.Worker.ReconnectCooldown != 0 {
		base.Worker.ReconnectCooldown = override.Worker.ReconnectCooldown
	}
	if override.Worker.FailureThreshold != 0 {
		base.Worker.FailureThreshold = override.Worker.FailureThreshold
	}
	if override.Worker.FailureCooldown != 0 {
		base.Worker.FailureCooldown = override.Worker.FailureCooldown
	}
	if override.Worker.SubmissionMarkerTTL != 0 {
		base.Worker.SubmissionMarkerTTL = override.Worker.SubmissionMarkerTTL
	}
	if override.Worker.MessageMarkerTTL != 0 {
		base.Worker.MessageMarkerTTL = override.Worker.MessageMarkerTTL
	}
	if override.Worker.ShutdownTimeout != 0 {
		base.Worker.ShutdownTimeout = override.Worker.ShutdownTimeout
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Redis: RedisConfig{
			Addr:             "localhost:6379",
			QueueKey:         "deal-submissions",
			NotifyChannel:    "deal-notifications",
			JobStatusChannel: "deal-job-status",
			MarkerPrefix:     "dealscreener:dedup",
		},
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: Duration(60 * time.Second),
		},
		Worker: WorkerConfig{
			MaxChunkSize:        4000,
			PollInterval:        Duration(2 * time.Second),
			SubmissionDelay:     Duration(5 * time.Second),
			BackoffBase:         Duration(2 * time.Second),
			BackoffCap:          Duration(30 * time.Second),
			MaxConnectAttempts:  5,
			ReconnectCooldown:   Duration(2 * time.Minute),
			FailureThreshold:    5,
			FailureCooldown:     Duration(time.Minute),
			SubmissionMarkerTTL: Duration(24 * time.Hour),
			MessageMarkerTTL:    Duration(time.Hour),
			ShutdownTimeout:     Duration(30 * time.Second),
		},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info"},
	}
}
