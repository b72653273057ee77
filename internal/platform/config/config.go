package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string   `yaml:"service_name"`
	HTTPPort     string   `yaml:"http_port"`
	PostgresDSN  string   `yaml:"postgres_dsn"`
	KafkaBrokers []string `yaml:"kafka_brokers"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	SessionTTL         time.Duration `yaml:"session_ttl"`
	VoteRateRPS        float64       `yaml:"vote_rate_rps"`
	VoteRateBurst      int           `yaml:"vote_rate_burst"`
	WorkerPollInterval time.Duration `yaml:"worker_poll_interval"`

	EnableAuthAuditConsumer bool `yaml:"enable_auth_audit_consumer"`
}

func Defaults() Config {
	return Config{
		ServiceName:             "pollbooth",
		HTTPPort:                "8080",
		KafkaBrokers:            []string{"localhost:9092"},
		LogLevel:                "info",
		LogFormat:               "json",
		SessionTTL:              14 * 24 * time.Hour,
		VoteRateRPS:             1,
		VoteRateBurst:           5,
		WorkerPollInterval:      2 * time.Second,
		EnableAuthAuditConsumer: true,
	}
}

// Load layers defaults, then the YAML file named by CONFIG_FILE, then
// environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	// Keys absent from the file keep their current values.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	envString("SERVICE_NAME", &cfg.ServiceName)
	envString("HTTP_PORT", &cfg.HTTPPort)
	envString("POSTGRES_DSN", &cfg.PostgresDSN)
	envString("REDIS_ADDR", &cfg.RedisAddr)
	envString("REDIS_PASSWORD", &cfg.RedisPassword)
	envString("LOG_LEVEL", &cfg.LogLevel)
	envString("LOG_FORMAT", &cfg.LogFormat)

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) > 0 {
		cfg.KafkaBrokers = brokers
	}

	if err := envInt("REDIS_DB", &cfg.RedisDB); err != nil {
		return err
	}
	if err := envInt("VOTE_RATE_BURST", &cfg.VoteRateBurst); err != nil {
		return err
	}
	if err := envFloat("VOTE_RATE_RPS", &cfg.VoteRateRPS); err != nil {
		return err
	}
	if err := envDuration("SESSION_TTL", &cfg.SessionTTL); err != nil {
		return err
	}
	if err := envDuration("WORKER_POLL_INTERVAL", &cfg.WorkerPollInterval); err != nil {
		return err
	}
	cfg.EnableAuthAuditConsumer = envBool("ENABLE_AUTH_AUDIT_CONSUMER", cfg.EnableAuthAuditConsumer)
	return nil
}

func (c Config) validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	if c.WorkerPollInterval <= 0 {
		return fmt.Errorf("worker poll interval must be positive, got %s", c.WorkerPollInterval)
	}
	if c.VoteRateRPS < 0 || c.VoteRateBurst < 0 {
		return fmt.Errorf("vote rate limit must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}
	return nil
}

func envString(name string, target *string) {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		*target = value
	}
}

func envInt(name string, target *int) error {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*target = value
	return nil
}

func envFloat(name string, target *float64) error {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*target = value
	return nil
}

func envDuration(name string, target *time.Duration) error {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*target = value
	return nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
