package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "agora.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "AGORA_PORT")
	setString(&cfg.Server.CORSOrigin, "AGORA_CORS_ORIGIN")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.ChannelPrefix, "AGORA_CHANNEL_PREFIX")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "AGORA_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "AGORA_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "AGORA_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "AGORA_PG_MAX_CONN_IDLE_TIME")
	setString(&cfg.Logging.Level, "AGORA_LOG_LEVEL")
	setString(&cfg.Logging.Service, "AGORA_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "AGORA_LOG_ASYNC")
	setInt(&cfg.Logging.BufferSize, "AGORA_LOG_BUFFER_SIZE")
	setInt(&cfg.Deliberation.MaxSessions, "AGORA_MAX_SESSIONS")
	setInt(&cfg.Deliberation.DefaultQuorum, "AGORA_DEFAULT_QUORUM")
	setFloat64(&cfg.Deliberation.DefaultThreshold, "AGORA_DEFAULT_THRESHOLD")
	setDuration(&cfg.Deliberation.DefaultTimeout, "AGORA_DEFAULT_TIMEOUT")
	setString(&cfg.Deliberation.EscalationTarget, "AGORA_ESCALATION_TARGET")
	setDuration(&cfg.Deliberation.GracePeriod, "AGORA_GRACE_PERIOD")
	setDuration(&cfg.Deliberation.ReaperInterval, "AGORA_REAPER_INTERVAL")
	setInt64(&cfg.Cache.MaxSizeMB, "AGORA_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.ResultTTL, "AGORA_CACHE_RESULT_TTL")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.NATS.ChannelPrefix == "" {
		return errors.New("nats.channel_prefix is required")
	}
	if cfg.Deliberation.MaxSessions < 1 {
		return errors.New("deliberation.max_sessions must be >= 1")
	}
	if cfg.Deliberation.DefaultQuorum < 1 {
		return errors.New("deliberation.default_quorum must be >= 1")
	}
	if cfg.Deliberation.DefaultThreshold <= 0 || cfg.Deliberation.DefaultThreshold > 1 {
		return errors.New("deliberation.default_threshold must be in (0,1]")
	}
	if cfg.Deliberation.ReaperInterval <= 0 {
		return errors.New("deliberation.reaper_interval must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
