// Package config provides hierarchical configuration loading for Agora.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the Agora deliberation core.
type Config struct {
	Server       Server       `yaml:"server"`
	NATS         NATS         `yaml:"nats"`
	Postgres     Postgres     `yaml:"postgres"`
	Logging      Logging      `yaml:"logging"`
	Deliberation Deliberation `yaml:"deliberation"`
	Cache        Cache        `yaml:"cache"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// NATS holds broker configuration. An empty URL disables the broker and the
// coordinator runs on in-process delivery only.
type NATS struct {
	URL           string `yaml:"url"`
	ChannelPrefix string `yaml:"channel_prefix"` // topic namespace, one subject per session
}

// Postgres holds the audit trail database configuration. Auditing is
// optional; an empty DSN disables it.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// Logging holds structured logging configuration. Async moves record
// handling off the request path onto a bounded buffer that drops under
// sustained overload.
type Logging struct {
	Level      string `yaml:"level"`
	Service    string `yaml:"service"`
	Async      bool   `yaml:"async"`
	BufferSize int    `yaml:"buffer_size"`
}

// Deliberation holds session lifecycle and quorum defaults.
type Deliberation struct {
	MaxSessions      int           `yaml:"max_sessions"`      // live-session capacity bound
	DefaultQuorum    int           `yaml:"default_quorum"`    // required votes when a request omits it
	DefaultThreshold float64       `yaml:"default_threshold"` // weighted fraction in (0,1]
	DefaultTimeout   time.Duration `yaml:"default_timeout"`
	EscalationTarget string        `yaml:"escalation_target"` // empty = fail-closed timeout
	GracePeriod      time.Duration `yaml:"grace_period"`      // terminal sessions kept before eviction
	ReaperInterval   time.Duration `yaml:"reaper_interval"`
}

// Cache holds the resolved-result cache configuration.
type Cache struct {
	MaxSizeMB int64         `yaml:"max_size_mb"`
	ResultTTL time.Duration `yaml:"result_ttl"` // how long evicted results stay readable
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		NATS: NATS{
			URL:           "nats://localhost:4222",
			ChannelPrefix: "agora.votes",
		},
		Postgres: Postgres{
			DSN:             "",
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
		},
		Logging: Logging{
			Level:      "info",
			Service:    "agora-core",
			Async:      false,
			BufferSize: 1024,
		},
		Deliberation: Deliberation{
			MaxSessions:      1000,
			DefaultQuorum:    3,
			DefaultThreshold: 0.66,
			DefaultTimeout:   5 * time.Minute,
			EscalationTarget: "",
			GracePeriod:      10 * time.Minute,
			ReaperInterval:   30 * time.Second,
		},
		Cache: Cache{
			MaxSizeMB: 64,
			ResultTTL: time.Hour,
		},
	}
}
