// Package config centralizes environment-driven configuration so main stays
// lean. Parsing uses caarlos0/env; every knob has a development default.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration.
type Config struct {
	Addr string `env:"PROBO_ADDR" envDefault:":8080"`

	// Empty URLs mean the backing service is not configured and the
	// in-memory implementation is used instead.
	RedisURL    string `env:"PROBO_REDIS_URL"`
	PostgresURL string `env:"PROBO_POSTGRES_URL"`

	// Kafka seed brokers for the lifecycle event stream, comma separated.
	// Empty disables event publishing.
	KafkaSeeds []string `env:"PROBO_KAFKA_SEEDS" envSeparator:","`
	EventTopic string   `env:"PROBO_EVENT_TOPIC" envDefault:"probo.ledger.events"`

	Recovery RecoveryConfig
	Security SecurityConfig

	// ComplianceRefreshInterval paces the read-only compliance score refresher.
	ComplianceRefreshInterval time.Duration `env:"PROBO_COMPLIANCE_REFRESH_INTERVAL" envDefault:"5m"`
}

// RecoveryConfig tunes the background recovery engine.
type RecoveryConfig struct {
	Interval       time.Duration `env:"PROBO_RECOVERY_INTERVAL" envDefault:"10m"`
	BatchSize      int           `env:"PROBO_RECOVERY_BATCH_SIZE" envDefault:"10"`
	MaxAttempts    int           `env:"PROBO_RECOVERY_MAX_ATTEMPTS" envDefault:"5"`
	InitialBackoff time.Duration `env:"PROBO_RECOVERY_INITIAL_BACKOFF" envDefault:"1m"`
	MaxBackoff     time.Duration `env:"PROBO_RECOVERY_MAX_BACKOFF" envDefault:"1h"`
}

// SecurityConfig tunes the security monitor.
type SecurityConfig struct {
	ScanInterval  time.Duration `env:"PROBO_SECURITY_SCAN_INTERVAL" envDefault:"5m"`
	ExpectedNodes int           `env:"PROBO_SECURITY_EXPECTED_NODES" envDefault:"10"`
	ActiveNodes   int           `env:"PROBO_SECURITY_ACTIVE_NODES" envDefault:"10"`
}

// RedisConfig carries connection tuning for the platform redis client.
type RedisConfig struct {
	URL           string
	PoolSize      int           `env:"PROBO_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns  int           `env:"PROBO_REDIS_MIN_IDLE" envDefault:"2"`
	DialTimeout   time.Duration `env:"PROBO_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout   time.Duration `env:"PROBO_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout  time.Duration `env:"PROBO_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// FromEnv parses the configuration from the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Redis builds the redis connection config for the configured URL.
func (c Config) Redis() (RedisConfig, error) {
	rc := RedisConfig{URL: c.RedisURL}
	if err := env.Parse(&rc); err != nil {
		return RedisConfig{}, fmt.Errorf("parse redis config: %w", err)
	}
	return rc, nil
}
