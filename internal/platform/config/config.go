// Package config loads runtime configuration from the environment so main
// stays lean. Every knob has a development default; production overrides via
// DOCVAULT_* variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the top-level runtime configuration.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// PostgresConfig points at the document and audit outbox database. An empty
// DSN selects the in-memory stores, which is only appropriate for local runs.
type PostgresConfig struct {
	DSN string
}

// RedisConfig configures the history cache. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit relay. Empty brokers disable relaying;
// events then stay in the outbox until a relay is attached.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// JWTConfig configures bearer token validation on the API surface.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:            getEnv("DOCVAULT_ADDR", ":8080"),
			ShutdownTimeout: getDuration("DOCVAULT_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("DOCVAULT_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("DOCVAULT_REDIS_URL"),
			PoolSize:     getInt("DOCVAULT_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("DOCVAULT_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("DOCVAULT_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("DOCVAULT_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("DOCVAULT_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("DOCVAULT_KAFKA_BROKERS")),
			AuditTopic: getEnv("DOCVAULT_AUDIT_TOPIC", "docvault.audit"),
		},
		JWT: JWTConfig{
			// Override in production.
			SigningKey: getEnv("DOCVAULT_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     getEnv("DOCVAULT_JWT_ISSUER", "docvault"),
			Audience:   getEnv("DOCVAULT_JWT_AUDIENCE", "docvault-api"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
