package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates everything main needs to wire the process. FromEnv keeps
// main lean; defaults suit local development and are overridden in production.
type Config struct {
	Server         Server
	Postgres       Postgres
	Redis          Redis
	Kafka          Kafka
	Webhook        Webhook
	EventRetention time.Duration
}

type Server struct {
	Addr          string
	JWTSigningKey string
}

type Postgres struct {
	// DSN is empty when Postgres is not configured; stores fall back to the
	// in-memory implementations (dev mode only).
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Kafka struct {
	// Brokers empty disables the audit publisher.
	Brokers    []string
	AuditTopic string
}

type Webhook struct {
	// SigningSecret authenticates the billing event feed.
	SigningSecret string
	// Tolerance bounds how stale a signed timestamp may be.
	Tolerance time.Duration
}

func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("CORE_ADDR", ":8080"),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Postgres: Postgres{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxOpenConns:    envInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    envList("KAFKA_BROKERS"),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "collabcore.audit"),
		},
		Webhook: Webhook{
			SigningSecret: os.Getenv("BILLING_WEBHOOK_SECRET"),
			Tolerance:     envDuration("BILLING_WEBHOOK_TOLERANCE", 5*time.Minute),
		},
		EventRetention: envDuration("EVENT_LEDGER_RETENTION", 7*24*time.Hour),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
