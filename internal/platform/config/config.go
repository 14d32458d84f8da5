package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration so main stays lean. All values
// come from the environment with development defaults.
type Config struct {
	Addr            string
	DatabaseURL     string
	Redis           RedisConfig
	KafkaBrokers    []string
	AuditTopic      string
	CatalogSeedPath string
	RollupCacheTTL  time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig tunes the optional rollup cache connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:            getenv("ATOMFLEET_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		CatalogSeedPath: os.Getenv("CATALOG_SEED"),
		AuditTopic:      getenv("AUDIT_TOPIC", "atomfleet.audit"),
		RollupCacheTTL:  durationEnv("ROLLUP_CACHE_TTL", 30*time.Second),
		ShutdownTimeout: durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
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
