package config

import (
	"fmt"
	"os"
)

// Config holds every runtime setting the service reads at startup.
// Database, message broker and analytics settings are optional; when a
// group is left unset the corresponding subsystem is disabled and the
// service degrades to its in-memory or no-op fallback.
type Config struct {
	Env  string
	Port string

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	JWTSecret string

	AMQPURL string

	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string
}

// Load reads configuration from the environment.  APP_ENV, APP_PORT and
// JWT_SECRET are mandatory; everything else falls back to a disabled
// subsystem when absent.
func Load() (*Config, error) {
	cfg := &Config{
		DBUser: os.Getenv("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: os.Getenv("DB_HOST"),
		DBPort: os.Getenv("DB_PORT"),
		DBName: os.Getenv("DB_NAME"),

		AMQPURL: os.Getenv("AMQP_URL"),

		ClickHouseAddr: os.Getenv("CLICKHOUSE_ADDR"),
		ClickHouseDB:   os.Getenv("CLICKHOUSE_DB"),
		ClickHouseUser: os.Getenv("CLICKHOUSE_USER"),
		ClickHousePass: os.Getenv("CLICKHOUSE_PASS"),
	}

	var err error
	if cfg.Env, err = must("APP_ENV"); err != nil {
		return nil, err
	}
	if cfg.Port, err = must("APP_PORT"); err != nil {
		return nil, err
	}
	if cfg.JWTSecret, err = must("JWT_SECRET"); err != nil {
		return nil, err
	}

	if cfg.DBHost != "" && cfg.DBPort == "" {
		cfg.DBPort = "3306"
	}
	if cfg.ClickHouseAddr != "" && cfg.ClickHouseDB == "" {
		cfg.ClickHouseDB = "default"
	}
	return cfg, nil
}

// DatabaseConfigured reports whether enough settings are present to open
// a MySQL connection.
func (c *Config) DatabaseConfigured() bool {
	return c.DBHost != "" && c.DBUser != "" && c.DBName != ""
}

func must(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("missing required environment variable %s", key)
	}
	return v, nil
}
