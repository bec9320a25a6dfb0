package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the runtime settings read from the environment.
type Config struct {
	DatabaseURL     string
	DBDriver        string
	DBLogLevel      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool

	ServerAddr string
	GinMode    string
}

// LoadEnv loads a .env file when present. Variables already set in the
// environment win.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] config: no .env file found, using system environment")
	} else {
		log.Println("[INFO] config: .env file loaded")
	}
}

// Load reads the configuration from the environment after LoadEnv.
func Load() (*Config, error) {
	LoadEnv()
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL: GetEnv("DATABASE_URL"),
		DBDriver:    strings.ToLower(GetEnv("DB_DRIVER", DriverPostgres)),
		DBLogLevel:  strings.ToLower(GetEnv("DB_LOG_LEVEL", "warn")),
		ServerAddr:  GetEnv("SERVER_ADDR", ":8080"),
		GinMode:     GetEnv("GIN_MODE"),
	}

	var err error
	if cfg.MaxOpenConns, err = intEnv("DB_MAX_OPEN_CONNS", 20); err != nil {
		return nil, err
	}
	if cfg.MaxIdleConns, err = intEnv("DB_MAX_IDLE_CONNS", 10); err != nil {
		return nil, err
	}
	if cfg.ConnMaxLifetime, err = durationEnv("DB_CONN_MAX_LIFETIME", time.Hour); err != nil {
		return nil, err
	}
	if cfg.AutoMigrate, err = boolEnv("AUTO_MIGRATE", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

// GetEnv returns the variable or the optional default when it is unset or empty.
func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if (!exists || value == "") && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func intEnv(key string, def int) (int, error) {
	v := GetEnv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := GetEnv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := GetEnv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
