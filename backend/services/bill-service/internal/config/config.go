package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "utilitybill/backend/libs/config"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// HTTPConfig configures the listener and CORS.
type HTTPConfig struct {
	Port           string   `yaml:"port" env:"BILL_HTTP_PORT"`
	AllowedOrigins []string `yaml:"allowedOrigins" env:"BILL_HTTP_ALLOWED_ORIGINS"`
}

// StorageConfig selects the config store backend.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"BILL_STORAGE_DRIVER"`
}

// DatabaseConfig configures Postgres.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn" env:"BILL_POSTGRES_DSN"`
	AutoMigrate  bool   `yaml:"autoMigrate" env:"BILL_DB_AUTO_MIGRATE"`
	MaxOpenConns int    `yaml:"maxOpenConns" env:"BILL_DB_MAX_OPEN_CONNS"`
}

// RedisConfig configures the session revocation list. An empty Addr keeps it in process.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"BILL_REDIS_ADDR"`
	Password string `yaml:"password" env:"BILL_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"BILL_REDIS_DB"`
}

// AdminConfig configures PIN hashing and admin sessions.
type AdminConfig struct {
	JWTSecret  string        `yaml:"jwtSecret" env:"BILL_ADMIN_JWT_SECRET"`
	SessionTTL time.Duration `yaml:"sessionTTL" env:"BILL_ADMIN_SESSION_TTL"`
	BcryptCost int           `yaml:"bcryptCost" env:"BILL_ADMIN_BCRYPT_COST"`
}

// WebsocketConfig configures the config stream.
type WebsocketConfig struct {
	PingInterval time.Duration `yaml:"pingInterval" env:"BILL_WS_PING_INTERVAL"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"BILL_WS_WRITE_TIMEOUT"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Admin     AdminConfig     `yaml:"admin"`
	Websocket WebsocketConfig `yaml:"websocket"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns the configuration used before file and env overrides.
func Default() *Config {
	return &Config{
		HTTP:      HTTPConfig{Port: "8080", AllowedOrigins: []string{"*"}},
		Storage:   StorageConfig{Driver: DriverPostgres},
		Database:  DatabaseConfig{MaxOpenConns: 10},
		Admin:     AdminConfig{SessionTTL: 30 * time.Minute},
		Websocket: WebsocketConfig{PingInterval: 30 * time.Second, WriteTimeout: 10 * time.Second},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads configuration using the shared config loader.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and normalizes the rest.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("config: database DSN is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	if strings.TrimSpace(c.Admin.JWTSecret) == "" {
		return errors.New("config: admin jwt secret is required")
	}
	if c.Admin.SessionTTL <= 0 {
		c.Admin.SessionTTL = 30 * time.Minute
	}
	if c.Websocket.PingInterval <= 0 {
		c.Websocket.PingInterval = 30 * time.Second
	}
	if c.Websocket.WriteTimeout <= 0 {
		c.Websocket.WriteTimeout = 10 * time.Second
	}
	return nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
