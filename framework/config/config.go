// Package config loads typed application configuration from the environment,
// optionally seeded from .env files.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config is the central typed configuration struct, bound into the container
// as "config". Embed or extend it in your app's own config type.
type Config struct {
	App    AppConfig
	Server ServerConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	URL   string
	Key   string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load reads the given .env files (default ".env", missing files are not an
// error — production usually sets real environment variables) and populates
// a Config.
//
//	// Laravel: Dotenv + config/app.php
//	cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  Get("APP_NAME", "arc"),
			Env:   Get("APP_ENV", "local"),
			Debug: GetBool("APP_DEBUG", true),
			URL:   Get("APP_URL", "http://localhost"),
			Key:   Get("APP_KEY", ""),
		},
		Server: ServerConfig{
			Host:         Get("SERVER_HOST", ""),
			Port:         GetInt("SERVER_PORT", 8000),
			ReadTimeout:  GetDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: GetDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  GetDuration("SERVER_IDLE_TIMEOUT", time.Minute),
		},
	}
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + cast.ToString(c.Server.Port)
}

// IsDebug reports whether debug mode is on.
func (c *Config) IsDebug() bool { return c.App.Debug }

// ── Typed env getters ─────────────────────────────────────────────────────────

// Get returns a raw env value, falling back to fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetInt returns an int env value; unset or unparseable values fall back.
func GetInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return fallback
	}
	return v
}

// GetBool returns a bool env value; unset or unparseable values fall back.
func GetBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		return fallback
	}
	return v
}

// GetFloat returns a float env value; unset or unparseable values fall back.
func GetFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return fallback
	}
	return v
}

// GetDuration returns a duration env value ("10s", "1m30s"); unset or
// unparseable values fall back.
func GetDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
