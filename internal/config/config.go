package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the geoplot service and CLI.
//
// Fields:
// - Env: The current environment (local, development, production).
// - HTTPPort: The port of the web UI server.
// - HealthPort: The port of the monitoring server (/healthz, /metrics).
// - Provider: Which geocoding collaborator to use and how.
// - AddrPrefix: Text prepended to every address sent to the provider.
// - SessionTTL: How long an idle session and its cached runs are kept.
// - Interval: The period of the janitor that evicts expired sessions and runs.
// - CORSOrigins: Origins allowed to call the API from a browser. Empty means same-origin only.
// - Database: Optional PostgreSQL run cache. An empty host keeps runs in memory.
type Config struct {
	Env         string
	HTTPPort    int
	HealthPort  int
	Provider    ProviderConfig
	AddrPrefix  string
	SessionTTL  time.Duration
	Interval    time.Duration
	CORSOrigins []string
	Database    PostgresConfig
}

// ProviderConfig selects the geocoding collaborator. The API key here is only a
// fallback for the CLI; the web UI takes the key from the user on every run.
type ProviderConfig struct {
	Type      string
	APIKey    string
	RateLimit int
	Region    string
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// Enabled reports whether a database host is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// MustLoad reads .env (if present) and the environment, and panics on malformed values.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := newViper()

	httpPort, err := strconv.Atoi(v.GetString("http_port"))
	if err != nil {
		panic("failed to parse port for web server from configuration")
	}

	healthPort, err := strconv.Atoi(v.GetString("health_port"))
	if err != nil {
		panic("failed to parse port for monitoring server from configuration")
	}

	rateLimit, err := strconv.Atoi(v.GetString("provider_rate_limit"))
	if err != nil || rateLimit < 0 {
		panic("failed to parse provider rate limit from configuration, must be a non-negative integer")
	}

	sessionTTL, err := time.ParseDuration(v.GetString("session_ttl"))
	if err != nil {
		panic("failed to parse session ttl from configuration")
	}

	interval, err := time.ParseDuration(v.GetString("cleanup_interval"))
	if err != nil {
		panic("failed to parse cleanup interval from configuration")
	}

	return &Config{
		Env:        v.GetString("env"),
		HTTPPort:   httpPort,
		HealthPort: healthPort,
		Provider: ProviderConfig{
			Type:      v.GetString("provider_type"),
			APIKey:    v.GetString("provider_key"),
			RateLimit: rateLimit,
			Region:    v.GetString("provider_region"),
		},
		AddrPrefix:  v.GetString("address_prefix"),
		SessionTTL:  sessionTTL,
		Interval:    interval,
		CORSOrigins: splitList(v.GetString("cors_origins")),
		Database: PostgresConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_username"),
			Password: v.GetString("db_password"),
			Name:     v.GetString("db_name"),
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("GEOPLOT")
	v.AutomaticEnv()

	v.SetDefault("env", "production")
	v.SetDefault("http_port", "8000")
	v.SetDefault("health_port", "8080")
	v.SetDefault("provider_type", "here")
	v.SetDefault("provider_key", "")
	v.SetDefault("provider_rate_limit", "0")
	v.SetDefault("provider_region", "")
	v.SetDefault("address_prefix", "")
	v.SetDefault("session_ttl", "1h")
	v.SetDefault("cleanup_interval", "10m")
	v.SetDefault("cors_origins", "")

	// Database settings keep their unprefixed names.
	for _, key := range []string{"db_host", "db_port", "db_username", "db_password", "db_name"} {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}
	v.SetDefault("db_port", "5432")

	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
