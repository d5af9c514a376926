// Package config loads service configuration from defaults, an optional
// YAML file, a .env file and STORMWATCH_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. STORMWATCH_SERVER_PORT.
const EnvPrefix = "STORMWATCH"

// Favorites backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the service.
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Log         LogConfig       `mapstructure:"log"`
	Weather     WeatherConfig   `mapstructure:"weather"`
	Dashboard   DashboardConfig `mapstructure:"dashboard"`
	Favorites   FavoritesConfig `mapstructure:"favorites"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Notify      NotifyConfig    `mapstructure:"notify"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`  // requests per minute per client IP
	RequireTLS      bool          `mapstructure:"require_tls"` // reject plain HTTP behind a TLS-terminating proxy
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// WeatherConfig configures the OpenWeatherMap client and cache.
type WeatherConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// DashboardConfig configures the dashboard session.
type DashboardConfig struct {
	DefaultCity     string        `mapstructure:"default_city"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// FavoritesConfig selects and configures the favorites backend.
type FavoritesConfig struct {
	Backend    string `mapstructure:"backend"`
	Key        string `mapstructure:"key"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// NotifyConfig configures alert delivery.
type NotifyConfig struct {
	// Permission is the initial state: granted, denied or prompt.
	Permission string `mapstructure:"permission"`
	// PromptAnswer resolves a prompt: granted or denied.
	PromptAnswer string `mapstructure:"prompt_answer"`
	Sound        bool   `mapstructure:"sound"`

	PubSubProjectID     string `mapstructure:"pubsub_project_id"`
	PubSubTopic         string `mapstructure:"pubsub_topic"`
	RefreshTopic        string `mapstructure:"refresh_topic"`
	RefreshSubscription string `mapstructure:"refresh_subscription"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile is an explicit YAML file. When empty, stormwatch.yaml is
	// searched for in the working directory and ./config, and may be absent.
	ConfigFile string

	// EnvFile is a dotenv file loaded into the process environment first.
	// Default: .env (missing is fine)
	EnvFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit", 30)
	v.SetDefault("server.require_tls", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.requests_per_minute", 60)
	v.SetDefault("weather.timeout", 10*time.Second)
	v.SetDefault("weather.cache_ttl", 10*time.Minute)

	v.SetDefault("dashboard.default_city", "London")
	v.SetDefault("dashboard.refresh_interval", 15*time.Minute)

	v.SetDefault("favorites.backend", BackendMemory)
	v.SetDefault("favorites.key", "weather-favorites")
	v.SetDefault("favorites.sqlite_path", "stormwatch.db")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "stormwatch")
	v.SetDefault("database.password", "localdev")
	v.SetDefault("database.name", "stormwatch")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.connect_timeout", 30*time.Second)

	v.SetDefault("notify.permission", "prompt")
	v.SetDefault("notify.prompt_answer", "granted")
	v.SetDefault("notify.sound", true)
	v.SetDefault("notify.pubsub_project_id", "")
	v.SetDefault("notify.pubsub_topic", "")
	v.SetDefault("notify.refresh_topic", "")
	v.SetDefault("notify.refresh_subscription", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Load reads configuration.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("stormwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// Validate checks values that have no safe default.
func (c *Config) Validate() error {
	var errs []error

	if c.Weather.APIKey == "" {
		errs = append(errs, errors.New("weather.api_key is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Favorites.Backend {
	case BackendMemory, BackendSQLite, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("favorites.backend %q must be memory, sqlite or postgres", c.Favorites.Backend))
	}
	if c.Dashboard.DefaultCity == "" {
		errs = append(errs, errors.New("dashboard.default_city is required"))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address, e.g. ":8080".
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
