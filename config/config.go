// Package config loads the configuration of the librarian host process.
//
// Sources, strongest first: the process environment (LIBRARY_ prefix, "." becomes "_",
// e.g. LIBRARY_POSTGRES_HOST), an optional .env file which never overrides the real environment,
// an optional YAML file, and the defaults below.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "LIBRARY"

const (
	EngineMemory   = "memory"
	EnginePostgres = "postgres"

	DriverPGX  = "pgx"
	DriverSQL  = "sql"
	DriverSQLX = "sqlx"

	MetricsBackendPrometheus = "prometheus"
	MetricsBackendOTel       = "otel"
)

var (
	ErrReadingEnvFileFailed    = errors.New("reading env file failed")
	ErrReadingConfigFileFailed = errors.New("reading config file failed")
	ErrUnmarshalingFailed      = errors.New("unmarshaling config failed")
	ErrInvalidConfig           = errors.New("invalid config")
)

type Config struct {
	Log          LogConfig          `mapstructure:"log"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Postgres     PostgresConfig     `mapstructure:"postgres" validate:"-"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Reviews      ReviewsConfig      `mapstructure:"reviews"`
	Notification NotificationConfig `mapstructure:"notification"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type StorageConfig struct {
	Engine string `mapstructure:"engine" validate:"oneof=memory postgres"`
	Driver string `mapstructure:"driver" validate:"oneof=pgx sql sqlx"`
	Table  string `mapstructure:"table" validate:"required,max=63"`
}

// PostgresConfig is only validated with the postgres storage engine.
type PostgresConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	User            string        `mapstructure:"user" validate:"required"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database" validate:"required"`
	SSLMode         string        `mapstructure:"ssl_mode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns        int32         `mapstructure:"max_conns" validate:"min=1"`
	MinConns        int32         `mapstructure:"min_conns" validate:"min=0,ltefield=MaxConns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" validate:"gt=0"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time" validate:"gt=0"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr       string `mapstructure:"addr" validate:"required,hostname_port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db" validate:"min=0,max=15"`
	KeyPrefix  string `mapstructure:"key_prefix" validate:"required"`
	InboxLimit int64  `mapstructure:"inbox_limit" validate:"min=0"`
}

// ReviewsConfig: a CacheSize of 0 disables the cache.
type ReviewsConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	CacheSize int           `mapstructure:"cache_size" validate:"min=0"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
}

type NotificationConfig struct {
	RetryAttempts  int           `mapstructure:"retry_attempts" validate:"min=1,max=10"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"gte=0"`
}

// MetricsConfig: both backends are served on ListenAddr, otel through an OpenTelemetry MeterProvider
// with a Prometheus exporter.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Backend    string `mapstructure:"backend" validate:"oneof=prometheus otel"`
	ListenAddr string `mapstructure:"listen_addr" validate:"required,hostname_port"`
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	configFile string
}

// WithConfigFile reads a YAML file between the defaults and the environment.
func WithConfigFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.configFile = path
	}
}

// Load reads the configuration. An empty envFile skips the .env step.
func Load(envFile string, options ...LoadOption) (*Config, error) {
	opts := &loadOptions{}
	for _, option := range options {
		option(opts)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Join(ErrReadingEnvFileFailed, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.configFile != "" {
		v.SetConfigFile(opts.configFile)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Join(ErrReadingConfigFileFailed, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Join(ErrUnmarshalingFailed, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks all sections, the postgres section only when it is used.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(c); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}

	if c.Storage.Engine == EnginePostgres {
		if err := validate.Struct(c.Postgres); err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("storage.engine", EngineMemory)
	v.SetDefault("storage.driver", DriverPGX)
	v.SetDefault("storage.table", "events")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "library")
	v.SetDefault("postgres.password", "library")
	v.SetDefault("postgres.database", "library")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 8)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", time.Hour)
	v.SetDefault("postgres.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("postgres.connect_timeout", 5*time.Second)
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "library")
	v.SetDefault("redis.inbox_limit", 100)

	v.SetDefault("reviews.base_url", "http://localhost:8081")
	v.SetDefault("reviews.timeout", 5*time.Second)
	v.SetDefault("reviews.cache_size", 256)
	v.SetDefault("reviews.cache_ttl", 10*time.Minute)

	v.SetDefault("notification.retry_attempts", 1)
	v.SetDefault("notification.retry_base_delay", 50*time.Millisecond)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.backend", MetricsBackendPrometheus)
	v.SetDefault("metrics.listen_addr", ":9090")
}
