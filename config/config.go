package config

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-catalog-cache/cache"
)

// EnvPrefix prefixes every environment override, e.g. CATALOG_DATABASE_DSN.
const EnvPrefix = "CATALOG"

// TextCodeInvalid tags configuration validation failures.
const TextCodeInvalid = "CATALOG_CONFIG_INVALID"

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config is the full runtime configuration of the catalog container.
type Config struct {
	Cache    cache.Config   `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// CreateSchema creates missing tables on startup.
	CreateSchema bool `mapstructure:"create_schema"`
	Debug        bool `mapstructure:"debug"`
}

type CatalogConfig struct {
	CheckOfferActive bool `mapstructure:"check_offer_active"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// RedisConfig enables cross-process invalidation.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// Default returns an in-memory sqlite configuration with default cache settings.
func Default() Config {
	return Config{
		Cache: cache.DefaultConfig(),
		Database: DatabaseConfig{
			Driver:       DriverSQLite,
			DSN:          "file::memory:?cache=shared",
			CreateSchema: true,
		},
		Log: LogConfig{Level: "info"},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Channel: "catalog:invalidation",
		},
	}
}

// Load reads configuration from path (any format viper understands) and from
// CATALOG_* environment variables. An empty path skips the file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.num_shards", d.Cache.NumShards)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.eviction_percentage", d.Cache.EvictionPercentage)
	v.SetDefault("cache.missing_record_storage", d.Cache.MissingRecordStorage)
	v.SetDefault("cache.eviction_interval", d.Cache.EvictionInterval)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.create_schema", d.Database.CreateSchema)
	v.SetDefault("database.debug", d.Database.Debug)

	v.SetDefault("catalog.check_offer_active", d.Catalog.CheckOfferActive)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.channel", d.Redis.Channel)
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	err := validation.Errors{
		"database": c.Database.Validate(),
		"log":      c.Log.Validate(),
		"redis":    c.Redis.Validate(),
	}.Filter()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid catalog configuration").
			WithTextCode(TextCodeInvalid)
	}
	return nil
}

func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&d.DSN, validation.Required),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.By(func(any) error {
			_, err := zapcore.ParseLevel(l.Level)
			return err
		})),
	)
}

func (r RedisConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Addr, validation.When(r.Enabled, validation.Required)),
		validation.Field(&r.Channel, validation.When(r.Enabled, validation.Required)),
		validation.Field(&r.DB, validation.Min(0)),
	)
}

// NewLogger builds the zap logger described by l.
func (l LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
