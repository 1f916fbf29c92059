package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AGG_STORE_DRIVER.
const EnvPrefix = "AGG"

// Store drivers.
const (
	DriverSQLite     = "sqlite"
	DriverMemory     = "memory"
	DriverPostgres   = "postgres"
	DriverClickhouse = "clickhouse"
)

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	Data       DataConfig       `mapstructure:"data"`
	Normalizer NormalizerConfig `mapstructure:"normalizer"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

type DataConfig struct {
	InputDir     string `mapstructure:"input_dir"`
	OutputDir    string `mapstructure:"output_dir"`
	SnapshotBase string `mapstructure:"snapshot_base"`
}

type NormalizerConfig struct {
	TimePolicy       string            `mapstructure:"time_policy"`
	PopularitySource string            `mapstructure:"popularity_source"`
	PriceNames       map[string]string `mapstructure:"price_names"`
	GlobalItem       string            `mapstructure:"global_item"`
}

type ScheduleConfig struct {
	Spec        string `mapstructure:"spec"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	Textfile  string `mapstructure:"textfile"`
}

// Load reads configuration from defaults, an optional YAML file at path and
// AGG_* environment variables, in increasing precedence. A .env file in the
// working directory is loaded into the environment first when present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", true)

	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.sqlite_path", "data/metrics.db")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.clickhouse_dsn", "")

	v.SetDefault("data.input_dir", "data")
	v.SetDefault("data.output_dir", "data")
	v.SetDefault("data.snapshot_base", "final_data_output")

	v.SetDefault("normalizer.time_policy", "fallback")
	v.SetDefault("normalizer.popularity_source", "csgocasetracker_popularity")
	v.SetDefault("normalizer.price_names", map[string]string{
		"csfloat_prices": "csfloat_price",
		"steam_prices":   "steam_price",
	})
	v.SetDefault("normalizer.global_item", "CS2")

	v.SetDefault("schedule.spec", "@every 1h")
	v.SetDefault("schedule.metrics_addr", ":9108")

	v.SetDefault("metrics.namespace", "case_metrics")
	v.SetDefault("metrics.textfile", "")
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for driver %s", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for driver %s", c.Store.Driver)
		}
	case DriverClickhouse:
		if c.Store.ClickhouseDSN == "" {
			return fmt.Errorf("store.clickhouse_dsn is required for driver %s", c.Store.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	switch c.Normalizer.TimePolicy {
	case "fallback", "strict":
	default:
		return fmt.Errorf("unknown normalizer.time_policy %q", c.Normalizer.TimePolicy)
	}

	if c.Data.InputDir == "" || c.Data.OutputDir == "" {
		return errors.New("data.input_dir and data.output_dir are required")
	}
	return nil
}
