package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPServer struct {
	Port string `mapstructure:"port"`
}

type DbServer struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (config *DbServer) GetConnectionStr() string {
	maxConns := config.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable pool_max_conns=%d",
		config.User, config.Pass, config.Host, config.Port, config.Name, maxConns,
	)
}

type ExternalAPI struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type Cache struct {
	// TTLHours bounds how old a "current" rate may be before a lookup
	// triggers a refresh.
	TTLHours int `mapstructure:"ttl_hours"`
	// Fast in-memory layer sizing and per-entry expiry.
	FastMaxItems   int64 `mapstructure:"fast_max_items"`
	FastTTLMinutes int   `mapstructure:"fast_ttl_minutes"`
	// RebaseWaitSeconds bounds how long a refresh waits for an in-flight
	// base currency conversion before failing with a timeout.
	RebaseWaitSeconds int `mapstructure:"rebase_wait_seconds"`
	// BaseCurrency is the bootstrap default; the settings table wins once
	// it holds a value.
	BaseCurrency string `mapstructure:"base_currency"`
}

type Worker struct {
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

type Scheduler struct {
	RefreshIntervalSec int `mapstructure:"refresh_interval_sec"`
}

type Logging struct {
	Level string `mapstructure:"level"`
}

type AppConfig struct {
	HTTPServer  HTTPServer  `mapstructure:"http_server"`
	DbServer    DbServer    `mapstructure:"db_server"`
	ExternalAPI ExternalAPI `mapstructure:"external_api"`
	Cache       Cache       `mapstructure:"cache"`
	Worker      Worker      `mapstructure:"worker"`
	Scheduler   Scheduler   `mapstructure:"scheduler"`
	Logging     Logging     `mapstructure:"logging"`
}

func Init() (*AppConfig, error) {
	var cfg AppConfig

	// .env is optional outside local runs
	_ = godotenv.Load()

	viper.SetConfigFile("config.yaml")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	viper.SetDefault("db_server.max_conns", 10)
	viper.SetDefault("external_api.timeout_seconds", 10)
	viper.SetDefault("cache.ttl_hours", 24)
	viper.SetDefault("cache.fast_max_items", 1024)
	viper.SetDefault("cache.fast_ttl_minutes", 5)
	viper.SetDefault("cache.rebase_wait_seconds", 10)
	viper.SetDefault("cache.base_currency", "USD")
	viper.SetDefault("worker.poll_interval_ms", 500)
	viper.SetDefault("scheduler.refresh_interval_sec", 0)
	viper.SetDefault("logging.level", "info")

	// db server env vars
	_ = viper.BindEnv("db_server.host", "DB_HOST")
	_ = viper.BindEnv("db_server.port", "DB_PORT")
	_ = viper.BindEnv("db_server.user", "DB_USER")
	_ = viper.BindEnv("db_server.pass", "DB_PASS")
	_ = viper.BindEnv("db_server.name", "DB_NAME")
	_ = viper.BindEnv("db_server.max_conns", "DB_MAX_CONNS")

	// external api env vars
	_ = viper.BindEnv("external_api.base_url", "EXTERNAL_API_BASE_URL")
	_ = viper.BindEnv("external_api.api_key", "EXTERNAL_API_KEY")
	_ = viper.BindEnv("external_api.timeout_seconds", "EXTERNAL_API_TIMEOUT_SECONDS")

	// cache env vars
	_ = viper.BindEnv("cache.ttl_hours", "CACHE_TTL_HOURS")
	_ = viper.BindEnv("cache.rebase_wait_seconds", "CACHE_REBASE_WAIT_SECONDS")
	_ = viper.BindEnv("cache.base_currency", "CACHE_BASE_CURRENCY")

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &cfg, nil
}
