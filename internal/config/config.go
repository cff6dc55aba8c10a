// Package config loads application configuration from file and
// environment and wires the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/transparencydata/payments-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Import  ImportConfig  `yaml:"import" mapstructure:"import"`
	Clean   CleanConfig   `yaml:"clean" mapstructure:"clean"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Dedupe  DedupeConfig  `yaml:"dedupe" mapstructure:"dedupe"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ImportConfig configures report fetching and parsing.
type ImportConfig struct {
	SourcesFile string `yaml:"sources_file" mapstructure:"sources_file"`
	DataDir     string `yaml:"data_dir" mapstructure:"data_dir"`
}

// CleanConfig configures record normalization.
type CleanConfig struct {
	SettingsFile   string `yaml:"settings_file" mapstructure:"settings_file"`
	DefaultCountry string `yaml:"default_country" mapstructure:"default_country"`
}

// GeocodeConfig configures the geocoding stage.
type GeocodeConfig struct {
	GoogleKey   string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	Language    string  `yaml:"language" mapstructure:"language"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	CachePath   string  `yaml:"cache_path" mapstructure:"cache_path"`
}

// DedupeConfig configures the clustering engine.
type DedupeConfig struct {
	PersonThreshold float64 `yaml:"person_threshold" mapstructure:"person_threshold"`
	OrgThreshold    float64 `yaml:"org_threshold" mapstructure:"org_threshold"`
	Workers         int     `yaml:"workers" mapstructure:"workers"`
	Geo             bool    `yaml:"geo" mapstructure:"geo"`
}

// ExportConfig configures CSV publication.
type ExportConfig struct {
	OutDir        string `yaml:"out_dir" mapstructure:"out_dir"`
	DefaultOrigin string `yaml:"default_origin" mapstructure:"default_origin"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PAYMENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "payments.db")
	v.SetDefault("import.sources_file", "sources.yaml")
	v.SetDefault("import.data_dir", "data")
	v.SetDefault("clean.settings_file", "companies.yaml")
	v.SetDefault("clean.default_country", "DE")
	v.SetDefault("geocode.google_api_key", "")
	v.SetDefault("geocode.language", "de")
	v.SetDefault("geocode.cache_path", "")
	v.SetDefault("geocode.rate_limit", 10.0)
	v.SetDefault("geocode.concurrency", 4)
	v.SetDefault("dedupe.person_threshold", 0.9)
	v.SetDefault("dedupe.org_threshold", 0.93)
	v.SetDefault("dedupe.workers", 0) // 0 = GOMAXPROCS
	v.SetDefault("dedupe.geo", false)
	v.SetDefault("export.out_dir", "out")
	v.SetDefault("export.default_origin", "de")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
