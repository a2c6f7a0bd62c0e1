package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the ledger server
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Rates    RatesConfig    `mapstructure:"rates"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Insights InsightsConfig `mapstructure:"insights"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// BillingConfig defines pricing behaviour
type BillingConfig struct {
	DefaultBaselineReading string `mapstructure:"default_baseline_reading"`
	IncludeFixedCharge     bool   `mapstructure:"include_fixed_charge"`
}

// RatesConfig is the tariff the server starts with. Values are kept as text
// and parsed into decimals by RateTable.
type RatesConfig struct {
	Residential string `mapstructure:"residential"`
	Commercial  string `mapstructure:"commercial"`
	GST         string `mapstructure:"gst"`
	FixedCharge string `mapstructure:"fixed_charge"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver          string `mapstructure:"driver"` // file or postgres
	Dir             string `mapstructure:"dir"`
	PostgresDSN     string `mapstructure:"postgres_dsn"`
	SeedDemoTenants bool   `mapstructure:"seed_demo_tenants"`
}

// InsightsConfig defines the text generation client
type InsightsConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Endpoint      string        `mapstructure:"endpoint"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
}

// KafkaConfig defines the bill event producer
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration from config.yaml in configPath (optional)
// and from environment variables such as SERVER_PORT or RATES_GST.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("billing.default_baseline_reading", models.DefaultBaselineReading.String())
	v.SetDefault("billing.include_fixed_charge", false)

	defaults := models.DefaultRateTable()
	v.SetDefault("rates.residential", defaults.ResidentialRate.StringFixed(2))
	v.SetDefault("rates.commercial", defaults.CommercialRate.StringFixed(2))
	v.SetDefault("rates.gst", defaults.GSTPercent.String())
	v.SetDefault("rates.fixed_charge", defaults.FixedCharge.String())

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.seed_demo_tenants", true)

	v.SetDefault("insights.enabled", false)
	v.SetDefault("insights.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("insights.api_key", "")
	v.SetDefault("insights.model", "gemini-3-flash-preview")
	v.SetDefault("insights.timeout", 5*time.Second)
	v.SetDefault("insights.rate_per_second", 1.0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "solar-ledger.bills")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks the critical values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server port must be positive")
	}
	if _, err := c.BaselineReading(); err != nil {
		return err
	}
	if _, err := c.RateTable(); err != nil {
		return fmt.Errorf("invalid rates: %w", err)
	}
	switch c.Storage.Driver {
	case "file":
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage dir must be specified for the file driver")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage postgres_dsn must be specified for the postgres driver")
		}
	default:
		return fmt.Errorf("storage driver must be one of: file, postgres")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers must be specified")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic must be specified")
		}
	}
	if c.Insights.Enabled && c.Insights.Model == "" {
		return fmt.Errorf("insights model must be specified")
	}
	return nil
}

// RateTable parses the configured tariff
func (c *Config) RateTable() (models.RateTable, error) {
	return models.RateTableInput{
		ResidentialRate: c.Rates.Residential,
		CommercialRate:  c.Rates.Commercial,
		GSTPercent:      c.Rates.GST,
		FixedCharge:     c.Rates.FixedCharge,
	}.Parse()
}

// BaselineReading parses the reading new tenants start from
func (c *Config) BaselineReading() (decimal.Decimal, error) {
	d, err := models.ParseReading(c.Billing.DefaultBaselineReading)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid billing default_baseline_reading: %w", err)
	}
	return d, nil
}
