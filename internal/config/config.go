package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Auth       AuthConfig       `validate:"required"`
	Stripe     StripeConfig     `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
	// CronSecret guards the /cron endpoints invoked by the external scheduler
	CronSecret string
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string `validate:"required"`
	Port                   int    `validate:"required"`
	User                   string `validate:"required"`
	Password               string
	DBName                 string `validate:"required"`
	SSLMode                string `validate:"required"`
	MaxOpenConns           int    `default:"10"`
	MaxIdleConns           int    `default:"5"`
	ConnMaxLifetimeMinutes int    `default:"60"`
}

type AuthConfig struct {
	// Secret signs and verifies the HS256 bearer tokens issued by the
	// identity provider
	Secret string `validate:"required"`
}

type StripeConfig struct {
	SecretKey     string `validate:"required"`
	WebhookSecret string `validate:"required"`
	// SuccessURL and CancelURL are where checkout sessions redirect back to
	SuccessURL string
	CancelURL  string
	// Plans maps a Stripe price ID to the monthly credit allotment granted
	// by a subscription on that price
	Plans map[string]PlanConfig
	// Packs maps a Stripe price ID to a one-time credit pack definition
	Packs map[string]PackConfig
}

// PlanConfig describes a recurring subscription plan
type PlanConfig struct {
	Name           string
	MonthlyCredits int64 `validate:"gt=0"`
}

// PackConfig describes a one-time credit pack product
type PackConfig struct {
	Name       string
	Credits    int64 `validate:"gt=0"`
	ExpiryDays int   // 0 means the pack never expires
}

type BillingConfig struct {
	TrialCredits      int64 `validate:"required"`
	TrialPeriodDays   int   `validate:"required"`
	BillingPeriodDays int   `validate:"required"`
	// BatchOpCeiling bounds the number of write operations grouped into a
	// single batch by the scheduled sweeps
	BatchOpCeiling int `validate:"required"`
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

func NewConfig() (*Configuration, error) {
	// Local development reads overrides from a .env file; missing file is
	// not an error
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/roomcraft")

	v.SetEnvPrefix("ROOMCRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	setDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(c *Configuration) {
	if c.Billing.TrialCredits == 0 {
		c.Billing.TrialCredits = 10
	}
	if c.Billing.TrialPeriodDays == 0 {
		c.Billing.TrialPeriodDays = 7
	}
	if c.Billing.BillingPeriodDays == 0 {
		c.Billing.BillingPeriodDays = 30
	}
	if c.Billing.BatchOpCeiling == 0 {
		c.Billing.BatchOpCeiling = 500
	}
	if c.Postgres.MaxOpenConns == 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.MaxIdleConns == 0 {
		c.Postgres.MaxIdleConns = 5
	}
	if c.Postgres.ConnMaxLifetimeMinutes == 0 {
		c.Postgres.ConnMaxLifetimeMinutes = 60
	}
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDSN returns the postgres connection string
func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Billing: BillingConfig{
			TrialCredits:      10,
			TrialPeriodDays:   7,
			BillingPeriodDays: 30,
			BatchOpCeiling:    500,
		},
	}
}
