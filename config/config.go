package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/validation"
	"github.com/marcelsud/sumit-gateway/sumit"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

/* Config is read once at startup from .env (toml) and the environment
 * Environment variables win over the file; a missing file is not an error
 */
type Config struct {
	Port       string `mapstructure:"PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	Store      string `mapstructure:"STORE"`
	RoutesFile string `mapstructure:"ROUTES_FILE"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	SumitEnvironment                 string `mapstructure:"SUMIT_ENVIRONMENT"`
	SumitCompanyID                   int64  `mapstructure:"SUMIT_COMPANY_ID"`
	SumitPrivateKey                  string `mapstructure:"SUMIT_PRIVATE_KEY"`
	SumitPublicKey                   string `mapstructure:"SUMIT_PUBLIC_KEY"`
	SumitVerifySSL                   bool   `mapstructure:"SUMIT_VERIFY_SSL"`
	SumitLoggingEnabled              bool   `mapstructure:"SUMIT_LOGGING_ENABLED"`
	SumitLogChannel                  string `mapstructure:"SUMIT_LOG_CHANNEL"`
	SumitTimeoutSeconds              int    `mapstructure:"SUMIT_TIMEOUT_SECONDS"`
	SumitMaxAttempts                 int    `mapstructure:"SUMIT_MAX_ATTEMPTS"`
	SumitRetryIntervalMS             int    `mapstructure:"SUMIT_RETRY_INTERVAL_MS"`
	SumitLocale                      string `mapstructure:"SUMIT_LOCALE"`
	SumitClientID                    string `mapstructure:"SUMIT_CLIENT_ID"`
	SumitMerchantNumber              string `mapstructure:"SUMIT_MERCHANT_NUMBER"`
	SumitSubscriptionsMerchantNumber string `mapstructure:"SUMIT_SUBSCRIPTIONS_MERCHANT_NUMBER"`

	WebhookRetryCeiling         int     `mapstructure:"WEBHOOK_RETRY_CEILING"`
	WebhookTimeoutSeconds       int     `mapstructure:"WEBHOOK_TIMEOUT_SECONDS"`
	WebhookSweepIntervalSeconds int     `mapstructure:"WEBHOOK_SWEEP_INTERVAL_SECONDS"`
	WebhookSweepBatchSize       int     `mapstructure:"WEBHOOK_SWEEP_BATCH_SIZE"`
	WebhookSweepConcurrency     int     `mapstructure:"WEBHOOK_SWEEP_CONCURRENCY"`
	WebhookDispatchRate         float64 `mapstructure:"WEBHOOK_DISPATCH_RATE"`
	WebhookSentTTLHours         int     `mapstructure:"WEBHOOK_SENT_TTL_HOURS"`

	DeadLetterMax int64 `mapstructure:"DEAD_LETTER_MAX"`
}

var defaults = map[string]any{
	"PORT":        "8080",
	"LOG_LEVEL":   "info",
	"STORE":       "redis",
	"ROUTES_FILE": "routes.yaml",

	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"SUMIT_ENVIRONMENT":                   "www",
	"SUMIT_COMPANY_ID":                    0,
	"SUMIT_PRIVATE_KEY":                   "",
	"SUMIT_PUBLIC_KEY":                    "",
	"SUMIT_VERIFY_SSL":                    true,
	"SUMIT_LOGGING_ENABLED":               false,
	"SUMIT_LOG_CHANNEL":                   "sumit",
	"SUMIT_TIMEOUT_SECONDS":               180,
	"SUMIT_MAX_ATTEMPTS":                  3,
	"SUMIT_RETRY_INTERVAL_MS":             1000,
	"SUMIT_LOCALE":                        sumit.DefaultLocale,
	"SUMIT_CLIENT_ID":                     sumit.DefaultClientID,
	"SUMIT_MERCHANT_NUMBER":               "",
	"SUMIT_SUBSCRIPTIONS_MERCHANT_NUMBER": "",

	"WEBHOOK_RETRY_CEILING":          5,
	"WEBHOOK_TIMEOUT_SECONDS":        30,
	"WEBHOOK_SWEEP_INTERVAL_SECONDS": 60,
	"WEBHOOK_SWEEP_BATCH_SIZE":       100,
	"WEBHOOK_SWEEP_CONCURRENCY":      4,
	"WEBHOOK_DISPATCH_RATE":          0.0,
	"WEBHOOK_SENT_TTL_HOURS":         168,

	"DEAD_LETTER_MAX": 1000,
}

// GetConfig reads .env from the working directory
func GetConfig() (*Config, error) {
	return Load(".")
}

// Load reads .env from dir, applies the environment and validates the result
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &config, nil
}

// Validate checks ranges and enumerations. Credentials are checked per call, not here.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error", "disabled")),
		validation.Field(&c.Store, validation.Required, validation.In("redis", "memory")),
		validation.Field(&c.RoutesFile, validation.Required),
		validation.Field(&c.RedisAddr, validation.When(c.Store == "redis", validation.Required)),
		validation.Field(&c.RedisDB, validation.Min(0)),
		validation.Field(&c.SumitEnvironment, validation.In("www", "dev", "test", "")),
		validation.Field(&c.SumitCompanyID, validation.Min(int64(0))),
		validation.Field(&c.SumitTimeoutSeconds, validation.Required, validation.Min(1)),
		validation.Field(&c.SumitMaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.SumitRetryIntervalMS, validation.Required, validation.Min(1)),
		validation.Field(&c.WebhookRetryCeiling, validation.Required, validation.Min(1)),
		validation.Field(&c.WebhookTimeoutSeconds, validation.Required, validation.Min(1)),
		validation.Field(&c.WebhookSweepIntervalSeconds, validation.Required, validation.Min(1)),
		validation.Field(&c.WebhookSweepBatchSize, validation.Required, validation.Min(1)),
		validation.Field(&c.WebhookSweepConcurrency, validation.Required, validation.Min(1)),
		validation.Field(&c.WebhookDispatchRate, validation.Min(0.0)),
		validation.Field(&c.WebhookSentTTLHours, validation.Min(0)),
		validation.Field(&c.DeadLetterMax, validation.Min(int64(1))),
	)
}

// Environment returns the gateway environment
func (c Config) Environment() (sumit.Environment, error) {
	return sumit.NewEnvironment(c.SumitEnvironment)
}

// Credentials returns the merchant credentials
func (c Config) Credentials() sumit.Credentials {
	return sumit.Credentials{
		CompanyID:  c.SumitCompanyID,
		PrivateKey: c.SumitPrivateKey,
		PublicKey:  c.SumitPublicKey,
	}
}

func (c Config) SumitTimeout() time.Duration {
	return time.Duration(c.SumitTimeoutSeconds) * time.Second
}

func (c Config) SumitRetryInterval() time.Duration {
	return time.Duration(c.SumitRetryIntervalMS) * time.Millisecond
}

func (c Config) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutSeconds) * time.Second
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.WebhookSweepIntervalSeconds) * time.Second
}

// SentTTL is zero when sent events never expire
func (c Config) SentTTL() time.Duration {
	return time.Duration(c.WebhookSentTTLHours) * time.Hour
}

// Level parses LogLevel, falling back to info
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
