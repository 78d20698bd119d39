package config

import (
	"flag"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"

	"backoffice/internal/provider"
	"backoffice/internal/service"
)

type Config struct {
	Addr     string `env:"HTTP_ADDR" env-default:":9091"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	ShippingFee           string   `env:"SHIPPING_FEE" env-default:"10"`
	FreeShippingThreshold string   `env:"FREE_SHIPPING_THRESHOLD" env-default:"100"`
	TaxRate               string   `env:"TAX_RATE" env-default:"0.20"`
	SupportedCurrencies   []string `env:"SUPPORTED_CURRENCIES" env-default:"USD,EUR,DKK" env-separator:","`
	PaymentMaxRetries     int      `env:"PAYMENT_MAX_RETRIES" env-default:"3"`

	KafkaBrokers     string `env:"KAFKA_BROKERS"`
	KafkaEventsTopic string `env:"KAFKA_EVENTS_TOPIC" env-default:"backoffice.domain-events"`

	StripeAPIKey        string `env:"STRIPE_API_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	MobilePayAPIKey        string `env:"MOBILEPAY_API_KEY"`
	MobilePayMerchantID    string `env:"MOBILEPAY_MERCHANT_ID"`
	MobilePayWebhookSecret string `env:"MOBILEPAY_WEBHOOK_SECRET"`
	MobilePayRedirectURL   string `env:"MOBILEPAY_REDIRECT_URL" env-default:"https://api.mobilepay.dk/checkout"`
}

// Load читает переменные окружения, затем флаги командной строки (флаг важнее)
func Load() (*Config, error) {
	return load(flag.CommandLine, nil)
}

func load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("couldn't read environment variables: %w", err)
	}

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "адрес HTTP-сервера")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "уровень логирования")
	fs.StringVar(&cfg.KafkaBrokers, "k", cfg.KafkaBrokers, "брокеры Kafka через запятую")
	if args == nil {
		flag.Parse()
	} else if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if _, err := cfg.Pricing(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Pricing параметры тарифа доставки и налога
func (c *Config) Pricing() (service.FlatRatePricing, error) {
	fee, err := decimal.NewFromString(c.ShippingFee)
	if err != nil {
		return service.FlatRatePricing{}, fmt.Errorf("SHIPPING_FEE: %w", err)
	}
	threshold, err := decimal.NewFromString(c.FreeShippingThreshold)
	if err != nil {
		return service.FlatRatePricing{}, fmt.Errorf("FREE_SHIPPING_THRESHOLD: %w", err)
	}
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return service.FlatRatePricing{}, fmt.Errorf("TAX_RATE: %w", err)
	}
	if fee.IsNegative() || threshold.IsNegative() || rate.IsNegative() {
		return service.FlatRatePricing{}, fmt.Errorf("pricing values must not be negative")
	}
	return service.FlatRatePricing{ShippingFee: fee, FreeShippingThreshold: threshold, TaxRate: rate}, nil
}

func (c *Config) Stripe() provider.Config {
	return provider.Config{APIKey: c.StripeAPIKey, WebhookSecret: c.StripeWebhookSecret}
}

func (c *Config) MobilePay() provider.Config {
	return provider.Config{
		APIKey:        c.MobilePayAPIKey,
		WebhookSecret: c.MobilePayWebhookSecret,
		MerchantID:    c.MobilePayMerchantID,
		RedirectURL:   c.MobilePayRedirectURL,
	}
}
