package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Gateway  GatewayConfig
	Webhook  WebhookConfig
	Fees     FeeConfig
	Events   EventsConfig
	Sweep    SweepConfig
}

type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8090"`
	Env          string        `envconfig:"ENV" default:"development"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
}

type DatabaseConfig struct {
	DSN             string        `envconfig:"DATABASE_DSN" default:"gigpay:gigpay@tcp(localhost:3306)/gigpay?charset=utf8mb4&parseTime=True&loc=Local"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
}

type JWTConfig struct {
	Secret string        `envconfig:"JWT_SECRET" default:"change-me-in-production"`
	Expiry time.Duration `envconfig:"JWT_EXPIRY" default:"15m"`
	Issuer string        `envconfig:"JWT_ISSUER" default:"gigpay"`
}

type GatewayConfig struct {
	BaseURL     string        `envconfig:"GATEWAY_BASE_URL" default:"https://api.flutterwave.com/v3"`
	SecretKey   string        `envconfig:"GATEWAY_SECRET_KEY" default:""`
	Timeout     time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"30s"`
	RedirectURL string        `envconfig:"GATEWAY_REDIRECT_URL" default:"https://gigpay.app/payment/callback"`
	// UseStub swaps in the in-memory gateway for local development.
	UseStub bool `envconfig:"GATEWAY_USE_STUB" default:"false"`
}

type WebhookConfig struct {
	// SecretHash is matched against the verif-hash header on inbound webhooks.
	SecretHash string `envconfig:"WEBHOOK_SECRET_HASH" default:""`
}

// FeeConfig holds the platform cut and the flat withdrawal fee tiers. All
// amounts are NGN minor units (kobo).
type FeeConfig struct {
	PlatformFeeBasisPoints int64 `envconfig:"PLATFORM_FEE_BPS" default:"1000"`
	WithdrawalFeeLowMinor  int64 `envconfig:"WITHDRAWAL_FEE_LOW_MINOR" default:"1000"`
	WithdrawalFeeHighMinor int64 `envconfig:"WITHDRAWAL_FEE_HIGH_MINOR" default:"5000"`
	WithdrawalFeeTierMinor int64 `envconfig:"WITHDRAWAL_FEE_TIER_MINOR" default:"500000"`
}

type EventsConfig struct {
	NATSURL    string `envconfig:"NATS_URL" default:""`
	ClientName string `envconfig:"NATS_CLIENT_NAME" default:"gigpay"`
}

type SweepConfig struct {
	Interval      time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
	PendingMaxAge time.Duration `envconfig:"SWEEP_PENDING_MAX_AGE" default:"10m"`
	BatchSize     int           `envconfig:"SWEEP_BATCH_SIZE" default:"50"`
}

// Validate rejects fee settings that would let a charge or withdrawal compute
// a negative net amount.
func (f FeeConfig) Validate() error {
	if f.PlatformFeeBasisPoints < 0 || f.PlatformFeeBasisPoints > 10000 {
		return fmt.Errorf("PLATFORM_FEE_BPS must be between 0 and 10000, got %d", f.PlatformFeeBasisPoints)
	}
	if f.WithdrawalFeeLowMinor < 0 || f.WithdrawalFeeHighMinor < 0 {
		return fmt.Errorf("withdrawal fees must not be negative")
	}
	if f.WithdrawalFeeTierMinor < 0 {
		return fmt.Errorf("WITHDRAWAL_FEE_TIER_MINOR must not be negative")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Fees.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
