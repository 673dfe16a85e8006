/**
 * @description
 * Configuration management for the settlement service.
 */
package config

import (
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/mojoplatform/settlement-service/internal/domain"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	JWKSURL        string `mapstructure:"JWKS_URL"`
	InternalAPIKey string `mapstructure:"INTERNAL_API_KEY"`
	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	TransferAPIURL string `mapstructure:"TRANSFER_API_URL"`
	TransferAPIKey string `mapstructure:"TRANSFER_API_KEY"`

	Currency             string  `mapstructure:"CURRENCY"`
	PlatformOperatorID   string  `mapstructure:"PLATFORM_OPERATOR_ID"`
	PlatformOperatorName string  `mapstructure:"PLATFORM_OPERATOR_NAME"`
	AffiliateFirstPct    float64 `mapstructure:"AFFILIATE_FIRST_PERCENT"`
	AffiliateRecurPct    float64 `mapstructure:"AFFILIATE_RECURRING_PERCENT"`
	PlatformFeePct       float64 `mapstructure:"PLATFORM_FEE_PERCENT"`
	RegionalSplit        float64 `mapstructure:"REGIONAL_PARTNER_SPLIT"`
	TransactionFeePct    float64 `mapstructure:"TRANSACTION_FEE_PERCENT"`
	TransactionFeeFixed  float64 `mapstructure:"TRANSACTION_FEE_FIXED"`
	MinimumPayout        float64 `mapstructure:"MINIMUM_PAYOUT"`
	HoldPeriodDays       int     `mapstructure:"HOLD_PERIOD_DAYS"`
	AttributionYears     int     `mapstructure:"ATTRIBUTION_YEARS"`

	AttributionRateLimit  int    `mapstructure:"ATTRIBUTION_RATE_LIMIT"`
	ApprovalSweepSchedule string `mapstructure:"APPROVAL_SWEEP_SCHEDULE"`
	MonthlyPayoutSchedule string `mapstructure:"MONTHLY_PAYOUT_SCHEDULE"`
	PayoutReportSchedule  string `mapstructure:"PAYOUT_REPORT_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("CURRENCY", "EUR")
	viper.SetDefault("PLATFORM_OPERATOR_ID", "PLATFORM")
	viper.SetDefault("PLATFORM_OPERATOR_NAME", "Mojo Platform")
	viper.SetDefault("AFFILIATE_FIRST_PERCENT", 20.0)
	viper.SetDefault("AFFILIATE_RECURRING_PERCENT", 10.0)
	viper.SetDefault("PLATFORM_FEE_PERCENT", 2.0)
	viper.SetDefault("REGIONAL_PARTNER_SPLIT", 0.30)
	viper.SetDefault("TRANSACTION_FEE_PERCENT", 3.9)
	viper.SetDefault("TRANSACTION_FEE_FIXED", 0.50)
	viper.SetDefault("MINIMUM_PAYOUT", 50.0)
	viper.SetDefault("HOLD_PERIOD_DAYS", 30)
	viper.SetDefault("ATTRIBUTION_YEARS", 3)
	viper.SetDefault("ATTRIBUTION_RATE_LIMIT", 30)
	viper.SetDefault("APPROVAL_SWEEP_SCHEDULE", "0 3 * * *")
	viper.SetDefault("MONTHLY_PAYOUT_SCHEDULE", "0 4 1 * *")
	viper.SetDefault("PAYOUT_REPORT_SCHEDULE", "0 5 * * 1")
	viper.AutomaticEnv()

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("TRANSFER_API_URL")
	_ = viper.BindEnv("TRANSFER_API_KEY")
	_ = viper.BindEnv("CURRENCY")
	_ = viper.BindEnv("PLATFORM_OPERATOR_ID")
	_ = viper.BindEnv("PLATFORM_OPERATOR_NAME")
	_ = viper.BindEnv("AFFILIATE_FIRST_PERCENT")
	_ = viper.BindEnv("AFFILIATE_RECURRING_PERCENT")
	_ = viper.BindEnv("PLATFORM_FEE_PERCENT")
	_ = viper.BindEnv("REGIONAL_PARTNER_SPLIT")
	_ = viper.BindEnv("TRANSACTION_FEE_PERCENT")
	_ = viper.BindEnv("TRANSACTION_FEE_FIXED")
	_ = viper.BindEnv("MINIMUM_PAYOUT")
	_ = viper.BindEnv("HOLD_PERIOD_DAYS")
	_ = viper.BindEnv("ATTRIBUTION_YEARS")
	_ = viper.BindEnv("ATTRIBUTION_RATE_LIMIT")
	_ = viper.BindEnv("APPROVAL_SWEEP_SCHEDULE")
	_ = viper.BindEnv("MONTHLY_PAYOUT_SCHEDULE")
	_ = viper.BindEnv("PAYOUT_REPORT_SCHEDULE")

	err = viper.Unmarshal(&config)
	if port := os.Getenv("PORT"); port != "" {
		config.ServerPort = port
	}
	return
}

// Rates converts the configured commercial constants into the domain struct
// injected into the calculator and revenue tracker.
func (c Config) Rates() domain.Rates {
	return domain.Rates{
		AffiliateFirstPercent:     decimal.NewFromFloat(c.AffiliateFirstPct),
		AffiliateRecurringPercent: decimal.NewFromFloat(c.AffiliateRecurPct),
		PlatformFeePercent:        decimal.NewFromFloat(c.PlatformFeePct),
		RegionalPartnerSplit:      decimal.NewFromFloat(c.RegionalSplit),
		TransactionFeePercent:     decimal.NewFromFloat(c.TransactionFeePct),
		TransactionFeeFixed:       decimal.NewFromFloat(c.TransactionFeeFixed),
		MinimumPayout:             decimal.NewFromFloat(c.MinimumPayout),
		HoldPeriodDays:            c.HoldPeriodDays,
		AttributionYears:          c.AttributionYears,
		PlatformOperatorID:        c.PlatformOperatorID,
		PlatformOperatorName:      c.PlatformOperatorName,
		Currency:                  c.Currency,
	}
}
