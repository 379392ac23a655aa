package config

import "github.com/velora/bizportal/pkg/config"

type ServiceConfig struct {
	config.Config
}

func Load() ServiceConfig {
	cfg := config.Load()

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmpty(cfg.PaymentGatewayURL, "PAYMENT_GATEWAY_URL")

	return ServiceConfig{Config: cfg}
}
