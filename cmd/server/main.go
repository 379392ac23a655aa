package main

import (
	"context"
	"fmt"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/velora/bizportal/internal/cart"
	"github.com/velora/bizportal/internal/checkout"
	"github.com/velora/bizportal/internal/config"
	"github.com/velora/bizportal/internal/events"
	"github.com/velora/bizportal/internal/httpserver"
	"github.com/velora/bizportal/internal/metrics"
	"github.com/velora/bizportal/internal/models"
	"github.com/velora/bizportal/internal/order"
	"github.com/velora/bizportal/internal/payment"
	"github.com/velora/bizportal/pkg/db"
	"github.com/velora/bizportal/pkg/logging"
	loggingmw "github.com/velora/bizportal/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}
	if err := database.AutoMigrate(
		&models.CartLine{},
		&models.Order{},
		&models.OrderLine{},
		&models.PaymentAttempt{},
		&models.RecoveryMarker{},
	); err != nil {
		log.Fatalf("migration: %v", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
	} else {
		logger.Warn("KAFKA_BROKERS empty, checkout events disabled")
	}

	checkoutMetrics := metrics.NewCheckoutMetrics(cfg.ServiceName)

	cartStore := cart.NewStore(database)
	orderRepo := order.NewRepo(database)
	gateway := payment.NewClient(cfg.PaymentGatewayURL, cfg.PaymentGatewayToken, cfg.PaymentTimeout)

	orchestrator := &checkout.Orchestrator{
		Cart:    cartStore,
		Repo:    orderRepo,
		Gateway: gateway,
		Events:  publisher,
		Metrics: checkoutMetrics,
	}

	resolver := &httpserver.IdentityResolver{JWTSecret: cfg.JWTAccessSecret}

	e := echo.New()
	e.HideBanner = true
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		CheckoutHandler: &httpserver.CheckoutHTTP{ID: resolver, Orchestrator: orchestrator},
		CartHandler:     &httpserver.CartHTTP{ID: resolver, Store: cartStore},
		OrderHandler:    &httpserver.OrderHTTP{ID: resolver, Repo: orderRepo},
	})

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.ServerPort)))
}
