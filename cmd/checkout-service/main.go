package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopkart-dev/checkout-service/internal/cart"
	"github.com/shopkart-dev/checkout-service/internal/checkout"
	"github.com/shopkart-dev/checkout-service/internal/config"
	"github.com/shopkart-dev/checkout-service/internal/db"
	handlerHttp "github.com/shopkart-dev/checkout-service/internal/handler/http"
	"github.com/shopkart-dev/checkout-service/internal/invoice"
	"github.com/shopkart-dev/checkout-service/internal/notify"
	"github.com/shopkart-dev/checkout-service/internal/order"
	"github.com/shopkart-dev/checkout-service/internal/payment"
	"github.com/shopkart-dev/checkout-service/internal/shipping"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "checkout-service").Logger()

	log.Info().Msg("Checkout service starting...")

	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx := context.Background()

	database, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	cartRepo := cart.NewRepository(database.Pool)
	cartSvc := cart.NewService(cartRepo)

	shippingRepo := shipping.NewRepository(database.Pool)
	resolver := shipping.NewResolver(shippingRepo)

	orderRepo := order.NewRepository(database.Pool)
	checkoutRepo := checkout.NewRepository(database.Pool)

	invoiceGen := invoice.NewGenerator(cfg.Invoice.Dir, cfg.Invoice.SellerName)
	mailer := notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

	checkoutSvc := checkout.NewService(cartRepo, checkoutRepo, orderRepo, resolver, invoiceGen, mailer, cfg.App.BaseURL)

	gateway := payment.NewRazorpayGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	paymentSvc := payment.NewService(orderRepo, gateway, payment.Config{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		Currency:  cfg.Razorpay.Currency,
		Timeout:   cfg.Razorpay.Timeout,
	})

	cartHandler := handlerHttp.NewCartHandler(cartSvc)
	checkoutHandler := handlerHttp.NewCheckoutHandler(checkoutSvc)
	orderHandler := handlerHttp.NewOrderHandler(orderRepo, invoiceGen)
	paymentHandler := handlerHttp.NewPaymentHandler(paymentSvc)
	shippingHandler := handlerHttp.NewShippingHandler(resolver, shippingRepo)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(handlerHttp.Identity)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	cartHandler.RegisterRoutes(router)
	checkoutHandler.RegisterRoutes(router)
	orderHandler.RegisterRoutes(router)
	paymentHandler.RegisterRoutes(router)
	shippingHandler.RegisterRoutes(router)
	shippingHandler.RegisterAdminRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}

	log.Info().Msg("Checkout service stopped gracefully")
}
