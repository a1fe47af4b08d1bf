package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pizzaria/internal/address"
	"pizzaria/internal/catalog"
	"pizzaria/internal/config"
	"pizzaria/internal/database"
	"pizzaria/internal/events"
	"pizzaria/internal/handler"
	"pizzaria/internal/metrics"
	"pizzaria/internal/payment"
	"pizzaria/internal/repository"
	"pizzaria/internal/router"
	"pizzaria/internal/service"
	"pizzaria/internal/session"
	"pizzaria/internal/tracker"
)

const (
	// trackerLimit caps the orders shown on the fulfillment board.
	trackerLimit = 200

	sessionSweepInterval = time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting pizzaria API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.ConnectionString(), logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	orderRepo := repository.NewOrderRepository(pool, logger)

	// Load the menu with S3 and local fallback
	var s3Loader catalog.Loader
	if cfg.S3.Enabled {
		s3Loader, err = catalog.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
			s3Loader = nil
		}
	} else {
		logger.Info().Msg("using local file system for the catalog (S3 disabled)")
	}
	loader := catalog.NewFallbackLoader(s3Loader, catalog.NewFileLoader(logger), cfg.S3.Prefix, cfg.S3.Enabled, logger)
	menu, err := loader.Load(ctx, cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	// Payment providers
	mercadoPago, err := payment.NewMercadoPago(cfg.Payment.MercadoPagoAccessToken, cfg.Payment.PublicBaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mercado pago: %w", err)
	}
	if cfg.Payment.StripeSecretKey == "" {
		logger.Warn().Msg("stripe secret key not set, stripe checkouts will fail")
	}
	if cfg.Payment.MercadoPagoAccessToken == "" {
		logger.Warn().Msg("mercado pago access token not set, mercado pago checkouts will fail")
	}
	providers := payment.NewRegistry(
		cfg.Payment.Provider,
		payment.NewStripe(cfg.Payment.StripeSecretKey, cfg.Payment.PublicBaseURL, logger),
		mercadoPago,
	)

	// Order events
	publisher := events.NewNopPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Timeout, logger)
	} else {
		logger.Info().Msg("kafka brokers not set, order events disabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	m := metrics.NewDefault()

	// Initialize services
	productService := service.NewProductService(menu, logger)
	checkoutService := service.NewCheckoutService(orderRepo, providers, publisher, m, cfg.Payment.Timeout, logger)
	fulfillmentService := service.NewFulfillmentService(orderRepo, publisher, m, logger)
	notificationService := service.NewNotificationService(mercadoPago, logger)

	// Browsing sessions
	sessions := session.NewManager("", cfg.Session.TTL)
	go sessions.Run(ctx, sessionSweepInterval)

	// Fulfillment board fed by the database change feed
	board := tracker.New(repository.NewChangeFeed(pool, logger), fulfillmentService, trackerLimit, logger)
	if err := board.Start(ctx); err != nil {
		return fmt.Errorf("failed to start order tracker: %w", err)
	}
	defer board.Close()

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Sessions: handler.NewSessionHandler(sessions, productService, checkoutService, logger),
		Checkout: handler.NewCheckoutHandler(checkoutService, notificationService, logger),
		Orders:   handler.NewOrderHandler(fulfillmentService, board, logger),
		Address:  handler.NewAddressHandler(address.NewViaCEPClient(cfg.CEP.BaseURL, cfg.CEP.Timeout, logger), logger),
	}

	// Initialize router
	mux := router.New(handlers, cfg.Auth.APIKey, m, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Payment.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Stop the board first so open event streams end
		board.Close()

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
