package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"casebox/api"
	"casebox/config"
	"casebox/database"
	"casebox/events"
	"casebox/repository"
	"casebox/service"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// ConfigureLogging applies the configured level and the production formatter
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// RetryPolicy builds the store retry policy from configuration
func RetryPolicy(cfg *config.Config) service.RetryPolicy {
	return service.RetryPolicy{
		MaxRetries: cfg.OpenMaxRetries,
		Backoff:    cfg.OpenRetryBackoff,
		Timeout:    cfg.StoreTimeout,
	}
}

func connect(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	url := cfg.GetDatabaseURL()
	log.WithField("database", database.RedactURL(url)).Info("Connecting to database...")

	db, err := database.NewConnectionWithOptions(ctx, url, database.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")
	return db, nil
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting casebox...")

	db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eventBus := events.NewBus()

	if cfg.NATSURL != "" {
		conn, err := events.ConnectNATS(ctx, cfg.NATSURL, "casebox")
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer conn.Drain()

		events.NewNATSForwarder(conn, "casebox").Attach(eventBus)
		log.WithField("url", cfg.NATSURL).Info("Forwarding events to NATS")
	}

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	policy := RetryPolicy(cfg)

	services := api.Services{
		Catalog:   service.NewCatalogService(uowFactory, policy),
		Opening:   service.NewOpeningService(uowFactory, service.NewRandomSource(), policy),
		Ledger:    service.NewLedgerService(uowFactory, policy),
		Reporting: service.NewReportingService(uowFactory, policy),
		User:      service.NewUserService(uowFactory, policy),
	}

	if cfg.AdminJWTSecret == "" {
		log.Warn("ADMIN_JWT_SECRET is empty, admin routes are disabled")
	}
	server := api.New(cfg.HTTPAddr(), services, db, cfg.AdminJWTSecret)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Error stopping HTTP server")
	}

	done := make(chan struct{})
	go func() {
		eventBus.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("Shutdown completed")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	}

	return nil
}

// GrantBalance applies a one-off admin adjustment outside the HTTP surface
func GrantBalance(ctx context.Context, userID, amount int64) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eventBus := events.NewBus()
	ledger := service.NewLedgerService(repository.NewUnitOfWorkFactory(db, eventBus), RetryPolicy(cfg))

	newBalance, err := ledger.GrantBalance(ctx, userID, amount)
	if err != nil {
		return err
	}
	eventBus.Wait()

	log.WithFields(log.Fields{
		"user_id":     userID,
		"amount":      amount,
		"new_balance": newBalance,
	}).Info("Balance granted")
	return nil
}
