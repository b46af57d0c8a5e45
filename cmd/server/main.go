// Package main is the entry point for the Fluxo API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fluxo/internal/core/id"
	"fluxo/internal/domain/documents/sale"
	domaintax "fluxo/internal/domain/tax"
	"fluxo/internal/infrastructure/auth"
	v1 "fluxo/internal/infrastructure/http/v1"
	"fluxo/internal/infrastructure/storage/postgres"
	taxclient "fluxo/internal/infrastructure/tax"
	"fluxo/pkg/logger"
	"fluxo/pkg/numerator"
)

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting fluxo server")

	// --- Database ---
	dsn := mustEnv("DATABASE_URL")
	poolCfg := postgres.DefaultPoolConfig(dsn)
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- JWT Service ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	// --- Numerator ---
	numeratorService := numerator.New(pool)

	// --- Tax Calculator ---
	var calculator domaintax.Calculator = domaintax.NewNoop()
	if taxURL := getEnv("TAX_CALCULATOR_URL", ""); taxURL != "" {
		calculator = taxclient.NewClient(taxURL, log)
		log.Infow("tax calculator configured", "url", taxURL)
	} else {
		log.Info("no tax calculator configured, bookings carry zero tax")
	}

	// --- Audit Log ---
	auditLog, err := postgres.NewAuditLog(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit log", "error", err)
	}

	// --- Stock generators ---
	// When a default stock location is configured, every booked sale
	// also writes exit movements for its product lines.
	var generators []sale.MovementGenerator
	if loc := getEnv("DEFAULT_STOCK_LOCATION_ID", ""); loc != "" {
		locationID, err := id.Parse(loc)
		if err != nil {
			log.Fatalw("invalid DEFAULT_STOCK_LOCATION_ID", "value", loc, "error", err)
		}
		generators = append(generators, sale.NewStockExitGenerator(locationID))
		log.Infow("stock exit generator enabled", "location_id", locationID)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:               pool,
		TxManager:          txManager,
		Logger:             log,
		JWTValidator:       jwtService,
		Numerator:          numeratorService,
		Calculator:         calculator,
		AuditLog:           auditLog,
		Generators:         generators,
		IdempotencyEnabled: getEnv("IDEMPOTENCY_ENABLED", "true") == "true",
		IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 10*time.Minute),
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
