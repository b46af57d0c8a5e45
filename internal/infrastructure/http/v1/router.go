// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"fluxo/internal/domain/cashsession"
	"fluxo/internal/domain/documents/sale"
	"fluxo/internal/domain/registers/ledger"
	"fluxo/internal/domain/reports"
	"fluxo/internal/domain/tax"
	"fluxo/internal/infrastructure/http/v1/handlers"
	"fluxo/internal/infrastructure/http/v1/middleware"
	"fluxo/internal/infrastructure/storage/postgres"
	"fluxo/internal/infrastructure/storage/postgres/document_repo"
	"fluxo/internal/infrastructure/storage/postgres/ledger_repo"
	"fluxo/internal/infrastructure/storage/postgres/report_repo"
	"fluxo/internal/infrastructure/storage/postgres/session_repo"
	"fluxo/pkg/logger"
	"fluxo/pkg/numerator"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *postgres.Pool

	// TxManager runs transactional work.
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Numerator hands out document numbers
	Numerator *numerator.Service

	// Calculator annotates sales with taxes
	Calculator tax.Calculator

	// AuditLog records booking audit entries and serves their history
	AuditLog *postgres.AuditLog

	// Generators produce extra ledger movements per booked sale
	// (stock exits and the like).
	Generators []sale.MovementGenerator

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool
	IdempotencyTTL     time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		protected := apiV1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		if cfg.IdempotencyEnabled {
			ttl := cfg.IdempotencyTTL
			if ttl <= 0 {
				ttl = 10 * time.Minute
			}
			store := postgres.NewIdempotencyStore(cfg.TxManager, ttl)
			protected.Use(middleware.Idempotency(store))
		}

		registerRoutes(protected, cfg)
	}

	return router
}

func registerRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	movementRepo := ledger_repo.NewMovementRepo(cfg.TxManager)
	ledgerService := ledger.NewService(movementRepo)

	sessionRepo := session_repo.NewCashSessionRepo(cfg.TxManager)
	sessionService := cashsession.NewService(sessionRepo, movementRepo, cfg.TxManager, cfg.Logger)

	saleRepo := document_repo.NewSaleRepo(cfg.TxManager)
	saleService := sale.NewService(saleRepo)
	booker := sale.NewBooker(
		saleRepo,
		sessionRepo,
		ledgerService,
		cfg.Calculator,
		cfg.Numerator,
		cfg.TxManager,
		cfg.AuditLog,
		cfg.Logger,
	).WithGenerators(cfg.Generators...)

	titlesRepo := report_repo.NewOpenTitlesRepo(cfg.TxManager)
	reportService := reports.NewService(movementRepo, titlesRepo, cfg.Logger)

	// --- LEDGER ---
	{
		handler := handlers.NewLedgerHandler(baseHandler, ledgerService, cfg.TxManager)
		group := rg.Group("/registers/ledger")
		group.POST("/movements", handler.Record)
		group.GET("/movements", handler.Query)
		group.POST("/settlements", handler.Settle)
	}

	// --- CASH SESSIONS ---
	{
		handler := handlers.NewCashSessionHandler(baseHandler, sessionService)
		group := rg.Group("/cash-sessions")
		group.POST("", handler.Open)
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.POST("/:id/close", handler.Close)
	}

	// --- SALES ---
	{
		handler := handlers.NewSaleHandler(baseHandler, booker, saleService, ledgerService, cfg.AuditLog)
		group := rg.Group("/documents/sales")
		group.POST("", handler.Book)
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.GET("/:id/movements", handler.Movements)
		group.GET("/:id/audit", handler.AuditTrail)
	}

	// --- REPORTS ---
	{
		handler := handlers.NewReportsHandler(baseHandler, reportService, cfg.TxManager)
		group := rg.Group("/reports")
		group.GET("/daily-cash-flow", handler.GetDailyCashFlow)
		group.GET("/kardex", handler.GetKardex)
		group.GET("/stock-balance", handler.GetStockBalance)
		group.GET("/open-titles", handler.GetOpenTitles)
	}
}
