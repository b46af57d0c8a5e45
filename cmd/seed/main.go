// Package main provides a CLI tool for seeding the database with demo data.
// It drives the real services so seeded data goes through the same booking
// protocol as production traffic.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"fluxo/internal/core/id"
	"fluxo/internal/core/session"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/cashsession"
	"fluxo/internal/domain/documents/sale"
	"fluxo/internal/domain/registers/ledger"
	domaintax "fluxo/internal/domain/tax"
	"fluxo/internal/infrastructure/storage/postgres"
	"fluxo/internal/infrastructure/storage/postgres/document_repo"
	"fluxo/internal/infrastructure/storage/postgres/ledger_repo"
	"fluxo/internal/infrastructure/storage/postgres/session_repo"
	"fluxo/pkg/logger"
	"fluxo/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	tenantID := os.Getenv("SEED_TENANT_ID")
	if tenantID == "" {
		tenantID = "demo"
	}

	// Seeding runs as a synthetic operator session.
	ctx = session.WithSession(ctx, &session.Session{
		TenantID: tenantID,
		UserID:   id.New().String(),
		Email:    "seed@fluxo.local",
	})

	txManager := postgres.NewTxManager(pool)

	movementRepo := ledger_repo.NewMovementRepo(txManager)
	ledgerService := ledger.NewService(movementRepo)

	sessionRepo := session_repo.NewCashSessionRepo(txManager)
	sessionService := cashsession.NewService(sessionRepo, movementRepo, txManager, log)

	auditLog, err := postgres.NewAuditLog(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit log", "error", err)
	}

	saleRepo := document_repo.NewSaleRepo(txManager)
	booker := sale.NewBooker(
		saleRepo,
		sessionRepo,
		ledgerService,
		domaintax.NewNoop(),
		numerator.New(pool),
		txManager,
		auditLog,
		log,
	)

	if err := seedDemo(ctx, log, sessionService, booker, ledgerService); err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}

	log.Info("seeding completed successfully")
}

func seedDemo(
	ctx context.Context,
	log *logger.Logger,
	sessions *cashsession.Service,
	booker *sale.Booker,
	movements *ledger.Service,
) error {
	pointID := id.New()

	sess, err := sessions.Open(ctx, cashsession.OpenInput{
		PointID:      pointID,
		OpeningFloat: types.MinorUnits(15000), // 150.00
	})
	if err != nil {
		return fmt.Errorf("open cash session: %w", err)
	}
	log.Infow("demo cash session opened", "session_id", sess.ID, "point_id", pointID)

	// Stock entries so the kardex report has an opening balance.
	productA := id.New()
	productB := id.New()
	warehouseID := id.New()

	entries := []ledger.Movement{
		ledger.NewMovement(sess.TenantID, productA, ledger.KindEntry,
			types.NewQuantityFromFloat64(100), time.Now().Add(-48*time.Hour)).WithLocation(warehouseID),
		ledger.NewMovement(sess.TenantID, productB, ledger.KindEntry,
			types.NewQuantityFromFloat64(40), time.Now().Add(-48*time.Hour)).WithLocation(warehouseID),
	}
	if err := movements.Record(ctx, entries); err != nil {
		return fmt.Errorf("record stock entries: %w", err)
	}
	log.Infow("demo stock entries recorded", "warehouse_id", warehouseID)

	tendered := types.MinorUnits(5000) // 50.00
	booked, err := booker.Book(ctx, sale.BookInput{
		CashSessionID:  sess.ID,
		PaymentMethod:  sale.PaymentCash,
		TenderedAmount: &tendered,
		Lines: []sale.LineInput{
			{
				ProductID: &productA,
				Code:      "ESP-001",
				Name:      "Espresso",
				Unit:      "un",
				Quantity:  types.NewQuantityFromFloat64(2),
				UnitPrice: types.MinorUnits(850), // 8.50
			},
			{
				ProductID: &productB,
				Code:      "CRO-001",
				Name:      "Croissant",
				Unit:      "un",
				Quantity:  types.NewQuantityFromFloat64(1),
				UnitPrice: types.MinorUnits(1200), // 12.00
			},
		},
	})
	if err != nil {
		return fmt.Errorf("book demo sale: %w", err)
	}
	log.Infow("demo sale booked",
		"sale_id", booked.ID,
		"number", booked.Number,
		"total_net", booked.TotalNet,
		"change_due", booked.ChangeDue,
	)

	// An on-account sale so the open titles report has content.
	customerID := id.New()
	due := time.Now().Add(30 * 24 * time.Hour)
	onAccount, err := booker.Book(ctx, sale.BookInput{
		CashSessionID: sess.ID,
		CustomerID:    &customerID,
		PaymentMethod: sale.PaymentOnAccount,
		DueDate:       &due,
		Lines: []sale.LineInput{
			{
				ProductID: &productA,
				Code:      "ESP-001",
				Name:      "Espresso",
				Unit:      "un",
				Quantity:  types.NewQuantityFromFloat64(10),
				UnitPrice: types.MinorUnits(850),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("book on-account sale: %w", err)
	}
	log.Infow("demo on-account sale booked", "sale_id", onAccount.ID, "number", onAccount.Number)

	return nil
}
