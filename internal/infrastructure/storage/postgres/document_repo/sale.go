// Package document_repo provides PostgreSQL persistence for documents.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/domain/documents/sale"
	"fluxo/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "doc_sales"
	saleLinesTable = "doc_sale_lines"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ sale.Repository = (*SaleRepo)(nil)

func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create persists the header and its lines. Call inside the booking
// transaction.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	q := r.builder.Insert(salesTable).
		Columns(
			"id", "tenant_id", "version", "number", "date", "comment",
			"cash_session_id", "customer_id", "payment_method", "idempotency_key",
			"total_gross", "discount", "total_tax", "total_net",
			"tendered_amount", "change_due", "due_date", "tax_pending",
			"created_at", "updated_at", "created_by",
		).
		Values(
			s.ID, s.TenantID, s.Version, s.Number, s.Date, s.Comment,
			s.CashSessionID, s.CustomerID, s.PaymentMethod, nullableKey(s.IdempotencyKey),
			s.TotalGross, s.Discount, s.TotalTax, s.TotalNet,
			s.TenderedAmount, s.ChangeDue, s.DueDate, s.TaxPending,
			s.CreatedAt, s.UpdatedAt, s.CreatedBy,
		)

	headerSQL, headerArgs, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build sale insert: %w", err)
	}

	lines := r.builder.Insert(saleLinesTable).
		Columns(
			"id", "sale_id", "line_no", "product_id", "code", "name", "unit",
			"quantity", "unit_price", "line_discount", "gross",
			"tax_by_type", "tax_amount",
		)
	for _, l := range s.Lines {
		lines = lines.Values(
			l.ID, s.ID, l.LineNo, l.ProductID, l.Code, l.Name, l.Unit,
			l.Quantity.Int64Scaled(), l.UnitPrice, l.LineDiscount, l.Gross,
			l.TaxByType, l.TaxAmount,
		)
	}
	linesSQL, linesArgs, err := lines.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}

	// Header and lines go out in one round-trip on the booking transaction.
	inserter := postgres.NewBatchInserter(r.txManager)
	err = inserter.ExecuteBatch(ctx, []postgres.BatchQuery{
		{SQL: headerSQL, Args: headerArgs},
		{SQL: linesSQL, Args: linesArgs},
	})
	if err != nil {
		return apperror.NewPersistence(fmt.Errorf("insert sale: %w", err))
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, tenantID string, saleID id.ID) (*sale.Sale, error) {
	q := r.builder.Select(
		"id", "tenant_id", "version", "number", "date", "comment",
		"cash_session_id", "customer_id", "payment_method",
		"COALESCE(idempotency_key, '') AS idempotency_key",
		"total_gross", "discount", "total_tax", "total_net",
		"tendered_amount", "change_due", "due_date", "tax_pending",
		"created_at", "updated_at", "created_by",
	).From(salesTable).
		Where(squirrel.Eq{"id": saleID, "tenant_id": tenantID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sale query: %w", err)
	}

	var s sale.Sale
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID)
		}
		return nil, apperror.NewPersistence(fmt.Errorf("get sale: %w", err))
	}

	lines, err := r.loadLines(ctx, saleID)
	if err != nil {
		return nil, err
	}
	s.Lines = lines
	return &s, nil
}

func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) ([]sale.Sale, error) {
	q := r.builder.Select(
		"id", "tenant_id", "version", "number", "date", "comment",
		"cash_session_id", "customer_id", "payment_method",
		"COALESCE(idempotency_key, '') AS idempotency_key",
		"total_gross", "discount", "total_tax", "total_net",
		"tendered_amount", "change_due", "due_date", "tax_pending",
		"created_at", "updated_at", "created_by",
	).From(salesTable).
		Where(squirrel.Eq{"tenant_id": filter.TenantID}).
		OrderBy("date DESC", "created_at DESC")

	if filter.CashSessionID != nil {
		q = q.Where(squirrel.Eq{"cash_session_id": *filter.CashSessionID})
	}
	if filter.TaxPending != nil {
		q = q.Where(squirrel.Eq{"tax_pending": *filter.TaxPending})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.Lt{"date": *filter.To})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sale list: %w", err)
	}

	var sales []sale.Sale
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &sales, sql, args...); err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("list sales: %w", err))
	}
	return sales, nil
}

func (r *SaleRepo) loadLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	q := r.builder.Select(
		"id", "sale_id", "line_no", "product_id", "code", "name", "unit",
		"quantity", "unit_price", "line_discount", "gross",
		"tax_by_type", "tax_amount",
	).From(saleLinesTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var lines []sale.Line
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("load sale lines: %w", err))
	}
	return lines, nil
}

// nullableKey maps an empty idempotency key to NULL so the partial
// unique index ignores sales booked without one.
func nullableKey(key string) any {
	if key == "" {
		return nil
	}
	return key
}
