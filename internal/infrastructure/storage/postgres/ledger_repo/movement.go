// Package ledger_repo provides the PostgreSQL movement store.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fluxo/internal/core/id"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/registers/ledger"
	"fluxo/internal/infrastructure/storage/postgres"
)

const movementsTable = "reg_movements"

var movementColumns = []string{
	"line_id", "tenant_id", "subject_id", "location_id", "counter_location_id",
	"kind", "magnitude", "occurred_at", "recorded_at",
	"origin_type", "origin_id", "status", "due_date", "unit_cost", "total_cost",
}

// MovementRepo implements ledger.Repository. Seq is a bigserial the
// database assigns on insert, which makes insertion order the tie-break
// for same-date replay.
type MovementRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ ledger.Repository = (*MovementRepo)(nil)

func NewMovementRepo(txManager *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append batch inserts movements. Inside a transaction the COPY protocol
// is used; otherwise a multi-row INSERT.
func (r *MovementRepo) Append(ctx context.Context, movements []ledger.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		recordedAt := m.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = now
		}
		rows = append(rows, []any{
			m.LineID, m.TenantID, m.SubjectID, m.LocationID, m.CounterLocationID,
			m.Kind, m.Magnitude.Int64Scaled(), m.OccurredAt, recordedAt,
			m.OriginType, m.OriginID, m.Status, m.DueDate, m.UnitCost, m.TotalCost,
		})
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, row := range rows {
		q = q.Values(row...)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

// Query retrieves movements in (occurred_at, seq) order.
func (r *MovementRepo) Query(ctx context.Context, filter ledger.Filter) ([]ledger.Movement, error) {
	q := r.builder.Select(append([]string{"seq"}, movementColumns...)...).
		From(movementsTable).
		OrderBy("occurred_at", "seq")

	q = applyFilter(q, filter)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []movementRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return toMovements(rows), nil
}

// SignedSumBefore folds movements before asOf into a signed sum in SQL.
// The CASE expression mirrors ledger.StockSign and ledger.CashSign.
func (r *MovementRepo) SignedSumBefore(ctx context.Context, filter ledger.Filter, asOf time.Time) (types.Quantity, error) {
	signExpr, signArgs := signCase(filter.Location)

	q := r.builder.Select().
		Column(squirrel.Expr(fmt.Sprintf("COALESCE(SUM(%s), 0)", signExpr), signArgs...)).
		From(movementsTable).
		Where(squirrel.Lt{"occurred_at": asOf})
	q = applyFilter(q, filter)

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sum query: %w", err)
	}

	var total int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("signed sum: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(total), nil
}

func (r *MovementRepo) GetByOrigin(ctx context.Context, tenantID, originType string, originID id.ID) ([]ledger.Movement, error) {
	return r.Query(ctx, ledger.Filter{
		TenantID:   tenantID,
		OriginType: originType,
		OriginID:   &originID,
	})
}

// MarkSettled flips open titles to settled, stamping the settlement that
// closed them. Already-settled lines are left untouched.
func (r *MovementRepo) MarkSettled(ctx context.Context, tenantID string, lineIDs []id.ID, settlementID id.ID) error {
	q := r.builder.Update(movementsTable).
		Set("status", ledger.StatusSettled).
		Set("settled_by", settlementID).
		Where(squirrel.Eq{
			"tenant_id": tenantID,
			"line_id":   lineIDs,
			"status":    ledger.StatusOpen,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("mark settled: %w", err)
	}
	return nil
}

// applyFilter adds the shared WHERE clauses. A location filter matches
// movements touching the location from either side of a transfer.
func applyFilter(q squirrel.SelectBuilder, filter ledger.Filter) squirrel.SelectBuilder {
	q = q.Where(squirrel.Eq{"tenant_id": filter.TenantID})

	if filter.SubjectID != nil {
		q = q.Where(squirrel.Eq{"subject_id": *filter.SubjectID})
	}
	if filter.Location != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"location_id": *filter.Location},
			squirrel.Eq{"counter_location_id": *filter.Location},
		})
	}
	if len(filter.Kinds) > 0 {
		q = q.Where(squirrel.Eq{"kind": filter.Kinds})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"occurred_at": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.Lt{"occurred_at": *filter.To})
	}
	if filter.OriginType != "" {
		q = q.Where(squirrel.Eq{"origin_type": filter.OriginType})
	}
	if filter.OriginID != nil {
		q = q.Where(squirrel.Eq{"origin_id": *filter.OriginID})
	}
	return q
}

// signCase builds the kind-to-sign CASE expression. With a location the
// transfer arm is direction-aware; without one transfers net to zero and
// entries and exits count regardless of location.
func signCase(location *id.ID) (string, []any) {
	if location == nil {
		return `CASE kind
			WHEN 'entry' THEN magnitude
			WHEN 'adjustment_in' THEN magnitude
			WHEN 'exit' THEN -magnitude
			WHEN 'adjustment_out' THEN -magnitude
			WHEN 'receivable' THEN magnitude
			WHEN 'payable' THEN -magnitude
			ELSE 0 END`, nil
	}
	return `CASE kind
		WHEN 'entry' THEN magnitude
		WHEN 'adjustment_in' THEN magnitude
		WHEN 'exit' THEN -magnitude
		WHEN 'adjustment_out' THEN -magnitude
		WHEN 'receivable' THEN magnitude
		WHEN 'payable' THEN -magnitude
		WHEN 'transfer' THEN CASE
			WHEN counter_location_id = ? THEN magnitude
			WHEN location_id = ? THEN -magnitude
			ELSE 0 END
		ELSE 0 END`, []any{*location, *location}
}

type movementRow struct {
	Seq               int64       `db:"seq"`
	LineID            id.ID       `db:"line_id"`
	TenantID          string      `db:"tenant_id"`
	SubjectID         id.ID       `db:"subject_id"`
	LocationID        *id.ID      `db:"location_id"`
	CounterLocationID *id.ID      `db:"counter_location_id"`
	Kind              ledger.Kind `db:"kind"`
	Magnitude         int64       `db:"magnitude"`
	OccurredAt        time.Time   `db:"occurred_at"`
	RecordedAt        time.Time   `db:"recorded_at"`
	OriginType        string      `db:"origin_type"`
	OriginID          id.ID       `db:"origin_id"`
	Status            ledger.Status `db:"status"`
	DueDate           *time.Time  `db:"due_date"`
	UnitCost          *int64      `db:"unit_cost"`
	TotalCost         *int64      `db:"total_cost"`
}

func toMovements(rows []movementRow) []ledger.Movement {
	out := make([]ledger.Movement, 0, len(rows))
	for _, row := range rows {
		m := ledger.Movement{
			LineID:            row.LineID,
			TenantID:          row.TenantID,
			SubjectID:         row.SubjectID,
			LocationID:        row.LocationID,
			CounterLocationID: row.CounterLocationID,
			Kind:              row.Kind,
			Magnitude:         types.NewQuantityFromInt64Scaled(row.Magnitude),
			OccurredAt:        row.OccurredAt,
			Seq:               row.Seq,
			RecordedAt:        row.RecordedAt,
			OriginType:        row.OriginType,
			OriginID:          row.OriginID,
			Status:            row.Status,
			DueDate:           row.DueDate,
		}
		if row.UnitCost != nil {
			uc := types.MinorUnits(*row.UnitCost)
			m.UnitCost = &uc
		}
		if row.TotalCost != nil {
			tc := types.MinorUnits(*row.TotalCost)
			m.TotalCost = &tc
		}
		out = append(out, m)
	}
	return out
}
