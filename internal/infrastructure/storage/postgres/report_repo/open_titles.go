// Package report_repo provides SQL-backed report queries.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/registers/ledger"
	"fluxo/internal/domain/reports"
	"fluxo/internal/infrastructure/storage/postgres"
)

// OpenTitlesRepo implements reports.TitleReader with a join to the sale
// headers for document numbers.
type OpenTitlesRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ reports.TitleReader = (*OpenTitlesRepo)(nil)

func NewOpenTitlesRepo(txManager *postgres.TxManager) *OpenTitlesRepo {
	return &OpenTitlesRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

type openTitleRow struct {
	LineID         id.ID      `db:"line_id"`
	SubjectID      id.ID      `db:"subject_id"`
	Kind           string     `db:"kind"`
	Magnitude      int64      `db:"magnitude"`
	OccurredAt     time.Time  `db:"occurred_at"`
	DueDate        *time.Time `db:"due_date"`
	OriginType     string     `db:"origin_type"`
	OriginID       id.ID      `db:"origin_id"`
	DocumentNumber string     `db:"document_number"`
}

// buildOpenTitlesQuery selects titles open as of asOf. Status is
// reconstructed, not read: a title counts as open when it has no
// settlement, or when its settlement occurred at or after the cutoff.
func (r *OpenTitlesRepo) buildOpenTitlesQuery(tenantID string, kind ledger.Kind, asOf time.Time) (string, []any, error) {
	return r.builder.Select(
		"m.line_id", "m.subject_id", "m.kind", "m.magnitude",
		"m.occurred_at", "m.due_date", "m.origin_type", "m.origin_id",
		"COALESCE(s.number, '') AS document_number",
	).
		From("reg_movements m").
		LeftJoin("reg_movements st ON st.tenant_id = m.tenant_id AND st.line_id = m.settled_by").
		LeftJoin("doc_sales s ON s.id = m.origin_id AND s.tenant_id = m.tenant_id AND m.origin_type = 'sale'").
		Where(squirrel.Eq{"m.tenant_id": tenantID, "m.kind": kind}).
		Where(squirrel.Lt{"m.occurred_at": asOf}).
		Where(squirrel.Or{
			squirrel.Expr("m.settled_by IS NULL"),
			squirrel.GtOrEq{"st.occurred_at": asOf},
		}).
		OrderBy("COALESCE(m.due_date, m.occurred_at) ASC", "m.seq ASC").
		ToSql()
}

// OpenTitles returns titles of the given kind open as of asOf, ordered
// so the domain grouping sees due dates ascending.
func (r *OpenTitlesRepo) OpenTitles(ctx context.Context, tenantID string, kind ledger.Kind, asOf time.Time) ([]reports.OpenTitleRow, error) {
	sql, args, err := r.buildOpenTitlesQuery(tenantID, kind, asOf)
	if err != nil {
		return nil, fmt.Errorf("build open titles query: %w", err)
	}

	var rows []openTitleRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("query open titles: %w", err))
	}

	out := make([]reports.OpenTitleRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, reports.OpenTitleRow{
			LineID:         row.LineID,
			SubjectID:      row.SubjectID,
			Kind:           ledger.Kind(row.Kind),
			Amount:         types.NewQuantityFromInt64Scaled(row.Magnitude).ToMinorUnits(),
			OccurredAt:     row.OccurredAt,
			DueDate:        row.DueDate,
			OriginType:     row.OriginType,
			OriginID:       row.OriginID,
			DocumentNumber: row.DocumentNumber,
		})
	}
	return out, nil
}
