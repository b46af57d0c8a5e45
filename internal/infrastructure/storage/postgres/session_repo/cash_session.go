// Package session_repo provides PostgreSQL persistence for cash sessions.
package session_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/domain/cashsession"
	"fluxo/internal/infrastructure/storage/postgres"
)

const sessionsTable = "reg_cash_sessions"

var sessionColumns = []string{
	"id", "tenant_id", "version", "point_id", "opened_by", "opened_at",
	"opening_float", "status", "closed_by", "closed_at",
	"expected_amount", "declared_amount", "deviation", "deviation_class",
}

// CashSessionRepo implements cashsession.Repository.
type CashSessionRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ cashsession.Repository = (*CashSessionRepo)(nil)

func NewCashSessionRepo(txManager *postgres.TxManager) *CashSessionRepo {
	return &CashSessionRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *CashSessionRepo) Create(ctx context.Context, s *cashsession.Session) error {
	q := r.builder.Insert(sessionsTable).
		Columns(sessionColumns...).
		Values(
			s.ID, s.TenantID, s.Version, s.PointID, s.OpenedBy, s.OpenedAt,
			s.OpeningFloat, s.Status, s.ClosedBy, s.ClosedAt,
			s.ExpectedAmount, s.DeclaredAmount, s.Deviation, nullableClass(s.DeviationClass),
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build session insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewPersistence(fmt.Errorf("insert cash session: %w", err))
	}
	return nil
}

func (r *CashSessionRepo) GetByID(ctx context.Context, tenantID string, sessionID id.ID) (*cashsession.Session, error) {
	return r.get(ctx, tenantID, sessionID, false)
}

// GetByIDForUpdate locks the session row until the surrounding
// transaction ends.
func (r *CashSessionRepo) GetByIDForUpdate(ctx context.Context, tenantID string, sessionID id.ID) (*cashsession.Session, error) {
	return r.get(ctx, tenantID, sessionID, true)
}

func (r *CashSessionRepo) get(ctx context.Context, tenantID string, sessionID id.ID, forUpdate bool) (*cashsession.Session, error) {
	q := r.builder.Select(selectColumns()...).
		From(sessionsTable).
		Where(squirrel.Eq{"id": sessionID, "tenant_id": tenantID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build session query: %w", err)
	}

	var s cashsession.Session
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("cash session", sessionID)
		}
		return nil, apperror.NewPersistence(fmt.Errorf("get cash session: %w", err))
	}
	return &s, nil
}

func (r *CashSessionRepo) Update(ctx context.Context, s *cashsession.Session) error {
	q := r.builder.Update(sessionsTable).
		Set("version", s.Version+1).
		Set("status", s.Status).
		Set("closed_by", s.ClosedBy).
		Set("closed_at", s.ClosedAt).
		Set("expected_amount", s.ExpectedAmount).
		Set("declared_amount", s.DeclaredAmount).
		Set("deviation", s.Deviation).
		Set("deviation_class", nullableClass(s.DeviationClass)).
		Where(squirrel.Eq{
			"id":        s.ID,
			"tenant_id": s.TenantID,
			"version":   s.Version,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build session update: %w", err)
	}
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewPersistence(fmt.Errorf("update cash session: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("cash session was modified concurrently").
			WithDetail("session_id", s.ID)
	}
	s.Version++
	return nil
}

func (r *CashSessionRepo) List(ctx context.Context, filter cashsession.ListFilter) ([]cashsession.Session, error) {
	q := r.builder.Select(selectColumns()...).
		From(sessionsTable).
		Where(squirrel.Eq{"tenant_id": filter.TenantID}).
		OrderBy("opened_at DESC")

	if filter.PointID != nil {
		q = q.Where(squirrel.Eq{"point_id": *filter.PointID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build session list: %w", err)
	}

	var sessions []cashsession.Session
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &sessions, sql, args...); err != nil {
		return nil, apperror.NewPersistence(fmt.Errorf("list cash sessions: %w", err))
	}
	return sessions, nil
}

func selectColumns() []string {
	cols := make([]string, len(sessionColumns))
	copy(cols, sessionColumns)
	for i, c := range cols {
		if c == "deviation_class" {
			cols[i] = "COALESCE(deviation_class, '') AS deviation_class"
		}
	}
	return cols
}

func nullableClass(c cashsession.DeviationClass) any {
	if c == "" {
		return nil
	}
	return string(c)
}
