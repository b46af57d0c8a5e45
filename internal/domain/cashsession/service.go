package cashsession

import (
	"context"
	"time"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/entity"
	"fluxo/internal/core/id"
	"fluxo/internal/core/session"
	"fluxo/internal/core/tx"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/registers/ledger"
	"fluxo/pkg/logger"
)

// Default deviation grading, in minor units.
const (
	defaultWarningThreshold  types.MinorUnits = 100  // 1.00
	defaultCriticalThreshold types.MinorUnits = 5000 // 50.00
)

type OpenInput struct {
	PointID      id.ID
	OpeningFloat types.MinorUnits
}

type CloseInput struct {
	SessionID      id.ID
	DeclaredAmount types.MinorUnits
}

type Service struct {
	repo      Repository
	movements ledger.Repository
	txManager tx.Manager
	logger    *logger.Logger

	warningThreshold  types.MinorUnits
	criticalThreshold types.MinorUnits
}

func NewService(repo Repository, movements ledger.Repository, txManager tx.Manager, log *logger.Logger) *Service {
	return &Service{
		repo:              repo,
		movements:         movements,
		txManager:         txManager,
		logger:            log.WithComponent("cashsession"),
		warningThreshold:  defaultWarningThreshold,
		criticalThreshold: defaultCriticalThreshold,
	}
}

// Open starts a new session at a POS point with the given opening float.
func (s *Service) Open(ctx context.Context, in OpenInput) (*Session, error) {
	tenantID := session.TenantID(ctx)
	openedBy, _ := id.Parse(session.UserID(ctx))

	sess := &Session{
		BaseEntity:   entity.NewBaseEntity(tenantID),
		PointID:      in.PointID,
		OpenedBy:     openedBy,
		OpenedAt:     time.Now().UTC(),
		OpeningFloat: in.OpeningFloat,
		Status:       StatusOpen,
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.WithContext(ctx).Infow("cash session opened",
		"session_id", sess.ID, "point_id", sess.PointID, "opening_float", sess.OpeningFloat)
	return sess, nil
}

func (s *Service) GetByID(ctx context.Context, sessionID id.ID) (*Session, error) {
	return s.repo.GetByID(ctx, session.TenantID(ctx), sessionID)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Session, error) {
	filter.TenantID = session.TenantID(ctx)
	return s.repo.List(ctx, filter)
}

// Close locks the session row, computes the expected drawer amount from the
// opening float plus the signed cash flow booked against the session, and
// stores declared amount, deviation and its grade. Closing a closed session
// is a state conflict.
func (s *Service) Close(ctx context.Context, in CloseInput) (*Session, error) {
	tenantID := session.TenantID(ctx)
	closedBy, _ := id.Parse(session.UserID(ctx))

	var closed *Session
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sess, err := s.repo.GetByIDForUpdate(ctx, tenantID, in.SessionID)
		if err != nil {
			return err
		}
		if !sess.IsOpen() {
			return apperror.NewStateConflict("cash session is already closed").
				WithDetail("session_id", sess.ID)
		}

		now := time.Now().UTC()
		flow, err := s.sessionCashFlow(ctx, tenantID, sess.ID, now)
		if err != nil {
			return err
		}

		sess.Status = StatusClosed
		sess.ClosedBy = &closedBy
		sess.ClosedAt = &now
		sess.ExpectedAmount = sess.OpeningFloat + flow
		sess.DeclaredAmount = in.DeclaredAmount
		sess.Deviation = in.DeclaredAmount - sess.ExpectedAmount
		sess.DeviationClass = classify(sess.Deviation, s.warningThreshold, s.criticalThreshold)

		if err := s.repo.Update(ctx, sess); err != nil {
			return err
		}
		closed = sess
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.WithContext(ctx)
	log.Infow("cash session closed",
		"session_id", closed.ID,
		"expected", closed.ExpectedAmount,
		"declared", closed.DeclaredAmount,
		"deviation", closed.Deviation,
		"deviation_class", closed.DeviationClass)
	if closed.DeviationClass == DeviationCritical {
		log.Warnw("critical cash deviation on close", "session_id", closed.ID, "deviation", closed.Deviation)
	}
	return closed, nil
}

// sessionCashFlow folds the session's cash movements with the cash sign rule.
// Cash movements carry the session id as their location.
func (s *Service) sessionCashFlow(ctx context.Context, tenantID string, sessionID id.ID, asOf time.Time) (types.MinorUnits, error) {
	sum, err := s.movements.SignedSumBefore(ctx, ledger.Filter{
		TenantID: tenantID,
		Location: &sessionID,
		Kinds:    ledger.CashKinds(),
	}, asOf)
	if err != nil {
		return 0, err
	}
	return sum.ToMinorUnits(), nil
}
