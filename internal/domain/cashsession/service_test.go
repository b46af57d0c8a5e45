package cashsession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/core/session"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/registers/ledger"
	"fluxo/pkg/logger"
)

type memSessionRepo struct {
	sessions map[id.ID]*Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[id.ID]*Session)}
}

func (r *memSessionRepo) Create(_ context.Context, s *Session) error {
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) GetByID(_ context.Context, tenantID string, sessionID id.ID) (*Session, error) {
	s, ok := r.sessions[sessionID]
	if !ok || s.TenantID != tenantID {
		return nil, apperror.NewNotFound("cash session", sessionID)
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) GetByIDForUpdate(ctx context.Context, tenantID string, sessionID id.ID) (*Session, error) {
	return r.GetByID(ctx, tenantID, sessionID)
}

func (r *memSessionRepo) Update(_ context.Context, s *Session) error {
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) List(_ context.Context, filter ListFilter) ([]Session, error) {
	var out []Session
	for _, s := range r.sessions {
		if s.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

// fixedFlow answers SignedSumBefore with a constant and fails every
// other ledger call.
type fixedFlow struct {
	flow types.Quantity
}

func (f *fixedFlow) Append(context.Context, []ledger.Movement) error { return nil }
func (f *fixedFlow) Query(context.Context, ledger.Filter) ([]ledger.Movement, error) {
	return nil, nil
}
func (f *fixedFlow) SignedSumBefore(context.Context, ledger.Filter, time.Time) (types.Quantity, error) {
	return f.flow, nil
}
func (f *fixedFlow) GetByOrigin(context.Context, string, string, id.ID) ([]ledger.Movement, error) {
	return nil, nil
}
func (f *fixedFlow) MarkSettled(context.Context, string, []id.ID, id.ID) error { return nil }

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testCtx() context.Context {
	return session.WithSession(context.Background(), &session.Session{
		TenantID: "acme",
		UserID:   id.New().String(),
	})
}

func newTestService(flow types.Quantity) (*Service, *memSessionRepo) {
	repo := newMemSessionRepo()
	svc := NewService(repo, &fixedFlow{flow: flow}, passthroughTx{}, logger.Default())
	return svc, repo
}

func TestOpenAndClose(t *testing.T) {
	// 150.00 float, sales flow 263.27 booked in the session.
	svc, _ := newTestService(types.Quantity(263_2700))
	ctx := testCtx()

	sess, err := svc.Open(ctx, OpenInput{PointID: id.New(), OpeningFloat: 15000})
	require.NoError(t, err)
	require.Equal(t, StatusOpen, sess.Status)

	closed, err := svc.Close(ctx, CloseInput{SessionID: sess.ID, DeclaredAmount: 41327})
	require.NoError(t, err)
	require.Equal(t, StatusClosed, closed.Status)
	require.Equal(t, types.MinorUnits(41327), closed.ExpectedAmount)
	require.Equal(t, types.MinorUnits(0), closed.Deviation)
	require.Equal(t, DeviationNormal, closed.DeviationClass)
}

func TestClose_AlreadyClosed(t *testing.T) {
	svc, _ := newTestService(0)
	ctx := testCtx()

	sess, err := svc.Open(ctx, OpenInput{PointID: id.New()})
	require.NoError(t, err)

	_, err = svc.Close(ctx, CloseInput{SessionID: sess.ID})
	require.NoError(t, err)

	_, err = svc.Close(ctx, CloseInput{SessionID: sess.ID})
	require.True(t, apperror.IsStateConflict(err))
}

func TestClose_Unknown(t *testing.T) {
	svc, _ := newTestService(0)

	_, err := svc.Close(testCtx(), CloseInput{SessionID: id.New()})
	require.True(t, apperror.IsNotFound(err))
}

func TestClose_DeviationGrading(t *testing.T) {
	tests := []struct {
		name     string
		declared types.MinorUnits
		want     DeviationClass
	}{
		{"exact", 10000, DeviationNormal},
		{"under warning", 9950, DeviationNormal},
		{"short by warning threshold", 9900, DeviationWarning},
		{"over by warning threshold", 10150, DeviationWarning},
		{"short by critical threshold", 5000, DeviationCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(0)
			ctx := testCtx()

			sess, err := svc.Open(ctx, OpenInput{PointID: id.New(), OpeningFloat: 10000})
			require.NoError(t, err)

			closed, err := svc.Close(ctx, CloseInput{SessionID: sess.ID, DeclaredAmount: tt.declared})
			require.NoError(t, err)
			require.Equal(t, tt.want, closed.DeviationClass)
		})
	}
}

func TestOpen_NegativeFloat(t *testing.T) {
	svc, _ := newTestService(0)

	_, err := svc.Open(testCtx(), OpenInput{PointID: id.New(), OpeningFloat: -1})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperror.CodeConstraint, appErr.Code)
}
