package sale

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/core/session"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/cashsession"
	"fluxo/internal/domain/registers/ledger"
	"fluxo/internal/domain/tax"
	"fluxo/pkg/logger"
	"fluxo/pkg/numerator"
)

// Transactional fakes. Writes land in a staging area; the fake tx manager
// promotes them on success and discards them on error, so rollback
// behavior is observable.

type staged interface {
	commit()
	discard()
}

type fakeTx struct {
	parts []staged
}

func (t *fakeTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		for _, p := range t.parts {
			p.discard()
		}
		return err
	}
	for _, p := range t.parts {
		p.commit()
	}
	return nil
}

type fakeSaleRepo struct {
	stagedSales []*Sale
	committed   []*Sale
	failCreate  error
}

func (r *fakeSaleRepo) Create(_ context.Context, s *Sale) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.stagedSales = append(r.stagedSales, s)
	return nil
}

func (r *fakeSaleRepo) GetByID(_ context.Context, tenantID string, saleID id.ID) (*Sale, error) {
	for _, s := range r.committed {
		if s.TenantID == tenantID && s.ID == saleID {
			return s, nil
		}
	}
	return nil, apperror.NewNotFound("sale", saleID)
}

func (r *fakeSaleRepo) List(context.Context, ListFilter) ([]Sale, error) { return nil, nil }

func (r *fakeSaleRepo) commit() {
	r.committed = append(r.committed, r.stagedSales...)
	r.stagedSales = nil
}

func (r *fakeSaleRepo) discard() { r.stagedSales = nil }

type fakeLedgerRepo struct {
	stagedMoves []ledger.Movement
	committed   []ledger.Movement
	failAppend  error
}

func (r *fakeLedgerRepo) Append(_ context.Context, ms []ledger.Movement) error {
	if r.failAppend != nil {
		return r.failAppend
	}
	r.stagedMoves = append(r.stagedMoves, ms...)
	return nil
}

func (r *fakeLedgerRepo) Query(context.Context, ledger.Filter) ([]ledger.Movement, error) {
	return nil, nil
}

func (r *fakeLedgerRepo) SignedSumBefore(context.Context, ledger.Filter, time.Time) (types.Quantity, error) {
	return 0, nil
}

func (r *fakeLedgerRepo) GetByOrigin(context.Context, string, string, id.ID) ([]ledger.Movement, error) {
	return nil, nil
}

func (r *fakeLedgerRepo) MarkSettled(context.Context, string, []id.ID, id.ID) error { return nil }

func (r *fakeLedgerRepo) commit() {
	r.committed = append(r.committed, r.stagedMoves...)
	r.stagedMoves = nil
}

func (r *fakeLedgerRepo) discard() { r.stagedMoves = nil }

type fakeSessionRepo struct {
	sessions map[id.ID]*cashsession.Session
}

func (r *fakeSessionRepo) Create(_ context.Context, s *cashsession.Session) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, tenantID string, sessionID id.ID) (*cashsession.Session, error) {
	s, ok := r.sessions[sessionID]
	if !ok || s.TenantID != tenantID {
		return nil, apperror.NewNotFound("cash session", sessionID)
	}
	return s, nil
}

func (r *fakeSessionRepo) GetByIDForUpdate(ctx context.Context, tenantID string, sessionID id.ID) (*cashsession.Session, error) {
	return r.GetByID(ctx, tenantID, sessionID)
}

func (r *fakeSessionRepo) Update(context.Context, *cashsession.Session) error { return nil }

func (r *fakeSessionRepo) List(context.Context, cashsession.ListFilter) ([]cashsession.Session, error) {
	return nil, nil
}

type fakeCalculator struct {
	result *tax.Result
	err    error
	calls  int
}

func (c *fakeCalculator) Calculate(_ context.Context, req tax.Request) (*tax.Result, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if c.result != nil {
		return c.result, nil
	}
	return &tax.Result{Lines: make([]tax.LineTax, len(req.Lines))}, nil
}

type fakeNumbers struct {
	calls int
}

func (n *fakeNumbers) GetNextNumber(context.Context, numerator.Config, *numerator.Options, time.Time) (string, error) {
	n.calls++
	return "SAL-2026-00001", nil
}

type fakeAudit struct {
	entries []AuditEntry
	fail    error
}

func (a *fakeAudit) Record(_ context.Context, e AuditEntry) error {
	if a.fail != nil {
		return a.fail
	}
	a.entries = append(a.entries, e)
	return nil
}

type bookerFixture struct {
	booker     *Booker
	sales      *fakeSaleRepo
	movements  *fakeLedgerRepo
	sessions   *fakeSessionRepo
	calculator *fakeCalculator
	numbers    *fakeNumbers
	audit      *fakeAudit
	sessionID  id.ID
}

func newBookerFixture(t *testing.T) *bookerFixture {
	t.Helper()

	sales := &fakeSaleRepo{}
	movements := &fakeLedgerRepo{}
	sessions := &fakeSessionRepo{sessions: make(map[id.ID]*cashsession.Session)}
	calculator := &fakeCalculator{}
	numbers := &fakeNumbers{}
	audit := &fakeAudit{}
	txm := &fakeTx{parts: []staged{sales, movements}}

	open := &cashsession.Session{Status: cashsession.StatusOpen}
	open.ID = id.New()
	open.TenantID = "acme"
	sessions.sessions[open.ID] = open

	booker := NewBooker(sales, sessions, ledger.NewService(movements),
		calculator, numbers, txm, audit, logger.Default())

	return &bookerFixture{
		booker:     booker,
		sales:      sales,
		movements:  movements,
		sessions:   sessions,
		calculator: calculator,
		numbers:    numbers,
		audit:      audit,
		sessionID:  open.ID,
	}
}

func bookCtx() context.Context {
	return session.WithSession(context.Background(), &session.Session{
		TenantID: "acme",
		UserID:   id.New().String(),
	})
}

func minor(v types.MinorUnits) *types.MinorUnits { return &v }

// twoLineInput is 2 x 10.00 plus 1 x 5.00 with a 1.00 line discount,
// tendered 30.00: gross 24.00.
func twoLineInput(sessionID id.ID) BookInput {
	return BookInput{
		CashSessionID:  sessionID,
		PaymentMethod:  PaymentCash,
		TenderedAmount: minor(3000),
		Lines: []LineInput{
			{Code: "A1", Name: "Widget", Unit: "un", Quantity: types.NewQuantityFromFloat64(2), UnitPrice: 1000},
			{Code: "B2", Name: "Gadget", Unit: "un", Quantity: types.NewQuantityFromFloat64(1), UnitPrice: 500, LineDiscount: 100},
		},
	}
}

func TestBook_WorkedScenario(t *testing.T) {
	fx := newBookerFixture(t)
	fx.calculator.result = &tax.Result{
		Lines: []tax.LineTax{
			{ByType: map[string]types.MinorUnits{"vat": 150}, Total: 150},
			{ByType: map[string]types.MinorUnits{"vat": 100}, Total: 100},
		},
		TotalTax: 250,
	}

	s, err := fx.booker.Book(bookCtx(), twoLineInput(fx.sessionID))
	require.NoError(t, err)

	require.Equal(t, types.MinorUnits(2400), s.TotalGross)
	require.Equal(t, types.MinorUnits(250), s.TotalTax)
	require.Equal(t, types.MinorUnits(2650), s.TotalNet)
	require.Equal(t, types.MinorUnits(350), s.ChangeDue)
	require.False(t, s.TaxPending)
	require.Equal(t, "SAL-2026-00001", s.Number)

	require.Equal(t, 1, s.Lines[0].LineNo)
	require.Equal(t, 2, s.Lines[1].LineNo)
	require.Equal(t, types.MinorUnits(2000), s.Lines[0].Gross)
	require.Equal(t, types.MinorUnits(400), s.Lines[1].Gross)
	require.Equal(t, types.MinorUnits(150), s.Lines[0].TaxAmount)

	// Exactly one committed cash movement carrying the net total.
	require.Len(t, fx.movements.committed, 1)
	m := fx.movements.committed[0]
	require.Equal(t, ledger.KindReceivable, m.Kind)
	require.Equal(t, types.NewQuantityFromMinorUnits(2650), m.Magnitude)
	require.Equal(t, OriginType, m.OriginType)
	require.Equal(t, s.ID, m.OriginID)
	require.NotNil(t, m.LocationID)
	require.Equal(t, fx.sessionID, *m.LocationID)

	require.Len(t, fx.sales.committed, 1)
	require.Len(t, fx.audit.entries, 1)
	require.Equal(t, "sale.booked", fx.audit.entries[0].Action)
}

func TestBook_TaxFailureIsNonBlocking(t *testing.T) {
	fx := newBookerFixture(t)
	fx.calculator.err = apperror.NewUpstream("tax", errors.New("connection refused"))

	s, err := fx.booker.Book(bookCtx(), twoLineInput(fx.sessionID))
	require.NoError(t, err)

	require.True(t, s.TaxPending)
	require.Equal(t, types.MinorUnits(0), s.TotalTax)
	require.Equal(t, types.MinorUnits(2400), s.TotalNet)
	require.Equal(t, types.MinorUnits(600), s.ChangeDue)
	require.Len(t, fx.sales.committed, 1)
}

func TestBook_TaxLineCountMismatchDiscarded(t *testing.T) {
	fx := newBookerFixture(t)
	fx.calculator.result = &tax.Result{
		Lines:    []tax.LineTax{{Total: 150}},
		TotalTax: 150,
	}

	s, err := fx.booker.Book(bookCtx(), twoLineInput(fx.sessionID))
	require.NoError(t, err)

	// Partial results are discarded, never partially applied.
	require.True(t, s.TaxPending)
	require.Equal(t, types.MinorUnits(0), s.TotalTax)
	for _, line := range s.Lines {
		require.Equal(t, types.MinorUnits(0), line.TaxAmount)
	}
}

func TestBook_InsufficientPayment(t *testing.T) {
	fx := newBookerFixture(t)

	in := twoLineInput(fx.sessionID)
	in.TenderedAmount = minor(2000)

	_, err := fx.booker.Book(bookCtx(), in)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperror.CodeInsufficientPayment, appErr.Code)

	// Terminal before any persistence.
	require.Empty(t, fx.sales.committed)
	require.Empty(t, fx.movements.committed)
	require.Zero(t, fx.numbers.calls)
}

func TestBook_NoTenderSkipsGuard(t *testing.T) {
	fx := newBookerFixture(t)

	in := twoLineInput(fx.sessionID)
	in.TenderedAmount = nil
	in.PaymentMethod = PaymentOnAccount

	s, err := fx.booker.Book(bookCtx(), in)
	require.NoError(t, err)
	require.Equal(t, types.MinorUnits(0), s.ChangeDue)
}

func TestBook_AtomicRollback(t *testing.T) {
	fx := newBookerFixture(t)
	fx.movements.failAppend = apperror.NewPersistence(errors.New("deadlock detected"))

	_, err := fx.booker.Book(bookCtx(), twoLineInput(fx.sessionID))
	require.Error(t, err)

	// Header without movement must never be observable.
	require.Empty(t, fx.sales.committed)
	require.Empty(t, fx.movements.committed)
	require.Empty(t, fx.audit.entries)
}

func TestBook_AuditFailureRollsBack(t *testing.T) {
	fx := newBookerFixture(t)
	fx.audit.fail = apperror.NewPersistence(errors.New("disk full"))

	_, err := fx.booker.Book(bookCtx(), twoLineInput(fx.sessionID))
	require.Error(t, err)
	require.Empty(t, fx.sales.committed)
	require.Empty(t, fx.movements.committed)
}

func TestBook_ValidationHasNoSideEffects(t *testing.T) {
	fx := newBookerFixture(t)

	in := twoLineInput(fx.sessionID)
	in.Lines = nil

	_, err := fx.booker.Book(bookCtx(), in)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperror.CodeValidation, appErr.Code)
	require.Zero(t, fx.calculator.calls)
	require.Zero(t, fx.numbers.calls)
}

func TestBook_NonPositiveQuantityRejected(t *testing.T) {
	fx := newBookerFixture(t)

	in := twoLineInput(fx.sessionID)
	in.Lines[0].Quantity = 0

	_, err := fx.booker.Book(bookCtx(), in)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperror.CodeConstraint, appErr.Code)
}

func TestBook_ClosedSessionConflict(t *testing.T) {
	fx := newBookerFixture(t)
	fx.sessions.sessions[fx.sessionID].Status = cashsession.StatusClosed

	_, err := fx.booker.Book(bookCtx(), twoLineInput(fx.sessionID))
	require.True(t, apperror.IsStateConflict(err))
}

func TestBook_UnknownSessionNotFound(t *testing.T) {
	fx := newBookerFixture(t)

	in := twoLineInput(fx.sessionID)
	in.CashSessionID = id.New()

	_, err := fx.booker.Book(bookCtx(), in)
	require.True(t, apperror.IsNotFound(err))
}

func TestBook_GeneratorMovementsShareTransaction(t *testing.T) {
	fx := newBookerFixture(t)
	location := id.New()
	fx.booker.WithGenerators(NewStockExitGenerator(location))

	productID := id.New()
	in := twoLineInput(fx.sessionID)
	in.Lines[0].ProductID = &productID

	s, err := fx.booker.Book(bookCtx(), in)
	require.NoError(t, err)

	// One cash movement plus one stock exit for the product line.
	require.Len(t, fx.movements.committed, 2)
	var exits int
	for _, m := range fx.movements.committed {
		if m.Kind == ledger.KindExit {
			exits++
			require.Equal(t, productID, m.SubjectID)
			require.Equal(t, location, *m.LocationID)
			require.Equal(t, s.ID, m.OriginID)
		}
	}
	require.Equal(t, 1, exits)
}
