package sale

import (
	"context"
	"time"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/entity"
	"fluxo/internal/core/id"
	"fluxo/internal/core/session"
	"fluxo/internal/core/tx"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/cashsession"
	"fluxo/internal/domain/registers/ledger"
	"fluxo/internal/domain/tax"
	"fluxo/pkg/logger"
	"fluxo/pkg/numerator"
)

const defaultTaxTimeout = 3 * time.Second

// LineInput is one requested sale line.
type LineInput struct {
	ProductID    *id.ID           `json:"productId,omitempty"`
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	Unit         string           `json:"unit"`
	Quantity     types.Quantity   `json:"quantity"`
	UnitPrice    types.MinorUnits `json:"unitPrice"`
	LineDiscount types.MinorUnits `json:"lineDiscount"`
}

// BookInput is a booking request. Tenant and user come from the session
// context, never from the payload.
type BookInput struct {
	CashSessionID  id.ID             `json:"cashSessionId"`
	CustomerID     *id.ID            `json:"customerId,omitempty"`
	PaymentMethod  PaymentMethod     `json:"paymentMethod"`
	Date           time.Time         `json:"date,omitempty"`
	Comment        string            `json:"comment,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
	Discount       types.MinorUnits  `json:"discount"`
	TenderedAmount *types.MinorUnits `json:"tenderedAmount,omitempty"`
	DueDate        *time.Time        `json:"dueDate,omitempty"`
	Lines          []LineInput       `json:"lines"`

	OriginRegion      string `json:"originRegion,omitempty"`
	DestinationRegion string `json:"destinationRegion,omitempty"`
	OperationNatureID string `json:"operationNatureId,omitempty"`
}

// MovementGenerator produces additional ledger movements committed in the
// same transaction as the sale. Used to wire stock effects to the booking.
type MovementGenerator interface {
	Generate(ctx context.Context, s *Sale) ([]ledger.Movement, error)
}

// AuditEntry is the immutable record written alongside each booking.
type AuditEntry struct {
	TenantID   string
	Action     string
	OriginType string
	OriginID   id.ID
	Actor      string
	Payload    any
	RecordedAt time.Time
}

type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// NumberSource hands out document numbers. *numerator.Service satisfies it.
type NumberSource interface {
	GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error)
}

// Booker runs the booking protocol. Everything before the commit step is
// side-effect-free; the commit step is one transaction.
type Booker struct {
	sales      Repository
	sessions   cashsession.Repository
	movements  *ledger.Service
	calculator tax.Calculator
	numbers    NumberSource
	txManager  tx.Manager
	audit      AuditLog
	generators []MovementGenerator
	logger     *logger.Logger
	taxTimeout time.Duration
}

func NewBooker(
	sales Repository,
	sessions cashsession.Repository,
	movements *ledger.Service,
	calculator tax.Calculator,
	numbers NumberSource,
	txManager tx.Manager,
	audit AuditLog,
	log *logger.Logger,
) *Booker {
	return &Booker{
		sales:      sales,
		sessions:   sessions,
		movements:  movements,
		calculator: calculator,
		numbers:    numbers,
		txManager:  txManager,
		audit:      audit,
		logger:     log.WithComponent("sale.booker"),
		taxTimeout: defaultTaxTimeout,
	}
}

// WithGenerators registers movement generators run inside the booking
// transaction.
func (b *Booker) WithGenerators(gens ...MovementGenerator) *Booker {
	b.generators = append(b.generators, gens...)
	return b
}

// Book runs the protocol: validate, price, tax-annotate, finalize, commit.
// Tax annotation is best effort; its failure marks the sale tax-pending
// instead of aborting. The caller's deadline is honored up to the commit,
// which always runs to completion or rollback.
func (b *Booker) Book(ctx context.Context, in BookInput) (*Sale, error) {
	tenantID := session.TenantID(ctx)

	// Validate.
	s := b.buildSale(ctx, tenantID, in)
	if err := s.Validate(ctx); err != nil {
		return nil, err
	}
	sess, err := b.sessions.GetByID(ctx, tenantID, in.CashSessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsOpen() {
		return nil, apperror.NewStateConflict("cash session is not open").
			WithDetail("session_id", sess.ID).
			WithDetail("status", sess.Status)
	}

	// Price.
	b.price(s)

	// Tax-annotate, before the transaction opens. Network latency must
	// not hold row locks.
	b.annotateTax(ctx, s, in)

	// Finalize.
	if err := b.finalize(s, in.TenderedAmount); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	number, err := b.numbers.GetNextNumber(ctx, numerator.DefaultConfig("SAL"), nil, s.Date)
	if err != nil {
		return nil, apperror.NewPersistence(err)
	}
	s.Number = number

	// Commit.
	err = b.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := b.sales.Create(ctx, s); err != nil {
			return err
		}

		movements := []ledger.Movement{b.cashMovement(s)}
		for _, gen := range b.generators {
			extra, err := gen.Generate(ctx, s)
			if err != nil {
				return err
			}
			movements = append(movements, extra...)
		}
		if err := b.movements.Record(ctx, movements); err != nil {
			return err
		}

		return b.audit.Record(ctx, AuditEntry{
			TenantID:   tenantID,
			Action:     "sale.booked",
			OriginType: OriginType,
			OriginID:   s.ID,
			Actor:      session.UserID(ctx),
			Payload:    s,
			RecordedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	b.logger.WithContext(ctx).Infow("sale booked",
		"sale_id", s.ID,
		"number", s.Number,
		"total_net", s.TotalNet,
		"tax_pending", s.TaxPending)
	return s, nil
}

func (b *Booker) buildSale(ctx context.Context, tenantID string, in BookInput) *Sale {
	doc := entity.NewDocument(tenantID)
	if !in.Date.IsZero() {
		doc.Date = in.Date.UTC()
	}
	doc.Comment = in.Comment
	doc.CreatedBy = session.UserID(ctx)

	s := &Sale{
		Document:       doc,
		CashSessionID:  in.CashSessionID,
		CustomerID:     in.CustomerID,
		PaymentMethod:  in.PaymentMethod,
		IdempotencyKey: in.IdempotencyKey,
		Discount:       in.Discount,
		TenderedAmount: in.TenderedAmount,
		DueDate:        in.DueDate,
		Lines:          make([]Line, len(in.Lines)),
	}
	for i, li := range in.Lines {
		s.Lines[i] = Line{
			ID:           id.New(),
			SaleID:       s.ID,
			ProductID:    li.ProductID,
			Code:         li.Code,
			Name:         li.Name,
			Unit:         li.Unit,
			Quantity:     li.Quantity,
			UnitPrice:    li.UnitPrice,
			LineDiscount: li.LineDiscount,
		}
	}
	return s
}

// price computes per-line gross and the document gross. Line numbers are
// assigned here, 1-based in input order.
func (b *Booker) price(s *Sale) {
	var gross types.MinorUnits
	for i := range s.Lines {
		s.Lines[i].LineNo = i + 1
		s.Lines[i].Gross = s.Lines[i].gross()
		gross += s.Lines[i].Gross
	}
	s.TotalGross = gross
}

// annotateTax merges calculator results into lines by position. Any
// failure, including a line-count mismatch, leaves every tax field zero
// and flags the sale for later reconciliation.
func (b *Booker) annotateTax(ctx context.Context, s *Sale, in BookInput) {
	taxCtx, cancel := context.WithTimeout(ctx, b.taxTimeout)
	defer cancel()

	req := tax.Request{
		OriginRegion:      in.OriginRegion,
		DestinationRegion: in.DestinationRegion,
		OperationNatureID: in.OperationNatureID,
		Lines:             make([]tax.RequestLine, len(s.Lines)),
	}
	for i, line := range s.Lines {
		req.Lines[i] = tax.RequestLine{
			Code:         line.Code,
			Name:         line.Name,
			Unit:         line.Unit,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			LineDiscount: line.LineDiscount,
		}
	}

	result, err := b.calculator.Calculate(taxCtx, req)
	if err != nil {
		s.TaxPending = true
		b.logger.WithContext(ctx).Warnw("tax calculation failed, booking proceeds tax-pending", "error", err)
		return
	}
	if len(result.Lines) != len(s.Lines) {
		s.TaxPending = true
		b.logger.WithContext(ctx).Warnw("tax response line count mismatch, discarding",
			"want", len(s.Lines), "got", len(result.Lines))
		return
	}

	var total types.MinorUnits
	for i, lt := range result.Lines {
		s.Lines[i].TaxByType = lt.ByType
		s.Lines[i].TaxAmount = lt.Total
		total += lt.Total
	}
	s.TotalTax = total
}

// finalize derives the net total and change due, guarding the tendered
// amount. Runs before any persistence.
func (b *Booker) finalize(s *Sale, tendered *types.MinorUnits) error {
	s.TotalNet = s.TotalGross - s.Discount + s.TotalTax
	if tendered != nil {
		if *tendered < s.TotalNet {
			return apperror.NewInsufficientPayment(
				(*tendered).ToMoney().StringFixed(2),
				s.TotalNet.ToMoney().StringFixed(2),
			)
		}
		s.ChangeDue = *tendered - s.TotalNet
	}
	return nil
}

// cashMovement is the single receivable the booking puts on the cash
// ledger. It carries the cash session as its location so session close
// can fold the drawer flow.
func (b *Booker) cashMovement(s *Sale) ledger.Movement {
	subject := s.ID
	if s.CustomerID != nil {
		subject = *s.CustomerID
	}
	m := ledger.NewMovement(s.TenantID, subject, ledger.KindReceivable,
		types.NewQuantityFromMinorUnits(s.TotalNet), s.Date).
		WithLocation(s.CashSessionID).
		WithOrigin(OriginType, s.ID)
	if s.DueDate != nil {
		m = m.WithDueDate(*s.DueDate)
	}
	return m
}
