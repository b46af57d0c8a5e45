// Package sale books sales: the document whose commit produces the cash
// movement (and, through generators, stock movements) on the ledger.
package sale

import (
	"context"
	"time"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/entity"
	"fluxo/internal/core/id"
	"fluxo/internal/core/types"
)

// OriginType tags ledger movements produced by sale bookings.
const OriginType = "sale"

type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "cash"
	PaymentCard      PaymentMethod = "card"
	PaymentTransfer  PaymentMethod = "transfer"
	PaymentOnAccount PaymentMethod = "on_account"
)

// Sale is the booked document. Totals are derived during booking and
// never recomputed afterwards.
type Sale struct {
	entity.Document

	CashSessionID id.ID         `db:"cash_session_id" json:"cashSessionId"`
	CustomerID    *id.ID        `db:"customer_id" json:"customerId,omitempty"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod"`

	// IdempotencyKey is the caller-supplied retry key, stored with the
	// header so duplicates are detectable upstream.
	IdempotencyKey string `db:"idempotency_key" json:"idempotencyKey,omitempty"`

	TotalGross     types.MinorUnits `db:"total_gross" json:"totalGross"`
	Discount       types.MinorUnits `db:"discount" json:"discount"`
	TotalTax       types.MinorUnits `db:"total_tax" json:"totalTax"`
	TotalNet       types.MinorUnits `db:"total_net" json:"totalNet"`
	TenderedAmount *types.MinorUnits `db:"tendered_amount" json:"tenderedAmount,omitempty"`
	ChangeDue      types.MinorUnits `db:"change_due" json:"changeDue"`

	// DueDate, when set, lands on the receivable movement. Used for
	// on-account sales.
	DueDate *time.Time `db:"due_date" json:"dueDate,omitempty"`

	// TaxPending marks bookings whose tax annotation failed and needs
	// later reconciliation.
	TaxPending bool `db:"tax_pending" json:"taxPending"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one ordered sale line. LineNo is 1-based and assigned at commit.
type Line struct {
	ID     id.ID `db:"id" json:"id"`
	SaleID id.ID `db:"sale_id" json:"saleId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID    *id.ID          `db:"product_id" json:"productId,omitempty"`
	Code         string          `db:"code" json:"code"`
	Name         string          `db:"name" json:"name"`
	Unit         string          `db:"unit" json:"unit"`
	Quantity     types.Quantity  `db:"quantity" json:"quantity"`
	UnitPrice    types.MinorUnits `db:"unit_price" json:"unitPrice"`
	LineDiscount types.MinorUnits `db:"line_discount" json:"lineDiscount"`
	Gross        types.MinorUnits `db:"gross" json:"gross"`

	// Tax breakdown copied positionally from the calculator response.
	TaxByType map[string]types.MinorUnits `db:"tax_by_type" json:"taxByType,omitempty"`
	TaxAmount types.MinorUnits            `db:"tax_amount" json:"taxAmount"`
}

// gross is quantity times unit price minus the line discount.
func (l Line) gross() types.MinorUnits {
	return l.UnitPrice.MulQuantity(l.Quantity) - l.LineDiscount
}

func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(s.CashSessionID) {
		return apperror.NewValidation("cash session is required").
			WithDetail("field", "cashSessionId")
	}
	if s.PaymentMethod == "" {
		return apperror.NewValidation("payment method is required").
			WithDetail("field", "paymentMethod")
	}
	if len(s.Lines) == 0 {
		return apperror.NewValidation("sale requires at least one line")
	}
	for i, line := range s.Lines {
		if !line.Quantity.IsPositive() {
			return apperror.NewConstraint("line quantity must be positive").
				WithDetail("line", i+1)
		}
		if !line.UnitPrice.IsPositive() {
			return apperror.NewConstraint("line unit price must be positive").
				WithDetail("line", i+1)
		}
		if line.LineDiscount.IsNegative() {
			return apperror.NewConstraint("line discount must not be negative").
				WithDetail("line", i+1)
		}
	}
	if s.Discount.IsNegative() {
		return apperror.NewConstraint("discount must not be negative")
	}
	return nil
}
