// Package cashsession manages register sessions: the cash drawer lifecycle
// sales are booked against.
package cashsession

import (
	"time"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/entity"
	"fluxo/internal/core/id"
	"fluxo/internal/core/types"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// DeviationClass grades the gap between declared and expected cash on close.
type DeviationClass string

const (
	DeviationNormal   DeviationClass = "normal"
	DeviationWarning  DeviationClass = "warning"
	DeviationCritical DeviationClass = "critical"
)

// Session is one open-to-close span of a register at a POS point.
type Session struct {
	entity.BaseEntity

	PointID      id.ID     `json:"pointId" db:"point_id"`
	OpenedBy     id.ID     `json:"openedBy" db:"opened_by"`
	OpenedAt     time.Time `json:"openedAt" db:"opened_at"`
	OpeningFloat types.MinorUnits `json:"openingFloat" db:"opening_float"`
	Status       Status    `json:"status" db:"status"`

	// Close fields, zero until the session is closed.
	ClosedBy       *id.ID            `json:"closedBy,omitempty" db:"closed_by"`
	ClosedAt       *time.Time        `json:"closedAt,omitempty" db:"closed_at"`
	ExpectedAmount types.MinorUnits  `json:"expectedAmount" db:"expected_amount"`
	DeclaredAmount types.MinorUnits  `json:"declaredAmount" db:"declared_amount"`
	Deviation      types.MinorUnits  `json:"deviation" db:"deviation"`
	DeviationClass DeviationClass    `json:"deviationClass,omitempty" db:"deviation_class"`
}

func (s *Session) Validate() error {
	if s.TenantID == "" {
		return apperror.NewValidation("tenant is required")
	}
	if id.IsNil(s.PointID) {
		return apperror.NewValidation("point id is required")
	}
	if s.OpeningFloat < 0 {
		return apperror.NewConstraint("opening float must not be negative")
	}
	return nil
}

func (s *Session) IsOpen() bool {
	return s.Status == StatusOpen
}

// classify grades a deviation against the warning and critical thresholds.
func classify(deviation, warning, critical types.MinorUnits) DeviationClass {
	abs := deviation
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= critical:
		return DeviationCritical
	case abs >= warning:
		return DeviationWarning
	default:
		return DeviationNormal
	}
}
