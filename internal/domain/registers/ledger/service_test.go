package ledger

import (
	"context"
	"sort"
	"testing"
	"time"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/core/types"
)

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	movements []Movement
	nextSeq   int64
	failNext  error
}

func (r *memRepo) Append(_ context.Context, movements []Movement) error {
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	for _, m := range movements {
		r.nextSeq++
		m.Seq = r.nextSeq
		m.RecordedAt = time.Now().UTC()
		r.movements = append(r.movements, m)
	}
	return nil
}

func (r *memRepo) Query(_ context.Context, filter Filter) ([]Movement, error) {
	var out []Movement
	for _, m := range r.movements {
		if m.TenantID != filter.TenantID {
			continue
		}
		if filter.SubjectID != nil && m.SubjectID != *filter.SubjectID {
			continue
		}
		if filter.From != nil && m.OccurredAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !m.OccurredAt.Before(*filter.To) {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		if len(filter.Kinds) > 0 && !containsKind(filter.Kinds, m.Kind) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func (r *memRepo) SignedSumBefore(ctx context.Context, filter Filter, asOf time.Time) (types.Quantity, error) {
	ms, err := r.Query(ctx, filter)
	if err != nil {
		return 0, err
	}
	rule := CashSign()
	if len(ms) > 0 && ms[0].Kind.Ledger() == TypeStock {
		rule = StockSign(filter.Location)
	}
	var sum types.Quantity
	for _, m := range ms {
		if m.OccurredAt.Before(asOf) {
			sum += rule(m)
		}
	}
	return sum, nil
}

func (r *memRepo) GetByOrigin(_ context.Context, tenantID, originType string, originID id.ID) ([]Movement, error) {
	var out []Movement
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.OriginType == originType && m.OriginID == originID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memRepo) MarkSettled(_ context.Context, tenantID string, lineIDs []id.ID, settlementID id.ID) error {
	for i := range r.movements {
		for _, lid := range lineIDs {
			if r.movements[i].TenantID == tenantID && r.movements[i].LineID == lid {
				r.movements[i].Status = StatusSettled
			}
		}
	}
	return nil
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}

func TestRecord_RejectsNonPositiveMagnitude(t *testing.T) {
	svc := NewService(&memRepo{})
	m := NewMovement(testTenant, productP, KindEntry, 0, day(1)).WithLocation(locL)

	err := svc.Record(context.Background(), []Movement{m})
	if err == nil {
		t.Fatal("expected constraint error")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeConstraint {
		t.Errorf("want CONSTRAINT_ERROR, got %v", err)
	}
}

func TestRecord_RejectsMissingOccurredAt(t *testing.T) {
	svc := NewService(&memRepo{})
	m := Movement{
		LineID:    id.New(),
		TenantID:  testTenant,
		SubjectID: productP,
		Kind:      KindEntry,
		Magnitude: qty(1),
	}

	err := svc.Record(context.Background(), []Movement{m})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeConstraint {
		t.Errorf("want CONSTRAINT_ERROR for missing occurred_at, got %v", err)
	}
}

func TestRecord_RejectsTransferWithoutLocations(t *testing.T) {
	svc := NewService(&memRepo{})
	m := NewMovement(testTenant, productP, KindTransfer, qty(2), day(1))

	err := svc.Record(context.Background(), []Movement{m})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeValidation {
		t.Errorf("want VALIDATION_ERROR for transfer without locations, got %v", err)
	}
}

func TestRecord_AtomicValidation(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)

	good := NewMovement(testTenant, productP, KindEntry, qty(5), day(1)).WithLocation(locL)
	bad := NewMovement(testTenant, productP, KindExit, 0, day(1)).WithLocation(locL)

	err := svc.Record(context.Background(), []Movement{good, bad})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(repo.movements) != 0 {
		t.Errorf("no movement may be appended when any fails validation, got %d", len(repo.movements))
	}
}

func TestQuery_OrderedByOccurredAtThenSeq(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	// Two movements sharing occurred_at: insertion order must break the tie.
	first := NewMovement(testTenant, productP, KindEntry, qty(1), day(2)).WithLocation(locL)
	second := NewMovement(testTenant, productP, KindExit, qty(1), day(2)).WithLocation(locL)
	earlier := NewMovement(testTenant, productP, KindEntry, qty(1), day(1)).WithLocation(locL)

	if err := svc.Record(ctx, []Movement{first, second, earlier}); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := svc.Query(ctx, Filter{TenantID: testTenant, SubjectID: &productP})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 movements, got %d", len(got))
	}
	if !got[0].OccurredAt.Equal(day(1)) {
		t.Errorf("day-1 movement must come first")
	}
	if got[1].LineID != first.LineID || got[2].LineID != second.LineID {
		t.Errorf("same-date movements must replay in insertion order")
	}
}

func TestSettle_FlipsTitleStatus(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	title := NewMovement(testTenant, productP, KindReceivable, qty(100), day(1))
	if err := svc.Record(ctx, []Movement{title}); err != nil {
		t.Fatalf("record title: %v", err)
	}

	settlement := NewMovement(testTenant, productP, KindSettlement, qty(100), day(5))
	if err := svc.Settle(ctx, settlement, []id.ID{title.LineID}); err != nil {
		t.Fatalf("settle: %v", err)
	}

	open := StatusOpen
	got, _ := svc.Query(ctx, Filter{TenantID: testTenant, Status: &open})
	for _, m := range got {
		if m.LineID == title.LineID {
			t.Error("settled title still reported open")
		}
	}
}

func TestByOrigin_ReturnsBookingFootprint(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	saleID := id.New()
	otherID := id.New()
	booked := []Movement{
		NewMovement(testTenant, productP, KindExit, qty(2), day(1)).
			WithLocation(locL).WithOrigin("sale", saleID),
		NewMovement(testTenant, productP, KindReceivable, qty(50), day(1)).
			WithOrigin("sale", saleID),
	}
	unrelated := NewMovement(testTenant, productP, KindEntry, qty(9), day(2)).
		WithLocation(locL).WithOrigin("sale", otherID)

	if err := svc.Record(ctx, append(booked, unrelated)); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := svc.ByOrigin(ctx, testTenant, "sale", saleID)
	if err != nil {
		t.Fatalf("by origin: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 movements, got %d", len(got))
	}
	for _, m := range got {
		if m.OriginID != saleID {
			t.Errorf("movement %s belongs to origin %s", m.LineID, m.OriginID)
		}
	}

	if _, err := svc.ByOrigin(ctx, "", "sale", saleID); err == nil {
		t.Error("expected validation error for empty tenant")
	}
}
