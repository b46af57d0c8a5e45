package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"fluxo/internal/core/session"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences upsert: every call bumps the
// counter for the given key by the supplied increment (1 for strict).
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{values: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	key, _ := args[0].(string)
	var increment int64 = 1
	if len(args) == 2 {
		if v, ok := args[1].(int64); ok {
			increment = v
		}
	}
	m.values[key] += increment
	return &mockRow{val: m.values[key]}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("SAL")
	period := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "SAL-2026-00001" {
		t.Errorf("expected SAL-2026-00001, got %s", num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "SAL-2026-00002" {
		t.Errorf("expected SAL-2026-00002, got %s", num)
	}
}

func TestGetNextNumber_TenantScopedKeys(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	cfg := DefaultConfig("SAL")
	period := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	ctxA := session.WithSession(context.Background(), &session.Session{TenantID: "acme"})
	ctxB := session.WithSession(context.Background(), &session.Session{TenantID: "globex"})

	numA, err := svc.GetNextNumber(ctxA, cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	numB, err := svc.GetNextNumber(ctxB, cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Tenants do not share a sequence: both get number 1.
	if numA != "SAL-2026-00001" || numB != "SAL-2026-00001" {
		t.Errorf("expected independent sequences, got %s and %s", numA, numB)
	}
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("ORD")
	period := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	opts := &Options{
		Strategy:  StrategyCached,
		RangeSize: 10,
	}

	num, err := svc.GetNextNumber(ctx, cfg, opts, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-2026-00001" {
		t.Errorf("expected ORD-2026-00001, got %s", num)
	}
	if q.calls != 1 {
		t.Errorf("expected one DB call for the range, got %d", q.calls)
	}

	// Second call must come from the cached range without touching DB.
	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-2026-00002" {
		t.Errorf("expected ORD-2026-00002, got %s", num)
	}
	if q.calls != 1 {
		t.Errorf("expected no extra DB call, got %d", q.calls)
	}

	// Exhaust the range; the next call allocates 11..20.
	for i := 0; i < 8; i++ {
		_, _ = svc.GetNextNumber(ctx, cfg, opts, period)
	}
	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-2026-00011" {
		t.Errorf("expected ORD-2026-00011, got %s", num)
	}
	if q.calls != 2 {
		t.Errorf("expected second range allocation, got %d calls", q.calls)
	}
}

func TestParseNumber(t *testing.T) {
	if got := ParseNumber("SAL-2026-00042"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := ParseNumber("garbage"); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}
