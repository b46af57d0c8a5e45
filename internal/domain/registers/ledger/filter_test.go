package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fluxo/internal/core/apperror"
)

func TestCompileFilter_Invalid(t *testing.T) {
	_, err := CompileFilter("kind ==")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestCompileFilter_NonBoolean(t *testing.T) {
	_, err := CompileFilter(`magnitude + 1.0`)
	require.Error(t, err)
}

func TestExprFilter_Match(t *testing.T) {
	movements := stockScenario()
	recv := NewMovement(testTenant, productP, KindReceivable, qty(26.50), day(4)).
		WithOrigin("Sale", productP)
	movements = append(movements, recv)

	tests := []struct {
		name string
		expr string
		want int
	}{
		{"by kind", `kind == "transfer"`, 1},
		{"open titles", `kind == "receivable" && status == "open"`, 1},
		{"by origin", `originType == "Sale"`, 1},
		{"magnitude threshold", `magnitude >= 3.0`, 3},
		{"match all", `true`, 4},
		{"match none", `kind == "settlement"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := CompileFilter(tt.expr)
			require.NoError(t, err)

			got, err := f.Apply(movements)
			require.NoError(t, err)
			require.Len(t, got, tt.want)
		})
	}
}

func TestExprFilter_NilMatchesAll(t *testing.T) {
	var f *ExprFilter
	movements := stockScenario()
	got, err := f.Apply(movements)
	require.NoError(t, err)
	require.Len(t, got, len(movements))
}
