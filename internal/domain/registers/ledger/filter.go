package ledger

import (
	"github.com/google/cel-go/cel"

	"fluxo/internal/core/apperror"
)

// ExprFilter is a compiled inclusion filter over movement attributes.
// Reporting callers pass arbitrary expressions such as
//
//	kind == "receivable" && status == "open"
//	originType == "Sale" && magnitude > 100.0
//
// compiled once per query and evaluated per movement.
type ExprFilter struct {
	source  string
	program cel.Program
}

var filterEnv *cel.Env

func init() {
	env, err := cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("subjectId", cel.StringType),
		cel.Variable("locationId", cel.StringType),
		cel.Variable("counterLocationId", cel.StringType),
		cel.Variable("originType", cel.StringType),
		cel.Variable("magnitude", cel.DoubleType),
	)
	if err != nil {
		panic(err)
	}
	filterEnv = env
}

// CompileFilter compiles an inclusion expression. Returns a validation
// error for syntax errors or non-boolean expressions.
func CompileFilter(expr string) (*ExprFilter, error) {
	ast, iss := filterEnv.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewValidation("invalid filter expression").
			WithDetail("expression", expr).
			WithDetail("error", iss.Err().Error())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperror.NewValidation("filter expression must be boolean").
			WithDetail("expression", expr).
			WithDetail("type", ast.OutputType().String())
	}

	prg, err := filterEnv.Program(ast)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("expression", expr)
	}

	return &ExprFilter{source: expr, program: prg}, nil
}

// Source returns the original expression text.
func (f *ExprFilter) Source() string {
	return f.source
}

// Match evaluates the filter against a movement.
func (f *ExprFilter) Match(m Movement) (bool, error) {
	locationID := ""
	if m.LocationID != nil {
		locationID = m.LocationID.String()
	}
	counterID := ""
	if m.CounterLocationID != nil {
		counterID = m.CounterLocationID.String()
	}

	out, _, err := f.program.Eval(map[string]any{
		"kind":              string(m.Kind),
		"status":            string(m.Status),
		"subjectId":         m.SubjectID.String(),
		"locationId":        locationID,
		"counterLocationId": counterID,
		"originType":        m.OriginType,
		"magnitude":         m.Magnitude.Float64(),
	})
	if err != nil {
		return false, apperror.NewValidation("filter evaluation failed").
			WithDetail("expression", f.source).
			WithDetail("error", err.Error())
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, apperror.NewValidation("filter expression must be boolean").
			WithDetail("expression", f.source)
	}
	return matched, nil
}

// Apply returns the subsequence of movements matching the filter,
// preserving input order. A nil filter matches everything.
func (f *ExprFilter) Apply(movements []Movement) ([]Movement, error) {
	if f == nil {
		return movements, nil
	}
	out := make([]Movement, 0, len(movements))
	for _, m := range movements {
		ok, err := f.Match(m)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m)
		}
	}
	return out, nil
}
