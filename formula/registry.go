package formula

import (
	"strings"

	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

// Flag is the bitset of function dispatch behaviors spec.md §4.10(5)
// names.
type Flag int

const (
	FlagNone Flag = 0
	// Volatile functions (RAND, NOW, TODAY, ...) mark the context volatile
	// whenever invoked.
	FlagVolatile Flag = 1 << iota
	// TakesRangeRef disables pre-evaluation of range arguments to value
	// arrays, so functions like COLUMN/ROWS see the reference shape
	// rather than its contents.
	FlagTakesRangeRef
	// ShortCircuits marks functions whose body decides which argument
	// expressions to evaluate (IF, AND, OR, IFS, IFERROR, SWITCH, CHOOSE).
	FlagShortCircuits
	// Stub marks the closed stub set of spec.md §6: recognised, arity
	// unchecked, always #CALC!, formula text preserved verbatim on
	// round-trip.
	FlagStub
)

// Body is a function's implementation. args are unevaluated AST nodes so
// ShortCircuits functions can choose which to evaluate; ordinary
// functions call EvalArgs to get a []value.Value up front.
type Body func(ctx *Context, args []Node) value.Value

// Entry is one function's registry row.
type Entry struct {
	Name               string
	MinArity, MaxArity int // MaxArity < 0 means unbounded
	Flags              Flag
	Body               Body
}

// Registry is the case-insensitive name -> Entry dispatch table spec.md
// §4.10(5) and §9 describe: "a name-keyed registry keeps the 470-entry
// dispatch out of a single file and makes stubs uniform."
type Registry struct {
	entries map[string]*Entry
}

// DefaultRegistry is the function table every Context dispatches
// through; functions_*.go populate it at package init.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry { return &Registry{entries: map[string]*Entry{}} }

func (r *Registry) Register(e *Entry) {
	r.entries[strings.ToUpper(e.Name)] = e
}

func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.entries[strings.ToUpper(name)]
	return e, ok
}

// EvalArgs evaluates every argument node to a value.Value, in source
// order left-to-right per spec.md §5.
func EvalArgs(ctx *Context, args []Node) []value.Value {
	out := make([]value.Value, len(args))
	for i, a := range args {
		out[i] = Eval(ctx, a)
	}
	return out
}

// FirstError returns the first (source-order) error among vs, or the
// zero Value and false if none are errors — implementing spec.md §7's
// "leftmost error wins" propagation preference.
func FirstError(vs ...value.Value) (value.Value, bool) {
	for _, v := range vs {
		if v.IsError() {
			return v, true
		}
	}
	return value.Value{}, false
}

func evalCall(ctx *Context, n FuncCall) value.Value {
	entry, ok := DefaultRegistry.Lookup(n.Name)
	if !ok {
		return value.ErrorValue(xlerrors.KindName)
	}
	if entry.MinArity >= 0 && len(n.Args) < entry.MinArity {
		return value.ErrorValue(xlerrors.KindValue)
	}
	if entry.MaxArity >= 0 && len(n.Args) > entry.MaxArity {
		return value.ErrorValue(xlerrors.KindValue)
	}
	if entry.Flags&FlagVolatile != 0 {
		ctx.markVolatile()
	}
	if entry.Flags&FlagStub != 0 {
		return value.ErrorValue(xlerrors.KindCalc)
	}
	return entry.Body(ctx, n.Args)
}

// flattenNumbers collects every numeric-coercible scalar out of vs,
// descending into arrays, skipping text/empty/bool per the many
// AVERAGE/SUM-family "ignore non-numeric" rules — except that an error
// anywhere aborts with that error (leftmost wins).
func flattenNumbers(vs []value.Value) ([]float64, value.Value, bool) {
	var out []float64
	var ferr value.Value
	hasErr := false
	var walk func(v value.Value)
	walk = func(v value.Value) {
		if hasErr {
			return
		}
		switch v.Kind {
		case value.KindArray:
			for _, c := range v.Cells {
				walk(c)
			}
		case value.KindNumber, value.KindDate:
			out = append(out, v.Num)
		case value.KindError:
			ferr = v
			hasErr = true
		case value.KindBool, value.KindText, value.KindEmpty:
			// ignored by aggregate functions per Excel convention
		}
	}
	for _, v := range vs {
		walk(v)
	}
	if hasErr {
		return nil, ferr, false
	}
	return out, value.Value{}, true
}

// flattenAll is like flattenNumbers but keeps every scalar (including
// text/bool/empty), used by COUNTA.
func flattenAll(vs []value.Value) ([]value.Value, value.Value, bool) {
	var out []value.Value
	var ferr value.Value
	hasErr := false
	var walk func(v value.Value)
	walk = func(v value.Value) {
		if hasErr {
			return
		}
		if v.Kind == value.KindArray {
			for _, c := range v.Cells {
				walk(c)
			}
			return
		}
		if v.Kind == value.KindError {
			ferr = v
			hasErr = true
			return
		}
		out = append(out, v)
	}
	for _, v := range vs {
		walk(v)
	}
	if hasErr {
		return nil, ferr, false
	}
	return out, value.Value{}, true
}
