package formula

import (
	"math/rand"
	"time"

	"github.com/openxlgo/xlcore/ref"
	"github.com/openxlgo/xlcore/value"
)

// CellResolver is the host callback the evaluator reads cell and range
// values through (spec.md §4.10). It is synchronous and may itself
// trigger formula evaluation when the referenced cell holds a formula.
type CellResolver interface {
	ResolveCell(sheet string, r ref.Ref) (value.Value, error)
	ResolveRange(sheet string, rg ref.Range) (value.Value, error) // always an Array value
}

// NameResolver resolves a bare identifier (a defined name) to its value.
type NameResolver interface {
	ResolveName(sheet, name string) (value.Value, bool)
}

// FormulaTextResolver is an optional capability a CellResolver may also
// implement, letting ISFORMULA/FORMULATEXT see whether a cell holds a
// formula and what its source text is. Checked with a type assertion
// rather than folded into CellResolver, since most hosts (and all of
// Eval's own recursive calls) never need it.
type FormulaTextResolver interface {
	FormulaText(sheet string, r ref.Ref) (string, bool)
}

// WorkbookInfo is an optional capability exposing workbook-level
// metadata for SHEET/SHEETS/CELL/INFO.
type WorkbookInfo interface {
	SheetNames() []string
	ActiveSheetIndex() int // 1-based
}

// Clock supplies wall-clock time for NOW/TODAY, injected so callers can
// pin it in tests (spec.md §5).
type Clock interface{ Now() time.Time }

// Rand supplies randomness for RAND/RANDARRAY, injected for the same
// reason.
type Rand interface{ Float64() float64 }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// systemRand is the default Rand, a package-level source so repeated
// RAND() calls within one evaluation don't repeat the same draw.
type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }

// DefaultMaxDepth is the recursion-depth guard spec.md §4.10 specifies.
const DefaultMaxDepth = 256

// DefaultMaxIterations and DefaultTolerance bound the Newton-Raphson
// iteration in IRR/XIRR/RATE per spec.md §4.10(10).
const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-7
)

// Context carries everything one evaluation call needs: the current
// sheet (for unqualified references), the cell/name resolvers, the
// injected clock/RNG, and the guards against runaway recursion and
// reference cycles.
type Context struct {
	Sheet string
	Cells CellResolver
	Names NameResolver
	Clock Clock
	Rand  Rand

	MaxDepth      int
	MaxIterations int
	Tolerance     float64

	depth      int
	volatile   bool
	inProgress map[cellKey]bool
}

type cellKey struct {
	sheet string
	col   int
	row   int
}

// NewContext builds a Context with spec.md's default guards. Sheet is
// the name formulas without an explicit sheet qualifier resolve against.
func NewContext(sheet string, cells CellResolver, names NameResolver) *Context {
	return &Context{
		Sheet:         sheet,
		Cells:         cells,
		Names:         names,
		Clock:         systemClock{},
		Rand:          systemRand{},
		MaxDepth:      DefaultMaxDepth,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		inProgress:    map[cellKey]bool{},
	}
}

// Volatile reports whether a volatile function (NOW, TODAY, RAND, ...)
// was invoked anywhere during this evaluation.
func (c *Context) Volatile() bool { return c.volatile }

func (c *Context) markVolatile() { c.volatile = true }

// enterCell marks (sheet,ref) as in-progress, returning false (without
// marking) if it is already in progress — the caller must then produce
// #REF! rather than recursing, per spec.md §9's cycle-detection design.
func (c *Context) enterCell(sheet string, r ref.Ref) bool {
	k := cellKey{sheet, r.Col, r.Row}
	if c.inProgress[k] {
		return false
	}
	c.inProgress[k] = true
	return true
}

func (c *Context) leaveCell(sheet string, r ref.Ref) {
	delete(c.inProgress, cellKey{sheet, r.Col, r.Row})
}

// enterDepth increments recursion depth, returning false once MaxDepth
// is exceeded.
func (c *Context) enterDepth() bool {
	c.depth++
	return c.depth <= c.MaxDepth
}

func (c *Context) leaveDepth() { c.depth-- }
