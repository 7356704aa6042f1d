package formula

import (
	"math"
	"testing"
	"time"

	"github.com/openxlgo/xlcore/ref"
	"github.com/openxlgo/xlcore/value"
)

// fakeSheet is a minimal CellResolver/NameResolver/FormulaTextResolver
// backed by an in-memory map, for evaluator tests — the teacher has no
// formula engine to pattern a test fixture on, so this follows the
// plain table-driven `testing` style used throughout the pack.
type fakeSheet struct {
	cells   map[string]value.Value
	formula map[string]string
	names   map[string]value.Value
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{cells: map[string]value.Value{}, formula: map[string]string{}, names: map[string]value.Value{}}
}

func (f *fakeSheet) set(sheet, addr string, v value.Value) {
	f.cells[sheet+"!"+addr] = v
}

func (f *fakeSheet) ResolveCell(sheet string, r ref.Ref) (value.Value, error) {
	v, ok := f.cells[sheet+"!"+r.String()]
	if !ok {
		return value.Empty(), nil
	}
	return v, nil
}

func (f *fakeSheet) ResolveRange(sheet string, rg ref.Range) (value.Value, error) {
	n := rg.Normalize()
	rows := n.Height()
	cols := n.Width()
	cells := make([]value.Value, 0, rows*cols)
	for row := n.TopLeft.Row; row <= n.BottomRight.Row; row++ {
		for col := n.TopLeft.Col; col <= n.BottomRight.Col; col++ {
			v, _ := f.ResolveCell(sheet, ref.Ref{Col: col, Row: row})
			cells = append(cells, v)
		}
	}
	return value.Array(rows, cols, cells), nil
}

func (f *fakeSheet) ResolveName(sheet, name string) (value.Value, bool) {
	v, ok := f.names[name]
	return v, ok
}

func (f *fakeSheet) FormulaText(sheet string, r ref.Ref) (string, bool) {
	s, ok := f.formula[sheet+"!"+r.String()]
	return s, ok
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func evalString(t *testing.T, ctx *Context, formula string) value.Value {
	t.Helper()
	n, err := Parse(formula)
	if err != nil {
		t.Fatalf("Parse(%q): %v", formula, err)
	}
	return Eval(ctx, n)
}

func TestEvalArithmeticPrecedence(t *testing.T) {
	sheet := newFakeSheet()
	ctx := NewContext("Sheet1", sheet, sheet)
	cases := map[string]float64{
		"-2^2":        4,
		"2+3*4":       14,
		"(2+3)*4":     20,
		"2^3^2":       512, // right-associative
		"10%":         0.1,
	}
	for formula, want := range cases {
		got := evalString(t, ctx, formula)
		if got.Kind != value.KindNumber || got.Num != want {
			t.Errorf("%s = %+v, want %v", formula, got, want)
		}
	}
}

func TestEvalReferencesAndRanges(t *testing.T) {
	sheet := newFakeSheet()
	sheet.set("Sheet1", "A1", value.Number(1))
	sheet.set("Sheet1", "A2", value.Number(2))
	sheet.set("Sheet1", "A3", value.Number(3))
	ctx := NewContext("Sheet1", sheet, sheet)

	got := evalString(t, ctx, "SUM(A1:A3)")
	if got.Num != 6 {
		t.Errorf("SUM(A1:A3) = %+v, want 6", got)
	}
}

func TestEvalCycleDetection(t *testing.T) {
	sheet := newFakeSheet()
	ctx := NewContext("Sheet1", sheet, sheet)
	// A1 references itself indirectly via the cycle guard: entering A1
	// twice in the same evaluation must yield #REF!, not infinite recursion.
	ctx.enterCell("Sheet1", ref.Ref{Col: 1, Row: 1})
	got := evalString(t, ctx, "A1")
	if !got.IsError() {
		t.Errorf("expected #REF! on cycle re-entry, got %+v", got)
	}
}

func TestEvalLogical(t *testing.T) {
	sheet := newFakeSheet()
	ctx := NewContext("Sheet1", sheet, sheet)
	got := evalString(t, ctx, `IF(1<2,"yes","no")`)
	if got.Kind != value.KindText || got.Str != "yes" {
		t.Errorf("IF = %+v", got)
	}
	got = evalString(t, ctx, "AND(TRUE(),1=1,2>1)")
	if got.Kind != value.KindBool || !got.Bool {
		t.Errorf("AND = %+v", got)
	}
}

func TestEvalCriteriaFamily(t *testing.T) {
	sheet := newFakeSheet()
	sheet.set("Sheet1", "A1", value.Number(1))
	sheet.set("Sheet1", "A2", value.Number(5))
	sheet.set("Sheet1", "A3", value.Number(10))
	ctx := NewContext("Sheet1", sheet, sheet)
	got := evalString(t, ctx, `COUNTIF(A1:A3,">3")`)
	if got.Num != 2 {
		t.Errorf("COUNTIF = %+v, want 2", got)
	}
	got = evalString(t, ctx, `SUMIF(A1:A3,">3")`)
	if got.Num != 15 {
		t.Errorf("SUMIF = %+v, want 15", got)
	}
}

func TestEvalVLookupExactAndApprox(t *testing.T) {
	sheet := newFakeSheet()
	rows := []struct {
		addr string
		val  value.Value
	}{
		{"A1", value.Number(1)}, {"B1", value.Text("one")},
		{"A2", value.Number(2)}, {"B2", value.Text("two")},
		{"A3", value.Number(3)}, {"B3", value.Text("three")},
	}
	for _, r := range rows {
		sheet.set("Sheet1", r.addr, r.val)
	}
	ctx := NewContext("Sheet1", sheet, sheet)
	got := evalString(t, ctx, `VLOOKUP(2,A1:B3,2,FALSE())`)
	if got.Kind != value.KindText || got.Str != "two" {
		t.Errorf("VLOOKUP exact = %+v", got)
	}
	got = evalString(t, ctx, `VLOOKUP(2.5,A1:B3,2,TRUE())`)
	if got.Kind != value.KindText || got.Str != "two" {
		t.Errorf("VLOOKUP approx = %+v", got)
	}
}

func TestEvalDateSerialRoundTrip(t *testing.T) {
	sheet := newFakeSheet()
	ctx := NewContext("Sheet1", sheet, sheet)
	y := evalString(t, ctx, "YEAR(DATE(2024,3,15))")
	if y.Num != 2024 {
		t.Errorf("YEAR(DATE(2024,3,15)) = %+v", y)
	}
	m := evalString(t, ctx, "MONTH(DATE(2024,3,15))")
	if m.Num != 3 {
		t.Errorf("MONTH = %+v", m)
	}
	d := evalString(t, ctx, "DAY(DATE(2024,3,15))")
	if d.Num != 15 {
		t.Errorf("DAY = %+v", d)
	}
}

func TestDateSerialLeapYearBug(t *testing.T) {
	sheet := newFakeSheet()
	ctx := NewContext("Sheet1", sheet, sheet)
	// Excel's serial 60 is the fictitious Feb 29 1900.
	y := evalString(t, ctx, "YEAR(DATE(1900,3,1))")
	if y.Num != 1900 {
		t.Errorf("YEAR(DATE(1900,3,1)) = %+v", y)
	}
	d := evalString(t, ctx, "DAY(DATE(1900,3,1))")
	if d.Num != 1 {
		t.Errorf("DAY(DATE(1900,3,1)) = %+v, want 1", d)
	}
}

func TestFinancialIdentityPMT(t *testing.T) {
	sheet := newFakeSheet()
	ctx := NewContext("Sheet1", sheet, sheet)
	got := evalString(t, ctx, "PMT(0.05/12,60,-10000)")
	if got.Kind != value.KindNumber || got.Num <= 0 {
		t.Errorf("PMT = %+v, want a positive payment", got)
	}
	pv := evalString(t, ctx, "PV(0.05/12,60,PMT(0.05/12,60,-10000))")
	if pv.Kind != value.KindNumber || math.Abs(pv.Num-10000) > 1e-6 {
		t.Errorf("PV(rate,n,PMT(rate,n,-10000)) = %+v, want 10000", pv)
	}
}

func TestFormulaParseIdempotence(t *testing.T) {
	cases := []string{
		"1+2*3",
		"SUM(A1:A3)",
		`IF(A1>0,"pos","neg")`,
		"Sheet2!A1:B2",
	}
	for _, src := range cases {
		n, err := Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		out := formatNode(n)
		n2, err := Parse(out)
		if err != nil {
			t.Fatalf("re-parse of %q: %v", out, err)
		}
		if formatNode(n2) != out {
			t.Errorf("not idempotent: %q -> %q -> %q", src, out, formatNode(n2))
		}
	}
}

func TestUnknownFunctionNameError(t *testing.T) {
	sheet := newFakeSheet()
	ctx := NewContext("Sheet1", sheet, sheet)
	got := evalString(t, ctx, "NOSUCHFUNC(1)")
	if !got.IsError() {
		t.Errorf("expected #NAME? for unknown function, got %+v", got)
	}
}

func TestStubFunctionReturnsCalcError(t *testing.T) {
	sheet := newFakeSheet()
	ctx := NewContext("Sheet1", sheet, sheet)
	got := evalString(t, ctx, "LAMBDA(1)")
	if !got.IsError() {
		t.Errorf("expected #CALC! for stub function, got %+v", got)
	}
}

func TestTodayUsesInjectedClockAndMarksVolatile(t *testing.T) {
	sheet := newFakeSheet()
	ctx := NewContext("Sheet1", sheet, sheet)
	ctx.Clock = fixedClock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}

	got := evalString(t, ctx, "YEAR(TODAY())")
	if got.Num != 2024 {
		t.Errorf("YEAR(TODAY()) = %+v, want 2024", got)
	}
	if !ctx.volatile {
		t.Errorf("expected TODAY() to mark the context volatile")
	}
}
