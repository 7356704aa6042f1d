package xl

import (
	"github.com/openxlgo/xlcore/formula"
	"github.com/openxlgo/xlcore/ref"
	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

// Resolver adapts a *Workbook to formula.CellResolver, formula.
// NameResolver, formula.FormulaTextResolver, and formula.WorkbookInfo,
// the four host callbacks the formula evaluator (package formula) needs.
// A workbook has no defined-name table in this data model, so
// ResolveName always reports not-found — spec.md's defined-names
// support is listed as a Non-goal.
type Resolver struct {
	wb *Workbook
}

// NewResolver builds a Resolver over wb, letting formula.NewContext
// evaluate formulas against its sheets.
func NewResolver(wb *Workbook) *Resolver { return &Resolver{wb: wb} }

var _ formula.CellResolver = (*Resolver)(nil)
var _ formula.FormulaTextResolver = (*Resolver)(nil)
var _ formula.WorkbookInfo = (*Resolver)(nil)

func (r *Resolver) ResolveCell(sheet string, cr ref.Ref) (value.Value, error) {
	sh, ok := r.wb.SheetByName(sheet)
	if !ok {
		return value.ErrorValue(xlerrors.KindRef), nil
	}
	c, ok := sh.CellAt(cr.Col, cr.Row)
	if !ok {
		return value.Empty(), nil
	}
	return c.Value(), nil
}

func (r *Resolver) ResolveRange(sheet string, rg ref.Range) (value.Value, error) {
	sh, ok := r.wb.SheetByName(sheet)
	if !ok {
		return value.ErrorValue(xlerrors.KindRef), nil
	}
	n := rg.Normalize()
	rows := n.Height()
	cols := n.Width()
	cells := make([]value.Value, 0, rows*cols)
	for row := n.TopLeft.Row; row <= n.BottomRight.Row; row++ {
		for col := n.TopLeft.Col; col <= n.BottomRight.Col; col++ {
			c, ok := sh.CellAt(col, row)
			if !ok {
				cells = append(cells, value.Empty())
				continue
			}
			cells = append(cells, c.Value())
		}
	}
	return value.Array(rows, cols, cells), nil
}

func (r *Resolver) ResolveName(sheet, name string) (value.Value, bool) {
	return value.Value{}, false
}

func (r *Resolver) FormulaText(sheet string, cr ref.Ref) (string, bool) {
	sh, ok := r.wb.SheetByName(sheet)
	if !ok {
		return "", false
	}
	c, ok := sh.CellAt(cr.Col, cr.Row)
	if !ok {
		return "", false
	}
	return c.Formula()
}

func (r *Resolver) SheetNames() []string  { return r.wb.SheetNames() }
func (r *Resolver) ActiveSheetIndex() int { return r.wb.ActiveSheetIndex() }
