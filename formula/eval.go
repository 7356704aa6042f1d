package formula

import (
	"math"

	"github.com/openxlgo/xlcore/ref"
	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

// Eval walks an AST and produces a value.Value, implementing the
// evaluation rules of spec.md §4.10. It never returns a Go error:
// failures become value.ErrorValue cell values, per spec.md §7's
// "evaluator never fails fast" policy.
func Eval(ctx *Context, n Node) value.Value {
	if !ctx.enterDepth() {
		return value.ErrorValue(xlerrors.KindNum)
	}
	defer ctx.leaveDepth()

	switch v := n.(type) {
	case NumberLit:
		return value.Number(v.Value)
	case StringLit:
		return value.Text(v.Value)
	case BoolLit:
		return value.Bool(v.Value)
	case ErrorLit:
		return value.ErrorValue(v.Kind)
	case RefNode:
		return evalRef(ctx, v)
	case RangeNode:
		return evalRange(ctx, v)
	case NameNode:
		if ctx.Names != nil {
			if val, ok := ctx.Names.ResolveName(ctx.Sheet, v.Name); ok {
				return val
			}
		}
		return value.ErrorValue(xlerrors.KindName)
	case UnaryNode:
		return evalUnary(ctx, v)
	case BinaryNode:
		return evalBinary(ctx, v)
	case IntersectNode:
		return evalIntersect(ctx, v)
	case UnionNode:
		return evalUnion(ctx, v)
	case FuncCall:
		return evalCall(ctx, v)
	case ArrayLit:
		return evalArrayLit(ctx, v)
	default:
		return value.ErrorValue(xlerrors.KindValue)
	}
}

func sheetOf(ctx *Context, sheet string) string {
	if sheet != "" {
		return sheet
	}
	return ctx.Sheet
}

func evalRef(ctx *Context, n RefNode) value.Value {
	sheet := sheetOf(ctx, n.Sheet)
	if !ctx.enterCell(sheet, n.Ref) {
		return value.ErrorValue(xlerrors.KindRef)
	}
	defer ctx.leaveCell(sheet, n.Ref)

	v, err := ctx.Cells.ResolveCell(sheet, n.Ref)
	if err != nil {
		return value.ErrorValue(xlerrors.KindRef)
	}
	return v
}

func evalRange(ctx *Context, n RangeNode) value.Value {
	sheet := sheetOf(ctx, n.Sheet)
	rg := ref.Range{Sheet: sheet, TopLeft: n.TopLeft, BottomRight: n.BottomRight}
	v, err := ctx.Cells.ResolveRange(sheet, rg)
	if err != nil {
		return value.ErrorValue(xlerrors.KindRef)
	}
	return v
}

func evalUnary(ctx *Context, n UnaryNode) value.Value {
	operand := Eval(ctx, n.Operand)
	if n.Postfix { // '%'
		return mapNumeric(operand, func(f float64) float64 { return f / 100 })
	}
	switch n.Op {
	case TokMinus:
		return mapNumeric(operand, func(f float64) float64 { return -f })
	case TokPlus:
		return mapNumeric(operand, func(f float64) float64 { return f })
	}
	return value.ErrorValue(xlerrors.KindValue)
}

// mapNumeric applies f element-wise over a scalar or array value,
// coercing scalars to numbers first; errors propagate unchanged.
func mapNumeric(v value.Value, f func(float64) float64) value.Value {
	if v.IsError() {
		return v
	}
	if v.Kind == value.KindArray {
		out := make([]value.Value, len(v.Cells))
		for i, c := range v.Cells {
			out[i] = mapNumeric(c, f)
		}
		return value.Array(v.Rows, v.Cols, out)
	}
	n := value.ToNumber(v)
	if n.IsError() {
		return n
	}
	return value.Number(f(n.Num))
}

// evalIntersect implements the whitespace implicit-intersection
// operator on the AST directly (rather than on already-evaluated
// values) because only the AST still carries each side's absolute
// worksheet coordinates.
func evalIntersect(ctx *Context, n IntersectNode) value.Value {
	lsheet, lrg, lok := nodeRange(ctx, n.Left)
	rsheet, rrg, rok := nodeRange(ctx, n.Right)
	if !lok || !rok || lsheet != rsheet {
		return value.ErrorValue(xlerrors.KindValue)
	}
	ln := lrg.Normalize()
	rn := rrg.Normalize()
	r0 := maxInt(ln.TopLeft.Row, rn.TopLeft.Row)
	c0 := maxInt(ln.TopLeft.Col, rn.TopLeft.Col)
	r1 := minInt(ln.BottomRight.Row, rn.BottomRight.Row)
	c1 := minInt(ln.BottomRight.Col, rn.BottomRight.Col)
	if r1 < r0 || c1 < c0 {
		return value.ErrorValue(xlerrors.KindNull)
	}
	if r1 != r0 || c1 != c0 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	v, err := ctx.Cells.ResolveCell(lsheet, ref.Ref{Col: c0, Row: r0})
	if err != nil {
		return value.ErrorValue(xlerrors.KindRef)
	}
	return v
}

// nodeRange extracts the worksheet range a Ref/Range AST node denotes,
// resolving an unqualified sheet against ctx.Sheet.
func nodeRange(ctx *Context, n Node) (string, ref.Range, bool) {
	switch v := n.(type) {
	case RefNode:
		return sheetOf(ctx, v.Sheet), ref.Range{TopLeft: v.Ref, BottomRight: v.Ref}, true
	case RangeNode:
		return sheetOf(ctx, v.Sheet), ref.Range{TopLeft: v.TopLeft, BottomRight: v.BottomRight}, true
	}
	return "", ref.Range{}, false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// evalUnion concatenates its items' cells into a single row-major Array
// (a practical simplification of Excel's multi-area references: the
// core does not model disjoint areas as a first-class shape).
func evalUnion(ctx *Context, n UnionNode) value.Value {
	var cells []value.Value
	for _, it := range n.Items {
		v := Eval(ctx, it)
		if v.IsError() {
			return v
		}
		if v.Kind == value.KindArray {
			cells = append(cells, v.Cells...)
		} else {
			cells = append(cells, v)
		}
	}
	return value.Array(1, len(cells), cells)
}

func evalArrayLit(ctx *Context, n ArrayLit) value.Value {
	rows := len(n.Rows)
	cols := 0
	if rows > 0 {
		cols = len(n.Rows[0])
	}
	cells := make([]value.Value, 0, rows*cols)
	for _, row := range n.Rows {
		for _, item := range row {
			cells = append(cells, Eval(ctx, item))
		}
	}
	return value.Array(rows, cols, cells)
}

func evalBinary(ctx *Context, n BinaryNode) value.Value {
	left := Eval(ctx, n.Left)
	right := Eval(ctx, n.Right)
	return applyBinary(n.Op, left, right)
}

// applyBinary implements arithmetic/comparison/concat coercion and
// array broadcasting per spec.md §4.10(2,4). The leftmost error in
// source order wins when both operands are errors (spec.md §7).
func applyBinary(op TokenKind, left, right value.Value) value.Value {
	if left.Kind == value.KindArray || right.Kind == value.KindArray {
		return broadcastBinary(op, left, right)
	}
	if left.IsError() {
		return left
	}
	if right.IsError() {
		return right
	}

	switch op {
	case TokPlus, TokMinus, TokStar, TokSlash, TokCaret:
		return arith(op, left, right)
	case TokAmp:
		return value.Text(value.ToText(left) + value.ToText(right))
	case TokEq, TokNe, TokLt, TokLe, TokGt, TokGe:
		return compare(op, left, right)
	}
	return value.ErrorValue(xlerrors.KindValue)
}

func arith(op TokenKind, left, right value.Value) value.Value {
	ln := value.ToNumber(left)
	if ln.IsError() {
		return ln
	}
	rn := value.ToNumber(right)
	if rn.IsError() {
		return rn
	}
	switch op {
	case TokPlus:
		return value.Number(ln.Num + rn.Num)
	case TokMinus:
		return value.Number(ln.Num - rn.Num)
	case TokStar:
		return value.Number(ln.Num * rn.Num)
	case TokSlash:
		if rn.Num == 0 {
			return value.ErrorValue(xlerrors.KindDivZero)
		}
		return value.Number(ln.Num / rn.Num)
	case TokCaret:
		return value.Number(math.Pow(ln.Num, rn.Num))
	}
	return value.ErrorValue(xlerrors.KindValue)
}

// compare implements spec.md §4.10(2): numeric comparison when both
// operands are numbers/booleans, else ASCII-case-folded text
// comparison; = and <> are defined across differing kinds (never equal
// unless both sides coerce to the same representation).
func compare(op TokenKind, left, right value.Value) value.Value {
	bothNumeric := isNumericKind(left) && isNumericKind(right)
	var less, equal bool
	if bothNumeric {
		ln := value.ToNumber(left)
		rn := value.ToNumber(right)
		less = ln.Num < rn.Num
		equal = ln.Num == rn.Num
	} else if left.Kind == value.KindText || right.Kind == value.KindText {
		ls, rs := value.ToText(left), value.ToText(right)
		if left.Kind != value.KindText || right.Kind != value.KindText {
			// text vs. non-text: equal only if both are empty-ish; never "less"
			equal = value.Equal(left, right)
			less = false
		} else {
			equal = foldEqual(ls, rs)
			less = foldLess(ls, rs)
		}
	} else {
		equal = value.Equal(left, right)
	}

	var b bool
	switch op {
	case TokEq:
		b = equal
	case TokNe:
		b = !equal
	case TokLt:
		b = less
	case TokLe:
		b = less || equal
	case TokGt:
		b = !less && !equal
	case TokGe:
		b = !less || equal
	}
	return value.Bool(b)
}

func isNumericKind(v value.Value) bool {
	return v.Kind == value.KindNumber || v.Kind == value.KindDate ||
		v.Kind == value.KindBool || v.Kind == value.KindEmpty
}

func foldEqual(a, b string) bool { return foldCompare(a, b) == 0 }
func foldLess(a, b string) bool  { return foldCompare(a, b) < 0 }

func foldCompare(a, b string) int {
	au, bu := upperASCII(a), upperASCII(b)
	if au < bu {
		return -1
	}
	if au > bu {
		return 1
	}
	return 0
}

func upperASCII(s string) string {
	buf := []byte(s)
	for i, c := range buf {
		if c >= 'a' && c <= 'z' {
			buf[i] = c - 32
		}
	}
	return string(buf)
}

// broadcastBinary implements spec.md §4.10(4): element-wise between an
// array and a scalar, or between two arrays of equal shape.
func broadcastBinary(op TokenKind, left, right value.Value) value.Value {
	lArr := left.Kind == value.KindArray
	rArr := right.Kind == value.KindArray

	switch {
	case lArr && rArr:
		if left.Rows != right.Rows || left.Cols != right.Cols {
			return value.ErrorValue(xlerrors.KindValue)
		}
		out := make([]value.Value, len(left.Cells))
		for i := range out {
			out[i] = applyBinary(op, left.Cells[i], right.Cells[i])
		}
		return value.Array(left.Rows, left.Cols, out)
	case lArr:
		out := make([]value.Value, len(left.Cells))
		for i := range out {
			out[i] = applyBinary(op, left.Cells[i], right)
		}
		return value.Array(left.Rows, left.Cols, out)
	default: // rArr
		out := make([]value.Value, len(right.Cells))
		for i := range out {
			out[i] = applyBinary(op, left, right.Cells[i])
		}
		return value.Array(right.Rows, right.Cols, out)
	}
}
