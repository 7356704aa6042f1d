// Package value implements the cell-value model (spec.md §4.2): a
// closed tagged union plus the coercion surface the formula evaluator
// relies on. Generalized from adnsv-go-xl/xl/cell.go's CellType enum,
// which only ever tagged a value on its way *out* to XML; here the tag
// carries an actual value both directions, and arrays are added as
// their own variant per spec.md §9 ("never inheritance").
package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/openxlgo/xlcore/xlerrors"
)

// Kind is the closed set of variants a Value may hold.
type Kind int

const (
	KindEmpty Kind = iota
	KindNumber
	KindText
	KindBool
	KindDate // a Number whose presentation is date-like; same storage
	KindError
	KindArray
)

// Value is the tagged union. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind

	Num  float64
	Str  string
	Bool bool
	Err  xlerrors.Kind

	// Array holds Rows*Cols Values in row-major order when Kind == KindArray.
	Rows, Cols int
	Cells      []Value
}

func Empty() Value          { return Value{Kind: KindEmpty} }
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func Text(s string) Value   { return Value{Kind: KindText, Str: s} }
func Bool(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func Date(serial float64) Value { return Value{Kind: KindDate, Num: serial} }
func ErrorValue(k xlerrors.Kind) Value { return Value{Kind: KindError, Err: k} }

// Array builds a rectangular KindArray value. len(cells) must equal rows*cols.
func Array(rows, cols int, cells []Value) Value {
	return Value{Kind: KindArray, Rows: rows, Cols: cols, Cells: cells}
}

// IsError reports whether v is an error value.
func (v Value) IsError() bool { return v.Kind == KindError }

// At returns the array element at (row, col), zero-based. Panics on a
// non-array value or out-of-bounds indices — callers must check Kind and
// shape first (the evaluator always does).
func (v Value) At(row, col int) Value {
	return v.Cells[row*v.Cols+col]
}

// ToNumber implements spec.md §4.2's to_number coercion.
func ToNumber(v Value) Value {
	switch v.Kind {
	case KindNumber, KindDate:
		return v
	case KindEmpty:
		return Number(0)
	case KindBool:
		if v.Bool {
			return Number(1)
		}
		return Number(0)
	case KindText:
		f, ok := parseNumericText(v.Str)
		if !ok {
			return ErrorValue(xlerrors.KindValue)
		}
		return Number(f)
	case KindError:
		return v
	default:
		return ErrorValue(xlerrors.KindValue)
	}
}

// parseNumericText accepts an optional leading sign, decimal point, and
// eE exponent, trimming surrounding whitespace, per spec.md §4.2.
func parseNumericText(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// also accept a trailing '%' as a percentage, a common Excel text form
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-1]), 64)
		if err != nil {
			return 0, false
		}
		return f / 100, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ToText implements spec.md §4.2's to_text coercion: shortest round-trip
// decimal, trailing zeros trimmed, never scientific for
// 1e-4 <= |x| < 1e15.
func ToText(v Value) string {
	switch v.Kind {
	case KindEmpty:
		return ""
	case KindText:
		return v.Str
	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindNumber, KindDate:
		return formatNumber(v.Num)
	case KindError:
		return v.Err.Token()
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return xlerrors.KindNum.Token()
	}
	abs := math.Abs(f)
	useFixed := f == 0 || (abs >= 1e-4 && abs < 1e15)
	var s string
	if useFixed {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'g', -1, 64)
		s = normalizeExponent(s)
	}
	return s
}

// normalizeExponent rewrites Go's "1e+20" exponent form to Excel's
// "1E+20".
func normalizeExponent(s string) string {
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		return s[:i] + "E" + s[i+1:]
	}
	return s
}

// ToBool implements spec.md §4.2's to_bool coercion.
func ToBool(v Value) Value {
	switch v.Kind {
	case KindBool:
		return v
	case KindNumber, KindDate:
		return Bool(v.Num != 0)
	case KindEmpty:
		return Bool(false)
	case KindText:
		switch strings.ToUpper(v.Str) {
		case "TRUE":
			return Bool(true)
		case "FALSE":
			return Bool(false)
		default:
			return ErrorValue(xlerrors.KindValue)
		}
	case KindError:
		return v
	default:
		return ErrorValue(xlerrors.KindValue)
	}
}

// Equal implements spec.md §4.2's equal(a,b): case-insensitive text
// comparison, exact IEEE equality for numbers after boolean widening.
func Equal(a, b Value) bool {
	an, bn := widenNumeric(a), widenNumeric(b)
	if an != nil && bn != nil {
		return *an == *bn
	}
	if a.Kind == KindText && b.Kind == KindText {
		return strings.EqualFold(a.Str, b.Str)
	}
	if a.Kind == KindEmpty && b.Kind == KindText {
		return b.Str == ""
	}
	if b.Kind == KindEmpty && a.Kind == KindText {
		return a.Str == ""
	}
	return false
}

func widenNumeric(v Value) *float64 {
	switch v.Kind {
	case KindNumber, KindDate:
		f := v.Num
		return &f
	case KindBool:
		f := 0.0
		if v.Bool {
			f = 1
		}
		return &f
	case KindEmpty:
		f := 0.0
		return &f
	}
	return nil
}
