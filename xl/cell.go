package xl

import (
	"fmt"
	"strconv"

	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

// Cell represents a single cell in a worksheet.
// It contains the cell's value, type, formatting (XF), and position information.
type Cell struct {
	row          *Row
	columnNumber int // 1-based
	coord        string
	typ          CellType
	v            string
	formula      string     // formula text without the leading '=', empty if not a formula cell
	cachedKind   value.Kind // formula cells only: the kind the cached v represents

	XF
}

// CellType is the type of cell value type.
type CellType int

// Cell value types enumeration.
const (
	CellTypeUnset CellType = iota
	CellTypeBool
	CellTypeDate
	CellTypeError
	CellTypeFormula
	CellTypeInlineString
	CellTypeNumber
	CellTypeSharedString
)

// XF (Extended Format) represents the complete formatting attributes for a cell.
// It includes alignment and font properties that define how the cell content appears.
type XF struct {
	Alignment Alignment
	Font      Font
	NumFmtID  int // 0 = General; 14 is the built-in short-date format used for CellTypeDate
}

// builtinDateNumFmtIDs are the ECMA-376 built-in number format ids whose
// presentation is date/time-like, per spec.md's "date-ness lives in the
// style, not the value" rule.
var builtinDateNumFmtIDs = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true,
	21: true, 22: true, 45: true, 46: true, 47: true,
}

// IsDateFormat reports whether this XF's number format presents its
// value as a date or time.
func (xf *XF) IsDateFormat() bool { return builtinDateNumFmtIDs[xf.NumFmtID] }

// HorizontalAlignment represents the horizontal alignment of cell content.
type HorizontalAlignment string

// Horizontal alignment constants as defined in ECMA-376 (ST_HorizontalAlignment).
const (
	HAlignGeneral          HorizontalAlignment = "general"          // Default: numbers right-aligned, text left-aligned
	HAlignLeft             HorizontalAlignment = "left"             // Left aligned
	HAlignCenter           HorizontalAlignment = "center"           // Centered
	HAlignRight            HorizontalAlignment = "right"            // Right aligned
	HAlignFill             HorizontalAlignment = "fill"             // Fill/repeat content to fill column width
	HAlignJustify          HorizontalAlignment = "justify"          // Justified
	HAlignCenterContinuous HorizontalAlignment = "centerContinuous" // Center across selection
	HAlignDistributed      HorizontalAlignment = "distributed"      // Distributed alignment
)

// VerticalAlignment represents the vertical alignment of cell content.
type VerticalAlignment string

// Vertical alignment constants as defined in ECMA-376 (ST_VerticalAlignment).
const (
	VAlignTop         VerticalAlignment = "top"         // Top aligned
	VAlignCenter      VerticalAlignment = "center"      // Centered vertically
	VAlignBottom      VerticalAlignment = "bottom"      // Bottom aligned (default)
	VAlignJustify     VerticalAlignment = "justify"     // Justified
	VAlignDistributed VerticalAlignment = "distributed" // Distributed alignment
)

// Alignment represents the alignment properties for cell content.
// Both horizontal and vertical alignment can be set using type-safe constants.
type Alignment struct {
	Horizontal HorizontalAlignment
	Vertical   VerticalAlignment
}

// SetBool sets the cell value to a boolean.
// The value is stored as "1" (true) or "0" (false) in Excel format.
func (c *Cell) SetBool(v bool) {
	c.typ = CellTypeBool
	if v {
		c.v = "1"
	} else {
		c.v = "0"
	}
}

// SetInt sets the cell value to an integer number.
func (c *Cell) SetInt(v int64) {
	c.typ = CellTypeNumber
	c.v = fmt.Sprintf("%d", v)
}

// SetFloat sets the cell value to a floating-point number.
// The value is formatted using %g which chooses the most compact representation.
func (c *Cell) SetFloat(v float64) {
	c.typ = CellTypeNumber
	c.v = fmt.Sprintf("%g", v)
}

// SetStr sets the cell value to a string.
// The string will be stored in the shared string table for efficiency.
func (c *Cell) SetStr(v string) {
	c.typ = CellTypeSharedString
	c.v = v
}

// SetDate sets the cell to a date/time value given as a 1900-system
// serial (see formula.serialFromYMD for the encoding). Marks the cell's
// style with the built-in short-date number format if none is set yet.
func (c *Cell) SetDate(serial float64) {
	c.typ = CellTypeDate
	c.v = fmt.Sprintf("%g", serial)
	if c.NumFmtID == 0 {
		c.NumFmtID = 14
	}
}

// SetError sets the cell to an Excel error value (e.g. "#DIV/0!").
func (c *Cell) SetError(k xlerrors.Kind) {
	c.typ = CellTypeError
	c.v = k.Token()
}

// SetFormula marks the cell as holding a formula, storing both the
// source text (without a leading '=') and the cached result Excel would
// display until the next recalculation. The cached result's kind drives
// the cell's on-disk type exactly as a real formula cell's does: a
// formula's <f> element is always paired with a <v> cached value, per
// spec.md §4.7.
func (c *Cell) SetFormula(formulaText string, cached value.Value) {
	c.formula = formulaText
	c.cachedKind = cached.Kind
	switch cached.Kind {
	case value.KindNumber:
		c.typ = CellTypeFormula
		c.v = strconv.FormatFloat(cached.Num, 'g', -1, 64)
	case value.KindDate:
		c.typ = CellTypeFormula
		c.v = strconv.FormatFloat(cached.Num, 'g', -1, 64)
		if c.NumFmtID == 0 {
			c.NumFmtID = 14
		}
	case value.KindBool:
		c.typ = CellTypeFormula
		if cached.Bool {
			c.v = "1"
		} else {
			c.v = "0"
		}
	case value.KindError:
		c.typ = CellTypeFormula
		c.v = cached.Err.Token()
	case value.KindText:
		c.typ = CellTypeFormula
		c.v = cached.Str
	default:
		c.typ = CellTypeFormula
		c.v = ""
	}
}

// Formula returns the cell's formula text (without '=') and whether the
// cell holds a formula at all.
func (c *Cell) Formula() (string, bool) {
	return c.formula, c.formula != ""
}

// Coord returns the cell's A1-style reference (e.g. "C5").
func (c *Cell) Coord() string { return c.coord }

// ColumnNumber returns the cell's 1-based column index.
func (c *Cell) ColumnNumber() int { return c.columnNumber }

// RowNumber returns the cell's 1-based row index.
func (c *Cell) RowNumber() int { return c.row.rowNumber }

// Value converts the cell's on-disk representation to a value.Value.
// Shared-string cells already hold their resolved literal text in c.v
// (the reader resolves the shared-string index once at parse time, the
// same convention SetStr uses for builder-created cells), so no table
// lookup happens here. This is the bridge the formula evaluator's
// CellResolver adapter (resolver.go) reads through.
func (c *Cell) Value() value.Value {
	switch c.typ {
	case CellTypeUnset:
		return value.Empty()
	case CellTypeBool:
		return value.Bool(c.v == "1")
	case CellTypeDate:
		f, _ := strconv.ParseFloat(c.v, 64)
		return value.Date(f)
	case CellTypeError:
		if k, ok := xlerrors.KindFromToken(c.v); ok {
			return value.ErrorValue(k)
		}
		return value.ErrorValue(xlerrors.KindValue)
	case CellTypeFormula:
		switch c.cachedKind {
		case value.KindDate:
			f, _ := strconv.ParseFloat(c.v, 64)
			return value.Date(f)
		case value.KindBool:
			return value.Bool(c.v == "1")
		case value.KindError:
			if k, ok := xlerrors.KindFromToken(c.v); ok {
				return value.ErrorValue(k)
			}
			return value.ErrorValue(xlerrors.KindValue)
		case value.KindText:
			return value.Text(c.v)
		default:
			f, _ := strconv.ParseFloat(c.v, 64)
			return value.Number(f)
		}
	case CellTypeInlineString:
		return value.Text(c.v)
	case CellTypeNumber:
		f, _ := strconv.ParseFloat(c.v, 64)
		if c.IsDateFormat() {
			return value.Date(f)
		}
		return value.Number(f)
	case CellTypeSharedString:
		return value.Text(c.v)
	default:
		return value.Empty()
	}
}

// Empty returns true if the alignment has no custom properties set.
// An empty alignment means both horizontal and vertical are using defaults.
func (a *Alignment) Empty() bool {
	return a.Horizontal == "" && a.Vertical == ""
}

// Empty returns true if the XF has no custom formatting properties set.
// This checks alignment, font, and number format for default values.
func (xf *XF) Empty() bool {
	return xf.Alignment.Empty() && xf.Font.Empty() && xf.NumFmtID == 0
}
