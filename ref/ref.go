// Package ref implements the reference model (column-letter <-> index,
// cell/range parsing and formatting) shared by the OPC codec and the
// formula engine. Generalized from adnsv-go-xl/xl/sheet.go's
// parseCellRef/parseMergeCellRef and xl/row.go's
// ColumnNumberAsLetters/CellCoordAsString, which were private,
// write-path-only helpers scoped to *Sheet.
package ref

import (
	"strconv"
	"strings"

	"github.com/openxlgo/xlcore/xlerrors"
)

const (
	MinColumn = 1
	MaxColumn = 16384 // XFD
	MinRow    = 1
	MaxRow    = 1048576
)

// ColumnName converts a 1-based column index to its letter form:
// 1 -> "A", 26 -> "Z", 27 -> "AA", 16384 -> "XFD".
func ColumnName(i int) string {
	if i < 1 {
		panic("ref: column index must be >= 1")
	}
	var buf [3]byte
	pos := len(buf)
	for i > 0 {
		i--
		pos--
		buf[pos] = byte('A' + i%26)
		i /= 26
	}
	return string(buf[pos:])
}

// ColumnIndex parses a case-insensitive column letter string back to its
// 1-based index. Returns InvalidReference on anything but A-Z letters.
func ColumnIndex(s string) (int, error) {
	if s == "" {
		return 0, xlerrors.InvalidReference(s)
	}
	idx := 0
	for _, ch := range s {
		var v int
		switch {
		case ch >= 'A' && ch <= 'Z':
			v = int(ch-'A') + 1
		case ch >= 'a' && ch <= 'z':
			v = int(ch-'a') + 1
		default:
			return 0, xlerrors.InvalidReference(s)
		}
		idx = idx*26 + v
	}
	return idx, nil
}

// Ref is a one-based (column, row) cell reference, with independent
// absolute-flag markers for formula contexts. AbsCol/AbsRow are ignored
// outside formula text.
type Ref struct {
	Col, Row       int
	AbsCol, AbsRow bool
}

// Valid reports whether the reference falls within the worksheet bounds
// spec.md §4.1 defines (1..16384 columns, 1..1048576 rows).
func (r Ref) Valid() bool {
	return r.Col >= MinColumn && r.Col <= MaxColumn && r.Row >= MinRow && r.Row <= MaxRow
}

// String renders the reference in uppercase A1 form, with '$' markers
// for any absolute axis.
func (r Ref) String() string {
	var b strings.Builder
	if r.AbsCol {
		b.WriteByte('$')
	}
	b.WriteString(ColumnName(r.Col))
	if r.AbsRow {
		b.WriteByte('$')
	}
	b.WriteString(strconv.Itoa(r.Row))
	return b.String()
}

// Less implements the row-major comparison order spec.md §4.1 requires.
func (r Ref) Less(o Ref) bool {
	if r.Row != o.Row {
		return r.Row < o.Row
	}
	return r.Col < o.Col
}

// ParseRef parses a single cell reference such as "A1", "$B$2", "c12"
// (case-insensitive letters, uppercase emitted). Returns InvalidReference
// on malformed text or out-of-bounds coordinates.
func ParseRef(s string) (Ref, error) {
	orig := s
	var out Ref
	i := 0
	if i < len(s) && s[i] == '$' {
		out.AbsCol = true
		i++
	}
	start := i
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	if i == start {
		return Ref{}, xlerrors.InvalidReference(orig)
	}
	col, err := ColumnIndex(s[start:i])
	if err != nil {
		return Ref{}, xlerrors.InvalidReference(orig)
	}
	out.Col = col

	if i < len(s) && s[i] == '$' {
		out.AbsRow = true
		i++
	}
	rowStart := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == rowStart || i != len(s) {
		return Ref{}, xlerrors.InvalidReference(orig)
	}
	row, err := strconv.Atoi(s[rowStart:i])
	if err != nil {
		return Ref{}, xlerrors.InvalidReference(orig)
	}
	out.Row = row

	if !out.Valid() {
		return Ref{}, xlerrors.InvalidReference(orig)
	}
	return out, nil
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// Range is an ordered pair of references (top-left, bottom-right). A
// single cell is a degenerate range (TopLeft == BottomRight). Sheet may
// be empty for an unqualified range.
type Range struct {
	Sheet               string
	TopLeft, BottomRight Ref
}

// Normalize returns a Range with TopLeft/BottomRight swapped as needed so
// TopLeft.Col <= BottomRight.Col and TopLeft.Row <= BottomRight.Row.
func (rg Range) Normalize() Range {
	tl, br := rg.TopLeft, rg.BottomRight
	if tl.Col > br.Col {
		tl.Col, br.Col = br.Col, tl.Col
	}
	if tl.Row > br.Row {
		tl.Row, br.Row = br.Row, tl.Row
	}
	return Range{Sheet: rg.Sheet, TopLeft: tl, BottomRight: br}
}

// Contains reports whether r falls within the (inclusive) range bounds.
func (rg Range) Contains(r Ref) bool {
	n := rg.Normalize()
	return r.Col >= n.TopLeft.Col && r.Col <= n.BottomRight.Col &&
		r.Row >= n.TopLeft.Row && r.Row <= n.BottomRight.Row
}

// Width and Height of the range, in cells.
func (rg Range) Width() int  { return rg.Normalize().BottomRight.Col - rg.Normalize().TopLeft.Col + 1 }
func (rg Range) Height() int { return rg.Normalize().BottomRight.Row - rg.Normalize().TopLeft.Row + 1 }

// String renders "TL:BR", or just "TL" for a degenerate single-cell
// range, optionally sheet-qualified.
func (rg Range) String() string {
	var s string
	if rg.TopLeft == rg.BottomRight {
		s = rg.TopLeft.String()
	} else {
		s = rg.TopLeft.String() + ":" + rg.BottomRight.String()
	}
	if rg.Sheet != "" {
		return QuoteSheetName(rg.Sheet) + "!" + s
	}
	return s
}

// ParseRange parses "A1", "A1:B2", or sheet-qualified forms
// "Name!A1:B2" / "'Name with space'!A1:B2".
func ParseRange(s string) (Range, error) {
	orig := s
	sheet := ""
	if bang := findSheetBang(s); bang >= 0 {
		sheet = unquoteSheetName(s[:bang])
		s = s[bang+1:]
	}
	parts := strings.SplitN(s, ":", 2)
	tl, err := ParseRef(parts[0])
	if err != nil {
		return Range{}, xlerrors.InvalidReference(orig)
	}
	br := tl
	if len(parts) == 2 {
		br, err = ParseRef(parts[1])
		if err != nil {
			return Range{}, xlerrors.InvalidReference(orig)
		}
	}
	return Range{Sheet: sheet, TopLeft: tl, BottomRight: br}, nil
}

// findSheetBang finds the '!' separating a sheet qualifier from the cell
// reference, respecting single-quoted sheet names that may themselves
// contain '!'.
func findSheetBang(s string) int {
	if len(s) == 0 {
		return -1
	}
	if s[0] == '\'' {
		end := strings.Index(s[1:], "'")
		for end >= 0 && 1+end+1 < len(s) && s[1+end+1] == '\'' {
			// escaped '' inside quoted name, keep scanning
			next := strings.Index(s[1+end+2:], "'")
			if next < 0 {
				return -1
			}
			end = end + 2 + next
		}
		if end < 0 {
			return -1
		}
		closeAt := 1 + end
		if closeAt+1 < len(s) && s[closeAt+1] == '!' {
			return closeAt + 1
		}
		return -1
	}
	return strings.IndexByte(s, '!')
}

func unquoteSheetName(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		inner := s[1 : len(s)-1]
		return strings.ReplaceAll(inner, "''", "'")
	}
	return s
}

// QuoteSheetName applies Excel's single-quoting rule: a sheet name is
// quoted when it contains whitespace or any of ! ' [ ].
func QuoteSheetName(name string) string {
	if strings.ContainsAny(name, " \t\r\n!'[]") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
