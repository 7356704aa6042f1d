package xl

import (
	"encoding/xml"
	"strconv"

	"github.com/openxlgo/xlcore/ref"
	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

// readSheetData streams a worksheet part's sheetData (and cols,
// mergeCells) into sh, resolving each cell's style index against ss and
// each shared-string index against sharedStrings. partName is only used
// to annotate parse errors.
func readSheetData(partName string, data []byte, sh *Sheet, ss *stylesheet, sharedStrings []string) error {
	r := NewTokenReader(data)
	groups := map[string]*sharedFormulaGroup{}

	for {
		tok, err := r.Next()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "dimension":
			if v := Attr(se, "ref"); v != "" {
				if rg, err := ref.ParseRange(v); err == nil {
					sh.Dimension = &rg
				}
			}
		case "col":
			if err := readCol(se, sh); err != nil {
				return xlerrors.MalformedXML(partName, err.Error())
			}
		case "row":
			if err := readRow(r, se, sh, ss, sharedStrings, groups); err != nil {
				return xlerrors.MalformedXML(partName, err.Error())
			}
		case "mergeCell":
			if v := Attr(se, "ref"); v != "" {
				sh.MergeCells = append(sh.MergeCells, MergeCell{Ref: v})
			}
			_ = r.SkipElement()
		}
	}
	return nil
}

func readCol(se xml.StartElement, sh *Sheet) error {
	min, err := strconv.Atoi(Attr(se, "min"))
	if err != nil {
		return err
	}
	max, err := strconv.Atoi(Attr(se, "max"))
	if err != nil {
		max = min
	}
	width, _ := strconv.ParseFloat(Attr(se, "width"), 32)
	if width <= 0 {
		return nil
	}
	for c := min; c <= max; c++ {
		sh.SetColumnWidth(c, float32(width))
	}
	return nil
}

func readRow(r *TokenReader, se xml.StartElement, sh *Sheet, ss *stylesheet, sharedStrings []string, groups map[string]*sharedFormulaGroup) error {
	rowNum, err := strconv.Atoi(Attr(se, "r"))
	if err != nil {
		return err
	}
	row := sh.AddRowAt(rowNum)
	if v := Attr(se, "ht"); v != "" {
		if ht, err := strconv.ParseFloat(v, 32); err == nil {
			row.Height = float32(ht)
		}
	}

	depth := 1
	for depth > 0 {
		tok, err := r.Next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "c" {
				if err := readCell(r, t, row, ss, sharedStrings, groups); err != nil {
					return err
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func readCell(r *TokenReader, se xml.StartElement, row *Row, ss *stylesheet, sharedStrings []string, groups map[string]*sharedFormulaGroup) error {
	col, rowNum, err := parseCellRef(Attr(se, "r"))
	if err != nil {
		col = row.nextColumnNumber
		rowNum = row.rowNumber
	}
	c := row.AddCellAt(col)

	c.XF = ss.XFAt(0)
	if v := Attr(se, "s"); v != "" {
		if idx, err := strconv.Atoi(v); err == nil {
			c.XF = ss.XFAt(idx)
		}
	}

	typ := Attr(se, "t")
	var formulaText string
	var haveFormula bool
	var sharedSI string
	var text string

	depth := 1
	for depth > 0 {
		tok, err := r.Next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "v":
				text, err = r.ReadCharData()
				if err != nil {
					return err
				}
				continue
			case "f":
				haveFormula = true
				ftype := Attr(t, "t")
				sharedSI = Attr(t, "si")
				formulaText, err = r.ReadCharData()
				if err != nil {
					return err
				}
				if ftype == "shared" && sharedSI != "" {
					if formulaText != "" {
						groups[sharedSI] = &sharedFormulaGroup{
							text:      formulaText,
							masterCol: col,
							masterRow: rowNum,
						}
					} else if g, ok := groups[sharedSI]; ok {
						formulaText = expandSharedFormula(g, col, rowNum)
					}
				}
				continue
			case "is":
				text, err = readInlineString(r)
				if err != nil {
					return err
				}
				continue
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}

	if haveFormula {
		cached := cachedValueFromDisk(typ, text, c.XF)
		c.SetFormula(formulaText, cached)
		return nil
	}

	switch typ {
	case "s":
		idx, err := strconv.Atoi(text)
		if err != nil || idx < 0 || idx >= len(sharedStrings) {
			c.typ = CellTypeSharedString
			c.v = ""
			return nil
		}
		c.typ = CellTypeSharedString
		c.v = sharedStrings[idx]
	case "str":
		c.typ = CellTypeInlineString
		c.v = text
	case "inlineStr":
		c.typ = CellTypeInlineString
		c.v = text
	case "b":
		c.typ = CellTypeBool
		if text == "1" || text == "TRUE" || text == "true" {
			c.v = "1"
		} else {
			c.v = "0"
		}
	case "e":
		c.typ = CellTypeError
		c.v = text
	default:
		if text == "" {
			c.typ = CellTypeUnset
			return nil
		}
		if c.XF.IsDateFormat() {
			c.typ = CellTypeDate
		} else {
			c.typ = CellTypeNumber
		}
		c.v = text
	}
	return nil
}

func readInlineString(r *TokenReader) (string, error) {
	depth := 1
	var text string
	for depth > 0 {
		tok, err := r.Next()
		if err != nil {
			return text, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				s, err := r.ReadCharData()
				if err != nil {
					return text, err
				}
				text += s
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return text, nil
}

// cachedValueFromDisk reconstructs the value.Value a formula cell's
// cached <v> represents, mirroring Cell.Value's CellTypeFormula switch
// so SetFormula can re-derive the same cachedKind that will be written
// back out.
func cachedValueFromDisk(t, text string, xf XF) value.Value {
	switch t {
	case "b":
		return value.Bool(text == "1" || text == "TRUE" || text == "true")
	case "e":
		if k, ok := xlerrors.KindFromToken(text); ok {
			return value.ErrorValue(k)
		}
		return value.ErrorValue(xlerrors.KindValue)
	case "str", "inlineStr":
		return value.Text(text)
	default:
		f, _ := strconv.ParseFloat(text, 64)
		if xf.IsDateFormat() {
			return value.Date(f)
		}
		return value.Number(f)
	}
}
