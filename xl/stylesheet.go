package xl

import (
	"encoding/xml"
	"strconv"

	"github.com/openxlgo/xlcore/xlerrors"
)

// stylesheet is the parsed form of styles.xml: custom number formats,
// fonts, and the cellXfs array cells reference by index (the "s"
// attribute on <c>), generalizing the Writer's write-only xfs/fonts
// slices to also support reading.
type stylesheet struct {
	numFmts map[int]string // custom numFmtId -> format code
	fonts   []Font
	cellXfs []XF
}

// parseStylesheet reads styles.xml into a stylesheet. A workbook with no
// styles.xml (no custom formatting at all) is valid; callers pass nil
// data and get an empty stylesheet back with only the default xf.
func parseStylesheet(data []byte) (*stylesheet, error) {
	ss := &stylesheet{numFmts: map[int]string{}}
	if len(data) == 0 {
		ss.cellXfs = []XF{{}}
		return ss, nil
	}

	r := NewTokenReader(data)
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
		case "numFmts":
			if err := parseNumFmts(r, ss); err != nil {
				return nil, xlerrors.MalformedXML("xl/styles.xml", err.Error())
			}
		case "fonts":
			if err := parseFonts(r, ss); err != nil {
				return nil, xlerrors.MalformedXML("xl/styles.xml", err.Error())
			}
		case "cellXfs":
			if err := parseCellXfs(r, ss); err != nil {
				return nil, xlerrors.MalformedXML("xl/styles.xml", err.Error())
			}
		}
	}
	if len(ss.cellXfs) == 0 {
		ss.cellXfs = []XF{{}}
	}
	return ss, nil
}

func parseNumFmts(r *TokenReader, ss *stylesheet) error {
	for {
		tok, err := r.Next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "numFmt" {
				id, _ := strconv.Atoi(Attr(t, "numFmtId"))
				ss.numFmts[id] = Attr(t, "formatCode")
				_ = r.SkipElement()
			} else {
				_ = r.SkipElement()
			}
		case xml.EndElement:
			if t.Name.Local == "numFmts" {
				return nil
			}
		}
	}
}

func parseFonts(r *TokenReader, ss *stylesheet) error {
	for {
		tok, err := r.Next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "font" {
				f, err := parseFont(r)
				if err != nil {
					return err
				}
				ss.fonts = append(ss.fonts, f)
			} else {
				_ = r.SkipElement()
			}
		case xml.EndElement:
			if t.Name.Local == "fonts" {
				return nil
			}
		}
	}
}

func parseFont(r *TokenReader) (Font, error) {
	var f Font
	for {
		tok, err := r.Next()
		if err != nil {
			return f, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "b":
				f.Bold = true
				_ = r.SkipElement()
			case "i":
				f.Italic = true
				_ = r.SkipElement()
			case "strike":
				f.Strikethrough = true
				_ = r.SkipElement()
			case "u":
				if v := Attr(t, "val"); v != "" {
					f.Underline = UnderlineType(v)
				} else {
					f.Underline = UnderlineSingle
				}
				_ = r.SkipElement()
			case "sz":
				if v := Attr(t, "val"); v != "" {
					f.Size, _ = strconv.ParseFloat(v, 64)
				}
				_ = r.SkipElement()
			default:
				_ = r.SkipElement()
			}
		case xml.EndElement:
			if t.Name.Local == "font" {
				return f, nil
			}
		}
	}
}

func parseCellXfs(r *TokenReader, ss *stylesheet) error {
	for {
		tok, err := r.Next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "xf" {
				var xf XF
				if v := Attr(t, "numFmtId"); v != "" {
					xf.NumFmtID, _ = strconv.Atoi(v)
				}
				if v := Attr(t, "fontId"); v != "" {
					if id, err := strconv.Atoi(v); err == nil && id > 0 && id < len(ss.fonts) {
						xf.Font = ss.fonts[id]
					}
				}
				if err := skipOrReadAlignment(r, &xf); err != nil {
					return err
				}
				ss.cellXfs = append(ss.cellXfs, xf)
			} else {
				_ = r.SkipElement()
			}
		case xml.EndElement:
			if t.Name.Local == "cellXfs" {
				return nil
			}
		}
	}
}

// skipOrReadAlignment consumes the body of an <xf> element (already
// past its StartElement), reading <alignment> if present and skipping
// everything else, until the matching </xf>.
func skipOrReadAlignment(r *TokenReader, xf *XF) error {
	depth := 1
	for depth > 0 {
		tok, err := r.Next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "alignment" {
				xf.Alignment.Horizontal = HorizontalAlignment(Attr(t, "horizontal"))
				xf.Alignment.Vertical = VerticalAlignment(Attr(t, "vertical"))
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// XFAt returns the cell style at the given 0-based cellXfs index,
// falling back to the zero-value default style for an out-of-range or
// unset index (the "s" attribute is optional on <c>, defaulting to 0).
func (ss *stylesheet) XFAt(idx int) XF {
	if idx < 0 || idx >= len(ss.cellXfs) {
		return XF{}
	}
	return ss.cellXfs[idx]
}
