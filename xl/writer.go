package xl

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"github.com/adnsv/srw/xml"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"

	"github.com/openxlgo/xlcore/value"
)

// Writer is responsible for generating OpenXML SpreadsheetML files from a workbook.
// It manages shared strings, styles, fonts, and all XML part generation.
type Writer struct {
	out            Storage
	lastGlobalId   int
	lastWorkbookId int

	GlobalRels          map[string]RelInfo // maps id to absolute path
	WorkbookRels        map[string]RelInfo // maps id to absolute paths
	DefaultContentTypes map[string]string  // maps path extension to content-type
	PartContentTypes    map[string]string  // maps path partname to content-type

	sharedStrings   []string
	sharedStringMap map[string]int // 0-based index into sharedStrings

	xfs   []*XF
	fonts []*Font
}

// RelInfo contains relationship information for OpenXML parts.
type RelInfo struct {
	Type   string // url to schema type
	Target string // relative path
}

// NewWriter creates a new Writer that will output to the specified storage.
// The storage can be a ZIP file storage or directory storage for debugging.
func NewWriter(s Storage) *Writer {
	w := &Writer{
		out:                 s,
		GlobalRels:          map[string]RelInfo{},
		WorkbookRels:        map[string]RelInfo{},
		DefaultContentTypes: map[string]string{},
		PartContentTypes:    map[string]string{},

		sharedStringMap: map[string]int{},
	}

	w.DefaultContentTypes["xml"] = "application/xml"
	w.DefaultContentTypes["rels"] = "application/vnd.openxmlformats-package.relationships+xml"

	return w
}

// SharedString adds a string to the shared string table and returns its index.
// If the string already exists, returns the existing index.
// This is used internally for efficient string storage in cells.
func (w *Writer) SharedString(s string) int {
	if i, ok := w.sharedStringMap[s]; ok {
		return i
	}
	i := len(w.sharedStrings)
	w.sharedStrings = append(w.sharedStrings, s)
	w.sharedStringMap[s] = i
	return i
}

func (w *Writer) nextGlobalID() (int, string) {
	w.lastGlobalId++
	return w.lastGlobalId, fmt.Sprintf("rId%d", w.lastGlobalId)
}
func (w *Writer) nextWorkbookID() (int, string) {
	w.lastWorkbookId++
	return w.lastWorkbookId, fmt.Sprintf("rId%d", w.lastWorkbookId)
}

// Write generates a complete Excel workbook file from the given Workbook.
// It writes all necessary XML parts, relationships, and content types to the storage.
// Returns an error if any part of the generation fails.
func (w *Writer) Write(wb *Workbook) error {
	var err error

	err = w.writeWorkbook(wb)
	if err != nil {
		return err
	}

	err = w.writeCoreProperties()
	if err != nil {
		return err
	}
	err = w.writeExtendedProperties(wb.AppName)
	if err != nil {
		return err
	}

	if len(w.sharedStrings) > 0 {
		err = w.writeSharedStrings()
		if err != nil {
			return err
		}
	}

	if len(w.xfs) > 0 {
		err = w.writeStyles()
		if err != nil {
			return err
		}
	}

	err = w.writeRels("/xl/_rels/workbook.xml.rels", w.WorkbookRels)
	if err != nil {
		return err
	}

	err = w.writeRels("/_rels/.rels", w.GlobalRels)
	if err != nil {
		return err
	}

	err = w.writeContentTypes()
	if err != nil {
		return err
	}

	return nil
}

func (w *Writer) writeCoreProperties() error {
	_, rid := w.nextGlobalID()

	relpath := "docProps/core.xml"
	abspath := "/" + relpath

	w.PartContentTypes[abspath] = "application/vnd.openxmlformats-package.core-properties+xml"
	w.GlobalRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("cp:coreProperties")
	x.Attr("xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties")
	x.Attr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	x.Attr("xmlns:dcterms", "http://purl.org/dc/terms/")
	x.Attr("xmlns:dcmitype", "http://purl.org/dc/dcmitype/")
	x.Attr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")

	x.OTag("+dcterms:created")
	x.Attr("xsi:type", "dcterms:W3CDTF")
	x.Write(time.Now().UTC().Format(time.RFC3339))
	x.CTag()

	x.CTag()

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func (w *Writer) writeExtendedProperties(appname string) error {
	_, rid := w.nextGlobalID()

	relpath := "docProps/app.xml"
	abspath := "/" + relpath

	w.PartContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
	w.GlobalRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("Properties")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties")
	x.Attr("xmlns:vt", "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes")

	if appname != "" {
		x.OTag("+Application").String(appname).CTag()
	}

	x.CTag()

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func (w *Writer) writeContentTypes() error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("Types")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/package/2006/content-types")
	enumerate(w.DefaultContentTypes, func(ext, ctype string) error {
		x.OTag("+Default").Attr("Extension", ext).Attr("ContentType", ctype).CTag()
		return nil
	})
	enumerate(w.PartContentTypes, func(abspath, ctype string) error {
		x.OTag("+Override").Attr("PartName", abspath).Attr("ContentType", ctype).CTag()
		return nil
	})

	x.CTag()

	return w.out.WriteBlob("[Content_Types].xml", bb.Bytes())
}

func (w *Writer) writeStyles() error {
	_, rid := w.nextWorkbookID()

	relpath := "styles.xml"
	abspath := "/xl/" + relpath

	w.PartContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
	w.WorkbookRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("styleSheet")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")

	// Collect unique fonts from all xfs
	for _, xf := range w.xfs {
		if !xf.Font.IsDefault() {
			if w.FindFont(&xf.Font) < 0 {
				w.fonts = append(w.fonts, &xf.Font)
			}
		}
	}

	// Write fonts section
	fontCount := len(w.fonts) + 1 // +1 for default font at index 0
	x.OTag("+fonts").Attr("count", fontCount)

	// Font 0: Default font
	x.OTag("+font")
	x.OTag("sz").Attr("val", 11).CTag()
	x.OTag("name").Attr("val", "Calibri").CTag()
	x.OTag("family").Attr("val", 2).CTag()
	x.CTag() // font

	// Custom fonts
	for _, font := range w.fonts {
		x.OTag("+font")

		// Element order: b, i, strike, u, sz, color, name, family
		if font.Bold {
			x.OTag("b").CTag()
		}
		if font.Italic {
			x.OTag("i").CTag()
		}
		if font.Strikethrough {
			x.OTag("strike").CTag()
		}
		if font.Underline != UnderlineNone {
			if font.Underline == UnderlineSingle {
				x.OTag("u").CTag() // Empty element for single underline
			} else {
				x.OTag("u").Attr("val", string(font.Underline)).CTag()
			}
		}

		// Size (use 11 if not specified)
		size := font.Size
		if size == 0 {
			size = 11
		}
		x.OTag("sz").Attr("val", size).CTag()

		// Basic font properties for compatibility
		x.OTag("name").Attr("val", "Calibri").CTag()
		x.OTag("family").Attr("val", 2).CTag()

		x.CTag() // font
	}
	x.CTag() // fonts

	x.OTag("+fills").Attr("count", 1)
	x.OTag("+fill")
	x.OTag("patternFill").Attr("patternType", "none").CTag()
	x.CTag() // fill
	x.CTag() // fills

	x.OTag("+borders").Attr("count", 1)
	x.OTag("+border")
	x.OTag("+left").CTag()
	x.OTag("+right").CTag()
	x.OTag("+top").CTag()
	x.OTag("+bottom").CTag()
	x.OTag("+diagonal").CTag()
	x.CTag() // border
	x.CTag() // borders

	x.OTag("+cellStyleXfs").Attr("count", 1)
	x.OTag("+xf")
	x.Attr("numFmtId", "0")
	x.Attr("fontId", "0")
	x.Attr("fillId", "0")
	x.Attr("borderId", "0")
	x.CTag()
	x.CTag() //cellStyleXfs

	x.OTag("+cellXfs").Attr("count", len(w.xfs)+1)
	// Default xf (index 0)
	x.OTag("+xf")
	x.Attr("numFmtId", "0")
	x.Attr("fontId", "0")
	x.Attr("fillId", "0")
	x.Attr("borderId", "0")
	x.Attr("xfId", "0")
	x.CTag()
	// Custom xfs collected from cells
	for _, xf := range w.xfs {
		x.OTag("+xf")
		x.Attr("numFmtId", xf.NumFmtID)

		// Determine font ID
		fontId := 0 // Default font
		if !xf.Font.IsDefault() {
			fontIdx := w.FindFont(&xf.Font)
			if fontIdx >= 0 {
				fontId = fontIdx + 1 // +1 because default font is at index 0
			}
		}
		x.Attr("fontId", fontId)

		x.Attr("fillId", "0")
		x.Attr("borderId", "0")
		x.Attr("xfId", "0")

		// Set applyFont if using custom font
		if !xf.Font.IsDefault() {
			x.Attr("applyFont", "1")
		}
		if xf.NumFmtID != 0 {
			x.Attr("applyNumberFormat", "1")
		}

		// Set applyAlignment if using custom alignment
		if !xf.Alignment.Empty() {
			x.Attr("applyAlignment", "1")
		}

		// Write alignment element if not empty
		if !xf.Alignment.Empty() {
			x.OTag("alignment")
			if xf.Alignment.Horizontal != "" {
				x.Attr("horizontal", xf.Alignment.Horizontal)
			}
			if xf.Alignment.Vertical != "" {
				x.Attr("vertical", xf.Alignment.Vertical)
			}
			x.CTag() // alignment
		}

		x.CTag() // xf
	}
	x.CTag() // cellXfs

	x.CTag()

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func (w *Writer) writeWorkbook(wb *Workbook) error {
	_, rid := w.nextGlobalID()

	relpath := "xl/workbook.xml"
	abspath := "/" + relpath

	w.PartContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	w.GlobalRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("workbook")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")

	/*
		if wb.AppName != "" {
			x.OTag("+fileVersion")
			x.Attr("appName", wb.AppName)
			x.CTag()
		}

		x.OTag("+workbookPr")
		x.Attr("showObjects", "all")
		x.Attr("date1904", "false")
		x.CTag()

		x.OTag("+<workbookProtection")
		x.CTag()

		x.OTag("+bookViews")
		{
			x.OTag("+workbookView")
			x.Attr("showHorizontalScroll", "true")
			x.Attr("showVerticalScroll", "true")
			x.Attr("showSheetTabs", "true")
			x.Attr("tabRatio", "204")
			x.Attr("windowHeight", "8192")
			x.Attr("windowWidth", "16384")
			x.Attr("xWindow", "0")
			x.Attr("yWindow", "0")
			x.CTag()
		}
		x.CTag()
	*/

	x.OTag("+sheets")
	for _, sheet := range wb.Sheets {
		sheet_id, sheet_rid := w.nextWorkbookID()
		{
			x.OTag("+sheet")
			x.Attr("name", sheet.Name)
			x.Attr("sheetId", sheet_id)
			x.Attr("r:id", sheet_rid)
			x.CTag()
		}

		err := w.writeSheet(sheet, sheet_rid)
		if err != nil {
			return err
		}
	}
	x.CTag()

	/*

		x.OTag("+definedNames")
		x.CTag()

		x.OTag("+calcPr")
		x.Attr("iterateCount", "100")
		x.Attr("refMode", "A1")
		x.Attr("iterateDelta", "0.001")
		x.CTag()
	*/

	x.CTag()

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func (w *Writer) FindXF(xf *XF) int {
	for i, v := range w.xfs {
		if *v == *xf {
			return i
		}
	}
	return -1
}

// FindFont returns the index of a matching font in the fonts slice, or -1 if not found.
func (w *Writer) FindFont(font *Font) int {
	for i, f := range w.fonts {
		if *f == *font {
			return i
		}
	}
	return -1
}

func (w *Writer) writeSheet(sh *Sheet, rid string) error {
	relpath := "worksheets/" + sh.Name + ".xml"
	abspath := "/xl/" + relpath

	w.PartContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	w.WorkbookRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("worksheet")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")

	dim := sh.computeDimension()
	sh.Dimension = &dim
	x.OTag("+dimension").Attr("ref", dim.String()).CTag()

	if len(sh.Columns) > 0 {
		x.OTag("+cols")
		enumerate(sh.Columns, func(n int, v *Column) error {
			x.OTag("+col").Attr("min", n).Attr("max", n)
			if v.Width > 0 {
				x.Attr("width", v.Width).Attr("customWidth", 1)
			}
			x.CTag()
			return nil
		})
		x.CTag()
	}

	x.OTag("+sheetData")
	for _, row := range sh.Rows {
		x.OTag("+row").Attr("r", row.rowNumber)
		if len(row.Cells) > 0 {
			minCol, maxCol := row.Cells[0].columnNumber, row.Cells[0].columnNumber
			for _, c := range row.Cells[1:] {
				if c.columnNumber < minCol {
					minCol = c.columnNumber
				}
				if c.columnNumber > maxCol {
					maxCol = c.columnNumber
				}
			}
			x.Attr("spans", fmt.Sprintf("%d:%d", minCol, maxCol))
		}
		if row.Height > 0 {
			x.Attr("ht", row.Height).Attr("customHeight", 1)
		}

		for _, cell := range row.Cells {
			x.OTag("+c").Attr("r", cell.coord)

			if !cell.XF.Empty() {
				i := w.FindXF(&cell.XF)
				if i < 0 {
					w.xfs = append(w.xfs, &cell.XF)
					i = len(w.xfs) - 1
				}
				// Style index is xfs array index + 1 (because default xf is at index 0)
				x.Attr("s", i+1)
			}

			switch cell.typ {
			case CellTypeBool:
				x.Attr("t", "b")
				x.OTag("v").Write(cell.v).CTag()
			case CellTypeNumber:
				// No t attribute: absent means numeric per spec.md §3/§6.
				x.OTag("v").Write(cell.v).CTag()
			case CellTypeDate:
				// Numeric storage, no t attribute (Excel's default cell
				// type is numeric); date-ness lives entirely in the xf's
				// number format, per spec.md's "style, not value" rule.
				x.OTag("v").Write(cell.v).CTag()
			case CellTypeError:
				x.Attr("t", "e")
				x.OTag("v").Write(cell.v).CTag()
			case CellTypeSharedString:
				x.Attr("t", "s")
				x.OTag("v").Write(w.SharedString(cell.v)).CTag()
			case CellTypeFormula:
				formulaText, _ := cell.Formula()
				switch cell.cachedKind {
				case value.KindBool:
					x.Attr("t", "b")
				case value.KindError:
					x.Attr("t", "e")
				case value.KindText:
					x.Attr("t", "str")
				}
				x.OTag("f").Write(formulaText).CTag()
				x.OTag("v").Write(cell.v).CTag()
			}
			x.CTag() // c
		}

		x.CTag() // row
	}
	x.CTag() // sheetData

	// Write mergeCells if any exist
	if len(sh.MergeCells) > 0 {
		x.OTag("+mergeCells").Attr("count", len(sh.MergeCells))
		for _, mc := range sh.MergeCells {
			x.OTag("+mergeCell").Attr("ref", mc.Ref).CTag()
		}
		x.CTag() // mergeCells
	}

	x.CTag() // worksheet

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func (w *Writer) writeSharedStrings() error {
	_, rid := w.nextWorkbookID()

	relpath := "sharedStrings.xml"
	abspath := "/xl/" + relpath

	w.PartContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"
	w.WorkbookRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("sst")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("count", len(w.sharedStrings))
	x.Attr("uniqueCount", len(w.sharedStrings))

	for _, s := range w.sharedStrings {
		x.OTag("+si")
		x.OTag("t").Write(s).CTag()
		x.CTag()
	}

	x.CTag()

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func (w *Writer) writeRels(path string, rels map[string]RelInfo) error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("Relationships")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/package/2006/relationships")
	err := enumerate(rels, func(rid string, info RelInfo) error {
		x.OTag("+Relationship").Attr("Id", rid).Attr("Type", info.Type).Attr("Target", info.Target)
		x.CTag()

		return nil
	})
	if err != nil {
		return err
	}
	x.CTag()

	return w.out.WriteBlob(path, bb.Bytes())
}

func enumerate[M ~map[K]V, K constraints.Ordered, V any](m M, callback func(k K, v V) error) error {
	keys := maps.Keys(m)
	slices.Sort(keys)
	for _, k := range keys {
		err := callback(k, m[k])
		if err != nil {
			return err
		}
	}
	return nil
}
