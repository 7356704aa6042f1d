package xl

import (
	"encoding/xml"

	"github.com/openxlgo/xlcore/opc"
	"github.com/openxlgo/xlcore/xlerrors"
)

const (
	relTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relTypeWorksheet      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet"
	relTypeStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relTypeSharedStrings  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings"
)

// Open reads a complete workbook out of src (a ZipSource or DirSource),
// the read-side counterpart to Writer.Write. It loads the whole package
// into memory: the OPC part/relationship graph first, then the
// workbook's sheet list, shared strings, and styles, then every
// worksheet's cell stream.
func Open(src Source) (*Workbook, error) {
	pkg, err := opc.ReadPackage(src)
	if err != nil {
		return nil, err
	}

	_, wbPath, ok := pkg.FindByType("/", relTypeOfficeDocument)
	if !ok {
		return nil, xlerrors.MissingRequiredPart("xl/workbook.xml")
	}
	wbPart, ok := pkg.Part(wbPath)
	if !ok {
		return nil, xlerrors.MissingRequiredPart(wbPath)
	}

	sheetEntries, appName, err := parseWorkbookXML(wbPart.Data)
	if err != nil {
		return nil, xlerrors.MalformedXML(wbPath, err.Error())
	}

	var stylesData, sharedStringsData []byte
	if _, p, ok := pkg.FindByType(wbPath, relTypeStyles); ok {
		if part, ok := pkg.Part(p); ok {
			stylesData = part.Data
		}
	}
	if _, p, ok := pkg.FindByType(wbPath, relTypeSharedStrings); ok {
		if part, ok := pkg.Part(p); ok {
			sharedStringsData = part.Data
		}
	}

	ss, err := parseStylesheet(stylesData)
	if err != nil {
		return nil, err
	}
	sharedStrings, err := parseSharedStrings(sharedStringsData)
	if err != nil {
		return nil, xlerrors.MalformedXML("xl/sharedStrings.xml", err.Error())
	}

	wb := NewWorkbook()
	wb.AppName = appName

	for _, se := range sheetEntries {
		sh, err := wb.AddSheet(se.name)
		if err != nil {
			return nil, err
		}
		_, sheetPath, err := pkg.ResolveRelationship(wbPath, se.rID)
		if err != nil {
			continue
		}
		part, ok := pkg.Part(sheetPath)
		if !ok {
			return nil, xlerrors.MissingRequiredPart(sheetPath)
		}
		if err := readSheetData(sheetPath, part.Data, sh, ss, sharedStrings); err != nil {
			return nil, err
		}
	}

	return wb, nil
}

type sheetEntry struct {
	name string
	rID  string
}

// parseWorkbookXML reads workbook.xml's <sheets> list (name + r:id,
// order is the workbook's sheet order) and the optional <fileVersion
// appName="...">.
func parseWorkbookXML(data []byte) ([]sheetEntry, string, error) {
	var entries []sheetEntry
	var appName string
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
		case "fileVersion":
			appName = Attr(se, "appName")
			_ = r.SkipElement()
		case "sheet":
			entries = append(entries, sheetEntry{
				name: Attr(se, "name"),
				rID:  Attr(se, "id"),
			})
			_ = r.SkipElement()
		}
	}
	return entries, appName, nil
}
