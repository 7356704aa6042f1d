package opc

import (
	"bytes"
	"encoding/xml"
	"path"
	"strings"
)

// Source is anything that can enumerate and hand back a package's part
// bytes, independent of the underlying storage (ZIP archive, exploded
// directory tree). Defined structurally here rather than imported so
// any reader satisfying this shape (xl.ZipSource, xl.DirSource) works
// without opc depending on xl.
type Source interface {
	ReadBlob(path string) ([]byte, error)
	List() ([]string, error)
}

// ReadPackage loads every part and relationship out of src into a new
// Package, by reading [Content_Types].xml first (so every part's
// content type is known as it's added) and then every *.rels file (so
// the relationship graph is populated per spec.md §4.4.
func ReadPackage(src Source) (*Package, error) {
	paths, err := src.List()
	if err != nil {
		return nil, err
	}

	p := New()

	ctData, err := src.ReadBlob("[Content_Types].xml")
	if err == nil {
		if err := parseContentTypes(ctData, p); err != nil {
			return nil, err
		}
	}

	for _, pp := range paths {
		np := NormalizePath(pp)
		if np == "/[Content_Types].xml" || isRelsPath(np) {
			continue
		}
		data, err := src.ReadBlob(pp)
		if err != nil {
			return nil, err
		}
		ct, _ := p.ContentTypeFor(np)
		p.AddPart(np, ct, data)
	}

	for _, pp := range paths {
		np := NormalizePath(pp)
		if !isRelsPath(np) {
			continue
		}
		data, err := src.ReadBlob(pp)
		if err != nil {
			return nil, err
		}
		owner := ownerForRelsPath(np)
		if err := parseRels(data, owner, p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func isRelsPath(p string) bool {
	return strings.HasSuffix(p, ".rels")
}

// ownerForRelsPath computes the part a "_rels/X.rels" file describes
// relationships for: "/xl/_rels/workbook.xml.rels" -> "/xl/workbook.xml",
// "/_rels/.rels" -> "/" (the package root, for GlobalRels-equivalent
// relationships).
func ownerForRelsPath(relsPath string) string {
	dir := path.Dir(relsPath)       // e.g. /xl/_rels
	base := path.Base(relsPath)     // e.g. workbook.xml.rels
	base = strings.TrimSuffix(base, ".rels")
	ownerDir := path.Dir(dir) // strip "_rels"
	if base == "" {
		return NormalizePath(ownerDir)
	}
	return NormalizePath(path.Join(ownerDir, base))
}

func parseContentTypes(data []byte, p *Package) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "Default":
			ext, ct := attrVal(se, "Extension"), attrVal(se, "ContentType")
			p.DefaultContentTypes[ext] = ct
		case "Override":
			pn, ct := attrVal(se, "PartName"), attrVal(se, "ContentType")
			p.PartContentTypes[NormalizePath(pn)] = ct
		}
	}
	return nil
}

func parseRels(data []byte, owner string, p *Package) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		id := attrVal(se, "Id")
		typeURI := attrVal(se, "Type")
		target := attrVal(se, "Target")
		mode := Internal
		if attrVal(se, "TargetMode") == "External" {
			mode = External
		}
		p.AddRelationship(owner, id, typeURI, target, mode)
		if id != "" {
			p.bumpRelID(owner, id)
		}
	}
	return nil
}

func attrVal(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
