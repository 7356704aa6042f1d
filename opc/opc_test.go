package opc

import "testing"

// fakeSource is an in-memory Source for exercising ReadPackage without
// going through a real ZIP or directory tree.
type fakeSource struct {
	files map[string][]byte
}

func (f *fakeSource) ReadBlob(path string) ([]byte, error) {
	path = NormalizePath(path)
	data, ok := f.files[path]
	if !ok {
		return nil, errNotFound(path)
	}
	return data, nil
}

func (f *fakeSource) List() ([]string, error) {
	paths := make([]string, 0, len(f.files))
	for p := range f.files {
		paths = append(paths, p)
	}
	return paths, nil
}

type errNotFound string

func (e errNotFound) Error() string { return "not found: " + string(e) }

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"xl/workbook.xml":  "/xl/workbook.xml",
		"/xl/workbook.xml": "/xl/workbook.xml",
		"xl\\styles.xml":   "/xl/styles.xml",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRelationshipAssignmentSequential(t *testing.T) {
	p := New()
	id1 := p.AddRelationship("/xl/workbook.xml", "", "type/worksheet", "worksheets/sheet1.xml", Internal)
	id2 := p.AddRelationship("/xl/workbook.xml", "", "type/worksheet", "worksheets/sheet2.xml", Internal)
	if id1 != "rId1" || id2 != "rId2" {
		t.Fatalf("got %s, %s, want rId1, rId2", id1, id2)
	}
}

func TestResolveRelationship(t *testing.T) {
	p := New()
	p.AddRelationship("/xl/workbook.xml", "rId1", "officeDocument/2006/relationships/worksheet", "worksheets/sheet1.xml", Internal)
	rel, target, err := p.ResolveRelationship("/xl/workbook.xml", "rId1")
	if err != nil {
		t.Fatal(err)
	}
	if target != "/xl/worksheets/sheet1.xml" {
		t.Errorf("target = %q", target)
	}
	if rel.ID != "rId1" {
		t.Errorf("rel.ID = %q", rel.ID)
	}

	if _, _, err := p.ResolveRelationship("/xl/workbook.xml", "rId999"); err == nil {
		t.Error("expected error for unknown relationship id")
	}
}

func TestContentTypeForDefaultsAndOverrides(t *testing.T) {
	p := New()
	p.AddPart("/xl/workbook.xml", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml", nil)
	ct, ok := p.ContentTypeFor("/xl/workbook.xml")
	if !ok || ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml" {
		t.Errorf("override content type = %q, %v", ct, ok)
	}
	ct, ok = p.ContentTypeFor("/xl/_rels/workbook.xml.rels")
	if !ok || ct != p.DefaultContentTypes["rels"] {
		t.Errorf("default content type = %q, %v", ct, ok)
	}
}

func TestReadPackageRoundTrip(t *testing.T) {
	src := &fakeSource{files: map[string][]byte{
		"/[Content_Types].xml": []byte(`<?xml version="1.0"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
</Types>`),
		"/_rels/.rels": []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`),
		"/xl/workbook.xml": []byte(`<workbook/>`),
		"/xl/_rels/workbook.xml.rels": []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId7" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
</Relationships>`),
		"/xl/worksheets/sheet1.xml": []byte(`<worksheet/>`),
	}}

	p, err := ReadPackage(src)
	if err != nil {
		t.Fatalf("ReadPackage: %v", err)
	}

	ct, ok := p.ContentTypeFor("/xl/workbook.xml")
	if !ok || ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml" {
		t.Errorf("workbook content type = %q, %v", ct, ok)
	}

	_, target, ok := p.FindByType("/", "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument")
	if !ok || target != "/xl/workbook.xml" {
		t.Errorf("officeDocument target = %q, %v", target, ok)
	}

	rel, sheetTarget, err := p.ResolveRelationship("/xl/workbook.xml", "rId7")
	if err != nil {
		t.Fatalf("ResolveRelationship: %v", err)
	}
	if sheetTarget != "/xl/worksheets/sheet1.xml" {
		t.Errorf("sheet target = %q", sheetTarget)
	}
	if rel.Type != "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" {
		t.Errorf("rel.Type = %q", rel.Type)
	}

	if _, ok := p.Part("/xl/worksheets/sheet1.xml"); !ok {
		t.Error("sheet1 part missing after ReadPackage")
	}

	// A relationship id read from disk must not be reissued by a
	// subsequent auto-assignment on the same owner.
	id := p.AddRelationship("/xl/workbook.xml", "", "type/whatever", "styles.xml", Internal)
	if id == "rId7" {
		t.Errorf("AddRelationship reissued an id already present on disk: %s", id)
	}
}

func TestFindByType(t *testing.T) {
	p := New()
	p.AddRelationship("/", "rId1", "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument", "xl/workbook.xml", Internal)
	rel, target, ok := p.FindByType("/", "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument")
	if !ok {
		t.Fatal("expected to find officeDocument relationship")
	}
	if target != "/xl/workbook.xml" {
		t.Errorf("target = %q", target)
	}
	_ = rel
}
