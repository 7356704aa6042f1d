package xl

import "testing"

func TestParseSharedStringsPlainAndRichText(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="2" uniqueCount="2">
  <si><t>plain</t></si>
  <si><r><t>rich</t></r><r><t> text</t></r></si>
</sst>`)

	out, err := parseSharedStrings(data)
	if err != nil {
		t.Fatalf("parseSharedStrings: %v", err)
	}
	want := []string{"plain", "rich text"}
	if len(out) != len(want) || out[0] != want[0] || out[1] != want[1] {
		t.Fatalf("parseSharedStrings = %v, want %v", out, want)
	}
}

func TestParseSharedStringsEmpty(t *testing.T) {
	out, err := parseSharedStrings(nil)
	if err != nil {
		t.Fatalf("parseSharedStrings(nil): %v", err)
	}
	if out != nil {
		t.Errorf("parseSharedStrings(nil) = %v, want nil", out)
	}
}
