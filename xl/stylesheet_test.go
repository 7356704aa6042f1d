package xl

import "testing"

func TestParseStylesheetNumFmtAndXf(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <numFmts count="1">
    <numFmt numFmtId="164" formatCode="0.00%"/>
  </numFmts>
  <fonts count="2">
    <font><sz val="11"/></font>
    <font><b/><u val="double"/></font>
  </fonts>
  <cellXfs count="3">
    <xf numFmtId="0" fontId="0"/>
    <xf numFmtId="14" fontId="0"/>
    <xf numFmtId="0" fontId="1"><alignment horizontal="center" vertical="top"/></xf>
  </cellXfs>
</styleSheet>`)

	ss, err := parseStylesheet(data)
	if err != nil {
		t.Fatalf("parseStylesheet: %v", err)
	}
	if ss.numFmts[164] != "0.00%" {
		t.Errorf("numFmts[164] = %q", ss.numFmts[164])
	}
	if len(ss.cellXfs) != 3 {
		t.Fatalf("len(cellXfs) = %d, want 3", len(ss.cellXfs))
	}
	if !ss.XFAt(1).IsDateFormat() {
		t.Error("cellXfs[1] (numFmtId 14) should be a date format")
	}
	xf2 := ss.XFAt(2)
	if !xf2.Font.Bold || xf2.Font.Underline != UnderlineDouble {
		t.Errorf("cellXfs[2].Font = %+v, want bold+double-underline", xf2.Font)
	}
	if xf2.Alignment.Horizontal != HAlignCenter || xf2.Alignment.Vertical != VAlignTop {
		t.Errorf("cellXfs[2].Alignment = %+v", xf2.Alignment)
	}

	if ss.XFAt(99) != (XF{}) {
		t.Errorf("out-of-range XFAt should return the zero XF")
	}
}

func TestParseStylesheetEmpty(t *testing.T) {
	ss, err := parseStylesheet(nil)
	if err != nil {
		t.Fatalf("parseStylesheet(nil): %v", err)
	}
	if len(ss.cellXfs) != 1 || ss.cellXfs[0] != (XF{}) {
		t.Errorf("empty stylesheet cellXfs = %+v, want [default]", ss.cellXfs)
	}
}
