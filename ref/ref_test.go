package ref

import "testing"

func TestColumnBijection(t *testing.T) {
	for i := 1; i <= MaxColumn; i++ {
		name := ColumnName(i)
		if len(name) < 1 || len(name) > 3 {
			t.Fatalf("ColumnName(%d) = %q, want length 1-3", i, name)
		}
		for _, ch := range name {
			if ch < 'A' || ch > 'Z' {
				t.Fatalf("ColumnName(%d) = %q, want ASCII uppercase", i, name)
			}
		}
		idx, err := ColumnIndex(name)
		if err != nil {
			t.Fatalf("ColumnIndex(%q): %v", name, err)
		}
		if idx != i {
			t.Fatalf("ColumnIndex(ColumnName(%d)) = %d, want %d", i, idx, i)
		}
	}
}

func TestColumnNameSamples(t *testing.T) {
	cases := map[int]string{1: "A", 26: "Z", 27: "AA", 702: "ZZ", 16384: "XFD"}
	for i, want := range cases {
		if got := ColumnName(i); got != want {
			t.Errorf("ColumnName(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestParseRef(t *testing.T) {
	cases := []struct {
		in                   string
		col, row             int
		absCol, absRow, fail bool
	}{
		{in: "A1", col: 1, row: 1},
		{in: "a1", col: 1, row: 1},
		{in: "$B$2", col: 2, row: 2, absCol: true, absRow: true},
		{in: "AA10", col: 27, row: 10},
		{in: "", fail: true},
		{in: "1A", fail: true},
		{in: "A0", fail: true},
		{in: "XFE1", fail: true},
		{in: "A1048577", fail: true},
	}
	for _, c := range cases {
		got, err := ParseRef(c.in)
		if c.fail {
			if err == nil {
				t.Errorf("ParseRef(%q): want error, got %v", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRef(%q): %v", c.in, err)
			continue
		}
		if got.Col != c.col || got.Row != c.row || got.AbsCol != c.absCol || got.AbsRow != c.absRow {
			t.Errorf("ParseRef(%q) = %+v, want col=%d row=%d absCol=%v absRow=%v", c.in, got, c.col, c.row, c.absCol, c.absRow)
		}
	}
}

func TestParseRangeSheetQualified(t *testing.T) {
	rg, err := ParseRange("'Name with spaces'!A1:B2")
	if err != nil {
		t.Fatal(err)
	}
	if rg.Sheet != "Name with spaces" {
		t.Errorf("sheet = %q", rg.Sheet)
	}
	if rg.TopLeft != (Ref{Col: 1, Row: 1}) || rg.BottomRight != (Ref{Col: 2, Row: 2}) {
		t.Errorf("range = %+v", rg)
	}

	rg2, err := ParseRange("Data!C3")
	if err != nil {
		t.Fatal(err)
	}
	if rg2.Sheet != "Data" || rg2.TopLeft != rg2.BottomRight {
		t.Errorf("range2 = %+v", rg2)
	}
}

func TestRangeContainsAndNormalize(t *testing.T) {
	rg := Range{TopLeft: Ref{Col: 3, Row: 3}, BottomRight: Ref{Col: 1, Row: 1}}
	n := rg.Normalize()
	if n.TopLeft != (Ref{Col: 1, Row: 1}) || n.BottomRight != (Ref{Col: 3, Row: 3}) {
		t.Fatalf("Normalize() = %+v", n)
	}
	if !rg.Contains(Ref{Col: 2, Row: 2}) {
		t.Errorf("Contains(B2) = false, want true")
	}
	if rg.Contains(Ref{Col: 4, Row: 4}) {
		t.Errorf("Contains(D4) = true, want false")
	}
}

func TestQuoteSheetName(t *testing.T) {
	if QuoteSheetName("Sheet1") != "Sheet1" {
		t.Error("plain name should not be quoted")
	}
	if QuoteSheetName("My Sheet") != "'My Sheet'" {
		t.Error("name with space should be quoted")
	}
}
