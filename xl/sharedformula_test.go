package xl

import "testing"

func TestShiftFormulaRefsRelative(t *testing.T) {
	cases := []struct {
		formula    string
		dCol, dRow int
		want       string
	}{
		{"A1+B1", 1, 0, "B1+C1"},
		{"A1+B1", 0, 2, "A3+B3"},
		{"SUM(A1:A10)", 1, 1, "SUM(B2:B11)"},
		{"$A1+B$1", 1, 1, "$A2+C$1"},
		{`IF(A1="B1",1,2)`, 1, 0, `IF(B1="B1",1,2)`},
	}
	for _, c := range cases {
		got := shiftFormulaRefs(c.formula, c.dCol, c.dRow)
		if got != c.want {
			t.Errorf("shiftFormulaRefs(%q, %d, %d) = %q, want %q", c.formula, c.dCol, c.dRow, got, c.want)
		}
	}
}

func TestExpandSharedFormula(t *testing.T) {
	g := &sharedFormulaGroup{text: "A1*2", masterCol: 1, masterRow: 1}
	if got := expandSharedFormula(g, 1, 1); got != "A1*2" {
		t.Errorf("expandSharedFormula at master = %q, want unchanged", got)
	}
	if got := expandSharedFormula(g, 1, 2); got != "A2*2" {
		t.Errorf("expandSharedFormula one row down = %q, want A2*2", got)
	}
	if got := expandSharedFormula(g, 2, 1); got != "B1*2" {
		t.Errorf("expandSharedFormula one col over = %q, want B1*2", got)
	}
}
