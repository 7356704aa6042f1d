package xl

import (
	"bytes"
	"testing"

	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

func buildSampleWorkbook(t *testing.T) *Workbook {
	t.Helper()
	wb := NewWorkbook()
	sh, err := wb.AddSheet("Data")
	if err != nil {
		t.Fatalf("AddSheet: %v", err)
	}

	r1 := sh.AddRow()
	r1.AddCell().SetStr("label")
	r1.AddCell().SetFloat(3.5)

	r2 := sh.AddRow()
	r2.AddCell().SetBool(true)
	r2.AddCell().SetDate(45000)

	r3 := sh.AddRow()
	r3.AddCell().SetFormula("1+2", value.Number(3))
	errCell := r3.AddCell()
	errCell.SetFormula("1/0", value.ErrorValue(xlerrors.KindDivZero))

	if err := sh.Merge("A1:B1"); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	sh.SetColumnWidth(1, 12.5)

	return wb
}

func writeToBytes(t *testing.T, wb *Workbook) []byte {
	t.Helper()
	var buf bytes.Buffer
	zs := NewZipStorage(&buf)
	if err := wb.Save(zs); err != nil {
		t.Fatalf("Save: %v", err)
	}
	zs.Close()
	return buf.Bytes()
}

func TestRoundTripCellValues(t *testing.T) {
	wb := buildSampleWorkbook(t)
	data := writeToBytes(t, wb)

	got, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	sh, ok := got.SheetByName("Data")
	if !ok {
		t.Fatalf("sheet %q not found after round trip", "Data")
	}

	check := func(col, row int, want value.Value) {
		t.Helper()
		c, ok := sh.CellAt(col, row)
		if !ok {
			t.Errorf("cell (%d,%d) missing after round trip", col, row)
			return
		}
		got := c.Value()
		if got.Kind != want.Kind {
			t.Errorf("cell (%d,%d) kind = %v, want %v", col, row, got.Kind, want.Kind)
			return
		}
		switch want.Kind {
		case value.KindText:
			if got.Str != want.Str {
				t.Errorf("cell (%d,%d) = %q, want %q", col, row, got.Str, want.Str)
			}
		case value.KindNumber, value.KindDate:
			if got.Num != want.Num {
				t.Errorf("cell (%d,%d) = %v, want %v", col, row, got.Num, want.Num)
			}
		case value.KindBool:
			if got.Bool != want.Bool {
				t.Errorf("cell (%d,%d) = %v, want %v", col, row, got.Bool, want.Bool)
			}
		}
	}

	check(1, 1, value.Text("label"))
	check(2, 1, value.Number(3.5))
	check(1, 2, value.Bool(true))
	check(2, 2, value.Date(45000))
	check(1, 3, value.Number(3))

	c, ok := sh.CellAt(2, 3)
	if !ok {
		t.Fatalf("formula error cell missing")
	}
	if got := c.Value(); got.Kind != value.KindError {
		t.Errorf("formula error cell kind = %v, want error", got.Kind)
	}
	if f, ok := c.Formula(); !ok || f != "1/0" {
		t.Errorf("formula text = %q, %v, want %q, true", f, ok, "1/0")
	}

	if len(sh.MergeCells) != 1 || sh.MergeCells[0].Ref != "A1:B1" {
		t.Errorf("merge cells = %+v, want [{A1:B1}]", sh.MergeCells)
	}
	if sh.Columns[1] == nil || sh.Columns[1].Width != 12.5 {
		t.Errorf("column 1 width = %+v, want 12.5", sh.Columns[1])
	}
}

func TestRoundTripThroughResolver(t *testing.T) {
	wb := buildSampleWorkbook(t)
	data := writeToBytes(t, wb)

	got, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	r := NewResolver(got)
	names := r.SheetNames()
	if len(names) != 1 || names[0] != "Data" {
		t.Errorf("SheetNames = %v, want [Data]", names)
	}
}
