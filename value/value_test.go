package value

import (
	"testing"

	"github.com/openxlgo/xlcore/xlerrors"
)

func TestToNumber(t *testing.T) {
	cases := []struct {
		in   Value
		want float64
		err  bool
	}{
		{Empty(), 0, false},
		{Bool(true), 1, false},
		{Bool(false), 0, false},
		{Text("  3.5e2  "), 350, false},
		{Text("abc"), 0, true},
		{Number(42), 42, false},
	}
	for _, c := range cases {
		got := ToNumber(c.in)
		if c.err {
			if !got.IsError() || got.Err != xlerrors.KindValue {
				t.Errorf("ToNumber(%+v) = %+v, want #VALUE!", c.in, got)
			}
			continue
		}
		if got.Kind != KindNumber || got.Num != c.want {
			t.Errorf("ToNumber(%+v) = %+v, want %v", c.in, got, c.want)
		}
	}
}

func TestToTextNumberFormatting(t *testing.T) {
	cases := map[float64]string{
		42:       "42",
		3.14:     "3.14",
		0:        "0",
		100000.5: "100000.5",
		1e-5:     "1E-05",
	}
	for in, want := range cases {
		if got := ToText(Number(in)); got != want {
			t.Errorf("ToText(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestToBool(t *testing.T) {
	if got := ToBool(Text("true")); got.Kind != KindBool || !got.Bool {
		t.Errorf("ToBool(true) = %+v", got)
	}
	if got := ToBool(Text("bogus")); !got.IsError() {
		t.Errorf("ToBool(bogus) should error, got %+v", got)
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Text("Apple"), Text("apple")) {
		t.Error("text equality should be case-insensitive")
	}
	if !Equal(Bool(true), Number(1)) {
		t.Error("bool should widen to number for equality")
	}
	if Equal(Text("1"), Number(1)) {
		t.Error("text and number are not equal per spec.md §4.10(2)")
	}
}

func TestArrayAt(t *testing.T) {
	arr := Array(2, 2, []Value{Number(1), Number(2), Number(3), Number(4)})
	if arr.At(1, 0).Num != 3 {
		t.Errorf("At(1,0) = %+v, want 3", arr.At(1, 0))
	}
}
