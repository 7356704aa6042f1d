package formula

import (
	"strconv"
	"strings"

	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

// criterion is a parsed COUNTIF/SUMIF-family criteria argument: either a
// comparator + operand ("<10", ">=5", "<>yes") or a wildcard/exact text
// match ("a*b", "apple"). Grounded on the general shape of Excel's
// criteria grammar described in spec.md's criteria-family row.
type criterion struct {
	op      string // "", "=", "<>", "<", "<=", ">", ">="
	operand value.Value
}

func parseCriterion(v value.Value) criterion {
	if v.Kind != value.KindText {
		return criterion{op: "=", operand: v}
	}
	s := v.Str
	for _, op := range []string{"<=", ">=", "<>", "<", ">", "="} {
		if strings.HasPrefix(s, op) {
			rest := strings.TrimSpace(s[len(op):])
			if n, ok := parseCriterionNumber(rest); ok {
				return criterion{op: op, operand: value.Number(n)}
			}
			return criterion{op: op, operand: value.Text(rest)}
		}
	}
	if n, ok := parseCriterionNumber(s); ok {
		return criterion{op: "=", operand: value.Number(n)}
	}
	return criterion{op: "=", operand: value.Text(s)}
}

func parseCriterionNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// matches reports whether cell satisfies c, per spec.md's criteria-family
// semantics: "=" and "<>" compare numerically against a number operand
// and as case-insensitive text against a text operand, where '*' and '?'
// wildcards apply (escaped by '~'); "<", "<=", ">" and ">=" match only
// numeric cells against a number operand, never text.
func (c criterion) matches(cell value.Value) bool {
	switch c.op {
	case "=", "<>":
		var eq bool
		if c.operand.Kind == value.KindText {
			eq = wildcardMatch(upperASCII(c.operand.Str), upperASCII(value.ToText(cell)))
		} else {
			eq = isNumericKind(cell) && value.ToNumber(cell).Num == c.operand.Num
		}
		if c.op == "<>" {
			return !eq
		}
		return eq
	default:
		if !isNumericKind(cell) || c.operand.Kind != value.KindNumber {
			return false
		}
		cn := value.ToNumber(cell).Num
		switch c.op {
		case "<":
			return cn < c.operand.Num
		case "<=":
			return cn <= c.operand.Num
		case ">":
			return cn > c.operand.Num
		case ">=":
			return cn >= c.operand.Num
		}
	}
	return false
}

// wildcardMatch implements Excel's '*' (any run) and '?' (any one char)
// wildcards over pattern against s, both already upper-cased. '~*'/'~?'
// escape a literal wildcard character.
func wildcardMatch(pattern, s string) bool {
	return wildcardMatchRunes([]rune(pattern), []rune(s))
}

func wildcardMatchRunes(p, s []rune) bool {
	for len(p) > 0 {
		switch {
		case p[0] == '~' && len(p) > 1 && (p[1] == '*' || p[1] == '?' || p[1] == '~'):
			if len(s) == 0 || s[0] != p[1] {
				return false
			}
			p, s = p[2:], s[1:]
		case p[0] == '?':
			if len(s) == 0 {
				return false
			}
			p, s = p[1:], s[1:]
		case p[0] == '*':
			if len(p) == 1 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if wildcardMatchRunes(p[1:], s[i:]) {
					return true
				}
			}
			return false
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return len(s) == 0
}

// rangeCells evaluates a range/ref argument node to its flat cell list,
// in row-major order, matching the Array shape evalRange produces.
func rangeCells(ctx *Context, n Node) ([]value.Value, value.Value, bool) {
	v := Eval(ctx, n)
	if v.IsError() {
		return nil, v, false
	}
	if v.Kind == value.KindArray {
		return v.Cells, value.Value{}, true
	}
	return []value.Value{v}, value.Value{}, true
}

// matchingIndexes evaluates a range/criteria pair list and returns the
// flat indexes satisfying every pair, for the *IF/*IFS function family.
func matchingIndexes(ctx *Context, rangeCriteriaPairs []Node) ([]int, value.Value, bool) {
	type pair struct {
		cells []value.Value
		crit  criterion
	}
	var pairs []pair
	n := -1
	for i := 0; i+1 < len(rangeCriteriaPairs); i += 2 {
		cells, errv, ok := rangeCells(ctx, rangeCriteriaPairs[i])
		if !ok {
			return nil, errv, false
		}
		if n < 0 {
			n = len(cells)
		} else if len(cells) != n {
			return nil, value.ErrorValue(xlerrors.KindValue), false
		}
		cv := Eval(ctx, rangeCriteriaPairs[i+1])
		if cv.IsError() {
			return nil, cv, false
		}
		pairs = append(pairs, pair{cells: cells, crit: parseCriterion(cv)})
	}
	var idx []int
	for i := 0; i < n; i++ {
		ok := true
		for _, p := range pairs {
			if !p.crit.matches(p.cells[i]) {
				ok = false
				break
			}
		}
		if ok {
			idx = append(idx, i)
		}
	}
	return idx, value.Value{}, true
}
