package formula

import (
	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

func init() {
	r := DefaultRegistry
	r.Register(&Entry{Name: "DSUM", MinArity: 3, MaxArity: 3, Body: dAgg(dSumAgg)})
	r.Register(&Entry{Name: "DCOUNT", MinArity: 3, MaxArity: 3, Body: dAgg(dCountAgg)})
	r.Register(&Entry{Name: "DCOUNTA", MinArity: 3, MaxArity: 3, Body: dAgg(dCountAAgg)})
	r.Register(&Entry{Name: "DAVERAGE", MinArity: 3, MaxArity: 3, Body: dAgg(dAverageAgg)})
	r.Register(&Entry{Name: "DMAX", MinArity: 3, MaxArity: 3, Body: dAgg(dMaxAgg)})
	r.Register(&Entry{Name: "DMIN", MinArity: 3, MaxArity: 3, Body: dAgg(dMinAgg)})
	r.Register(&Entry{Name: "DGET", MinArity: 3, MaxArity: 3, Body: dAgg(dGetAgg)})
	r.Register(&Entry{Name: "DPRODUCT", MinArity: 3, MaxArity: 3, Body: dAgg(dProductAgg)})
}

// database is a parsed D*-function database: column headers and the data
// rows below them, per spec.md's database-function-family description.
type database struct {
	headers []string
	rows    [][]value.Value
}

func parseDatabase(v value.Value) (database, bool) {
	if v.Kind != value.KindArray || v.Rows < 2 {
		return database{}, false
	}
	headers := make([]string, v.Cols)
	for c := 0; c < v.Cols; c++ {
		headers[c] = value.ToText(v.At(0, c))
	}
	rows := make([][]value.Value, v.Rows-1)
	for r := 1; r < v.Rows; r++ {
		row := make([]value.Value, v.Cols)
		for c := 0; c < v.Cols; c++ {
			row[c] = v.At(r, c)
		}
		rows[r-1] = row
	}
	return database{headers: headers, rows: rows}, true
}

// rowMatchesCriteriaRow reports whether row passes one criteria row:
// every non-empty cell in critRow must match the value in row under the
// database column with the matching header name. A full criteria table
// (multiple rows) ORs these per-row results together.
func rowMatchesCriteriaRow(db database, row []value.Value, critHeaders []string, critRow []value.Value) bool {
	for i, name := range critHeaders {
		if i >= len(critRow) {
			continue
		}
		cv := critRow[i]
		if cv.Kind == value.KindEmpty || (cv.Kind == value.KindText && cv.Str == "") {
			continue
		}
		col := -1
		for j, h := range db.headers {
			if foldEqual(h, name) {
				col = j
				break
			}
		}
		if col < 0 {
			return false
		}
		if !parseCriterion(cv).matches(row[col]) {
			return false
		}
	}
	return true
}

func selectDatabaseRows(ctx *Context, dbNode, fieldNode, critNode Node) ([]value.Value, int, value.Value, bool) {
	dbv := Eval(ctx, dbNode)
	if dbv.IsError() {
		return nil, 0, dbv, false
	}
	db, ok := parseDatabase(dbv)
	if !ok {
		return nil, 0, value.ErrorValue(xlerrors.KindValue), false
	}
	critv := Eval(ctx, critNode)
	if critv.IsError() {
		return nil, 0, critv, false
	}
	crit, ok := parseDatabase(critv)
	if !ok {
		return nil, 0, value.ErrorValue(xlerrors.KindValue), false
	}

	fieldv := Eval(ctx, fieldNode)
	if fieldv.IsError() {
		return nil, 0, fieldv, false
	}
	fieldCol := -1
	if fieldv.Kind == value.KindNumber {
		fieldCol = int(fieldv.Num) - 1
	} else {
		name := value.ToText(fieldv)
		for i, h := range db.headers {
			if foldEqual(h, name) {
				fieldCol = i
				break
			}
		}
	}
	if fieldCol < 0 || fieldCol >= len(db.headers) {
		return nil, 0, value.ErrorValue(xlerrors.KindValue), false
	}

	var out []value.Value
	for _, row := range db.rows {
		matched := false
		for _, critRow := range crit.rows {
			if rowMatchesCriteriaRow(db, row, crit.headers, critRow) {
				matched = true
				break
			}
		}
		if matched {
			out = append(out, row[fieldCol])
		}
	}
	return out, fieldCol, value.Value{}, true
}

func dAgg(agg func([]value.Value) value.Value) Body {
	return func(ctx *Context, args []Node) value.Value {
		vals, _, errv, ok := selectDatabaseRows(ctx, args[0], args[1], args[2])
		if !ok {
			return errv
		}
		return agg(vals)
	}
}

func dSumAgg(vals []value.Value) value.Value {
	total := 0.0
	for _, v := range vals {
		n := value.ToNumber(v)
		if n.Kind == value.KindNumber {
			total += n.Num
		}
	}
	return value.Number(total)
}

func dCountAgg(vals []value.Value) value.Value {
	n := 0
	for _, v := range vals {
		if value.ToNumber(v).Kind == value.KindNumber {
			n++
		}
	}
	return value.Number(float64(n))
}

func dCountAAgg(vals []value.Value) value.Value {
	n := 0
	for _, v := range vals {
		if v.Kind != value.KindEmpty {
			n++
		}
	}
	return value.Number(float64(n))
}

func dAverageAgg(vals []value.Value) value.Value {
	total, n := 0.0, 0
	for _, v := range vals {
		num := value.ToNumber(v)
		if num.Kind == value.KindNumber {
			total += num.Num
			n++
		}
	}
	if n == 0 {
		return value.ErrorValue(xlerrors.KindDivZero)
	}
	return value.Number(total / float64(n))
}

func dMaxAgg(vals []value.Value) value.Value {
	best := 0.0
	found := false
	for _, v := range vals {
		num := value.ToNumber(v)
		if num.Kind == value.KindNumber && (!found || num.Num > best) {
			best, found = num.Num, true
		}
	}
	return value.Number(best)
}

func dMinAgg(vals []value.Value) value.Value {
	best := 0.0
	found := false
	for _, v := range vals {
		num := value.ToNumber(v)
		if num.Kind == value.KindNumber && (!found || num.Num < best) {
			best, found = num.Num, true
		}
	}
	return value.Number(best)
}

func dGetAgg(vals []value.Value) value.Value {
	if len(vals) == 0 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	if len(vals) > 1 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return vals[0]
}

func dProductAgg(vals []value.Value) value.Value {
	p := 1.0
	for _, v := range vals {
		num := value.ToNumber(v)
		if num.Kind == value.KindNumber {
			p *= num.Num
		}
	}
	return value.Number(p)
}
