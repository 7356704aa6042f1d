package formula

import (
	"sort"

	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

func init() {
	r := DefaultRegistry
	r.Register(&Entry{Name: "VLOOKUP", MinArity: 3, MaxArity: 4, Body: fnVLookup})
	r.Register(&Entry{Name: "HLOOKUP", MinArity: 3, MaxArity: 4, Body: fnHLookup})
	r.Register(&Entry{Name: "MATCH", MinArity: 2, MaxArity: 3, Body: fnMatch})
	r.Register(&Entry{Name: "XLOOKUP", MinArity: 3, MaxArity: 6, Body: fnXLookup})
	r.Register(&Entry{Name: "INDEX", MinArity: 2, MaxArity: 3, Body: fnIndex})
	r.Register(&Entry{Name: "FILTER", MinArity: 2, MaxArity: 3, Body: fnFilter})
	r.Register(&Entry{Name: "SORT", MinArity: 1, MaxArity: 4, Body: fnSort})
	r.Register(&Entry{Name: "SORTBY", MinArity: 2, MaxArity: -1, Body: fnSortBy})
	r.Register(&Entry{Name: "UNIQUE", MinArity: 1, MaxArity: 3, Body: fnUnique})
	r.Register(&Entry{Name: "SEQUENCE", MinArity: 1, MaxArity: 4, Body: fnSequence})
	r.Register(&Entry{Name: "TAKE", MinArity: 2, MaxArity: 3, Body: fnTake})
	r.Register(&Entry{Name: "DROP", MinArity: 2, MaxArity: 3, Body: fnDrop})
	r.Register(&Entry{Name: "VSTACK", MinArity: 1, MaxArity: -1, Body: fnVStack})
	r.Register(&Entry{Name: "HSTACK", MinArity: 1, MaxArity: -1, Body: fnHStack})
	r.Register(&Entry{Name: "TRANSPOSE", MinArity: 1, MaxArity: 1, Body: fnTranspose})
	r.Register(&Entry{Name: "CHOOSECOLS", MinArity: 2, MaxArity: -1, Body: fnChooseCols})
	r.Register(&Entry{Name: "CHOOSEROWS", MinArity: 2, MaxArity: -1, Body: fnChooseRows})
	r.Register(&Entry{Name: "CHOOSE", MinArity: 2, MaxArity: -1, Flags: FlagShortCircuits, Body: fnChoose})
	r.Register(&Entry{Name: "COLUMN", MinArity: 0, MaxArity: 1, Flags: FlagTakesRangeRef, Body: fnColumn})
	r.Register(&Entry{Name: "ROW", MinArity: 0, MaxArity: 1, Flags: FlagTakesRangeRef, Body: fnRow})
	r.Register(&Entry{Name: "COLUMNS", MinArity: 1, MaxArity: 1, Flags: FlagTakesRangeRef, Body: fnColumns})
	r.Register(&Entry{Name: "ROWS", MinArity: 1, MaxArity: 1, Flags: FlagTakesRangeRef, Body: fnRows})
}

// asTable views v (scalar or array) as a rows x cols grid of Values.
func asTable(v value.Value) ([][]value.Value, int, int) {
	if v.Kind != value.KindArray {
		return [][]value.Value{{v}}, 1, 1
	}
	rows := make([][]value.Value, v.Rows)
	for r := 0; r < v.Rows; r++ {
		row := make([]value.Value, v.Cols)
		for c := 0; c < v.Cols; c++ {
			row[c] = v.At(r, c)
		}
		rows[r] = row
	}
	return rows, v.Rows, v.Cols
}

func fnVLookup(ctx *Context, args []Node) value.Value {
	key := Eval(ctx, args[0])
	if key.IsError() {
		return key
	}
	tableV := Eval(ctx, args[1])
	if tableV.IsError() {
		return tableV
	}
	colIdx := value.ToNumber(Eval(ctx, args[2]))
	if colIdx.IsError() {
		return colIdx
	}
	approx := true
	if len(args) == 4 {
		b := value.ToBool(Eval(ctx, args[3]))
		if b.IsError() {
			return b
		}
		approx = b.Bool
	}
	rows, nr, nc := asTable(tableV)
	ci := int(colIdx.Num) - 1
	if ci < 0 || ci >= nc {
		return value.ErrorValue(xlerrors.KindRef)
	}
	idx := lookupRow(rows, nr, 0, key, approx)
	if idx < 0 {
		return value.ErrorValue(xlerrors.KindNA)
	}
	return rows[idx][ci]
}

func fnHLookup(ctx *Context, args []Node) value.Value {
	key := Eval(ctx, args[0])
	if key.IsError() {
		return key
	}
	tableV := Eval(ctx, args[1])
	if tableV.IsError() {
		return tableV
	}
	rowIdx := value.ToNumber(Eval(ctx, args[2]))
	if rowIdx.IsError() {
		return rowIdx
	}
	approx := true
	if len(args) == 4 {
		b := value.ToBool(Eval(ctx, args[3]))
		if b.IsError() {
			return b
		}
		approx = b.Bool
	}
	rows, nr, nc := asTable(tableV)
	ri := int(rowIdx.Num) - 1
	if ri < 0 || ri >= nr {
		return value.ErrorValue(xlerrors.KindRef)
	}
	// transpose the first row into a column for lookupRow's shape
	col := make([][]value.Value, nc)
	for c := 0; c < nc; c++ {
		col[c] = []value.Value{rows[0][c]}
	}
	idx := lookupRow(col, nc, 0, key, approx)
	if idx < 0 {
		return value.ErrorValue(xlerrors.KindNA)
	}
	return rows[ri][idx]
}

// lookupRow scans column col of rows (nr of them) for key, returning the
// matching row index or -1. approx=true performs the binary-search
// "largest value <= key" match (table assumed ascending); approx=false
// performs exact/wildcard matching in table order.
func lookupRow(rows [][]value.Value, nr, col int, key value.Value, approx bool) int {
	if !approx {
		crit := exactCriterion(key)
		for i := 0; i < nr; i++ {
			if crit.matches(rows[i][col]) {
				return i
			}
		}
		return -1
	}
	// the row before the first one whose key is greater than key
	return sort.Search(nr, func(i int) bool {
		return compareForLookup(rows[i][col], key) > 0
	}) - 1
}

func exactCriterion(key value.Value) criterion {
	if key.Kind == value.KindText {
		return criterion{op: "=", operand: key}
	}
	return criterion{op: "=", operand: value.ToNumber(key)}
}

func compareForLookup(a, b value.Value) int {
	if isNumericKind(a) && isNumericKind(b) {
		an, bn := value.ToNumber(a).Num, value.ToNumber(b).Num
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return foldCompare(value.ToText(a), value.ToText(b))
}

func fnMatch(ctx *Context, args []Node) value.Value {
	key := Eval(ctx, args[0])
	if key.IsError() {
		return key
	}
	arrV := Eval(ctx, args[1])
	if arrV.IsError() {
		return arrV
	}
	matchType := 1.0
	if len(args) == 3 {
		m := value.ToNumber(Eval(ctx, args[2]))
		if m.IsError() {
			return m
		}
		matchType = m.Num
	}
	var cells []value.Value
	if arrV.Kind == value.KindArray {
		cells = arrV.Cells
	} else {
		cells = []value.Value{arrV}
	}
	switch {
	case matchType == 0:
		crit := exactCriterion(key)
		for i, c := range cells {
			if crit.matches(c) {
				return value.Number(float64(i + 1))
			}
		}
		return value.ErrorValue(xlerrors.KindNA)
	case matchType > 0:
		best := -1
		for i, c := range cells {
			if compareForLookup(c, key) <= 0 {
				best = i
			} else {
				break
			}
		}
		if best < 0 {
			return value.ErrorValue(xlerrors.KindNA)
		}
		return value.Number(float64(best + 1))
	default:
		best := -1
		for i, c := range cells {
			if compareForLookup(c, key) >= 0 {
				best = i
			} else {
				break
			}
		}
		if best < 0 {
			return value.ErrorValue(xlerrors.KindNA)
		}
		return value.Number(float64(best + 1))
	}
}

func fnXLookup(ctx *Context, args []Node) value.Value {
	key := Eval(ctx, args[0])
	if key.IsError() {
		return key
	}
	lookupV := Eval(ctx, args[1])
	if lookupV.IsError() {
		return lookupV
	}
	returnV := Eval(ctx, args[2])
	if returnV.IsError() {
		return returnV
	}
	var lookupCells []value.Value
	if lookupV.Kind == value.KindArray {
		lookupCells = lookupV.Cells
	} else {
		lookupCells = []value.Value{lookupV}
	}
	crit := exactCriterion(key)
	for i, c := range lookupCells {
		if crit.matches(c) {
			if returnV.Kind == value.KindArray {
				if i < len(returnV.Cells) {
					return returnV.Cells[i]
				}
				return value.ErrorValue(xlerrors.KindRef)
			}
			return returnV
		}
	}
	if len(args) >= 4 {
		return Eval(ctx, args[3])
	}
	return value.ErrorValue(xlerrors.KindNA)
}

func fnIndex(ctx *Context, args []Node) value.Value {
	base := Eval(ctx, args[0])
	if base.IsError() {
		return base
	}
	rows, nr, nc := asTable(base)
	rowN, colN := 0, 0
	if len(args) >= 2 {
		rv := value.ToNumber(Eval(ctx, args[1]))
		if rv.IsError() {
			return rv
		}
		rowN = int(rv.Num)
	}
	if len(args) == 3 {
		cv := value.ToNumber(Eval(ctx, args[2]))
		if cv.IsError() {
			return cv
		}
		colN = int(cv.Num)
	}
	if rowN == 0 && colN == 0 {
		return base
	}
	if rowN == 0 {
		if colN < 1 || colN > nc {
			return value.ErrorValue(xlerrors.KindRef)
		}
		out := make([]value.Value, nr)
		for r := 0; r < nr; r++ {
			out[r] = rows[r][colN-1]
		}
		return value.Array(nr, 1, out)
	}
	if colN == 0 {
		if rowN < 1 || rowN > nr {
			return value.ErrorValue(xlerrors.KindRef)
		}
		return value.Array(1, nc, rows[rowN-1])
	}
	if rowN < 1 || rowN > nr || colN < 1 || colN > nc {
		return value.ErrorValue(xlerrors.KindRef)
	}
	return rows[rowN-1][colN-1]
}

func fnFilter(ctx *Context, args []Node) value.Value {
	arr := Eval(ctx, args[0])
	if arr.IsError() {
		return arr
	}
	include := Eval(ctx, args[1])
	if include.IsError() {
		return include
	}
	rows, nr, nc := asTable(arr)
	var mask []bool
	if include.Kind == value.KindArray {
		for _, c := range include.Cells {
			b := value.ToBool(c)
			mask = append(mask, b.Kind == value.KindBool && b.Bool)
		}
	} else {
		b := value.ToBool(include)
		ok := b.Kind == value.KindBool && b.Bool
		for i := 0; i < nr; i++ {
			mask = append(mask, ok)
		}
	}
	var out []value.Value
	kept := 0
	for r := 0; r < nr && r < len(mask); r++ {
		if mask[r] {
			out = append(out, rows[r]...)
			kept++
		}
	}
	if kept == 0 {
		if len(args) == 3 {
			return Eval(ctx, args[2])
		}
		return value.ErrorValue(xlerrors.KindCalc)
	}
	return value.Array(kept, nc, out)
}

func fnSort(ctx *Context, args []Node) value.Value {
	arr := Eval(ctx, args[0])
	if arr.IsError() {
		return arr
	}
	sortIndex := 1
	if len(args) >= 2 {
		v := value.ToNumber(Eval(ctx, args[1]))
		if v.IsError() {
			return v
		}
		sortIndex = int(v.Num)
	}
	descending := false
	if len(args) >= 3 {
		v := value.ToNumber(Eval(ctx, args[2]))
		if v.IsError() {
			return v
		}
		descending = v.Num < 0
	}
	rows, nr, nc := asTable(arr)
	if sortIndex < 1 || sortIndex > nc {
		return value.ErrorValue(xlerrors.KindValue)
	}
	idx := make([]int, nr)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		c := compareForLookup(rows[idx[a]][sortIndex-1], rows[idx[b]][sortIndex-1])
		if descending {
			return c > 0
		}
		return c < 0
	})
	out := make([]value.Value, 0, nr*nc)
	for _, i := range idx {
		out = append(out, rows[i]...)
	}
	return value.Array(nr, nc, out)
}

func fnSortBy(ctx *Context, args []Node) value.Value {
	arr := Eval(ctx, args[0])
	if arr.IsError() {
		return arr
	}
	rows, nr, nc := asTable(arr)
	type key struct {
		vals []value.Value
		desc bool
	}
	var keys []key
	for i := 1; i+0 < len(args); i += 2 {
		kv := Eval(ctx, args[i])
		if kv.IsError() {
			return kv
		}
		_, knr, _ := asTable(kv)
		if knr != nr {
			return value.ErrorValue(xlerrors.KindValue)
		}
		var cells []value.Value
		if kv.Kind == value.KindArray {
			cells = kv.Cells
		} else {
			cells = []value.Value{kv}
		}
		desc := false
		if i+1 < len(args) {
			ov := value.ToNumber(Eval(ctx, args[i+1]))
			if ov.IsError() {
				return ov
			}
			desc = ov.Num < 0
		}
		keys = append(keys, key{vals: cells, desc: desc})
	}
	idx := make([]int, nr)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		for _, k := range keys {
			c := compareForLookup(k.vals[idx[a]], k.vals[idx[b]])
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	out := make([]value.Value, 0, nr*nc)
	for _, i := range idx {
		out = append(out, rows[i]...)
	}
	return value.Array(nr, nc, out)
}

func fnUnique(ctx *Context, args []Node) value.Value {
	arr := Eval(ctx, args[0])
	if arr.IsError() {
		return arr
	}
	rows, nr, nc := asTable(arr)
	seen := map[string]bool{}
	var out []value.Value
	kept := 0
	for r := 0; r < nr; r++ {
		key := ""
		for _, c := range rows[r] {
			key += value.ToText(c) + "\x00"
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rows[r]...)
		kept++
	}
	return value.Array(kept, nc, out)
}

func fnSequence(ctx *Context, args []Node) value.Value {
	rv := value.ToNumber(Eval(ctx, args[0]))
	if rv.IsError() {
		return rv
	}
	rows := int(rv.Num)
	cols := 1
	start := 1.0
	step := 1.0
	if len(args) >= 2 {
		v := value.ToNumber(Eval(ctx, args[1]))
		if v.IsError() {
			return v
		}
		cols = int(v.Num)
	}
	if len(args) >= 3 {
		v := value.ToNumber(Eval(ctx, args[2]))
		if v.IsError() {
			return v
		}
		start = v.Num
	}
	if len(args) == 4 {
		v := value.ToNumber(Eval(ctx, args[3]))
		if v.IsError() {
			return v
		}
		step = v.Num
	}
	if rows < 1 || cols < 1 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	out := make([]value.Value, rows*cols)
	n := start
	for i := range out {
		out[i] = value.Number(n)
		n += step
	}
	return value.Array(rows, cols, out)
}

func fnTake(ctx *Context, args []Node) value.Value {
	arr := Eval(ctx, args[0])
	if arr.IsError() {
		return arr
	}
	n := value.ToNumber(Eval(ctx, args[1]))
	if n.IsError() {
		return n
	}
	rows, nr, nc := asTable(arr)
	k := int(n.Num)
	var selected [][]value.Value
	if k >= 0 {
		if k > nr {
			k = nr
		}
		selected = rows[:k]
	} else {
		k = -k
		if k > nr {
			k = nr
		}
		selected = rows[nr-k:]
	}
	out := make([]value.Value, 0, len(selected)*nc)
	for _, r := range selected {
		out = append(out, r...)
	}
	return value.Array(len(selected), nc, out)
}

func fnDrop(ctx *Context, args []Node) value.Value {
	arr := Eval(ctx, args[0])
	if arr.IsError() {
		return arr
	}
	n := value.ToNumber(Eval(ctx, args[1]))
	if n.IsError() {
		return n
	}
	rows, nr, nc := asTable(arr)
	k := int(n.Num)
	var selected [][]value.Value
	if k >= 0 {
		if k > nr {
			k = nr
		}
		selected = rows[k:]
	} else {
		k = -k
		if k > nr {
			k = nr
		}
		selected = rows[:nr-k]
	}
	out := make([]value.Value, 0, len(selected)*nc)
	for _, r := range selected {
		out = append(out, r...)
	}
	return value.Array(len(selected), nc, out)
}

func fnVStack(ctx *Context, args []Node) value.Value {
	var out []value.Value
	totalRows := 0
	cols := 0
	for _, a := range args {
		v := Eval(ctx, a)
		if v.IsError() {
			return v
		}
		rows, nr, nc := asTable(v)
		if cols == 0 {
			cols = nc
		} else if nc != cols {
			return value.ErrorValue(xlerrors.KindValue)
		}
		for _, r := range rows {
			out = append(out, r...)
		}
		totalRows += nr
	}
	return value.Array(totalRows, cols, out)
}

func fnHStack(ctx *Context, args []Node) value.Value {
	tables := make([][][]value.Value, len(args))
	maxRows := 0
	totalCols := 0
	for i, a := range args {
		v := Eval(ctx, a)
		if v.IsError() {
			return v
		}
		rows, nr, nc := asTable(v)
		tables[i] = rows
		if nr > maxRows {
			maxRows = nr
		}
		totalCols += nc
	}
	out := make([]value.Value, 0, maxRows*totalCols)
	for r := 0; r < maxRows; r++ {
		for _, t := range tables {
			if r < len(t) {
				out = append(out, t[r]...)
			} else {
				for range t[0] {
					out = append(out, value.ErrorValue(xlerrors.KindNA))
				}
			}
		}
	}
	return value.Array(maxRows, totalCols, out)
}

func fnTranspose(ctx *Context, args []Node) value.Value {
	arr := Eval(ctx, args[0])
	if arr.IsError() {
		return arr
	}
	rows, nr, nc := asTable(arr)
	out := make([]value.Value, 0, nr*nc)
	for c := 0; c < nc; c++ {
		for r := 0; r < nr; r++ {
			out = append(out, rows[r][c])
		}
	}
	return value.Array(nc, nr, out)
}

func fnChooseCols(ctx *Context, args []Node) value.Value {
	arr := Eval(ctx, args[0])
	if arr.IsError() {
		return arr
	}
	rows, nr, nc := asTable(arr)
	var cols []int
	for _, a := range args[1:] {
		v := value.ToNumber(Eval(ctx, a))
		if v.IsError() {
			return v
		}
		c := int(v.Num)
		if c < 0 {
			c = nc + c + 1
		}
		if c < 1 || c > nc {
			return value.ErrorValue(xlerrors.KindValue)
		}
		cols = append(cols, c-1)
	}
	out := make([]value.Value, 0, nr*len(cols))
	for r := 0; r < nr; r++ {
		for _, c := range cols {
			out = append(out, rows[r][c])
		}
	}
	return value.Array(nr, len(cols), out)
}

func fnChooseRows(ctx *Context, args []Node) value.Value {
	arr := Eval(ctx, args[0])
	if arr.IsError() {
		return arr
	}
	rows, nr, nc := asTable(arr)
	var sel []int
	for _, a := range args[1:] {
		v := value.ToNumber(Eval(ctx, a))
		if v.IsError() {
			return v
		}
		r := int(v.Num)
		if r < 0 {
			r = nr + r + 1
		}
		if r < 1 || r > nr {
			return value.ErrorValue(xlerrors.KindValue)
		}
		sel = append(sel, r-1)
	}
	out := make([]value.Value, 0, len(sel)*nc)
	for _, r := range sel {
		out = append(out, rows[r]...)
	}
	return value.Array(len(sel), nc, out)
}

func fnChoose(ctx *Context, args []Node) value.Value {
	idx := value.ToNumber(Eval(ctx, args[0]))
	if idx.IsError() {
		return idx
	}
	i := int(idx.Num)
	if i < 1 || i >= len(args) {
		return value.ErrorValue(xlerrors.KindValue)
	}
	return Eval(ctx, args[i])
}

func fnColumn(ctx *Context, args []Node) value.Value {
	if len(args) == 0 {
		return value.Number(0) // no current-cell tracking without a host callback
	}
	_, rg, ok := nodeRange(ctx, args[0])
	if !ok {
		return value.ErrorValue(xlerrors.KindValue)
	}
	return value.Number(float64(rg.TopLeft.Col))
}

func fnRow(ctx *Context, args []Node) value.Value {
	if len(args) == 0 {
		return value.Number(0)
	}
	_, rg, ok := nodeRange(ctx, args[0])
	if !ok {
		return value.ErrorValue(xlerrors.KindValue)
	}
	return value.Number(float64(rg.TopLeft.Row))
}

func fnColumns(ctx *Context, args []Node) value.Value {
	if _, rg, ok := nodeRange(ctx, args[0]); ok {
		return value.Number(float64(rg.Width()))
	}
	v := Eval(ctx, args[0])
	_, _, nc := asTable(v)
	return value.Number(float64(nc))
}

func fnRows(ctx *Context, args []Node) value.Value {
	if _, rg, ok := nodeRange(ctx, args[0]); ok {
		return value.Number(float64(rg.Height()))
	}
	v := Eval(ctx, args[0])
	_, nr, _ := asTable(v)
	return value.Number(float64(nr))
}
