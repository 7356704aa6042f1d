package formula

import (
	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

func init() {
	r := DefaultRegistry
	r.Register(&Entry{Name: "COUNTIF", MinArity: 2, MaxArity: 2, Body: fnCountIf})
	r.Register(&Entry{Name: "SUMIF", MinArity: 2, MaxArity: 3, Body: fnSumIf})
	r.Register(&Entry{Name: "AVERAGEIF", MinArity: 2, MaxArity: 3, Body: fnAverageIf})
	r.Register(&Entry{Name: "COUNTIFS", MinArity: 2, MaxArity: -1, Body: fnCountIfs})
	r.Register(&Entry{Name: "SUMIFS", MinArity: 3, MaxArity: -1, Body: fnSumIfs})
	r.Register(&Entry{Name: "AVERAGEIFS", MinArity: 3, MaxArity: -1, Body: fnAverageIfs})
	r.Register(&Entry{Name: "MAXIFS", MinArity: 3, MaxArity: -1, Body: fnMaxIfs})
	r.Register(&Entry{Name: "MINIFS", MinArity: 3, MaxArity: -1, Body: fnMinIfs})
}

func fnCountIf(ctx *Context, args []Node) value.Value {
	idx, errv, ok := matchingIndexes(ctx, args)
	if !ok {
		return errv
	}
	return value.Number(float64(len(idx)))
}

func fnSumIf(ctx *Context, args []Node) value.Value {
	sumArgs := args[:2]
	sumRange := args[0]
	if len(args) == 3 {
		sumRange = args[2]
	}
	idx, errv, ok := matchingIndexes(ctx, sumArgs)
	if !ok {
		return errv
	}
	cells, errv2, ok := rangeCells(ctx, sumRange)
	if !ok {
		return errv2
	}
	total := 0.0
	for _, i := range idx {
		if i < len(cells) {
			n := value.ToNumber(cells[i])
			if n.Kind == value.KindNumber {
				total += n.Num
			}
		}
	}
	return value.Number(total)
}

func fnAverageIf(ctx *Context, args []Node) value.Value {
	sumArgs := args[:2]
	avgRange := args[0]
	if len(args) == 3 {
		avgRange = args[2]
	}
	idx, errv, ok := matchingIndexes(ctx, sumArgs)
	if !ok {
		return errv
	}
	cells, errv2, ok := rangeCells(ctx, avgRange)
	if !ok {
		return errv2
	}
	total, count := 0.0, 0
	for _, i := range idx {
		if i < len(cells) {
			n := value.ToNumber(cells[i])
			if n.Kind == value.KindNumber {
				total += n.Num
				count++
			}
		}
	}
	if count == 0 {
		return value.ErrorValue(xlerrors.KindDivZero)
	}
	return value.Number(total / float64(count))
}

func fnCountIfs(ctx *Context, args []Node) value.Value {
	idx, errv, ok := matchingIndexes(ctx, args)
	if !ok {
		return errv
	}
	return value.Number(float64(len(idx)))
}

func fnSumIfs(ctx *Context, args []Node) value.Value {
	idx, errv, ok := matchingIndexes(ctx, args[1:])
	if !ok {
		return errv
	}
	cells, errv2, ok := rangeCells(ctx, args[0])
	if !ok {
		return errv2
	}
	total := 0.0
	for _, i := range idx {
		if i < len(cells) {
			n := value.ToNumber(cells[i])
			if n.Kind == value.KindNumber {
				total += n.Num
			}
		}
	}
	return value.Number(total)
}

func fnAverageIfs(ctx *Context, args []Node) value.Value {
	idx, errv, ok := matchingIndexes(ctx, args[1:])
	if !ok {
		return errv
	}
	cells, errv2, ok := rangeCells(ctx, args[0])
	if !ok {
		return errv2
	}
	total, count := 0.0, 0
	for _, i := range idx {
		if i < len(cells) {
			n := value.ToNumber(cells[i])
			if n.Kind == value.KindNumber {
				total += n.Num
				count++
			}
		}
	}
	if count == 0 {
		return value.ErrorValue(xlerrors.KindDivZero)
	}
	return value.Number(total / float64(count))
}

func fnMaxIfs(ctx *Context, args []Node) value.Value {
	idx, errv, ok := matchingIndexes(ctx, args[1:])
	if !ok {
		return errv
	}
	cells, errv2, ok := rangeCells(ctx, args[0])
	if !ok {
		return errv2
	}
	best := 0.0
	found := false
	for _, i := range idx {
		if i < len(cells) {
			n := value.ToNumber(cells[i])
			if n.Kind == value.KindNumber && (!found || n.Num > best) {
				best, found = n.Num, true
			}
		}
	}
	return value.Number(best)
}

func fnMinIfs(ctx *Context, args []Node) value.Value {
	idx, errv, ok := matchingIndexes(ctx, args[1:])
	if !ok {
		return errv
	}
	cells, errv2, ok := rangeCells(ctx, args[0])
	if !ok {
		return errv2
	}
	best := 0.0
	found := false
	for _, i := range idx {
		if i < len(cells) {
			n := value.ToNumber(cells[i])
			if n.Kind == value.KindNumber && (!found || n.Num < best) {
				best, found = n.Num, true
			}
		}
	}
	return value.Number(best)
}
