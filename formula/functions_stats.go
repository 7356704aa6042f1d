package formula

import (
	"math"
	"sort"

	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

func init() {
	r := DefaultRegistry
	r.Register(&Entry{Name: "AVERAGE", MinArity: 1, MaxArity: -1, Body: fnAverage})
	r.Register(&Entry{Name: "MEDIAN", MinArity: 1, MaxArity: -1, Body: fnMedian})
	r.Register(&Entry{Name: "MIN", MinArity: 1, MaxArity: -1, Body: fnMin})
	r.Register(&Entry{Name: "MAX", MinArity: 1, MaxArity: -1, Body: fnMax})
	r.Register(&Entry{Name: "COUNT", MinArity: 1, MaxArity: -1, Body: fnCount})
	r.Register(&Entry{Name: "COUNTA", MinArity: 1, MaxArity: -1, Body: fnCountA})
	r.Register(&Entry{Name: "COUNTBLANK", MinArity: 1, MaxArity: 1, Body: fnCountBlank})
	r.Register(&Entry{Name: "STDEV.S", MinArity: 1, MaxArity: -1, Body: fnStdevS})
	r.Register(&Entry{Name: "STDEV.P", MinArity: 1, MaxArity: -1, Body: fnStdevP})
	r.Register(&Entry{Name: "VAR.S", MinArity: 1, MaxArity: -1, Body: fnVarS})
	r.Register(&Entry{Name: "VAR.P", MinArity: 1, MaxArity: -1, Body: fnVarP})
	r.Register(&Entry{Name: "RANK.AVG", MinArity: 2, MaxArity: 3, Body: fnRankAvg})
	r.Register(&Entry{Name: "RANK.EQ", MinArity: 2, MaxArity: 3, Body: fnRankEq})
	r.Register(&Entry{Name: "LARGE", MinArity: 2, MaxArity: 2, Body: fnLarge})
	r.Register(&Entry{Name: "SMALL", MinArity: 2, MaxArity: 2, Body: fnSmall})
	r.Register(&Entry{Name: "PERCENTILE.INC", MinArity: 2, MaxArity: 2, Body: fnPercentileInc})
	r.Register(&Entry{Name: "GEOMEAN", MinArity: 1, MaxArity: -1, Body: fnGeomean})
	r.Register(&Entry{Name: "HARMEAN", MinArity: 1, MaxArity: -1, Body: fnHarmean})
	r.Register(&Entry{Name: "DEVSQ", MinArity: 1, MaxArity: -1, Body: fnDevsq})
	r.Register(&Entry{Name: "AVEDEV", MinArity: 1, MaxArity: -1, Body: fnAvedev})
	r.Register(&Entry{Name: "CORREL", MinArity: 2, MaxArity: 2, Body: fnCorrel})
	r.Register(&Entry{Name: "COVARIANCE.P", MinArity: 2, MaxArity: 2, Body: fnCovarianceP})
	r.Register(&Entry{Name: "MODE.SNGL", MinArity: 1, MaxArity: -1, Body: fnModeSngl})
}

func fnGeomean(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) == 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	logSum := 0.0
	for _, v := range vals {
		if v <= 0 {
			return value.ErrorValue(xlerrors.KindNum)
		}
		logSum += math.Log(v)
	}
	return value.Number(math.Exp(logSum / float64(len(vals))))
}

func fnHarmean(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) == 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	recipSum := 0.0
	for _, v := range vals {
		if v <= 0 {
			return value.ErrorValue(xlerrors.KindNum)
		}
		recipSum += 1 / v
	}
	return value.Number(float64(len(vals)) / recipSum)
}

func fnDevsq(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) == 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(sumSquaredDiff(vals, meanOf(vals)))
}

func fnAvedev(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) == 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	mean := meanOf(vals)
	total := 0.0
	for _, v := range vals {
		total += math.Abs(v - mean)
	}
	return value.Number(total / float64(len(vals)))
}

func pairedSeries(ctx *Context, a, b Node) ([]float64, []float64, value.Value, bool) {
	xs, errv, ok := flattenNumbers([]value.Value{Eval(ctx, a)})
	if !ok {
		return nil, nil, errv, false
	}
	ys, errv, ok := flattenNumbers([]value.Value{Eval(ctx, b)})
	if !ok {
		return nil, nil, errv, false
	}
	if len(xs) != len(ys) || len(xs) == 0 {
		return nil, nil, value.ErrorValue(xlerrors.KindNA), false
	}
	return xs, ys, value.Value{}, true
}

func fnCorrel(ctx *Context, args []Node) value.Value {
	xs, ys, errv, ok := pairedSeries(ctx, args[0], args[1])
	if !ok {
		return errv
	}
	mx, my := meanOf(xs), meanOf(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return value.ErrorValue(xlerrors.KindDivZero)
	}
	return value.Number(sxy / math.Sqrt(sxx*syy))
}

func fnCovarianceP(ctx *Context, args []Node) value.Value {
	xs, ys, errv, ok := pairedSeries(ctx, args[0], args[1])
	if !ok {
		return errv
	}
	mx, my := meanOf(xs), meanOf(ys)
	total := 0.0
	for i := range xs {
		total += (xs[i] - mx) * (ys[i] - my)
	}
	return value.Number(total / float64(len(xs)))
}

func fnModeSngl(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	counts := map[float64]int{}
	for _, v := range vals {
		counts[v]++
	}
	best, bestCount := 0.0, 0
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	for _, v := range sorted {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	if bestCount < 2 {
		return value.ErrorValue(xlerrors.KindNA)
	}
	return value.Number(best)
}

func fnAverage(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) == 0 {
		return value.ErrorValue(xlerrors.KindDivZero)
	}
	total := 0.0
	for _, v := range vals {
		total += v
	}
	return value.Number(total / float64(len(vals)))
}

func fnMedian(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) == 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return value.Number(sorted[mid])
	}
	return value.Number((sorted[mid-1] + sorted[mid]) / 2)
}

func fnMin(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) == 0 {
		return value.Number(0)
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return value.Number(m)
}

func fnMax(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) == 0 {
		return value.Number(0)
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return value.Number(m)
}

func fnCount(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	return value.Number(float64(len(vals)))
}

func fnCountA(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenAll(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	n := 0
	for _, v := range vals {
		if v.Kind != value.KindEmpty {
			n++
		}
	}
	return value.Number(float64(n))
}

func fnCountBlank(ctx *Context, args []Node) value.Value {
	cells, errv, ok := rangeCells(ctx, args[0])
	if !ok {
		return errv
	}
	n := 0
	for _, c := range cells {
		if c.Kind == value.KindEmpty || (c.Kind == value.KindText && c.Str == "") {
			n++
		}
	}
	return value.Number(float64(n))
}

func meanOf(vals []float64) float64 {
	total := 0.0
	for _, v := range vals {
		total += v
	}
	return total / float64(len(vals))
}

func sumSquaredDiff(vals []float64, mean float64) float64 {
	total := 0.0
	for _, v := range vals {
		d := v - mean
		total += d * d
	}
	return total
}

func fnVarS(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) < 2 {
		return value.ErrorValue(xlerrors.KindDivZero)
	}
	return value.Number(sumSquaredDiff(vals, meanOf(vals)) / float64(len(vals)-1))
}

func fnVarP(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) == 0 {
		return value.ErrorValue(xlerrors.KindDivZero)
	}
	return value.Number(sumSquaredDiff(vals, meanOf(vals)) / float64(len(vals)))
}

func fnStdevS(ctx *Context, args []Node) value.Value {
	v := fnVarS(ctx, args)
	if v.IsError() {
		return v
	}
	return value.Number(math.Sqrt(v.Num))
}

func fnStdevP(ctx *Context, args []Node) value.Value {
	v := fnVarP(ctx, args)
	if v.IsError() {
		return v
	}
	return value.Number(math.Sqrt(v.Num))
}

func fnLarge(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers([]value.Value{Eval(ctx, args[0])})
	if !ok {
		return errv
	}
	k := value.ToNumber(Eval(ctx, args[1]))
	if k.IsError() {
		return k
	}
	ki := int(k.Num)
	if ki < 1 || ki > len(vals) {
		return value.ErrorValue(xlerrors.KindNum)
	}
	sorted := append([]float64(nil), vals...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	return value.Number(sorted[ki-1])
}

func fnSmall(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers([]value.Value{Eval(ctx, args[0])})
	if !ok {
		return errv
	}
	k := value.ToNumber(Eval(ctx, args[1]))
	if k.IsError() {
		return k
	}
	ki := int(k.Num)
	if ki < 1 || ki > len(vals) {
		return value.ErrorValue(xlerrors.KindNum)
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	return value.Number(sorted[ki-1])
}

func fnPercentileInc(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers([]value.Value{Eval(ctx, args[0])})
	if !ok {
		return errv
	}
	k := value.ToNumber(Eval(ctx, args[1]))
	if k.IsError() {
		return k
	}
	if k.Num < 0 || k.Num > 1 || len(vals) == 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return value.Number(sorted[0])
	}
	pos := k.Num * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return value.Number(sorted[lo])
	}
	frac := pos - float64(lo)
	return value.Number(sorted[lo] + frac*(sorted[hi]-sorted[lo]))
}

func fnRankEq(ctx *Context, args []Node) value.Value {
	return rankImpl(ctx, args, false)
}

func fnRankAvg(ctx *Context, args []Node) value.Value {
	return rankImpl(ctx, args, true)
}

func rankImpl(ctx *Context, args []Node, avg bool) value.Value {
	target := value.ToNumber(Eval(ctx, args[0]))
	if target.IsError() {
		return target
	}
	vals, errv, ok := flattenNumbers([]value.Value{Eval(ctx, args[1])})
	if !ok {
		return errv
	}
	descending := true
	if len(args) == 3 {
		order := value.ToNumber(Eval(ctx, args[2]))
		if order.IsError() {
			return order
		}
		descending = order.Num == 0
	}
	var better, equal int
	for _, v := range vals {
		switch {
		case descending && v > target.Num, !descending && v < target.Num:
			better++
		case v == target.Num:
			equal++
		}
	}
	if equal == 0 {
		return value.ErrorValue(xlerrors.KindNA)
	}
	if avg {
		return value.Number(float64(better) + (float64(equal)+1)/2)
	}
	return value.Number(float64(better) + 1)
}
