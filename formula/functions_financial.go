package formula

import (
	"math"

	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

func init() {
	r := DefaultRegistry
	r.Register(&Entry{Name: "PMT", MinArity: 3, MaxArity: 5, Body: fnPmt})
	r.Register(&Entry{Name: "PV", MinArity: 3, MaxArity: 5, Body: fnPv})
	r.Register(&Entry{Name: "FV", MinArity: 3, MaxArity: 5, Body: fnFv})
	r.Register(&Entry{Name: "NPER", MinArity: 3, MaxArity: 5, Body: fnNper})
	r.Register(&Entry{Name: "RATE", MinArity: 3, MaxArity: 6, Body: fnRate})
	r.Register(&Entry{Name: "NPV", MinArity: 2, MaxArity: -1, Body: fnNpv})
	r.Register(&Entry{Name: "IRR", MinArity: 1, MaxArity: 2, Body: fnIrr})
	r.Register(&Entry{Name: "XIRR", MinArity: 2, MaxArity: 3, Body: fnXirr})
	r.Register(&Entry{Name: "XNPV", MinArity: 3, MaxArity: 3, Body: fnXnpv})
	r.Register(&Entry{Name: "SLN", MinArity: 3, MaxArity: 3, Body: fnSln})
	r.Register(&Entry{Name: "DB", MinArity: 4, MaxArity: 5, Body: fnDb})
	r.Register(&Entry{Name: "DDB", MinArity: 4, MaxArity: 5, Body: fnDdb})
}

// fnPmt/fnPv/fnFv/fnNper/fnRate follow the standard annuity identity
// pv*(1+r)^n + pmt*(1+r*type)*((1+r)^n-1)/r + fv = 0
// used throughout Excel's financial family (spec.md §4.10(10)).

func financialArgs(ctx *Context, args []Node, n int) ([]float64, value.Value, bool) {
	out := make([]float64, n)
	for i := 0; i < n && i < len(args); i++ {
		v, errv, ok := numArg(ctx, args[i])
		if !ok {
			return nil, errv, false
		}
		out[i] = v
	}
	return out, value.Value{}, true
}

func fnPmt(ctx *Context, args []Node) value.Value {
	rate, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	nper, errv, ok := numArg(ctx, args[1])
	if !ok {
		return errv
	}
	pv, errv, ok := numArg(ctx, args[2])
	if !ok {
		return errv
	}
	fv, typ := 0.0, 0.0
	if len(args) >= 4 {
		if v, errv, ok := numArg(ctx, args[3]); ok {
			fv = v
		} else {
			return errv
		}
	}
	if len(args) == 5 {
		if v, errv, ok := numArg(ctx, args[4]); ok {
			typ = v
		} else {
			return errv
		}
	}
	if rate == 0 {
		return value.Number(-(pv + fv) / nper)
	}
	pow := math.Pow(1+rate, nper)
	return value.Number(-(pv*pow + fv) * rate / ((pow - 1) * (1 + rate*typ)))
}

func fnPv(ctx *Context, args []Node) value.Value {
	rate, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	nper, errv, ok := numArg(ctx, args[1])
	if !ok {
		return errv
	}
	pmt, errv, ok := numArg(ctx, args[2])
	if !ok {
		return errv
	}
	fv, typ := 0.0, 0.0
	if len(args) >= 4 {
		if v, errv, ok := numArg(ctx, args[3]); ok {
			fv = v
		} else {
			return errv
		}
	}
	if len(args) == 5 {
		if v, errv, ok := numArg(ctx, args[4]); ok {
			typ = v
		} else {
			return errv
		}
	}
	if rate == 0 {
		return value.Number(-(fv + pmt*nper))
	}
	pow := math.Pow(1+rate, nper)
	return value.Number(-(fv + pmt*(1+rate*typ)*(pow-1)/rate) / pow)
}

func fnFv(ctx *Context, args []Node) value.Value {
	rate, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	nper, errv, ok := numArg(ctx, args[1])
	if !ok {
		return errv
	}
	pmt, errv, ok := numArg(ctx, args[2])
	if !ok {
		return errv
	}
	pv, typ := 0.0, 0.0
	if len(args) >= 4 {
		if v, errv, ok := numArg(ctx, args[3]); ok {
			pv = v
		} else {
			return errv
		}
	}
	if len(args) == 5 {
		if v, errv, ok := numArg(ctx, args[4]); ok {
			typ = v
		} else {
			return errv
		}
	}
	if rate == 0 {
		return value.Number(-(pv + pmt*nper))
	}
	pow := math.Pow(1+rate, nper)
	return value.Number(-(pv*pow + pmt*(1+rate*typ)*(pow-1)/rate))
}

func fnNper(ctx *Context, args []Node) value.Value {
	rate, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	pmt, errv, ok := numArg(ctx, args[1])
	if !ok {
		return errv
	}
	pv, errv, ok := numArg(ctx, args[2])
	if !ok {
		return errv
	}
	fv, typ := 0.0, 0.0
	if len(args) >= 4 {
		if v, errv, ok := numArg(ctx, args[3]); ok {
			fv = v
		} else {
			return errv
		}
	}
	if len(args) == 5 {
		if v, errv, ok := numArg(ctx, args[4]); ok {
			typ = v
		} else {
			return errv
		}
	}
	if rate == 0 {
		if pmt == 0 {
			return value.ErrorValue(xlerrors.KindDivZero)
		}
		return value.Number(-(pv + fv) / pmt)
	}
	adj := pmt * (1 + rate*typ) / rate
	num := adj - fv
	den := pv + adj
	if den == 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	ratio := num / den
	if ratio <= 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(math.Log(ratio) / math.Log(1+rate))
}

// rateNPV-style Newton-Raphson: RATE has no closed form, so it iterates
// the PMT identity's residual, bounded by ctx.MaxIterations/Tolerance
// per spec.md §4.10(10).
func fnRate(ctx *Context, args []Node) value.Value {
	nper, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	pmt, errv, ok := numArg(ctx, args[1])
	if !ok {
		return errv
	}
	pv, errv, ok := numArg(ctx, args[2])
	if !ok {
		return errv
	}
	fv, typ, guess := 0.0, 0.0, 0.1
	if len(args) >= 4 {
		if v, errv, ok := numArg(ctx, args[3]); ok {
			fv = v
		} else {
			return errv
		}
	}
	if len(args) >= 5 {
		if v, errv, ok := numArg(ctx, args[4]); ok {
			typ = v
		} else {
			return errv
		}
	}
	if len(args) == 6 {
		if v, errv, ok := numArg(ctx, args[5]); ok {
			guess = v
		} else {
			return errv
		}
	}
	f := func(r float64) float64 {
		if r == 0 {
			return pv + pmt*nper + fv
		}
		pow := math.Pow(1+r, nper)
		return pv*pow + pmt*(1+r*typ)*(pow-1)/r + fv
	}
	r := guess
	for i := 0; i < ctx.MaxIterations; i++ {
		fr := f(r)
		h := 1e-6
		deriv := (f(r+h) - fr) / h
		if deriv == 0 {
			return value.ErrorValue(xlerrors.KindNum)
		}
		next := r - fr/deriv
		if math.Abs(next-r) < ctx.Tolerance {
			return value.Number(next)
		}
		r = next
	}
	return value.ErrorValue(xlerrors.KindNum)
}

func fnNpv(ctx *Context, args []Node) value.Value {
	rate, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args[1:]))
	if !ok {
		return errv
	}
	total := 0.0
	for i, v := range vals {
		total += v / math.Pow(1+rate, float64(i+1))
	}
	return value.Number(total)
}

func fnIrr(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers([]value.Value{Eval(ctx, args[0])})
	if !ok {
		return errv
	}
	guess := 0.1
	if len(args) == 2 {
		if v, errv, ok := numArg(ctx, args[1]); ok {
			guess = v
		} else {
			return errv
		}
	}
	npv := func(r float64) float64 {
		total := 0.0
		for i, v := range vals {
			total += v / math.Pow(1+r, float64(i))
		}
		return total
	}
	r := guess
	for i := 0; i < ctx.MaxIterations; i++ {
		fr := npv(r)
		h := 1e-6
		deriv := (npv(r+h) - fr) / h
		if deriv == 0 {
			return value.ErrorValue(xlerrors.KindNum)
		}
		next := r - fr/deriv
		if math.Abs(next-r) < ctx.Tolerance {
			return value.Number(next)
		}
		r = next
	}
	return value.ErrorValue(xlerrors.KindNum)
}

func fnXnpv(ctx *Context, args []Node) value.Value {
	rate, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	cashflows, errv, ok := flattenNumbers([]value.Value{Eval(ctx, args[1])})
	if !ok {
		return errv
	}
	dates, errv, ok := flattenNumbers([]value.Value{Eval(ctx, args[2])})
	if !ok {
		return errv
	}
	if len(cashflows) != len(dates) || len(dates) == 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	d0 := dates[0]
	total := 0.0
	for i, cf := range cashflows {
		total += cf / math.Pow(1+rate, (dates[i]-d0)/365)
	}
	return value.Number(total)
}

func fnXirr(ctx *Context, args []Node) value.Value {
	cashflows, errv, ok := flattenNumbers([]value.Value{Eval(ctx, args[0])})
	if !ok {
		return errv
	}
	dates, errv, ok := flattenNumbers([]value.Value{Eval(ctx, args[1])})
	if !ok {
		return errv
	}
	if len(cashflows) != len(dates) || len(dates) == 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	guess := 0.1
	if len(args) == 3 {
		if v, errv, ok := numArg(ctx, args[2]); ok {
			guess = v
		} else {
			return errv
		}
	}
	d0 := dates[0]
	xnpv := func(r float64) float64 {
		total := 0.0
		for i, cf := range cashflows {
			total += cf / math.Pow(1+r, (dates[i]-d0)/365)
		}
		return total
	}
	r := guess
	for i := 0; i < ctx.MaxIterations; i++ {
		fr := xnpv(r)
		h := 1e-6
		deriv := (xnpv(r+h) - fr) / h
		if deriv == 0 {
			return value.ErrorValue(xlerrors.KindNum)
		}
		next := r - fr/deriv
		if math.Abs(next-r) < ctx.Tolerance {
			return value.Number(next)
		}
		r = next
	}
	return value.ErrorValue(xlerrors.KindNum)
}

func fnSln(ctx *Context, args []Node) value.Value {
	cost, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	salvage, errv, ok := numArg(ctx, args[1])
	if !ok {
		return errv
	}
	life, errv, ok := numArg(ctx, args[2])
	if !ok {
		return errv
	}
	if life == 0 {
		return value.ErrorValue(xlerrors.KindDivZero)
	}
	return value.Number((cost - salvage) / life)
}

func fnDb(ctx *Context, args []Node) value.Value {
	vs, errv, ok := financialArgs(ctx, args, 5)
	if !ok {
		return errv
	}
	cost, salvage, life, period := vs[0], vs[1], vs[2], vs[3]
	month := 12.0
	if len(args) == 5 {
		month = vs[4]
	}
	if cost == 0 || life == 0 {
		return value.Number(0)
	}
	rate := 1 - math.Pow(salvage/cost, 1/life)
	rate = math.Round(rate*1000) / 1000
	total := cost * rate * month / 12
	for p := 2.0; p <= period && p < life+1; p++ {
		var dep float64
		if p == life+1 {
			dep = (cost - total) * rate * (12 - month) / 12
		} else {
			dep = (cost - total) * rate
		}
		if p == period {
			return value.Number(dep)
		}
		total += dep
	}
	if period == 1 {
		return value.Number(total)
	}
	return value.ErrorValue(xlerrors.KindNum)
}

func fnDdb(ctx *Context, args []Node) value.Value {
	cost, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	salvage, errv, ok := numArg(ctx, args[1])
	if !ok {
		return errv
	}
	life, errv, ok := numArg(ctx, args[2])
	if !ok {
		return errv
	}
	period, errv, ok := numArg(ctx, args[3])
	if !ok {
		return errv
	}
	factor := 2.0
	if len(args) == 5 {
		if v, errv, ok := numArg(ctx, args[4]); ok {
			factor = v
		} else {
			return errv
		}
	}
	if life == 0 {
		return value.ErrorValue(xlerrors.KindDivZero)
	}
	bookValue := cost
	var dep float64
	for p := 1.0; p <= period; p++ {
		dep = math.Min(bookValue*factor/life, bookValue-salvage)
		if dep < 0 {
			dep = 0
		}
		bookValue -= dep
	}
	return value.Number(dep)
}
