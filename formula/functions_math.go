package formula

import (
	"math"

	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

func init() {
	r := DefaultRegistry
	reg1 := func(name string, f func(float64) float64) {
		r.Register(&Entry{Name: name, MinArity: 1, MaxArity: 1, Body: unaryMathFn(f)})
	}
	reg1("LN", math.Log)
	reg1("LOG10", math.Log10)
	reg1("ABS", math.Abs)
	reg1("SIGN", func(f float64) float64 {
		switch {
		case f > 0:
			return 1
		case f < 0:
			return -1
		default:
			return 0
		}
	})
	reg1("INT", math.Floor)
	reg1("EXP", math.Exp)
	reg1("SIN", math.Sin)
	reg1("COS", math.Cos)
	reg1("TAN", math.Tan)
	reg1("ATAN", math.Atan)
	reg1("COSH", math.Cosh)
	reg1("SINH", math.Sinh)
	reg1("TANH", math.Tanh)

	r.Register(&Entry{Name: "SQRT", MinArity: 1, MaxArity: 1, Body: fnSqrt})
	r.Register(&Entry{Name: "ASIN", MinArity: 1, MaxArity: 1, Body: unaryMathFnDomain(math.Asin, -1, 1)})
	r.Register(&Entry{Name: "ACOS", MinArity: 1, MaxArity: 1, Body: unaryMathFnDomain(math.Acos, -1, 1)})
	r.Register(&Entry{Name: "ATAN2", MinArity: 2, MaxArity: 2, Body: fnAtan2})
	r.Register(&Entry{Name: "TRUNC", MinArity: 1, MaxArity: 2, Body: fnTrunc})
	r.Register(&Entry{Name: "PI", MinArity: 0, MaxArity: 0, Body: func(ctx *Context, args []Node) value.Value { return value.Number(math.Pi) }})
	r.Register(&Entry{Name: "POWER", MinArity: 2, MaxArity: 2, Body: fnPower})
	r.Register(&Entry{Name: "LOG", MinArity: 1, MaxArity: 2, Body: fnLog})
	r.Register(&Entry{Name: "ROUND", MinArity: 2, MaxArity: 2, Body: fnRound})
	r.Register(&Entry{Name: "ROUNDUP", MinArity: 2, MaxArity: 2, Body: fnRoundUp})
	r.Register(&Entry{Name: "ROUNDDOWN", MinArity: 2, MaxArity: 2, Body: fnRoundDown})
	r.Register(&Entry{Name: "MOD", MinArity: 2, MaxArity: 2, Body: fnMod})
	r.Register(&Entry{Name: "QUOTIENT", MinArity: 2, MaxArity: 2, Body: fnQuotient})
	r.Register(&Entry{Name: "GCD", MinArity: 1, MaxArity: -1, Body: fnGCD})
	r.Register(&Entry{Name: "LCM", MinArity: 1, MaxArity: -1, Body: fnLCM})
	r.Register(&Entry{Name: "SUM", MinArity: 1, MaxArity: -1, Body: fnSum})
	r.Register(&Entry{Name: "SUMPRODUCT", MinArity: 1, MaxArity: -1, Body: fnSumProduct})
	r.Register(&Entry{Name: "PRODUCT", MinArity: 1, MaxArity: -1, Body: fnProduct})
	r.Register(&Entry{Name: "COMBINA", MinArity: 2, MaxArity: 2, Body: fnCombinA})
	r.Register(&Entry{Name: "PERMUTATIONA", MinArity: 2, MaxArity: 2, Body: fnPermutationA})
	r.Register(&Entry{Name: "COMBIN", MinArity: 2, MaxArity: 2, Body: fnCombin})
	r.Register(&Entry{Name: "PERMUT", MinArity: 2, MaxArity: 2, Body: fnPermut})
	r.Register(&Entry{Name: "FACT", MinArity: 1, MaxArity: 1, Body: fnFact})
	r.Register(&Entry{Name: "FACTDOUBLE", MinArity: 1, MaxArity: 1, Body: fnFactDouble})
	r.Register(&Entry{Name: "CEILING", MinArity: 1, MaxArity: 2, Body: fnCeiling})
	r.Register(&Entry{Name: "FLOOR", MinArity: 1, MaxArity: 2, Body: fnFloor})
	r.Register(&Entry{Name: "MROUND", MinArity: 2, MaxArity: 2, Body: fnMRound})
	r.Register(&Entry{Name: "EVEN", MinArity: 1, MaxArity: 1, Body: fnEven})
	r.Register(&Entry{Name: "ODD", MinArity: 1, MaxArity: 1, Body: fnOdd})
	reg1("DEGREES", func(f float64) float64 { return f * 180 / math.Pi })
	reg1("RADIANS", func(f float64) float64 { return f * math.Pi / 180 })
	r.Register(&Entry{Name: "ASINH", MinArity: 1, MaxArity: 1, Body: unaryMathFn(math.Asinh)})
	r.Register(&Entry{Name: "ATANH", MinArity: 1, MaxArity: 1, Body: unaryMathFnDomain(math.Atanh, -1, 1)})
	r.Register(&Entry{Name: "SUMSQ", MinArity: 1, MaxArity: -1, Body: fnSumSq})
	r.Register(&Entry{Name: "RAND", MinArity: 0, MaxArity: 0, Flags: FlagVolatile, Body: fnRand})
	r.Register(&Entry{Name: "RANDBETWEEN", MinArity: 2, MaxArity: 2, Flags: FlagVolatile, Body: fnRandBetween})
	r.Register(&Entry{Name: "RANDARRAY", MinArity: 0, MaxArity: 5, Flags: FlagVolatile, Body: fnRandArray})
}

func fnCombin(ctx *Context, args []Node) value.Value {
	n := value.ToNumber(Eval(ctx, args[0]))
	if n.IsError() {
		return n
	}
	k := value.ToNumber(Eval(ctx, args[1]))
	if k.IsError() {
		return k
	}
	if n.Num < 0 || k.Num < 0 || k.Num > n.Num {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(binomial(n.Num, k.Num))
}

func fnPermut(ctx *Context, args []Node) value.Value {
	n := value.ToNumber(Eval(ctx, args[0]))
	if n.IsError() {
		return n
	}
	k := value.ToNumber(Eval(ctx, args[1]))
	if k.IsError() {
		return k
	}
	n.Num, k.Num = math.Trunc(n.Num), math.Trunc(k.Num)
	if n.Num < 0 || k.Num < 0 || k.Num > n.Num {
		return value.ErrorValue(xlerrors.KindNum)
	}
	result := 1.0
	for i := 0.0; i < k.Num; i++ {
		result *= n.Num - i
	}
	return value.Number(result)
}

func factorial(n float64) float64 {
	n = math.Trunc(n)
	result := 1.0
	for i := 2.0; i <= n; i++ {
		result *= i
	}
	return result
}

func fnFact(ctx *Context, args []Node) value.Value {
	n := value.ToNumber(Eval(ctx, args[0]))
	if n.IsError() {
		return n
	}
	if n.Num < 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(factorial(n.Num))
}

func fnFactDouble(ctx *Context, args []Node) value.Value {
	n := value.ToNumber(Eval(ctx, args[0]))
	if n.IsError() {
		return n
	}
	num := math.Trunc(n.Num)
	if num < -1 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	result := 1.0
	for i := num; i > 1; i -= 2 {
		result *= i
	}
	return value.Number(result)
}

func ceilToMultiple(num, sig float64, up bool) float64 {
	if sig == 0 {
		return 0
	}
	q := num / sig
	if up {
		q = math.Ceil(q)
	} else {
		q = math.Floor(q)
	}
	return q * sig
}

func fnCeiling(ctx *Context, args []Node) value.Value {
	num := value.ToNumber(Eval(ctx, args[0]))
	if num.IsError() {
		return num
	}
	sig := 1.0
	if num.Num < 0 {
		sig = -1
	}
	if len(args) == 2 {
		s := value.ToNumber(Eval(ctx, args[1]))
		if s.IsError() {
			return s
		}
		sig = s.Num
	}
	if sig == 0 {
		return value.Number(0)
	}
	if (num.Num > 0 && sig < 0) || (num.Num < 0 && sig > 0) {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(ceilToMultiple(num.Num, sig, true))
}

func fnFloor(ctx *Context, args []Node) value.Value {
	num := value.ToNumber(Eval(ctx, args[0]))
	if num.IsError() {
		return num
	}
	sig := 1.0
	if num.Num < 0 {
		sig = -1
	}
	if len(args) == 2 {
		s := value.ToNumber(Eval(ctx, args[1]))
		if s.IsError() {
			return s
		}
		sig = s.Num
	}
	if sig == 0 {
		return value.ErrorValue(xlerrors.KindDivZero)
	}
	if (num.Num > 0 && sig < 0) || (num.Num < 0 && sig > 0) {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(ceilToMultiple(num.Num, sig, false))
}

func fnMRound(ctx *Context, args []Node) value.Value {
	num := value.ToNumber(Eval(ctx, args[0]))
	if num.IsError() {
		return num
	}
	mult := value.ToNumber(Eval(ctx, args[1]))
	if mult.IsError() {
		return mult
	}
	if mult.Num == 0 {
		return value.Number(0)
	}
	if (num.Num > 0 && mult.Num < 0) || (num.Num < 0 && mult.Num > 0) {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(math.Round(num.Num/mult.Num) * mult.Num)
}

func fnEven(ctx *Context, args []Node) value.Value {
	num := value.ToNumber(Eval(ctx, args[0]))
	if num.IsError() {
		return num
	}
	sign := 1.0
	if num.Num < 0 {
		sign = -1
	}
	mag := math.Ceil(math.Abs(num.Num))
	if math.Mod(mag, 2) != 0 {
		mag++
	}
	return value.Number(sign * mag)
}

func fnOdd(ctx *Context, args []Node) value.Value {
	num := value.ToNumber(Eval(ctx, args[0]))
	if num.IsError() {
		return num
	}
	sign := 1.0
	if num.Num < 0 {
		sign = -1
	}
	mag := math.Ceil(math.Abs(num.Num))
	if math.Mod(mag, 2) == 0 {
		mag++
	}
	return value.Number(sign * mag)
}

func fnSumSq(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	total := 0.0
	for _, v := range vals {
		total += v * v
	}
	return value.Number(total)
}

func fnRand(ctx *Context, args []Node) value.Value {
	return value.Number(ctx.Rand.Float64())
}

func fnRandBetween(ctx *Context, args []Node) value.Value {
	lo := value.ToNumber(Eval(ctx, args[0]))
	if lo.IsError() {
		return lo
	}
	hi := value.ToNumber(Eval(ctx, args[1]))
	if hi.IsError() {
		return hi
	}
	lo.Num, hi.Num = math.Ceil(lo.Num), math.Floor(hi.Num)
	if lo.Num > hi.Num {
		return value.ErrorValue(xlerrors.KindNum)
	}
	span := hi.Num - lo.Num + 1
	return value.Number(lo.Num + math.Floor(ctx.Rand.Float64()*span))
}

func fnRandArray(ctx *Context, args []Node) value.Value {
	dim := func(i int, def float64) (float64, value.Value) {
		if i >= len(args) {
			return def, value.Value{}
		}
		v := value.ToNumber(Eval(ctx, args[i]))
		if v.IsError() {
			return 0, v
		}
		return math.Trunc(v.Num), value.Value{}
	}
	rows, errv := dim(0, 1)
	if errv.IsError() {
		return errv
	}
	cols, errv := dim(1, 1)
	if errv.IsError() {
		return errv
	}
	lo, errv := dim(2, 0)
	if errv.IsError() {
		return errv
	}
	hi, errv := dim(3, 1)
	if errv.IsError() {
		return errv
	}
	wholeNumber := false
	if len(args) >= 5 {
		b := value.ToBool(Eval(ctx, args[4]))
		if b.IsError() {
			return b
		}
		wholeNumber = b.Bool
	}
	if rows < 1 || cols < 1 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	n := int(rows) * int(cols)
	cells := make([]value.Value, n)
	for i := range cells {
		r := ctx.Rand.Float64()
		f := lo + r*(hi-lo)
		if wholeNumber {
			f = math.Floor(lo + r*(hi-lo+1))
		}
		cells[i] = value.Number(f)
	}
	return value.Array(int(rows), int(cols), cells)
}

func unaryMathFn(f func(float64) float64) Body {
	return func(ctx *Context, args []Node) value.Value {
		v := value.ToNumber(Eval(ctx, args[0]))
		if v.IsError() {
			return v
		}
		return value.Number(f(v.Num))
	}
}

func unaryMathFnDomain(f func(float64) float64, lo, hi float64) Body {
	return func(ctx *Context, args []Node) value.Value {
		v := value.ToNumber(Eval(ctx, args[0]))
		if v.IsError() {
			return v
		}
		if v.Num < lo || v.Num > hi {
			return value.ErrorValue(xlerrors.KindNum)
		}
		return value.Number(f(v.Num))
	}
}

func fnSqrt(ctx *Context, args []Node) value.Value {
	v := value.ToNumber(Eval(ctx, args[0]))
	if v.IsError() {
		return v
	}
	if v.Num < 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(math.Sqrt(v.Num))
}

func fnAtan2(ctx *Context, args []Node) value.Value {
	x := value.ToNumber(Eval(ctx, args[0]))
	if x.IsError() {
		return x
	}
	y := value.ToNumber(Eval(ctx, args[1]))
	if y.IsError() {
		return y
	}
	return value.Number(math.Atan2(y.Num, x.Num))
}

func fnTrunc(ctx *Context, args []Node) value.Value {
	num := value.ToNumber(Eval(ctx, args[0]))
	if num.IsError() {
		return num
	}
	digits := 0.0
	if len(args) == 2 {
		d := value.ToNumber(Eval(ctx, args[1]))
		if d.IsError() {
			return d
		}
		digits = d.Num
	}
	scale := math.Pow(10, digits)
	return value.Number(math.Trunc(num.Num*scale) / scale)
}

func fnPower(ctx *Context, args []Node) value.Value {
	base := value.ToNumber(Eval(ctx, args[0]))
	if base.IsError() {
		return base
	}
	exp := value.ToNumber(Eval(ctx, args[1]))
	if exp.IsError() {
		return exp
	}
	r := math.Pow(base.Num, exp.Num)
	if math.IsNaN(r) {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(r)
}

func fnLog(ctx *Context, args []Node) value.Value {
	num := value.ToNumber(Eval(ctx, args[0]))
	if num.IsError() {
		return num
	}
	if num.Num <= 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	base := 10.0
	if len(args) == 2 {
		b := value.ToNumber(Eval(ctx, args[1]))
		if b.IsError() {
			return b
		}
		base = b.Num
	}
	return value.Number(math.Log(num.Num) / math.Log(base))
}

func roundTo(f float64, digits float64, round func(float64) float64) float64 {
	scale := math.Pow(10, digits)
	return round(f*scale) / scale
}

func fnRound(ctx *Context, args []Node) value.Value {
	num := value.ToNumber(Eval(ctx, args[0]))
	if num.IsError() {
		return num
	}
	digits := value.ToNumber(Eval(ctx, args[1]))
	if digits.IsError() {
		return digits
	}
	return value.Number(roundTo(num.Num, digits.Num, math.Round))
}

func fnRoundUp(ctx *Context, args []Node) value.Value {
	num := value.ToNumber(Eval(ctx, args[0]))
	if num.IsError() {
		return num
	}
	digits := value.ToNumber(Eval(ctx, args[1]))
	if digits.IsError() {
		return digits
	}
	sign := 1.0
	if num.Num < 0 {
		sign = -1
	}
	return value.Number(sign * roundTo(math.Abs(num.Num), digits.Num, math.Ceil))
}

func fnRoundDown(ctx *Context, args []Node) value.Value {
	num := value.ToNumber(Eval(ctx, args[0]))
	if num.IsError() {
		return num
	}
	digits := value.ToNumber(Eval(ctx, args[1]))
	if digits.IsError() {
		return digits
	}
	sign := 1.0
	if num.Num < 0 {
		sign = -1
	}
	return value.Number(sign * roundTo(math.Abs(num.Num), digits.Num, math.Floor))
}

func fnMod(ctx *Context, args []Node) value.Value {
	n := value.ToNumber(Eval(ctx, args[0]))
	if n.IsError() {
		return n
	}
	d := value.ToNumber(Eval(ctx, args[1]))
	if d.IsError() {
		return d
	}
	if d.Num == 0 {
		return value.ErrorValue(xlerrors.KindDivZero)
	}
	r := math.Mod(n.Num, d.Num)
	if r != 0 && (r < 0) != (d.Num < 0) {
		r += d.Num
	}
	return value.Number(r)
}

func fnQuotient(ctx *Context, args []Node) value.Value {
	n := value.ToNumber(Eval(ctx, args[0]))
	if n.IsError() {
		return n
	}
	d := value.ToNumber(Eval(ctx, args[1]))
	if d.IsError() {
		return d
	}
	if d.Num == 0 {
		return value.ErrorValue(xlerrors.KindDivZero)
	}
	return value.Number(math.Trunc(n.Num / d.Num))
}

func gcd2(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func fnGCD(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) == 0 {
		return value.Number(0)
	}
	g := int64(vals[0])
	for _, v := range vals[1:] {
		g = gcd2(g, int64(v))
	}
	return value.Number(float64(g))
}

func fnLCM(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) == 0 {
		return value.Number(0)
	}
	l := int64(vals[0])
	for _, v := range vals[1:] {
		n := int64(v)
		if l == 0 || n == 0 {
			l = 0
			continue
		}
		l = l / gcd2(l, n) * n
	}
	return value.Number(float64(l))
}

func fnSum(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	total := 0.0
	for _, v := range vals {
		total += v
	}
	return value.Number(total)
}

func fnProduct(ctx *Context, args []Node) value.Value {
	vals, errv, ok := flattenNumbers(EvalArgs(ctx, args))
	if !ok {
		return errv
	}
	if len(vals) == 0 {
		return value.Number(0)
	}
	p := 1.0
	for _, v := range vals {
		p *= v
	}
	return value.Number(p)
}

// fnSumProduct multiplies corresponding elements of equal-shaped array
// arguments and sums the products, per spec.md's stats/math grouping.
func fnSumProduct(ctx *Context, args []Node) value.Value {
	evaled := EvalArgs(ctx, args)
	n := -1
	arrays := make([][]value.Value, len(evaled))
	for i, v := range evaled {
		if v.IsError() {
			return v
		}
		if v.Kind == value.KindArray {
			arrays[i] = v.Cells
		} else {
			arrays[i] = []value.Value{v}
		}
		if n < 0 {
			n = len(arrays[i])
		} else if len(arrays[i]) != n {
			return value.ErrorValue(xlerrors.KindValue)
		}
	}
	total := 0.0
	for i := 0; i < n; i++ {
		term := 1.0
		for _, arr := range arrays {
			num := value.ToNumber(arr[i])
			if num.IsError() {
				return num
			}
			term *= num.Num
		}
		total += term
	}
	return value.Number(total)
}

func fnCombinA(ctx *Context, args []Node) value.Value {
	n := value.ToNumber(Eval(ctx, args[0]))
	if n.IsError() {
		return n
	}
	k := value.ToNumber(Eval(ctx, args[1]))
	if k.IsError() {
		return k
	}
	if n.Num < 0 || k.Num < 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(binomial(n.Num+k.Num-1, k.Num))
}

func fnPermutationA(ctx *Context, args []Node) value.Value {
	n := value.ToNumber(Eval(ctx, args[0]))
	if n.IsError() {
		return n
	}
	k := value.ToNumber(Eval(ctx, args[1]))
	if k.IsError() {
		return k
	}
	if n.Num < 0 || k.Num < 0 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(math.Pow(math.Trunc(n.Num), math.Trunc(k.Num)))
}

func binomial(n, k float64) float64 {
	n, k = math.Trunc(n), math.Trunc(k)
	if k < 0 || k > n {
		return 0
	}
	result := 1.0
	for i := 0.0; i < k; i++ {
		result *= (n - i) / (i + 1)
	}
	return math.Round(result)
}
