package formula

import "github.com/openxlgo/xlcore/value"
import "github.com/openxlgo/xlcore/xlerrors"

func init() {
	r := DefaultRegistry
	r.Register(&Entry{Name: "IF", MinArity: 2, MaxArity: 3, Flags: FlagShortCircuits, Body: fnIf})
	r.Register(&Entry{Name: "IFS", MinArity: 2, MaxArity: -1, Flags: FlagShortCircuits, Body: fnIfs})
	r.Register(&Entry{Name: "SWITCH", MinArity: 2, MaxArity: -1, Flags: FlagShortCircuits, Body: fnSwitch})
	r.Register(&Entry{Name: "IFERROR", MinArity: 2, MaxArity: 2, Flags: FlagShortCircuits, Body: fnIfError})
	r.Register(&Entry{Name: "IFNA", MinArity: 2, MaxArity: 2, Flags: FlagShortCircuits, Body: fnIfNA})
	r.Register(&Entry{Name: "AND", MinArity: 1, MaxArity: -1, Flags: FlagShortCircuits, Body: fnAnd})
	r.Register(&Entry{Name: "OR", MinArity: 1, MaxArity: -1, Flags: FlagShortCircuits, Body: fnOr})
	r.Register(&Entry{Name: "NOT", MinArity: 1, MaxArity: 1, Body: fnNot})
	r.Register(&Entry{Name: "XOR", MinArity: 1, MaxArity: -1, Body: fnXor})
	r.Register(&Entry{Name: "TRUE", MinArity: 0, MaxArity: 0, Body: func(ctx *Context, args []Node) value.Value { return value.Bool(true) }})
	r.Register(&Entry{Name: "FALSE", MinArity: 0, MaxArity: 0, Body: func(ctx *Context, args []Node) value.Value { return value.Bool(false) }})
	r.Register(&Entry{Name: "ISERROR", MinArity: 1, MaxArity: 1, Body: fnIsError})
	r.Register(&Entry{Name: "ISNA", MinArity: 1, MaxArity: 1, Body: fnIsNA})
	r.Register(&Entry{Name: "ISERR", MinArity: 1, MaxArity: 1, Body: fnIsErr})
	r.Register(&Entry{Name: "ERROR.TYPE", MinArity: 1, MaxArity: 1, Body: fnErrorType})
}

func fnIf(ctx *Context, args []Node) value.Value {
	cond := value.ToBool(Eval(ctx, args[0]))
	if cond.IsError() {
		return cond
	}
	if cond.Bool {
		if len(args) < 2 {
			return value.Bool(true)
		}
		return Eval(ctx, args[1])
	}
	if len(args) < 3 {
		return value.Bool(false)
	}
	return Eval(ctx, args[2])
}

func fnIfs(ctx *Context, args []Node) value.Value {
	if len(args)%2 != 0 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	for i := 0; i+1 < len(args); i += 2 {
		cond := value.ToBool(Eval(ctx, args[i]))
		if cond.IsError() {
			return cond
		}
		if cond.Bool {
			return Eval(ctx, args[i+1])
		}
	}
	return value.ErrorValue(xlerrors.KindNA)
}

func fnSwitch(ctx *Context, args []Node) value.Value {
	target := Eval(ctx, args[0])
	if target.IsError() {
		return target
	}
	i := 1
	for ; i+1 < len(args); i += 2 {
		cand := Eval(ctx, args[i])
		if cand.IsError() {
			return cand
		}
		if value.Equal(target, cand) {
			return Eval(ctx, args[i+1])
		}
	}
	if i < len(args) {
		return Eval(ctx, args[i])
	}
	return value.ErrorValue(xlerrors.KindNA)
}

func fnIfError(ctx *Context, args []Node) value.Value {
	v := Eval(ctx, args[0])
	if v.IsError() {
		return Eval(ctx, args[1])
	}
	return v
}

func fnIfNA(ctx *Context, args []Node) value.Value {
	v := Eval(ctx, args[0])
	if v.IsError() && v.Err == xlerrors.KindNA {
		return Eval(ctx, args[1])
	}
	return v
}

func fnAnd(ctx *Context, args []Node) value.Value {
	for _, a := range args {
		v := value.ToBool(Eval(ctx, a))
		if v.IsError() {
			return v
		}
		if !v.Bool {
			return value.Bool(false)
		}
	}
	return value.Bool(true)
}

func fnOr(ctx *Context, args []Node) value.Value {
	for _, a := range args {
		v := value.ToBool(Eval(ctx, a))
		if v.IsError() {
			return v
		}
		if v.Bool {
			return value.Bool(true)
		}
	}
	return value.Bool(false)
}

func fnNot(ctx *Context, args []Node) value.Value {
	v := value.ToBool(Eval(ctx, args[0]))
	if v.IsError() {
		return v
	}
	return value.Bool(!v.Bool)
}

func fnXor(ctx *Context, args []Node) value.Value {
	count := 0
	for _, a := range args {
		v := value.ToBool(Eval(ctx, a))
		if v.IsError() {
			return v
		}
		if v.Bool {
			count++
		}
	}
	return value.Bool(count%2 == 1)
}

func fnIsError(ctx *Context, args []Node) value.Value {
	return value.Bool(Eval(ctx, args[0]).IsError())
}

func fnIsNA(ctx *Context, args []Node) value.Value {
	v := Eval(ctx, args[0])
	return value.Bool(v.IsError() && v.Err == xlerrors.KindNA)
}

func fnIsErr(ctx *Context, args []Node) value.Value {
	v := Eval(ctx, args[0])
	return value.Bool(v.IsError() && v.Err != xlerrors.KindNA)
}

func fnErrorType(ctx *Context, args []Node) value.Value {
	v := Eval(ctx, args[0])
	if !v.IsError() {
		return value.ErrorValue(xlerrors.KindNA)
	}
	order := []xlerrors.Kind{
		xlerrors.KindNull, xlerrors.KindDivZero, xlerrors.KindValue, xlerrors.KindRef,
		xlerrors.KindName, xlerrors.KindNum, xlerrors.KindNA, xlerrors.KindGettingData,
	}
	for i, k := range order {
		if v.Err == k {
			return value.Number(float64(i + 1))
		}
	}
	return value.Number(8)
}
