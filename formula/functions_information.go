package formula

import (
	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

func init() {
	r := DefaultRegistry
	r.Register(&Entry{Name: "TYPE", MinArity: 1, MaxArity: 1, Body: fnType})
	r.Register(&Entry{Name: "ISNUMBER", MinArity: 1, MaxArity: 1, Body: isKindFn(value.KindNumber, value.KindDate)})
	r.Register(&Entry{Name: "ISTEXT", MinArity: 1, MaxArity: 1, Body: isKindFn(value.KindText)})
	r.Register(&Entry{Name: "ISLOGICAL", MinArity: 1, MaxArity: 1, Body: isKindFn(value.KindBool)})
	r.Register(&Entry{Name: "ISBLANK", MinArity: 1, MaxArity: 1, Body: isKindFn(value.KindEmpty)})
	r.Register(&Entry{Name: "N", MinArity: 1, MaxArity: 1, Body: fnN})
	r.Register(&Entry{Name: "ISFORMULA", MinArity: 1, MaxArity: 1, Flags: FlagTakesRangeRef, Body: fnIsFormula})
	r.Register(&Entry{Name: "FORMULATEXT", MinArity: 1, MaxArity: 1, Flags: FlagTakesRangeRef, Body: fnFormulaText})
	r.Register(&Entry{Name: "SHEET", MinArity: 0, MaxArity: 1, Flags: FlagTakesRangeRef, Body: fnSheet})
	r.Register(&Entry{Name: "SHEETS", MinArity: 0, MaxArity: 1, Body: fnSheets})
	r.Register(&Entry{Name: "CELL", MinArity: 1, MaxArity: 2, Flags: FlagTakesRangeRef, Body: fnCell})
	r.Register(&Entry{Name: "INFO", MinArity: 1, MaxArity: 1, Body: fnInfo})
	r.Register(&Entry{Name: "NA", MinArity: 0, MaxArity: 0, Body: func(ctx *Context, args []Node) value.Value {
		return value.ErrorValue(xlerrors.KindNA)
	}})
	r.Register(&Entry{Name: "ISNONTEXT", MinArity: 1, MaxArity: 1, Body: fnIsNonText})
	r.Register(&Entry{Name: "ISEVEN", MinArity: 1, MaxArity: 1, Body: fnIsEven})
	r.Register(&Entry{Name: "ISODD", MinArity: 1, MaxArity: 1, Body: fnIsOdd})
}

func fnIsNonText(ctx *Context, args []Node) value.Value {
	v := Eval(ctx, args[0])
	return value.Bool(v.Kind != value.KindText)
}

func fnIsEven(ctx *Context, args []Node) value.Value {
	v := value.ToNumber(Eval(ctx, args[0]))
	if v.IsError() {
		return v
	}
	return value.Bool(int64(v.Num)%2 == 0)
}

func fnIsOdd(ctx *Context, args []Node) value.Value {
	v := value.ToNumber(Eval(ctx, args[0]))
	if v.IsError() {
		return v
	}
	return value.Bool(int64(v.Num)%2 != 0)
}

func fnType(ctx *Context, args []Node) value.Value {
	v := Eval(ctx, args[0])
	switch v.Kind {
	case value.KindNumber, value.KindDate:
		return value.Number(1)
	case value.KindText:
		return value.Number(2)
	case value.KindBool:
		return value.Number(4)
	case value.KindError:
		return value.Number(16)
	case value.KindArray:
		return value.Number(64)
	default:
		return value.Number(1)
	}
}

func isKindFn(kinds ...value.Kind) Body {
	return func(ctx *Context, args []Node) value.Value {
		v := Eval(ctx, args[0])
		for _, k := range kinds {
			if v.Kind == k {
				return value.Bool(true)
			}
		}
		return value.Bool(false)
	}
}

func fnN(ctx *Context, args []Node) value.Value {
	v := Eval(ctx, args[0])
	if v.IsError() {
		return v
	}
	switch v.Kind {
	case value.KindNumber, value.KindDate:
		return value.Number(v.Num)
	case value.KindBool:
		if v.Bool {
			return value.Number(1)
		}
		return value.Number(0)
	default:
		return value.Number(0)
	}
}

func fnIsFormula(ctx *Context, args []Node) value.Value {
	sheet, rg, ok := nodeRange(ctx, args[0])
	if !ok {
		return value.Bool(false)
	}
	ftr, ok := ctx.Cells.(FormulaTextResolver)
	if !ok {
		return value.Bool(false)
	}
	_, has := ftr.FormulaText(sheet, rg.TopLeft)
	return value.Bool(has)
}

func fnFormulaText(ctx *Context, args []Node) value.Value {
	sheet, rg, ok := nodeRange(ctx, args[0])
	if !ok {
		return value.ErrorValue(xlerrors.KindNA)
	}
	ftr, ok := ctx.Cells.(FormulaTextResolver)
	if !ok {
		return value.ErrorValue(xlerrors.KindNA)
	}
	text, has := ftr.FormulaText(sheet, rg.TopLeft)
	if !has {
		return value.ErrorValue(xlerrors.KindNA)
	}
	return value.Text("=" + text)
}

func fnSheet(ctx *Context, args []Node) value.Value {
	wi, ok := ctx.Cells.(WorkbookInfo)
	if !ok {
		return value.ErrorValue(xlerrors.KindNA)
	}
	if len(args) == 0 {
		return value.Number(float64(wi.ActiveSheetIndex()))
	}
	sheet, _, ok := nodeRange(ctx, args[0])
	if !ok {
		return value.ErrorValue(xlerrors.KindValue)
	}
	for i, name := range wi.SheetNames() {
		if foldEqual(name, sheet) {
			return value.Number(float64(i + 1))
		}
	}
	return value.ErrorValue(xlerrors.KindNA)
}

func fnSheets(ctx *Context, args []Node) value.Value {
	wi, ok := ctx.Cells.(WorkbookInfo)
	if !ok {
		return value.ErrorValue(xlerrors.KindNA)
	}
	return value.Number(float64(len(wi.SheetNames())))
}

func fnCell(ctx *Context, args []Node) value.Value {
	infoType, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	var sheet string
	if len(args) == 2 {
		s, rr, ok := nodeRange(ctx, args[1])
		if !ok {
			return value.ErrorValue(xlerrors.KindValue)
		}
		sheet = s
		switch infoType {
		case "row":
			return value.Number(float64(rr.TopLeft.Row))
		case "col":
			return value.Number(float64(rr.TopLeft.Col))
		case "address":
			return value.Text(rr.TopLeft.String())
		case "contents":
			v, err := ctx.Cells.ResolveCell(sheet, rr.TopLeft)
			if err != nil {
				return value.ErrorValue(xlerrors.KindRef)
			}
			return v
		case "filename", "sheet":
			return value.Text(sheet)
		}
	}
	return value.ErrorValue(xlerrors.KindValue)
}

func fnInfo(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	switch s {
	case "numfile":
		if wi, ok := ctx.Cells.(WorkbookInfo); ok {
			return value.Number(float64(len(wi.SheetNames())))
		}
		return value.ErrorValue(xlerrors.KindNA)
	case "recalc":
		return value.Text("Automatic")
	case "system":
		return value.Text("pcdos")
	}
	return value.ErrorValue(xlerrors.KindValue)
}
