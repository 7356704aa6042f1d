package formula

import (
	"strconv"
	"strings"

	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

func init() {
	r := DefaultRegistry
	r.Register(&Entry{Name: "BIN2DEC", MinArity: 1, MaxArity: 1, Body: fnBin2Dec})
	r.Register(&Entry{Name: "DEC2BIN", MinArity: 1, MaxArity: 2, Body: fnDec2Bin})
	r.Register(&Entry{Name: "BIN2HEX", MinArity: 1, MaxArity: 2, Body: fnBin2Hex})
	r.Register(&Entry{Name: "HEX2DEC", MinArity: 1, MaxArity: 1, Body: fnHex2Dec})
	r.Register(&Entry{Name: "DEC2HEX", MinArity: 1, MaxArity: 2, Body: fnDec2Hex})
	r.Register(&Entry{Name: "OCT2DEC", MinArity: 1, MaxArity: 1, Body: fnOct2Dec})
	r.Register(&Entry{Name: "DEC2OCT", MinArity: 1, MaxArity: 2, Body: fnDec2Oct})
	r.Register(&Entry{Name: "BITAND", MinArity: 2, MaxArity: 2, Body: bitOp(func(a, b int64) int64 { return a & b })})
	r.Register(&Entry{Name: "BITOR", MinArity: 2, MaxArity: 2, Body: bitOp(func(a, b int64) int64 { return a | b })})
	r.Register(&Entry{Name: "BITXOR", MinArity: 2, MaxArity: 2, Body: bitOp(func(a, b int64) int64 { return a ^ b })})
	r.Register(&Entry{Name: "BITLSHIFT", MinArity: 2, MaxArity: 2, Body: shiftOp(true)})
	r.Register(&Entry{Name: "BITRSHIFT", MinArity: 2, MaxArity: 2, Body: shiftOp(false)})
	r.Register(&Entry{Name: "DELTA", MinArity: 1, MaxArity: 2, Body: fnDelta})
	r.Register(&Entry{Name: "COMPLEX", MinArity: 2, MaxArity: 3, Body: fnComplex})
	r.Register(&Entry{Name: "IMREAL", MinArity: 1, MaxArity: 1, Body: fnImReal})
	r.Register(&Entry{Name: "IMAGINARY", MinArity: 1, MaxArity: 1, Body: fnImaginary})
}

func signedFromBits(s string, bits int) (int64, error) {
	v, err := strconv.ParseInt(s, 2, 64)
	if err != nil {
		return 0, err
	}
	if len(s) == bits && s[0] == '1' {
		v -= 1 << bits
	}
	return v, nil
}

func fnBin2Dec(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	v, err := signedFromBits(s, 10)
	if err != nil {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(float64(v))
}

func padPlaces(s string, args []Node, ctx *Context, argIdx int) (string, value.Value, bool) {
	if len(args) > argIdx {
		pv, errv, ok := numArg(ctx, args[argIdx])
		if !ok {
			return "", errv, false
		}
		places := int(pv)
		if len(s) < places {
			s = strings.Repeat("0", places-len(s)) + s
		}
	}
	return s, value.Value{}, true
}

func fnDec2Bin(ctx *Context, args []Node) value.Value {
	d, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	n := int64(d)
	if n < -512 || n > 511 {
		return value.ErrorValue(xlerrors.KindNum)
	}
	if n < 0 {
		n += 1024
	}
	s := strconv.FormatInt(n, 2)
	s, errv, ok = padPlaces(s, args, ctx, 1)
	if !ok {
		return errv
	}
	return value.Text(s)
}

func fnBin2Hex(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	v, err := signedFromBits(s, 10)
	if err != nil {
		return value.ErrorValue(xlerrors.KindNum)
	}
	u := v
	if u < 0 {
		u += 1 << 40
	}
	hex := strings.ToUpper(strconv.FormatInt(u, 16))
	hex, errv, ok = padPlaces(hex, args, ctx, 1)
	if !ok {
		return errv
	}
	return value.Text(hex)
}

func fnHex2Dec(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	v, err := strconv.ParseUint(s, 16, 40)
	if err != nil {
		return value.ErrorValue(xlerrors.KindNum)
	}
	n := int64(v)
	if len(s) == 10 && s[0] >= '8' {
		n -= 1 << 40
	}
	return value.Number(float64(n))
}

func fnDec2Hex(ctx *Context, args []Node) value.Value {
	d, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	n := int64(d)
	u := n
	if u < 0 {
		u += 1 << 40
	}
	hex := strings.ToUpper(strconv.FormatInt(u, 16))
	hex, errv, ok = padPlaces(hex, args, ctx, 1)
	if !ok {
		return errv
	}
	return value.Text(hex)
}

func fnOct2Dec(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	v, err := strconv.ParseInt(s, 8, 64)
	if err != nil {
		return value.ErrorValue(xlerrors.KindNum)
	}
	if len(s) == 10 && s[0] >= '4' {
		v -= 1 << 30
	}
	return value.Number(float64(v))
}

func fnDec2Oct(ctx *Context, args []Node) value.Value {
	d, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	n := int64(d)
	u := n
	if u < 0 {
		u += 1 << 30
	}
	oct := strconv.FormatInt(u, 8)
	oct, errv, ok = padPlaces(oct, args, ctx, 1)
	if !ok {
		return errv
	}
	return value.Text(oct)
}

func bitOp(f func(a, b int64) int64) Body {
	return func(ctx *Context, args []Node) value.Value {
		a, errv, ok := numArg(ctx, args[0])
		if !ok {
			return errv
		}
		b, errv, ok := numArg(ctx, args[1])
		if !ok {
			return errv
		}
		return value.Number(float64(f(int64(a), int64(b))))
	}
}

func shiftOp(left bool) Body {
	return func(ctx *Context, args []Node) value.Value {
		a, errv, ok := numArg(ctx, args[0])
		if !ok {
			return errv
		}
		n, errv, ok := numArg(ctx, args[1])
		if !ok {
			return errv
		}
		shift := int64(n)
		if !left {
			shift = -shift
		}
		if shift < 0 {
			return value.Number(float64(int64(a) >> uint(-shift)))
		}
		return value.Number(float64(int64(a) << uint(shift)))
	}
}

func fnDelta(ctx *Context, args []Node) value.Value {
	a, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	b := 0.0
	if len(args) == 2 {
		if v, errv, ok := numArg(ctx, args[1]); ok {
			b = v
		} else {
			return errv
		}
	}
	if a == b {
		return value.Number(1)
	}
	return value.Number(0)
}

// Complex numbers are represented as "a+bi" text per spec.md; IMREAL and
// IMAGINARY parse that text back out rather than introducing a numeric
// complex type into value.Value's closed union.

func fnComplex(ctx *Context, args []Node) value.Value {
	re, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	im, errv, ok := numArg(ctx, args[1])
	if !ok {
		return errv
	}
	suffix := "i"
	if len(args) == 3 {
		s, errv, ok := textArg(ctx, args[2])
		if !ok {
			return errv
		}
		if s == "j" {
			suffix = "j"
		}
	}
	return value.Text(formatComplex(re, im, suffix))
}

func formatComplex(re, im float64, suffix string) string {
	var b strings.Builder
	if re != 0 || im == 0 {
		b.WriteString(value.ToText(value.Number(re)))
	}
	if im != 0 {
		if im > 0 && b.Len() > 0 {
			b.WriteByte('+')
		}
		if im == -1 {
			b.WriteByte('-')
		} else if im != 1 {
			b.WriteString(value.ToText(value.Number(im)))
		}
		b.WriteString(suffix)
	}
	return b.String()
}

func parseComplex(s string) (re, im float64, ok bool) {
	suffix := ""
	if strings.HasSuffix(s, "i") {
		suffix = "i"
	} else if strings.HasSuffix(s, "j") {
		suffix = "j"
	} else {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, 0, true
		}
		return 0, 0, false
	}
	body := s[:len(s)-len(suffix)]
	if body == "" || body == "+" {
		return 0, 1, true
	}
	if body == "-" {
		return 0, -1, true
	}
	// find the split between the real and imaginary part: the last +/-
	// that is not at index 0 and not preceded by 'e'/'E' (exponent sign).
	splitAt := -1
	for i := len(body) - 1; i > 0; i-- {
		if body[i] == '+' || body[i] == '-' {
			if body[i-1] == 'e' || body[i-1] == 'E' {
				continue
			}
			splitAt = i
			break
		}
	}
	if splitAt < 0 {
		im, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return 0, 0, false
		}
		return 0, im, true
	}
	reS, imS := body[:splitAt], body[splitAt:]
	re, err1 := strconv.ParseFloat(reS, 64)
	var im64 float64
	var err2 error
	switch imS {
	case "+":
		im64 = 1
	case "-":
		im64 = -1
	default:
		im64, err2 = strconv.ParseFloat(imS, 64)
	}
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return re, im64, true
}

func fnImReal(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	re, _, ok := parseComplex(s)
	if !ok {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(re)
}

func fnImaginary(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	_, im, ok := parseComplex(s)
	if !ok {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return value.Number(im)
}
