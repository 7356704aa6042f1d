package formula

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

func init() {
	r := DefaultRegistry
	r.Register(&Entry{Name: "FIND", MinArity: 2, MaxArity: 3, Body: fnFind})
	r.Register(&Entry{Name: "SEARCH", MinArity: 2, MaxArity: 3, Body: fnSearch})
	r.Register(&Entry{Name: "SUBSTITUTE", MinArity: 3, MaxArity: 4, Body: fnSubstitute})
	r.Register(&Entry{Name: "TEXT", MinArity: 2, MaxArity: 2, Body: fnText})
	r.Register(&Entry{Name: "LEFT", MinArity: 1, MaxArity: 2, Body: fnLeft})
	r.Register(&Entry{Name: "RIGHT", MinArity: 1, MaxArity: 2, Body: fnRight})
	r.Register(&Entry{Name: "MID", MinArity: 3, MaxArity: 3, Body: fnMid})
	r.Register(&Entry{Name: "LEN", MinArity: 1, MaxArity: 1, Body: fnLen})
	r.Register(&Entry{Name: "TRIM", MinArity: 1, MaxArity: 1, Body: fnTrim})
	r.Register(&Entry{Name: "UPPER", MinArity: 1, MaxArity: 1, Body: fnUpper})
	r.Register(&Entry{Name: "LOWER", MinArity: 1, MaxArity: 1, Body: fnLower})
	r.Register(&Entry{Name: "PROPER", MinArity: 1, MaxArity: 1, Body: fnProper})
	r.Register(&Entry{Name: "CONCATENATE", MinArity: 1, MaxArity: -1, Body: fnConcatenate})
	r.Register(&Entry{Name: "CONCAT", MinArity: 1, MaxArity: -1, Body: fnConcat})
	r.Register(&Entry{Name: "REPT", MinArity: 2, MaxArity: 2, Body: fnRept})
	r.Register(&Entry{Name: "VALUE", MinArity: 1, MaxArity: 1, Body: fnValue})
	r.Register(&Entry{Name: "EXACT", MinArity: 2, MaxArity: 2, Body: fnExact})
	r.Register(&Entry{Name: "REPLACE", MinArity: 4, MaxArity: 4, Body: fnReplace})
	r.Register(&Entry{Name: "CODE", MinArity: 1, MaxArity: 1, Body: fnCode})
	r.Register(&Entry{Name: "CHAR", MinArity: 1, MaxArity: 1, Body: fnChar})
	r.Register(&Entry{Name: "UNICODE", MinArity: 1, MaxArity: 1, Body: fnCode})
	r.Register(&Entry{Name: "UNICHAR", MinArity: 1, MaxArity: 1, Body: fnChar})
	r.Register(&Entry{Name: "T", MinArity: 1, MaxArity: 1, Body: fnT})
	r.Register(&Entry{Name: "CLEAN", MinArity: 1, MaxArity: 1, Body: fnClean})
	r.Register(&Entry{Name: "TEXTJOIN", MinArity: 3, MaxArity: -1, Body: fnTextJoin})
	r.Register(&Entry{Name: "NUMBERVALUE", MinArity: 1, MaxArity: 3, Body: fnNumberValue})
}

func fnExact(ctx *Context, args []Node) value.Value {
	a, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	b, errv, ok := textArg(ctx, args[1])
	if !ok {
		return errv
	}
	return value.Bool(a == b)
}

func fnReplace(ctx *Context, args []Node) value.Value {
	text, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	start, errv, ok := numArg(ctx, args[1])
	if !ok {
		return errv
	}
	numChars, errv, ok := numArg(ctx, args[2])
	if !ok {
		return errv
	}
	newText, errv, ok := textArg(ctx, args[3])
	if !ok {
		return errv
	}
	r := []rune(text)
	s := int(start) - 1
	if s < 0 || s > len(r) {
		return value.ErrorValue(xlerrors.KindValue)
	}
	n := int(numChars)
	if n < 0 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	end := s + n
	if end > len(r) {
		end = len(r)
	}
	out := string(r[:s]) + newText + string(r[end:])
	return value.Text(out)
}

func fnCode(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	r := []rune(s)
	if len(r) == 0 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	return value.Number(float64(r[0]))
}

func fnChar(ctx *Context, args []Node) value.Value {
	n, errv, ok := numArg(ctx, args[0])
	if !ok {
		return errv
	}
	if n < 1 || n > 1114111 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	return value.Text(string(rune(int(n))))
}

func fnT(ctx *Context, args []Node) value.Value {
	v := Eval(ctx, args[0])
	if v.IsError() {
		return v
	}
	if v.Kind == value.KindText {
		return v
	}
	return value.Text("")
}

func fnClean(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	var b strings.Builder
	for _, r := range s {
		if r >= 32 {
			b.WriteRune(r)
		}
	}
	return value.Text(b.String())
}

func fnTextJoin(ctx *Context, args []Node) value.Value {
	delim, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	skipEmpty := value.ToBool(Eval(ctx, args[1]))
	if skipEmpty.IsError() {
		return skipEmpty
	}
	var parts []string
	for _, a := range args[2:] {
		v := Eval(ctx, a)
		if v.IsError() {
			return v
		}
		if v.Kind == value.KindArray {
			for _, c := range v.Cells {
				if c.IsError() {
					return c
				}
				s := value.ToText(c)
				if s == "" && skipEmpty.Bool {
					continue
				}
				parts = append(parts, s)
			}
			continue
		}
		s := value.ToText(v)
		if s == "" && skipEmpty.Bool {
			continue
		}
		parts = append(parts, s)
	}
	return value.Text(strings.Join(parts, delim))
}

func fnNumberValue(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	decSep, groupSep := ".", ","
	if len(args) >= 2 {
		d, errv, ok := textArg(ctx, args[1])
		if !ok {
			return errv
		}
		if d != "" {
			decSep = d
		}
	}
	if len(args) >= 3 {
		g, errv, ok := textArg(ctx, args[2])
		if !ok {
			return errv
		}
		if g != "" {
			groupSep = g
		}
	}
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, groupSep, "")
	s = strings.ReplaceAll(s, decSep, ".")
	if s == "" {
		return value.Number(0)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return value.ErrorValue(xlerrors.KindValue)
	}
	return value.Number(f)
}

func textArg(ctx *Context, n Node) (string, value.Value, bool) {
	v := Eval(ctx, n)
	if v.IsError() {
		return "", v, false
	}
	return value.ToText(v), value.Value{}, true
}

func numArg(ctx *Context, n Node) (float64, value.Value, bool) {
	v := value.ToNumber(Eval(ctx, n))
	if v.IsError() {
		return 0, v, false
	}
	return v.Num, value.Value{}, true
}

func fnFind(ctx *Context, args []Node) value.Value {
	needle, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	hay, errv, ok := textArg(ctx, args[1])
	if !ok {
		return errv
	}
	start := 1
	if len(args) == 3 {
		s, errv, ok := numArg(ctx, args[2])
		if !ok {
			return errv
		}
		start = int(s)
	}
	if start < 1 || start > len(hay)+1 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	idx := strings.Index(hay[start-1:], needle)
	if idx < 0 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	return value.Number(float64(start + idx))
}

func fnSearch(ctx *Context, args []Node) value.Value {
	needle, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	hay, errv, ok := textArg(ctx, args[1])
	if !ok {
		return errv
	}
	start := 1
	if len(args) == 3 {
		s, errv, ok := numArg(ctx, args[2])
		if !ok {
			return errv
		}
		start = int(s)
	}
	if start < 1 || start > len(hay)+1 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	idx := strings.Index(upperASCII(hay[start-1:]), upperASCII(needle))
	if idx < 0 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	return value.Number(float64(start + idx))
}

func fnSubstitute(ctx *Context, args []Node) value.Value {
	text, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	old, errv, ok := textArg(ctx, args[1])
	if !ok {
		return errv
	}
	newS, errv, ok := textArg(ctx, args[2])
	if !ok {
		return errv
	}
	if len(args) == 4 {
		instV, errv, ok := numArg(ctx, args[3])
		if !ok {
			return errv
		}
		inst := int(instV)
		if inst < 1 {
			return value.ErrorValue(xlerrors.KindValue)
		}
		count := 0
		idx := 0
		for {
			at := strings.Index(text[idx:], old)
			if at < 0 {
				return value.Text(text)
			}
			count++
			pos := idx + at
			if count == inst {
				return value.Text(text[:pos] + newS + text[pos+len(old):])
			}
			idx = pos + len(old)
		}
	}
	return value.Text(strings.ReplaceAll(text, old, newS))
}

func fnText(ctx *Context, args []Node) value.Value {
	v := Eval(ctx, args[0])
	if v.IsError() {
		return v
	}
	_, errv, ok := textArg(ctx, args[1])
	if !ok {
		return errv
	}
	// Number-format codes are out of scope for the formula layer (they
	// belong to styles.xml); TEXT falls back to default coercion, which
	// matches the "General" format path.
	return value.Text(value.ToText(v))
}

func fnLeft(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	n := 1
	if len(args) == 2 {
		nv, errv, ok := numArg(ctx, args[1])
		if !ok {
			return errv
		}
		n = int(nv)
	}
	runes := []rune(s)
	if n < 0 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	if n > len(runes) {
		n = len(runes)
	}
	return value.Text(string(runes[:n]))
}

func fnRight(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	n := 1
	if len(args) == 2 {
		nv, errv, ok := numArg(ctx, args[1])
		if !ok {
			return errv
		}
		n = int(nv)
	}
	runes := []rune(s)
	if n < 0 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	if n > len(runes) {
		n = len(runes)
	}
	return value.Text(string(runes[len(runes)-n:]))
}

func fnMid(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	startV, errv, ok := numArg(ctx, args[1])
	if !ok {
		return errv
	}
	lenV, errv, ok := numArg(ctx, args[2])
	if !ok {
		return errv
	}
	start, n := int(startV), int(lenV)
	if start < 1 || n < 0 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	runes := []rune(s)
	if start > len(runes) {
		return value.Text("")
	}
	end := start - 1 + n
	if end > len(runes) {
		end = len(runes)
	}
	return value.Text(string(runes[start-1 : end]))
}

func fnLen(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	return value.Number(float64(len([]rune(s))))
}

func fnTrim(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	fields := strings.Fields(s)
	return value.Text(strings.Join(fields, " "))
}

func fnUpper(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	return value.Text(strings.ToUpper(s))
}

func fnLower(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	return value.Text(strings.ToLower(s))
}

func fnProper(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	var b strings.Builder
	atStart := true
	for _, r := range s {
		if unicode.IsLetter(r) {
			if atStart {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(unicode.ToLower(r))
			}
			atStart = false
		} else {
			b.WriteRune(r)
			atStart = true
		}
	}
	return value.Text(b.String())
}

func fnConcatenate(ctx *Context, args []Node) value.Value {
	var b strings.Builder
	for _, a := range args {
		s, errv, ok := textArg(ctx, a)
		if !ok {
			return errv
		}
		b.WriteString(s)
	}
	return value.Text(b.String())
}

func fnConcat(ctx *Context, args []Node) value.Value {
	var b strings.Builder
	for _, a := range args {
		v := Eval(ctx, a)
		if v.IsError() {
			return v
		}
		if v.Kind == value.KindArray {
			for _, c := range v.Cells {
				b.WriteString(value.ToText(c))
			}
		} else {
			b.WriteString(value.ToText(v))
		}
	}
	return value.Text(b.String())
}

func fnRept(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	n, errv, ok := numArg(ctx, args[1])
	if !ok {
		return errv
	}
	if n < 0 {
		return value.ErrorValue(xlerrors.KindValue)
	}
	return value.Text(strings.Repeat(s, int(n)))
}

func fnValue(ctx *Context, args []Node) value.Value {
	s, errv, ok := textArg(ctx, args[0])
	if !ok {
		return errv
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return value.ErrorValue(xlerrors.KindValue)
	}
	return value.Number(f)
}
