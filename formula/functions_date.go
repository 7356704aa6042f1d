package formula

import (
	"strings"

	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

func init() {
	r := DefaultRegistry
	r.Register(&Entry{Name: "DATE", MinArity: 3, MaxArity: 3, Body: fnDate})
	r.Register(&Entry{Name: "YEAR", MinArity: 1, MaxArity: 1, Body: fnYear})
	r.Register(&Entry{Name: "MONTH", MinArity: 1, MaxArity: 1, Body: fnMonth})
	r.Register(&Entry{Name: "DAY", MinArity: 1, MaxArity: 1, Body: fnDay})
	r.Register(&Entry{Name: "TODAY", MinArity: 0, MaxArity: 0, Flags: FlagVolatile, Body: fnToday})
	r.Register(&Entry{Name: "NOW", MinArity: 0, MaxArity: 0, Flags: FlagVolatile, Body: fnNow})
	r.Register(&Entry{Name: "HOUR", MinArity: 1, MaxArity: 1, Body: fnHour})
	r.Register(&Entry{Name: "MINUTE", MinArity: 1, MaxArity: 1, Body: fnMinute})
	r.Register(&Entry{Name: "SECOND", MinArity: 1, MaxArity: 1, Body: fnSecond})
	r.Register(&Entry{Name: "WEEKDAY", MinArity: 1, MaxArity: 2, Body: fnWeekday})
	r.Register(&Entry{Name: "NETWORKDAYS", MinArity: 2, MaxArity: 3, Body: fnNetworkDays})
	r.Register(&Entry{Name: "NETWORKDAYS.INTL", MinArity: 2, MaxArity: 4, Body: fnNetworkDaysIntl})
	r.Register(&Entry{Name: "EDATE", MinArity: 2, MaxArity: 2, Body: fnEDate})
	r.Register(&Entry{Name: "EOMONTH", MinArity: 2, MaxArity: 2, Body: fnEOMonth})
	r.Register(&Entry{Name: "DATEDIF", MinArity: 3, MaxArity: 3, Body: fnDateDif})
}

func dateArg(ctx *Context, n Node) (float64, value.Value, bool) {
	v := value.ToNumber(Eval(ctx, n))
	if v.IsError() {
		return 0, v, false
	}
	return v.Num, value.Value{}, true
}

func fnDate(ctx *Context, args []Node) value.Value {
	y, errv, ok := dateArg(ctx, args[0])
	if !ok {
		return errv
	}
	m, errv, ok := dateArg(ctx, args[1])
	if !ok {
		return errv
	}
	d, errv, ok := dateArg(ctx, args[2])
	if !ok {
		return errv
	}
	yi := int(y)
	if yi < 100 {
		yi += 1900
	}
	return value.Date(serialFromYMD(yi, int(m), int(d)))
}

func fnYear(ctx *Context, args []Node) value.Value {
	s, errv, ok := dateArg(ctx, args[0])
	if !ok {
		return errv
	}
	y, _, _, _, _, _ := dateFromSerial(s)
	return value.Number(float64(y))
}

func fnMonth(ctx *Context, args []Node) value.Value {
	s, errv, ok := dateArg(ctx, args[0])
	if !ok {
		return errv
	}
	_, m, _, _, _, _ := dateFromSerial(s)
	return value.Number(float64(m))
}

func fnDay(ctx *Context, args []Node) value.Value {
	s, errv, ok := dateArg(ctx, args[0])
	if !ok {
		return errv
	}
	_, _, d, _, _, _ := dateFromSerial(s)
	return value.Number(float64(d))
}

func fnHour(ctx *Context, args []Node) value.Value {
	s, errv, ok := dateArg(ctx, args[0])
	if !ok {
		return errv
	}
	_, _, _, hh, _, _ := dateFromSerial(s)
	return value.Number(float64(hh))
}

func fnMinute(ctx *Context, args []Node) value.Value {
	s, errv, ok := dateArg(ctx, args[0])
	if !ok {
		return errv
	}
	_, _, _, _, mm, _ := dateFromSerial(s)
	return value.Number(float64(mm))
}

func fnSecond(ctx *Context, args []Node) value.Value {
	s, errv, ok := dateArg(ctx, args[0])
	if !ok {
		return errv
	}
	_, _, _, _, _, ss := dateFromSerial(s)
	return value.Number(float64(ss))
}

func fnToday(ctx *Context, args []Node) value.Value {
	now := ctx.Clock.Now()
	return value.Date(serialFromYMD(now.Year(), int(now.Month()), now.Day()))
}

func fnNow(ctx *Context, args []Node) value.Value {
	now := ctx.Clock.Now()
	day := serialFromYMD(now.Year(), int(now.Month()), now.Day())
	frac := (float64(now.Hour())*3600 + float64(now.Minute())*60 + float64(now.Second())) / 86400
	return value.Date(day + frac)
}

func fnWeekday(ctx *Context, args []Node) value.Value {
	s, errv, ok := dateArg(ctx, args[0])
	if !ok {
		return errv
	}
	mode := 1.0
	if len(args) == 2 {
		m, errv, ok := dateArg(ctx, args[1])
		if !ok {
			return errv
		}
		mode = m
	}
	wd := int(weekdayFromSerial(s)) // Sunday = 0
	switch int(mode) {
	case 1:
		return value.Number(float64(wd + 1))
	case 2:
		return value.Number(float64((wd+6)%7 + 1))
	case 3:
		return value.Number(float64((wd + 6) % 7))
	}
	return value.Number(float64(wd + 1))
}

func fnEDate(ctx *Context, args []Node) value.Value {
	s, errv, ok := dateArg(ctx, args[0])
	if !ok {
		return errv
	}
	months, errv, ok := dateArg(ctx, args[1])
	if !ok {
		return errv
	}
	y, m, d, _, _, _ := dateFromSerial(s)
	ny, nm, nd := addMonths(y, m, d, int(months))
	return value.Date(serialFromYMD(ny, nm, nd))
}

func fnEOMonth(ctx *Context, args []Node) value.Value {
	s, errv, ok := dateArg(ctx, args[0])
	if !ok {
		return errv
	}
	months, errv, ok := dateArg(ctx, args[1])
	if !ok {
		return errv
	}
	y, m, _, _, _, _ := dateFromSerial(s)
	ny, nm, _ := addMonths(y, m, 1, int(months))
	last := daysInMonth(ny, nm)
	return value.Date(serialFromYMD(ny, nm, last))
}

func fnNetworkDays(ctx *Context, args []Node) value.Value {
	var holidaysArg Node
	if len(args) == 3 {
		holidaysArg = args[2]
	}
	return networkDaysImpl(ctx, args[:2], networkdaysIntlMasks["1"], holidaysArg)
}

func fnNetworkDaysIntl(ctx *Context, args []Node) value.Value {
	weekendCode := "1"
	var holidaysArg Node
	if len(args) >= 3 {
		s, errv, ok := textArg(ctx, args[2])
		if !ok {
			return errv
		}
		weekendCode = s
	}
	if len(args) == 4 {
		holidaysArg = args[3]
	}
	weekend, ok := weekendMask(weekendCode)
	if !ok {
		return value.ErrorValue(xlerrors.KindNum)
	}
	return networkDaysImpl(ctx, args[:2], weekend, holidaysArg)
}

var networkdaysIntlMasks = map[string][]int{
	"1": {0, 6}, "2": {1, 0}, "3": {1, 2}, "4": {2, 3}, "5": {3, 4},
	"6": {4, 5}, "7": {5, 6}, "11": {0}, "12": {1}, "13": {2}, "14": {3},
	"15": {4}, "16": {5}, "17": {6},
}

func weekendMask(code string) ([]int, bool) {
	if days, ok := networkdaysIntlMasks[code]; ok {
		return days, true
	}
	if len(code) == 7 {
		var days []int
		for i, c := range code {
			if c == '1' {
				days = append(days, (i+1)%7)
			} else if c != '0' {
				return nil, false
			}
		}
		return days, true
	}
	return nil, false
}

func networkDaysImpl(ctx *Context, args []Node, weekend []int, holidaysArg Node) value.Value {
	startS, errv, ok := dateArg(ctx, args[0])
	if !ok {
		return errv
	}
	endS, errv, ok := dateArg(ctx, args[1])
	if !ok {
		return errv
	}
	sign := 1
	if startS > endS {
		startS, endS = endS, startS
		sign = -1
	}
	holidaySet := map[int]bool{}
	if holidaysArg != nil {
		cells, errv, ok := rangeCells(ctx, holidaysArg)
		if !ok {
			return errv
		}
		for _, c := range cells {
			n := value.ToNumber(c)
			if n.Kind == value.KindNumber {
				holidaySet[int(n.Num)] = true
			}
		}
	}
	isWeekend := func(serial int) bool {
		wd := int(weekdayFromSerial(float64(serial)))
		for _, w := range weekend {
			if wd == w {
				return true
			}
		}
		return false
	}
	count := 0
	for d := int(startS); d <= int(endS); d++ {
		if !isWeekend(d) && !holidaySet[d] {
			count++
		}
	}
	return value.Number(float64(count * sign))
}

func fnDateDif(ctx *Context, args []Node) value.Value {
	startS, errv, ok := dateArg(ctx, args[0])
	if !ok {
		return errv
	}
	endS, errv, ok := dateArg(ctx, args[1])
	if !ok {
		return errv
	}
	unit, errv, ok := textArg(ctx, args[2])
	if !ok {
		return errv
	}
	if endS < startS {
		return value.ErrorValue(xlerrors.KindNum)
	}
	sy, sm, sd, _, _, _ := dateFromSerial(startS)
	ey, em, ed, _, _, _ := dateFromSerial(endS)
	switch strings.ToUpper(unit) {
	case "D":
		return value.Number(endS - startS)
	case "Y":
		return value.Number(float64(yearDiff(sy, sm, sd, ey, em, ed)))
	case "M":
		return value.Number(float64(monthDiff(sy, sm, sd, ey, em, ed)))
	case "YM":
		return value.Number(float64(monthDiff(sy, sm, sd, ey, em, ed) % 12))
	case "YD":
		adjYear := ey
		if em < sm || (em == sm && ed < sd) {
			adjYear--
		}
		anniv := serialFromYMD(adjYear, sm, sd)
		return value.Number(endS - anniv)
	case "MD":
		d := ed - sd
		if d < 0 {
			prevMonthDays := daysInMonth(ey, em-1)
			if em == 1 {
				prevMonthDays = daysInMonth(ey-1, 12)
			}
			d += prevMonthDays
		}
		return value.Number(float64(d))
	}
	return value.ErrorValue(xlerrors.KindNum)
}

func yearDiff(sy, sm, sd, ey, em, ed int) int {
	y := ey - sy
	if em < sm || (em == sm && ed < sd) {
		y--
	}
	return y
}

func monthDiff(sy, sm, sd, ey, em, ed int) int {
	m := (ey-sy)*12 + (em - sm)
	if ed < sd {
		m--
	}
	return m
}
