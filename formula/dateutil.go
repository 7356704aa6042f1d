package formula

import (
	"math"
	"time"
)

// excelEpoch is the day before serial 1 under Excel's 1900 date system.
var excelEpoch = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)

// serialFromYMD implements spec.md's date-serial arithmetic, reproducing
// Excel's 1900 leap-year bug: serial 60 is the fictitious Feb 29, 1900,
// and every serial beyond it is off by one day from the proleptic
// Gregorian calendar.
func serialFromYMD(y, m, d int) float64 {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	days := int(t.Sub(excelEpoch).Hours() / 24)
	if t.After(time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC)) {
		days++
	}
	return float64(days)
}

// dateFromSerial is serialFromYMD's inverse, returning the calendar date
// and time-of-day components a serial (with optional fractional day)
// denotes.
func dateFromSerial(serial float64) (y, m, d, hh, mm, ss int) {
	whole := math.Floor(serial)
	frac := serial - whole
	days := int(whole)
	if days >= 60 {
		days-- // undo the Feb-29-1900 adjustment added above
	}
	t := excelEpoch.AddDate(0, 0, days)
	if int(whole) == 60 {
		y, m, d = 1900, 2, 29
	} else {
		y, m, d = t.Year(), int(t.Month()), t.Day()
	}
	secs := int(math.Round(frac * 86400))
	hh, mm, ss = secs/3600, (secs/60)%60, secs%60
	return
}

func weekdayFromSerial(serial float64) time.Weekday {
	days := int(math.Floor(serial))
	if days >= 60 {
		days--
	}
	return excelEpoch.AddDate(0, 0, days).Weekday()
}

// daysInMonth returns the number of days in the given Gregorian
// year/month (1-12).
func daysInMonth(y, m int) int {
	return time.Date(y, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func addMonths(y, m, d, months int) (int, int, int) {
	total := (y*12 + (m - 1)) + months
	ny := total / 12
	nm := total%12 + 1
	if nm <= 0 {
		nm += 12
		ny--
	}
	nd := d
	if max := daysInMonth(ny, nm); nd > max {
		nd = max
	}
	return ny, nm, nd
}
