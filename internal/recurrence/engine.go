// Package recurrence expands recurrence rules into concrete occurrence
// dates. Generation is a pure function of the rule and the query window:
// no clock reads, no shared state, and the same arguments always produce
// the same sequence.
package recurrence

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"bilancio/internal/core"
)

// ErrInvalidWindow is wrapped when a query window ends before it starts.
// It signals a caller bug, not a recoverable condition.
var ErrInvalidWindow = errors.New("invalid window")

// Generate returns the lazy sequence of occurrence dates of rule inside
// [windowStart, windowEnd]. Occurrences are strictly increasing with no
// duplicates, bounded below by max(anchor, windowStart) and above by the
// window end and the rule's end condition. The sequence is restartable:
// ranging over it twice yields identical dates. A cutoff before the window
// yields an empty sequence, not an error.
//
// A Count(n) end condition is global: the n occurrences are counted from
// the anchor, so occurrences falling before the window still consume
// budget even though they are not produced.
func Generate(rule core.RecurrenceRule, windowStart, windowEnd core.Date) (iter.Seq[core.Date], error) {
	if rule.IsZero() {
		return nil, fmt.Errorf("%w: rule was not constructed via NewRule", core.ErrInvalidRule)
	}
	if windowStart.IsZero() || windowEnd.IsZero() {
		return nil, fmt.Errorf("%w: window dates cannot be zero", ErrInvalidWindow)
	}
	if windowEnd.Before(windowStart) {
		return nil, fmt.Errorf("%w: end %s precedes start %s", ErrInvalidWindow, windowEnd, windowStart)
	}

	upper := windowEnd
	limit := -1 // no occurrence budget
	switch e := rule.End().(type) {
	case core.Until:
		if e.Date.Before(upper) {
			upper = e.Date
		}
	case core.Count:
		limit = e.N
	}

	anchor, interval := rule.Anchor(), rule.Interval()
	switch rule.Frequency().(type) {
	case core.Daily:
		return daySeries(anchor, interval, windowStart, upper, limit), nil
	case core.Weekly:
		return daySeries(anchor, interval*7, windowStart, upper, limit), nil
	case core.Monthly:
		return monthSeries(anchor, interval, windowStart, upper, limit), nil
	case core.SemiMonthly:
		return semiMonthSeries(anchor, interval, windowStart, upper, limit), nil
	case core.Yearly:
		// A year step is a twelve-month step; the month arithmetic
		// already clamps Feb 29 anchors in non-leap years.
		return monthSeries(anchor, interval*12, windowStart, upper, limit), nil
	default:
		return nil, fmt.Errorf("%w: unsupported frequency %T", core.ErrInvalidRule, rule.Frequency())
	}
}

// Dates collects the full sequence into a slice.
func Dates(rule core.RecurrenceRule, windowStart, windowEnd core.Date) ([]core.Date, error) {
	seq, err := Generate(rule, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	var out []core.Date
	for d := range seq {
		out = append(out, d)
	}
	return out, nil
}

// daySeries covers the fixed-step frequencies: occurrence k falls on
// anchor + k*stepDays.
func daySeries(anchor core.Date, stepDays int, start, upper core.Date, limit int) iter.Seq[core.Date] {
	return func(yield func(core.Date) bool) {
		k := 0
		if anchor.Before(start) {
			k = ceilDiv(anchor.DaysUntil(start), stepDays)
		}
		for ; limit < 0 || k < limit; k++ {
			d := anchor.AddDays(k * stepDays)
			if d.After(upper) {
				return
			}
			if !yield(d) {
				return
			}
		}
	}
}

// monthSeries places occurrence k at anchor advanced by k*stepMonths
// months, clamping the day-of-month to shorter target months.
func monthSeries(anchor core.Date, stepMonths int, start, upper core.Date, limit int) iter.Seq[core.Date] {
	return func(yield func(core.Date) bool) {
		k := 0
		if anchor.Before(start) {
			// Estimate from the whole-month distance, then settle
			// on the first occurrence inside the window. The
			// estimate can be off by one around clamped days.
			k = max(0, monthDiff(anchor, start)/stepMonths)
			for k > 0 && !addMonths(anchor, (k-1)*stepMonths).Before(start) {
				k--
			}
			for addMonths(anchor, k*stepMonths).Before(start) {
				k++
			}
		}
		for ; limit < 0 || k < limit; k++ {
			d := addMonths(anchor, k*stepMonths)
			if d.After(upper) {
				return
			}
			if !yield(d) {
				return
			}
		}
	}
}

// semiMonthSeries produces the 1st and the 15th of every stepped month.
// The anchor contributes only its month and year: the effective anchor is
// the first day of the anchor's month, and occurrence i lands on the 1st
// (even i) or 15th (odd i) of that month advanced by (i/2)*stepMonths.
// Both days exist in every month, so no clamping is involved.
func semiMonthSeries(anchor core.Date, stepMonths int, start, upper core.Date, limit int) iter.Seq[core.Date] {
	first := core.NewDate(anchor.Year(), anchor.Month(), 1)
	occ := func(i int) core.Date {
		m := addMonths(first, (i/2)*stepMonths)
		day := 1
		if i%2 == 1 {
			day = 15
		}
		return core.NewDate(m.Year(), m.Month(), day)
	}
	return func(yield func(core.Date) bool) {
		i := 0
		if first.Before(start) {
			i = 2 * max(0, monthDiff(first, start)/stepMonths)
			for i > 0 && !occ(i-1).Before(start) {
				i--
			}
			for occ(i).Before(start) {
				i++
			}
		}
		for ; limit < 0 || i < limit; i++ {
			d := occ(i)
			if d.After(upper) {
				return
			}
			if !yield(d) {
				return
			}
		}
	}
}

// addMonths advances d by the given number of months, clamping the day to
// the target month's last day (Jan 31 + 1 month -> Feb 28/29).
func addMonths(d core.Date, months int) core.Date {
	y := d.Year() + (d.Month()-1+months)/12
	m := (d.Month()-1+months)%12 + 1
	day := d.Day()
	if last := daysIn(y, m); day > last {
		day = last
	}
	return core.NewDate(y, m, day)
}

// monthDiff returns the number of whole months from a to b, negative when
// b precedes a.
func monthDiff(a, b core.Date) int {
	md := (b.Year()-a.Year())*12 + (b.Month() - a.Month())
	if b.Day() < a.Day() {
		md--
	}
	return md
}

// daysIn returns the number of days in the given month.
func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
