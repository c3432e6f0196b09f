package synth

import "time"

// EachDay calls fn for every calendar day in the inclusive range.
func (c Config) EachDay(fn func(day time.Time)) {
	for d := c.Start; !d.After(c.End); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

// Months returns the first-of-month dates of every calendar month touched
// by the range, in order.
func (c Config) Months() []time.Time {
	var months []time.Time
	m := time.Date(c.Start.Year(), c.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(c.End.Year(), c.End.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !m.After(last) {
		months = append(months, m)
		m = m.AddDate(0, 1, 0)
	}
	return months
}

// Quarters returns the first day of every calendar quarter touched by the
// range, in order.
func (c Config) Quarters() []time.Time {
	var quarters []time.Time
	qm := time.Month((int(c.Start.Month())-1)/3*3 + 1)
	q := time.Date(c.Start.Year(), qm, 1, 0, 0, 0, 0, time.UTC)
	for !q.After(c.End) {
		quarters = append(quarters, q)
		q = q.AddDate(0, 3, 0)
	}
	return quarters
}

// WeekStart returns the Monday on or before the given day.
func WeekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// FormatMonth renders a month column value.
func FormatMonth(m time.Time) string { return m.Format("2006-01") }

// FormatQuarter renders a quarter column value as YYYY-Qn.
func FormatQuarter(q time.Time) string {
	n := (int(q.Month())-1)/3 + 1
	return q.Format("2006") + "-Q" + string(rune('0'+n))
}

// FormatDate renders a date column value.
func FormatDate(d time.Time) string { return d.Format("2006-01-02") }
