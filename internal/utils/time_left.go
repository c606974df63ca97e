package utils

import (
	"strconv"
	"strings"
	"time"
)

// TimeLeftStatus buckets how soon a subscription expires.
type TimeLeftStatus string

const (
	TimeLeftCurrent TimeLeftStatus = "current"
	TimeLeftClose   TimeLeftStatus = "close"
	TimeLeftLeft    TimeLeftStatus = "left"
)

// CloseThresholdDays is the largest remaining day count, with no whole month
// left, that still counts as "close".
const CloseThresholdDays = 15

// Period is a calendar distance between two days.
type Period struct {
	Years  int
	Months int
	Days   int
}

func (p Period) IsZero() bool { return p.Years == 0 && p.Months == 0 && p.Days == 0 }

// String renders "<Y> year <M> month <D> day", leaving out zero parts.
func (p Period) String() string {
	if p.IsZero() {
		return "0 day"
	}
	var parts []string
	if p.Years != 0 {
		parts = append(parts, strconv.Itoa(p.Years)+" year")
	}
	if p.Months != 0 {
		parts = append(parts, strconv.Itoa(p.Months)+" month")
	}
	if p.Days != 0 {
		parts = append(parts, strconv.Itoa(p.Days)+" day")
	}
	return strings.Join(parts, " ")
}

// PeriodBetween returns the calendar period from start to end, counting whole
// months first and the remaining days second. A month step that lands past
// the end of the target month clamps to its last day, so Jan 31 + 1 month is
// Feb 28/29. end must not be before start.
func PeriodBetween(start, end time.Time) Period {
	start, end = DateOf(start), DateOf(end)
	totalMonths := (end.Year()*12 + int(end.Month())) - (start.Year()*12 + int(start.Month()))
	days := end.Day() - start.Day()
	if totalMonths > 0 && days < 0 {
		totalMonths--
		anchor := addMonthsClamped(start, totalMonths)
		days = int(end.Sub(anchor).Hours() / 24)
	} else if totalMonths < 0 && days > 0 {
		totalMonths++
		days -= daysIn(end.Year(), end.Month())
	}
	return Period{Years: totalMonths / 12, Months: totalMonths % 12, Days: days}
}

// ClassifyTimeLeft turns a subscription end date into a display string and a
// status bucket relative to today.
func ClassifyTimeLeft(endDate, today time.Time) (string, TimeLeftStatus) {
	endDate, today = DateOf(endDate), DateOf(today)
	if !endDate.After(today) {
		return "0 day", TimeLeftLeft
	}
	p := PeriodBetween(today, endDate)
	if p.Years == 0 && p.Months == 0 && p.Days <= CloseThresholdDays {
		return p.String(), TimeLeftClose
	}
	return p.String(), TimeLeftCurrent
}

// ParseTimeLeftStatus validates a status name coming from a filter.
func ParseTimeLeftStatus(s string) (TimeLeftStatus, bool) {
	switch TimeLeftStatus(strings.ToLower(strings.TrimSpace(s))) {
	case TimeLeftCurrent:
		return TimeLeftCurrent, true
	case TimeLeftClose:
		return TimeLeftClose, true
	case TimeLeftLeft:
		return TimeLeftLeft, true
	}
	return "", false
}

func addMonthsClamped(t time.Time, months int) time.Time {
	total := t.Year()*12 + int(t.Month()) - 1 + months
	y, m := total/12, time.Month(total%12+1)
	d := t.Day()
	if last := daysIn(y, m); d > last {
		d = last
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
