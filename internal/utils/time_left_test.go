package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestClassifyTimeLeft(t *testing.T) {
	today := day("2026-03-10")

	cases := []struct {
		name     string
		end      time.Time
		wantText string
		want     TimeLeftStatus
	}{
		{"ends today", today, "0 day", TimeLeftLeft},
		{"already ended", today.AddDate(0, 0, -3), "0 day", TimeLeftLeft},
		{"tomorrow", today.AddDate(0, 0, 1), "1 day", TimeLeftClose},
		{"ten days", today.AddDate(0, 0, 10), "10 day", TimeLeftClose},
		{"fifteen days", today.AddDate(0, 0, 15), "15 day", TimeLeftClose},
		{"sixteen days", today.AddDate(0, 0, 16), "16 day", TimeLeftCurrent},
		{"forty days", today.AddDate(0, 0, 40), "1 month 9 day", TimeLeftCurrent},
		{"exactly one month", day("2026-04-10"), "1 month", TimeLeftCurrent},
		{"one year two days", day("2027-03-12"), "1 year 2 day", TimeLeftCurrent},
		{"two years three months", day("2028-06-10"), "2 year 3 month", TimeLeftCurrent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text, status := ClassifyTimeLeft(tc.end, today)
			assert.Equal(t, tc.wantText, text)
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestClassifyTimeLeftIgnoresClock(t *testing.T) {
	today := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)

	text, status := ClassifyTimeLeft(end, today)
	assert.Equal(t, "0 day", text)
	assert.Equal(t, TimeLeftLeft, status)
}

func TestPeriodBetweenClampsMonthEnd(t *testing.T) {
	p := PeriodBetween(day("2026-01-31"), day("2026-03-01"))
	assert.Equal(t, Period{Months: 1, Days: 1}, p)

	p = PeriodBetween(day("2024-01-31"), day("2024-03-01"))
	assert.Equal(t, Period{Months: 1, Days: 1}, p)

	p = PeriodBetween(day("2026-01-15"), day("2026-02-14"))
	assert.Equal(t, Period{Days: 30}, p)
}

func TestParseTimeLeftStatus(t *testing.T) {
	s, ok := ParseTimeLeftStatus(" Close ")
	require.True(t, ok)
	assert.Equal(t, TimeLeftClose, s)

	_, ok = ParseTimeLeftStatus("expired")
	assert.False(t, ok)
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalJSON([]byte(`"2026-05-01"`)))
	assert.Equal(t, day("2026-05-01"), d.Time)

	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2026-05-01"`, string(b))

	assert.Error(t, d.UnmarshalJSON([]byte(`"05/01/2026"`)))
}
