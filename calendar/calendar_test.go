package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/curvekit/calendar"
)

func TestTargetHolidays(t *testing.T) {
	t.Parallel()

	holidays := []time.Time{
		calendar.Date(2025, 1, 1),
		calendar.Date(2025, 4, 18), // Good Friday
		calendar.Date(2025, 4, 21), // Easter Monday
		calendar.Date(2025, 5, 1),
		calendar.Date(2025, 12, 25),
		calendar.Date(2025, 12, 26),
		calendar.Date(2024, 3, 29),
		calendar.Date(2024, 4, 1),
	}
	for _, h := range holidays {
		assert.False(t, calendar.IsBusinessDay(calendar.TARGET, h), h.Format("2006-01-02"))
	}
	assert.True(t, calendar.IsBusinessDay(calendar.TARGET, calendar.Date(2025, 4, 22)))
	assert.False(t, calendar.IsBusinessDay(calendar.WeekendsOnly, calendar.Date(2025, 10, 18)))
	assert.True(t, calendar.IsBusinessDay(calendar.WeekendsOnly, calendar.Date(2025, 12, 25)))
	assert.True(t, calendar.IsBusinessDay(calendar.NullCalendar, calendar.Date(2025, 10, 18)))
}

func TestUSDHolidays(t *testing.T) {
	t.Parallel()

	for _, h := range []time.Time{
		calendar.Date(2025, 1, 20),  // MLK
		calendar.Date(2025, 5, 26),  // Memorial Day
		calendar.Date(2025, 6, 19),  // Juneteenth
		calendar.Date(2026, 7, 3),   // Independence Day observed
		calendar.Date(2025, 11, 27), // Thanksgiving
	} {
		assert.False(t, calendar.IsBusinessDay(calendar.USD, h), h.Format("2006-01-02"))
	}
}

func TestAdjustConventions(t *testing.T) {
	t.Parallel()

	// Saturday 2025-05-31: following rolls into June, modified following stays in May.
	sat := calendar.Date(2025, 5, 31)
	assert.Equal(t, calendar.Date(2025, 6, 2), calendar.Adjust(calendar.TARGET, sat, calendar.Following))
	assert.Equal(t, calendar.Date(2025, 5, 30), calendar.Adjust(calendar.TARGET, sat, calendar.ModifiedFollowing))
	assert.Equal(t, calendar.Date(2025, 5, 30), calendar.Adjust(calendar.TARGET, sat, calendar.Preceding))
	assert.Equal(t, sat, calendar.Adjust(calendar.TARGET, sat, calendar.Unadjusted))

	// Saturday 2025-11-01: modified preceding cannot leave November.
	assert.Equal(t, calendar.Date(2025, 11, 3), calendar.Adjust(calendar.TARGET, calendar.Date(2025, 11, 1), calendar.ModifiedPreceding))
}

func TestAdvance(t *testing.T) {
	t.Parallel()

	start := calendar.Date(2025, 1, 31)
	got := calendar.Advance(calendar.TARGET, start, calendar.MustPeriod("1M"), calendar.ModifiedFollowing, false)
	assert.Equal(t, calendar.Date(2025, 2, 28), got)

	// 2025-04-30 is end of month; with EOM the 1M date is the last business day of May.
	got = calendar.Advance(calendar.TARGET, calendar.Date(2025, 4, 30), calendar.MustPeriod("1M"), calendar.ModifiedFollowing, true)
	assert.Equal(t, calendar.Date(2025, 5, 30), got)

	// Two business days over the Easter weekend.
	got = calendar.Advance(calendar.TARGET, calendar.Date(2025, 4, 17), calendar.MustPeriod("2D"), calendar.Following, false)
	assert.Equal(t, calendar.Date(2025, 4, 23), got)

	got = calendar.Advance(calendar.TARGET, calendar.Date(2025, 1, 15), calendar.MustPeriod("1W"), calendar.Following, false)
	assert.Equal(t, calendar.Date(2025, 1, 22), got)
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	cases := map[string]calendar.Period{
		"2D":  {N: 2, Unit: calendar.Days},
		"1w":  {N: 1, Unit: calendar.Weeks},
		"18M": {N: 18, Unit: calendar.Months},
		"30Y": {N: 30, Unit: calendar.Years},
	}
	for in, want := range cases {
		got, err := calendar.ParsePeriod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, "18M", calendar.MustPeriod("18m").String())
	assert.Equal(t, 24, calendar.MustPeriod("2Y").Months())

	for _, bad := range []string{"", "M", "3X", "ABY"} {
		_, err := calendar.ParsePeriod(bad)
		assert.Error(t, err, bad)
	}
}

func TestAddMonthClampsDay(t *testing.T) {
	t.Parallel()

	assert.Equal(t, calendar.Date(2024, 2, 29), calendar.AddMonth(calendar.Date(2024, 1, 31), 1))
	assert.Equal(t, calendar.Date(2023, 11, 30), calendar.AddMonth(calendar.Date(2024, 5, 30), -6))
	assert.Equal(t, 366, calendar.DaysBetween(calendar.Date(2024, 1, 1), calendar.Date(2025, 1, 1)))
}
