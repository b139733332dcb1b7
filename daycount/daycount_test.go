package daycount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestYearFraction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		dc         DayCounter
		start, end time.Time
		want       float64
	}{
		{Actual360, d(2025, 1, 1), d(2025, 7, 1), 181.0 / 360.0},
		{Actual365Fixed, d(2024, 1, 1), d(2025, 1, 1), 366.0 / 365.0},
		{Thirty360, d(2025, 1, 31), d(2025, 3, 31), 60.0 / 360.0},
		{Thirty360, d(2025, 1, 30), d(2025, 3, 31), 60.0 / 360.0},
		{Thirty360, d(2025, 2, 28), d(2025, 3, 31), 33.0 / 360.0},
		{Thirty360European, d(2025, 2, 28), d(2025, 3, 31), 32.0 / 360.0},
		{ActualActualISDA, d(2024, 7, 1), d(2025, 7, 1), 184.0/366.0 + 181.0/365.0},
		{ActualActualISDA, d(2025, 1, 1), d(2025, 7, 1), 181.0 / 365.0},
	}
	for _, tc := range cases {
		got := tc.dc.YearFraction(tc.start, tc.end)
		if !assert.InDelta(t, tc.want, got, 1e-15, "%s %s-%s", tc.dc, tc.start.Format("2006-01-02"), tc.end.Format("2006-01-02")) {
			continue
		}
		assert.InDelta(t, -tc.want, tc.dc.YearFraction(tc.end, tc.start), 1e-15)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]DayCounter{
		"Act/360":        Actual360,
		"actual365fixed": Actual365Fixed,
		"30/360":         Thirty360,
		"30E/360":        Thirty360European,
		"ACT/ACT":        ActualActualISDA,
		"":               Actual365Fixed,
	} {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := Parse("BUS/252")
	assert.Error(t, err)
}
