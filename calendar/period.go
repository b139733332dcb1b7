package calendar

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeUnit is the unit of a Period.
type TimeUnit int

const (
	Days TimeUnit = iota
	Weeks
	Months
	Years
)

// Period is a tenor such as 2D, 1W, 3M or 10Y.
type Period struct {
	N    int
	Unit TimeUnit
}

// ParsePeriod converts tenor strings like "1W", "3M", "10Y" to a Period.
func ParsePeriod(tenor string) (Period, error) {
	s := strings.TrimSpace(strings.ToUpper(tenor))
	if len(s) < 2 {
		return Period{}, fmt.Errorf("ParsePeriod: invalid tenor %q", tenor)
	}
	var unit TimeUnit
	switch s[len(s)-1] {
	case 'D':
		unit = Days
	case 'W':
		unit = Weeks
	case 'M':
		unit = Months
	case 'Y':
		unit = Years
	default:
		return Period{}, fmt.Errorf("ParsePeriod: invalid unit in %q", tenor)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return Period{}, fmt.Errorf("ParsePeriod: invalid length in %q: %w", tenor, err)
	}
	return Period{N: n, Unit: unit}, nil
}

// MustPeriod is ParsePeriod for literals; it panics on malformed input.
func MustPeriod(tenor string) Period {
	p, err := ParsePeriod(tenor)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Period) String() string {
	return strconv.Itoa(p.N) + [...]string{"D", "W", "M", "Y"}[p.Unit]
}

// Months returns the period length in months; day and week periods return 0.
func (p Period) Months() int {
	switch p.Unit {
	case Months:
		return p.N
	case Years:
		return 12 * p.N
	default:
		return 0
	}
}

// Convention is a business-day adjustment rule.
type Convention int

const (
	ModifiedFollowing Convention = iota
	Following
	Preceding
	ModifiedPreceding
	Unadjusted
)

// ParseConvention maps names like "ModifiedFollowing" or "MF" to a Convention.
func ParseConvention(name string) (Convention, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "")) {
	case "", "MF", "MODIFIEDFOLLOWING":
		return ModifiedFollowing, nil
	case "F", "FOLLOWING":
		return Following, nil
	case "P", "PRECEDING":
		return Preceding, nil
	case "MP", "MODIFIEDPRECEDING":
		return ModifiedPreceding, nil
	case "U", "UNADJUSTED", "NONE":
		return Unadjusted, nil
	default:
		return 0, fmt.Errorf("ParseConvention: unknown convention %q", name)
	}
}
