// Package marketdata loads market snapshots and turns their instruments into
// rate helpers.
package marketdata

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meenmo/curvekit/calendar"
	"github.com/meenmo/curvekit/errs"
)

// Snapshot is a set of curve definitions quoted as of one reference date.
type Snapshot struct {
	ReferenceDate string     `yaml:"reference_date"`
	Curves        []CurveDef `yaml:"curves"`
}

// CurveDef describes one curve. Empty fields fall back to configured defaults.
type CurveDef struct {
	Name          string `yaml:"name"`
	Traits        string `yaml:"traits"`
	Interpolation string `yaml:"interpolation"`
	DayCounter    string `yaml:"day_counter"`
	// DiscountCurve names the curve that discounts this curve's swaps and OIS.
	DiscountCurve string       `yaml:"discount_curve"`
	Extrapolation *bool        `yaml:"extrapolation"`
	Instruments   []Instrument `yaml:"instruments"`
}

// Instrument is one quoted calibration instrument. Fields not used by its kind
// are ignored.
type Instrument struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
	// Quote is parsed exactly and converted according to Unit.
	Quote string `yaml:"quote"`
	Unit  string `yaml:"unit"`

	Tenor          string `yaml:"tenor"`
	ForwardStart   string `yaml:"forward_start"`
	FixingDays     int    `yaml:"fixing_days"`
	SettlementDays int    `yaml:"settlement_days"`
	Calendar       string `yaml:"calendar"`
	Convention     string `yaml:"convention"`
	EndOfMonth     bool   `yaml:"end_of_month"`
	DayCounter     string `yaml:"day_counter"`

	// FRA
	MonthsToStart int `yaml:"months_to_start"`
	MonthsToEnd   int `yaml:"months_to_end"`

	// Futures
	StartDate    string `yaml:"start_date"`
	LengthMonths int    `yaml:"length_months"`
	Convexity    string `yaml:"convexity"`

	// Swap
	FixedFrequency  string `yaml:"fixed_frequency"`
	FixedConvention string `yaml:"fixed_convention"`
	FixedDayCounter string `yaml:"fixed_day_counter"`
	FloatFrequency  string `yaml:"float_frequency"`
	FloatConvention string `yaml:"float_convention"`
	FloatDayCounter string `yaml:"float_day_counter"`
	Spread          string `yaml:"spread"`

	// Basis swap. The built leg uses the float fields.
	BaseCurve      string `yaml:"base_curve"`
	BaseFrequency  string `yaml:"base_frequency"`
	BaseDayCounter string `yaml:"base_day_counter"`

	// OIS
	PaymentFrequency string `yaml:"payment_frequency"`
	PaymentLag       int    `yaml:"payment_lag"`

	// Bond
	IssueDate    string  `yaml:"issue_date"`
	MaturityDate string  `yaml:"maturity_date"`
	Coupon       string  `yaml:"coupon"`
	Frequency    string  `yaml:"frequency"`
	FaceAmount   float64 `yaml:"face_amount"`
	Redemption   float64 `yaml:"redemption"`

	Pillar     string `yaml:"pillar"`
	PillarDate string `yaml:"pillar_date"`
}

// Load reads and validates a snapshot file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("marketdata.Load: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML snapshot.
func Parse(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, "marketdata.Parse", "decode snapshot")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Reference returns the parsed reference date.
func (s *Snapshot) Reference() (time.Time, error) {
	ref, err := calendar.ParseDate(s.ReferenceDate)
	if err != nil {
		return time.Time{}, errs.Wrapf(errs.KindConfiguration, err, "marketdata.Reference", "reference_date %q", s.ReferenceDate)
	}
	return ref, nil
}

// Curve returns the named curve definition.
func (s *Snapshot) Curve(name string) (CurveDef, bool) {
	for _, c := range s.Curves {
		if c.Name == name {
			return c, true
		}
	}
	return CurveDef{}, false
}

// Instrument returns the instrument with the given ID and the curve holding it.
func (s *Snapshot) Instrument(id string) (Instrument, string, bool) {
	for _, c := range s.Curves {
		for _, in := range c.Instruments {
			if in.ID == id {
				return in, c.Name, true
			}
		}
	}
	return Instrument{}, "", false
}

// Validate checks names, references and quotes without building helpers.
func (s *Snapshot) Validate() error {
	const op = "marketdata.Validate"
	if _, err := s.Reference(); err != nil {
		return err
	}
	if len(s.Curves) == 0 {
		return errs.Configuration(op, "snapshot has no curves")
	}
	curves := make(map[string]bool, len(s.Curves))
	ids := make(map[string]bool)
	for _, c := range s.Curves {
		if c.Name == "" {
			return errs.Configuration(op, "curve without a name")
		}
		if curves[c.Name] {
			return errs.Configuration(op, "duplicate curve %q", c.Name)
		}
		curves[c.Name] = true
		if len(c.Instruments) == 0 {
			return errs.Configuration(op, "curve %q has no instruments", c.Name)
		}
		for _, in := range c.Instruments {
			if in.ID == "" {
				return errs.Configuration(op, "curve %q has an instrument without an id", c.Name)
			}
			if ids[in.ID] {
				return errs.Configuration(op, "duplicate instrument %q", in.ID)
			}
			ids[in.ID] = true
			if _, err := in.QuoteValue(); err != nil {
				return err
			}
		}
	}
	for _, c := range s.Curves {
		if c.DiscountCurve != "" && !curves[c.DiscountCurve] {
			return errs.Configuration(op, "curve %q discounts on unknown curve %q", c.Name, c.DiscountCurve)
		}
		for _, in := range c.Instruments {
			if in.BaseCurve != "" && !curves[in.BaseCurve] {
				return errs.Configuration(op, "instrument %q projects on unknown curve %q", in.ID, in.BaseCurve)
			}
		}
	}
	_, err := s.Levels()
	return err
}

// Dependencies returns the curves this curve needs before it can be built:
// its discount curve and the base curves of its basis swaps, sorted.
func (c CurveDef) Dependencies() []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	add(c.DiscountCurve)
	for _, in := range c.Instruments {
		add(in.BaseCurve)
	}
	sort.Strings(out)
	return out
}

// Levels groups curve names so that every curve comes after the curves it
// depends on. Curves within a level are independent and sorted by name.
func (s *Snapshot) Levels() ([][]string, error) {
	depth := make(map[string]int, len(s.Curves))
	deps := make(map[string][]string, len(s.Curves))
	for _, c := range s.Curves {
		deps[c.Name] = c.Dependencies()
	}
	var visit func(name string, seen map[string]bool) (int, error)
	visit = func(name string, seen map[string]bool) (int, error) {
		if d, ok := depth[name]; ok {
			return d, nil
		}
		if seen[name] {
			return 0, errs.Configuration("marketdata.Levels", "curve dependency cycle through %q", name)
		}
		seen[name] = true
		d := 0
		for _, dep := range deps[name] {
			dd, err := visit(dep, seen)
			if err != nil {
				return 0, err
			}
			d = max(d, dd+1)
		}
		depth[name] = d
		return d, nil
	}

	var levels [][]string
	for _, c := range s.Curves {
		d, err := visit(c.Name, map[string]bool{})
		if err != nil {
			return nil, err
		}
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], c.Name)
	}
	for _, l := range levels {
		sort.Strings(l)
	}
	return levels, nil
}
