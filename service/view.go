package service

import (
	"time"

	"github.com/meenmo/curvekit/quote"
	"github.com/meenmo/curvekit/rates"
	"github.com/meenmo/curvekit/termstructure"
)

// View transforms a calibrated curve at query time. The zero value is the
// curve itself.
type View struct {
	// AsOf re-anchors the curve at a later date.
	AsOf time.Time
	// ZeroSpread is added to continuously compounded zero rates.
	ZeroSpread float64
	// ForwardSpread is added to instantaneous forwards.
	ForwardSpread float64
}

// CurveView returns the named curve with v applied. The result reads the live
// curve, so it fails with errs.ErrStale whenever the curve does.
func (r *Registry) CurveView(name string, v View) (termstructure.YieldTermStructure, error) {
	c, err := r.Curve(name)
	if err != nil {
		return nil, err
	}
	var ts termstructure.YieldTermStructure = c
	if !v.AsOf.IsZero() && !v.AsOf.Equal(c.ReferenceDate()) {
		if ts, err = termstructure.NewImplied(ts, v.AsOf); err != nil {
			return nil, err
		}
	}
	if v.ZeroSpread != 0 {
		ts, err = termstructure.NewZeroSpreaded(ts, quote.NewHandle(quote.New(v.ZeroSpread)), rates.Continuous, rates.Annual)
		if err != nil {
			return nil, err
		}
	}
	if v.ForwardSpread != 0 {
		if ts, err = termstructure.NewForwardSpreaded(ts, quote.NewHandle(quote.New(v.ForwardSpread))); err != nil {
			return nil, err
		}
	}
	return ts, nil
}
