// Package service keeps the curves of one market snapshot calibrated.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/curvekit/config"
	"github.com/meenmo/curvekit/curve"
	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/interpolation"
	"github.com/meenmo/curvekit/logger"
	"github.com/meenmo/curvekit/marketdata"
	"github.com/meenmo/curvekit/metrics"
	"github.com/meenmo/curvekit/quote"
	"github.com/meenmo/curvekit/store"
)

var (
	// ErrUnknownCurve is returned for curve names not in the snapshot.
	ErrUnknownCurve = errors.New("unknown curve")
	// ErrUnknownInstrument is returned for instrument IDs not in the snapshot.
	ErrUnknownInstrument = errors.New("unknown instrument")
)

// Result is the outcome of one curve in a build run.
type Result struct {
	Curve   string
	BuildID string
	// Skipped is set when the curve was already calibrated on current quotes.
	Skipped bool
	Stats   curve.BuildStats
	Err     error
}

// Status describes one curve.
type Status struct {
	Curve         string
	Traits        string
	Interpolation string
	DiscountCurve string
	Dependencies  []string
	Calibrated    bool
	Generation    uint64
	MaxDate       time.Time
	Last          *Result
}

type entry struct {
	def   marketdata.CurveDef
	curve *curve.Piecewise
	last  *Result
}

// Registry owns the quotes and curves built from one snapshot.
type Registry struct {
	snap    *marketdata.Snapshot
	ref     time.Time
	cfg     *config.Config
	quotes  map[string]*quote.Simple
	levels  [][]string
	entries map[string]*entry

	recorder store.Recorder
	metrics  *metrics.Recorder
	log      *logger.Logger

	// runMu serializes build runs; mu guards the last results.
	runMu sync.Mutex
	mu    sync.RWMutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithConfig sets bootstrap parameters, curve defaults and build concurrency.
func WithConfig(c *config.Config) Option { return func(r *Registry) { r.cfg = c } }

// WithRecorder archives every build.
func WithRecorder(rec store.Recorder) Option { return func(r *Registry) { r.recorder = rec } }

// WithMetrics records build metrics.
func WithMetrics(m *metrics.Recorder) Option { return func(r *Registry) { r.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(r *Registry) { r.log = l } }

// NewRegistry creates the quotes, helpers and uncalibrated curves of snap.
func NewRegistry(snap *marketdata.Snapshot, opts ...Option) (*Registry, error) {
	r := &Registry{snap: snap, entries: make(map[string]*entry)}
	for _, o := range opts {
		o(r)
	}
	if r.cfg == nil {
		r.cfg = config.Default()
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, "service.NewRegistry", "invalid config")
	}
	if r.recorder == nil {
		r.recorder = store.NewNoopRecorder()
	}
	if r.log == nil {
		r.log = logger.GetLogger("service")
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	var err error
	if r.ref, err = snap.Reference(); err != nil {
		return nil, err
	}
	if r.quotes, err = snap.Quotes(); err != nil {
		return nil, err
	}
	if r.levels, err = snap.Levels(); err != nil {
		return nil, err
	}
	for _, level := range r.levels {
		for _, name := range level {
			def, _ := snap.Curve(name)
			c, err := r.newCurve(def)
			if err != nil {
				return nil, fmt.Errorf("service.NewRegistry: curve %s: %w", name, err)
			}
			r.entries[name] = &entry{def: def, curve: c}
		}
	}
	return r, nil
}

func (r *Registry) newCurve(def marketdata.CurveDef) (*curve.Piecewise, error) {
	deps := marketdata.Curves{}
	for _, name := range def.Dependencies() {
		deps[name] = r.entries[name].curve
	}
	helpers, err := marketdata.Helpers(r.ref, def, r.quotes, deps)
	if err != nil {
		return nil, err
	}
	opts, err := CurveOptions(r.cfg, def)
	if err != nil {
		return nil, err
	}
	opts = append(opts, curve.WithName(def.Name), curve.WithLogger(r.log.Named("curve")))
	return curve.NewPiecewise(r.ref, helpers, opts...)
}

// CurveOptions turns configuration plus a curve definition into curve options.
// Fields set on the definition win over configured defaults.
func CurveOptions(cfg *config.Config, def marketdata.CurveDef) ([]curve.Option, error) {
	pick := func(v, fallback string) string {
		if v != "" {
			return v
		}
		return fallback
	}
	traits, err := curve.ParseTraits(pick(def.Traits, cfg.Curve.Traits))
	if err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, "service.CurveOptions", "curve %s", def.Name)
	}
	scheme, err := interpolation.Parse(pick(def.Interpolation, cfg.Curve.Interpolation))
	if err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, "service.CurveOptions", "curve %s", def.Name)
	}
	dc, err := daycount.Parse(pick(def.DayCounter, cfg.Curve.DayCounter))
	if err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, "service.CurveOptions", "curve %s", def.Name)
	}

	b := cfg.Bootstrap
	opts := []curve.Option{
		curve.WithTraits(traits),
		curve.WithInterpolator(scheme),
		curve.WithDayCounter(dc),
		curve.WithAccuracy(b.Accuracy),
		curve.WithMaxPasses(b.MaxPasses),
		curve.WithMaxAttempts(b.MaxAttempts),
		curve.WithMaxEvaluations(b.MaxEvaluations),
		curve.WithMaxRate(b.MaxRate),
	}
	if b.MinDiscountFactor > 0 {
		opts = append(opts, curve.WithMinDiscount(b.MinDiscountFactor))
	}
	extrapolate := cfg.Curve.Extrapolation
	if def.Extrapolation != nil {
		extrapolate = *def.Extrapolation
	}
	if extrapolate {
		opts = append(opts, curve.WithExtrapolation())
	}
	return opts, nil
}

// ReferenceDate returns the snapshot reference date.
func (r *Registry) ReferenceDate() time.Time { return r.ref }

// Levels returns curve names grouped in build order.
func (r *Registry) Levels() [][]string {
	out := make([][]string, len(r.levels))
	for i, l := range r.levels {
		out[i] = append([]string(nil), l...)
	}
	return out
}

// Curve returns the named curve. It may be uncalibrated or stale.
func (r *Registry) Curve(name string) (*curve.Piecewise, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("service.Curve: %q: %w", name, ErrUnknownCurve)
	}
	return e.curve, nil
}

// Refresh calibrates every curve that is stale or was never built.
func (r *Registry) Refresh(ctx context.Context) ([]Result, error) {
	return r.run(ctx, false)
}

// Rebuild recalibrates every curve.
func (r *Registry) Rebuild(ctx context.Context) ([]Result, error) {
	return r.run(ctx, true)
}

// run builds level by level. Curves within a level run concurrently up to the
// configured limit. A curve depending on a curve that is not calibrated is
// not attempted. The error joins every curve failure, or is the context error.
func (r *Registry) run(ctx context.Context, force bool) ([]Result, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	var (
		resMu   sync.Mutex
		results []Result
		failed  []error
	)
	for _, level := range r.levels {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.Scheduler.Concurrency)
		for _, name := range level {
			name := name
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res := r.build(gctx, r.entries[name], force)
				resMu.Lock()
				results = append(results, res)
				if res.Err != nil {
					failed = append(failed, fmt.Errorf("%s: %w", name, res.Err))
				}
				resMu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results, err
		}
	}
	return results, errors.Join(failed...)
}

func (r *Registry) build(ctx context.Context, e *entry, force bool) Result {
	name := e.def.Name
	res := Result{Curve: name}
	for _, dep := range e.def.Dependencies() {
		if !r.entries[dep].curve.IsCalibrated() {
			res.Err = errs.Newf(errs.KindStale, "service.build", "curve %s not calibrated", dep)
			r.finish(ctx, e, &res)
			return res
		}
	}
	if !force && e.curve.IsCalibrated() {
		res.Skipped = true
		r.mu.RLock()
		if e.last != nil {
			res.BuildID = e.last.BuildID
		}
		r.mu.RUnlock()
		res.Stats = e.curve.Stats()
		return res
	}

	res.Err = e.curve.Recalculate()
	if res.Err == nil {
		res.Stats = e.curve.Stats()
	}
	r.finish(ctx, e, &res)
	return res
}

// finish archives and records a build attempt.
func (r *Registry) finish(ctx context.Context, e *entry, res *Result) {
	b := &store.Build{
		Curve:         e.def.Name,
		ReferenceDate: r.ref,
		BuiltAt:       time.Now(),
		Traits:        e.curve.Traits().String(),
		Interpolation: e.curve.Interpolator().String(),
		Status:        store.StatusOK,
		Passes:        res.Stats.Passes,
		Evaluations:   res.Stats.Evaluations,
		MaxQuoteError: res.Stats.MaxQuoteError,
		Duration:      res.Stats.Duration,
	}
	if res.Err != nil {
		b.Status, b.Error = store.StatusFailed, res.Err.Error()
		r.log.Warnw("curve build failed", "curve", e.def.Name, "error", res.Err)
	} else if nodes, err := e.curve.Nodes(); err == nil {
		b.Nodes = nodes
		r.log.Infow("curve built", "curve", e.def.Name, "nodes", len(nodes),
			"passes", res.Stats.Passes, "maxQuoteError", res.Stats.MaxQuoteError, "duration", res.Stats.Duration)
	}

	id, err := r.recorder.RecordBuild(ctx, b)
	if err != nil {
		r.log.Errorw("archive build", "curve", e.def.Name, "error", err)
	}
	res.BuildID = id
	if r.metrics != nil {
		r.metrics.RecordBuild(e.def.Name, len(b.Nodes), res.Stats, res.Err)
	}

	r.mu.Lock()
	last := *res
	e.last = &last
	r.mu.Unlock()
}

// UpdateQuote sets an instrument quote from a string in unit. An empty unit
// uses the instrument's own. Curves using the quote become stale.
func (r *Registry) UpdateQuote(id, value, unit string) (float64, error) {
	const op = "service.UpdateQuote"
	in, _, ok := r.snap.Instrument(id)
	if !ok {
		return 0, fmt.Errorf("%s: %q: %w", op, id, ErrUnknownInstrument)
	}
	if unit != "" {
		in.Unit = unit
	}
	in.Quote = value
	v, err := in.QuoteValue()
	if err != nil {
		return 0, err
	}
	if _, err := r.quotes[id].SetValue(v); err != nil {
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.RecordQuoteUpdate(id)
	}
	r.log.Debugw("quote updated", "instrument", id, "value", v)
	return v, nil
}

// ApplyQuotes copies the quotes of snap into the registry for every instrument
// both share. It returns the number of quotes that changed.
func (r *Registry) ApplyQuotes(snap *marketdata.Snapshot) (int, error) {
	ref, err := snap.Reference()
	if err != nil {
		return 0, err
	}
	if !ref.Equal(r.ref) {
		return 0, errs.Configuration("service.ApplyQuotes", "reference date %s differs from %s",
			ref.Format("2006-01-02"), r.ref.Format("2006-01-02"))
	}
	// parse everything first so a bad quote leaves the registry untouched
	type update struct {
		id    string
		q     *quote.Simple
		value float64
	}
	var updates []update
	for _, c := range snap.Curves {
		for _, in := range c.Instruments {
			q, ok := r.quotes[in.ID]
			if !ok || in.Quote == "" {
				continue
			}
			v, err := in.QuoteValue()
			if err != nil {
				return 0, err
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, errs.Configuration("service.ApplyQuotes", "%s: quote %q is not finite", in.ID, in.Quote)
			}
			updates = append(updates, update{id: in.ID, q: q, value: v})
		}
	}

	changed := 0
	for _, u := range updates {
		if old, err := u.q.Value(); err == nil && old == u.value {
			continue
		}
		if _, err := u.q.SetValue(u.value); err != nil {
			return changed, err
		}
		changed++
		if r.metrics != nil {
			r.metrics.RecordQuoteUpdate(u.id)
		}
	}
	return changed, nil
}

// Status lists every curve in build order.
func (r *Registry) Status() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Status
	for _, level := range r.levels {
		for _, name := range level {
			e := r.entries[name]
			s := Status{
				Curve:         name,
				Traits:        e.curve.Traits().String(),
				Interpolation: e.curve.Interpolator().String(),
				DiscountCurve: e.def.DiscountCurve,
				Dependencies:  e.def.Dependencies(),
				Calibrated:    e.curve.IsCalibrated(),
				Generation:    e.curve.Generation(),
				MaxDate:       e.curve.MaxDate(),
			}
			if e.last != nil {
				last := *e.last
				s.Last = &last
			}
			out = append(out, s)
		}
	}
	return out
}

// Archive returns the build recorder.
func (r *Registry) Archive() store.Recorder { return r.recorder }
