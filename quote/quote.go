// Package quote holds versioned market values.
//
// A quote carries a generation counter that increases on every change. Dependents
// record the generation they last consumed and compare it later to detect stale
// state; nothing is pushed to them.
package quote

import (
	"math"
	"sync"

	"github.com/meenmo/curvekit/errs"
)

// Quote is an observable scalar.
type Quote interface {
	Value() (float64, error)
	IsValid() bool
	Generation() uint64
}

// Simple is a settable quote. The zero value is an empty quote.
type Simple struct {
	mu    sync.RWMutex
	value float64
	set   bool
	gen   uint64
}

// New returns a quote holding v. A non-finite v leaves the quote empty.
func New(v float64) *Simple {
	q := &Simple{}
	if isFinite(v) {
		q.value, q.set = v, true
	}
	return q
}

// NewEmpty returns a quote with no value.
func NewEmpty() *Simple {
	return &Simple{}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Value returns the current value or ErrEmptyQuote.
func (q *Simple) Value() (float64, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.set {
		return 0, errs.EmptyQuote("quote.Value")
	}
	return q.value, nil
}

// IsValid reports whether a value has been set.
func (q *Simple) IsValid() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.set
}

// Generation returns the number of changes applied so far.
func (q *Simple) Generation() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.gen
}

// SetValue stores v and bumps the generation when the value changes.
// It returns the difference from the previous value.
func (q *Simple) SetValue(v float64) (float64, error) {
	if !isFinite(v) {
		return 0, errs.Configuration("quote.SetValue", "non-finite value %g", v)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	diff := v - q.value
	if q.set && diff == 0 {
		return 0, nil
	}
	q.value, q.set = v, true
	q.gen++
	return diff, nil
}

// Reset empties the quote.
func (q *Simple) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.set {
		q.set = false
		q.value = 0
		q.gen++
	}
}
