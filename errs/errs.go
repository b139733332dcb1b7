// Package errs defines the error taxonomy shared by the curve-building packages.
//
// Every error carries a Kind. Callers test for a category with errors.Is against
// the exported sentinels (ErrConfiguration, ErrBootstrap, ...) and extract detail
// with errors.As against the typed errors.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error.
type Kind uint

const (
	// KindUnknown is an unclassified error.
	KindUnknown Kind = iota
	// KindConfiguration is a malformed input detected at construction time.
	KindConfiguration
	// KindOrdering is a duplicate or non-increasing pillar detected at bootstrap start.
	KindOrdering
	// KindBracketing is a root-finder bracket without a sign change.
	KindBracketing
	// KindConvergence is a root finder or convergence loop running out of iterations.
	KindConvergence
	// KindBootstrap is a failed node solve, wrapping the cause.
	KindBootstrap
	// KindEmptyQuote is a dereference of an empty quote or handle.
	KindEmptyQuote
	// KindExtrapolation is a query beyond the curve range with extrapolation disabled.
	KindExtrapolation
	// KindStale is a query against a curve whose inputs changed since calibration.
	KindStale
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindOrdering:
		return "ordering"
	case KindBracketing:
		return "bracketing"
	case KindConvergence:
		return "convergence"
	case KindBootstrap:
		return "bootstrap"
	case KindEmptyQuote:
		return "empty quote"
	case KindExtrapolation:
		return "extrapolation"
	case KindStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrOrdering      = errors.New("ordering error")
	ErrBracketing    = errors.New("bracketing error")
	ErrConvergence   = errors.New("convergence error")
	ErrBootstrap     = errors.New("bootstrap error")
	ErrEmptyQuote    = errors.New("empty quote")
	ErrExtrapolation = errors.New("extrapolation not allowed")
	ErrStale         = errors.New("curve is stale")
)

func sentinel(k Kind) error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindOrdering:
		return ErrOrdering
	case KindBracketing:
		return ErrBracketing
	case KindConvergence:
		return ErrConvergence
	case KindBootstrap:
		return ErrBootstrap
	case KindEmptyQuote:
		return ErrEmptyQuote
	case KindExtrapolation:
		return ErrExtrapolation
	case KindStale:
		return ErrStale
	default:
		return nil
	}
}

// Error is the general-purpose typed error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error returns the error message
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	s := sentinel(e.Kind)
	return s != nil && target == s
}

// Newf creates an error of the given kind.
func Newf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrapf wraps err with the given kind and message.
func Wrapf(kind Kind, err error, op, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// Configuration creates a configuration error.
func Configuration(op, format string, args ...interface{}) error {
	return Newf(KindConfiguration, op, format, args...)
}

// Ordering creates an ordering error.
func Ordering(op, format string, args ...interface{}) error {
	return Newf(KindOrdering, op, format, args...)
}

// EmptyQuote creates an empty-quote error.
func EmptyQuote(op string) error {
	return Newf(KindEmptyQuote, op, "quote has no value")
}

// BracketingError reports that f(low) and f(high) share a sign.
type BracketingError struct {
	Low, High   float64
	FLow, FHigh float64
}

func (e *BracketingError) Error() string {
	return fmt.Sprintf("root not bracketed: f[%g,%g] -> [%g,%g]", e.Low, e.High, e.FLow, e.FHigh)
}

// Is matches ErrBracketing.
func (e *BracketingError) Is(target error) bool { return target == ErrBracketing }

// ConvergenceError reports an exhausted iteration budget.
type ConvergenceError struct {
	Evaluations  int
	Accuracy     float64
	LastEstimate float64
	Message      string
}

func (e *ConvergenceError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "maximum number of function evaluations exceeded"
	}
	return fmt.Sprintf("%s (%d evaluations, accuracy %g, last estimate %g)",
		msg, e.Evaluations, e.Accuracy, e.LastEstimate)
}

// Is matches ErrConvergence.
func (e *ConvergenceError) Is(target error) bool { return target == ErrConvergence }

// BootstrapError identifies the helper whose node could not be solved.
// Index is the position of the helper after sorting by pillar date.
type BootstrapError struct {
	Index  int
	Pillar time.Time
	Helper string
	Pass   int
	Err    error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap failed at instrument %d (%s, pillar %s, pass %d): %v",
		e.Index+1, e.Helper, e.Pillar.Format("2006-01-02"), e.Pass, e.Err)
}

// Unwrap returns the cause.
func (e *BootstrapError) Unwrap() error { return e.Err }

// Is matches ErrBootstrap.
func (e *BootstrapError) Is(target error) bool { return target == ErrBootstrap }

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	for _, k := range []Kind{KindBootstrap, KindOrdering, KindConfiguration, KindBracketing,
		KindConvergence, KindEmptyQuote, KindExtrapolation, KindStale} {
		if errors.Is(err, sentinel(k)) {
			return k
		}
	}
	return KindUnknown
}
