package errs_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/curvekit/errs"
)

func TestKindsMatchSentinels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want error
		kind errs.Kind
	}{
		{errs.Configuration("op", "bad %d", 1), errs.ErrConfiguration, errs.KindConfiguration},
		{errs.Ordering("op", "dup"), errs.ErrOrdering, errs.KindOrdering},
		{errs.EmptyQuote("op"), errs.ErrEmptyQuote, errs.KindEmptyQuote},
		{&errs.BracketingError{Low: 0, High: 1, FLow: 1, FHigh: 2}, errs.ErrBracketing, errs.KindBracketing},
		{&errs.ConvergenceError{Evaluations: 100}, errs.ErrConvergence, errs.KindConvergence},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.want)
		assert.Equal(t, tc.kind, errs.KindOf(tc.err))
	}
}

func TestBootstrapErrorWrapsCause(t *testing.T) {
	t.Parallel()

	cause := &errs.ConvergenceError{Evaluations: 100, LastEstimate: 0.97}
	err := fmt.Errorf("Calibrate: %w", &errs.BootstrapError{
		Index:  2,
		Pillar: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Helper: "deposit 6M",
		Err:    cause,
	})

	require.ErrorIs(t, err, errs.ErrBootstrap)
	require.ErrorIs(t, err, errs.ErrConvergence)

	var be *errs.BootstrapError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 2, be.Index)
	assert.Contains(t, err.Error(), "instrument 3")
	assert.Contains(t, err.Error(), "2025-07-01")

	var ce *errs.ConvergenceError
	require.True(t, errors.As(err, &ce))
	assert.InDelta(t, 0.97, ce.LastEstimate, 0)
	assert.Equal(t, errs.KindBootstrap, errs.KindOf(err))
}

func TestWrapfNil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, errs.Wrapf(errs.KindBootstrap, nil, "op", "msg"))
}
