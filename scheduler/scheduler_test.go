package scheduler

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/curvekit/marketdata"
	"github.com/meenmo/curvekit/service"
)

const fixture = "../marketdata/testdata/market.yaml"

func setup(t *testing.T) (*service.Current, string, []byte) {
	t.Helper()
	data, err := os.ReadFile(fixture)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "market.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	snap, err := marketdata.Parse(data)
	require.NoError(t, err)
	reg, err := service.NewRegistry(snap)
	require.NoError(t, err)
	_, err = reg.Refresh(context.Background())
	require.NoError(t, err)
	return service.NewCurrent(reg), path, data
}

func TestReloadAppliesQuotes(t *testing.T) {
	current, path, data := setup(t)
	before := current.Load()
	crv, err := before.Curve("USD-SOFR")
	require.NoError(t, err)
	d := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	df0, err := crv.Discount(d)
	require.NoError(t, err)

	s := NewScheduler(context.Background(), current, path)
	require.NoError(t, s.Reload(context.Background()))
	assert.Same(t, before, current.Load())

	moved := bytes.Replace(data, []byte(`quote: "3.95"`), []byte(`quote: "4.05"`), 1)
	require.NoError(t, os.WriteFile(path, moved, 0o644))
	require.NoError(t, s.Reload(context.Background()))
	assert.Same(t, before, current.Load())

	assert.True(t, crv.IsCalibrated())
	df1, err := crv.Discount(d)
	require.NoError(t, err)
	assert.Less(t, df1, df0)
}

func TestReloadRollsReferenceDate(t *testing.T) {
	current, path, data := setup(t)
	before := current.Load()

	rolled := bytes.Replace(data, []byte(`"2025-01-02"`), []byte(`"2025-01-03"`), 1)
	require.NoError(t, os.WriteFile(path, rolled, 0o644))

	s := NewScheduler(context.Background(), current, path)
	require.NoError(t, s.Reload(context.Background()))
	after := current.Load()
	assert.NotSame(t, before, after)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), after.ReferenceDate())
	for _, st := range after.Status() {
		assert.True(t, st.Calibrated, st.Curve)
	}
}

func TestReloadKeepsRegistryOnCancel(t *testing.T) {
	current, path, data := setup(t)
	before := current.Load()
	rolled := bytes.Replace(data, []byte(`"2025-01-02"`), []byte(`"2025-01-03"`), 1)
	require.NoError(t, os.WriteFile(path, rolled, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewScheduler(ctx, current, path)
	assert.ErrorIs(t, s.Reload(ctx), context.Canceled)
	assert.Same(t, before, current.Load())
}

func TestReloadMissingSnapshot(t *testing.T) {
	current, _, _ := setup(t)
	s := NewScheduler(context.Background(), current, filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, s.Reload(context.Background()))
}

func TestRegister(t *testing.T) {
	current, path, _ := setup(t)
	s := NewScheduler(context.Background(), current, path)
	assert.NoError(t, s.Register("*/15 * * * *"))
	assert.Error(t, s.Register("every now and then"))
	s.Start()
	s.Stop()
}
