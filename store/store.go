// Package store archives calibrated curves.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/meenmo/curvekit/termstructure"
)

// ErrNotFound is returned for unknown build IDs.
var ErrNotFound = errors.New("build not found")

// Build statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Build is one bootstrap run of a curve.
type Build struct {
	ID            string
	Curve         string
	ReferenceDate time.Time
	BuiltAt       time.Time
	Traits        string
	Interpolation string
	Status        string
	Error         string
	Passes        int
	Evaluations   int
	MaxQuoteError float64
	Duration      time.Duration
	// Nodes is empty for failed builds.
	Nodes []termstructure.Node
}

// Recorder persists curve builds for later analysis.
type Recorder interface {
	// RecordBuild stores b and returns its ID. An empty b.ID is assigned one.
	RecordBuild(ctx context.Context, b *Build) (string, error)
	// Builds lists the most recent builds of a curve, newest first, without nodes.
	Builds(ctx context.Context, curve string, limit int) ([]Build, error)
	// Build loads one build with its nodes.
	Build(ctx context.Context, id string) (*Build, error)
	Close() error
}
