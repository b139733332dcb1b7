package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordBuild(_ context.Context, b *Build) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return b.ID, nil
}

func (n *NoopRecorder) Builds(context.Context, string, int) ([]Build, error) { return nil, nil }

func (n *NoopRecorder) Build(_ context.Context, id string) (*Build, error) {
	return nil, fmt.Errorf("store.Build: %s: %w", id, ErrNotFound)
}

func (n *NoopRecorder) Close() error { return nil }
