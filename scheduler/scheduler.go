// Package scheduler reloads the market snapshot on a cron schedule and
// rebuilds the curves it feeds.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/meenmo/curvekit/logger"
	"github.com/meenmo/curvekit/marketdata"
	"github.com/meenmo/curvekit/service"
)

// Scheduler manages the snapshot reload task.
type Scheduler struct {
	cron     *cron.Cron
	current  *service.Current
	snapshot string
	opts     []service.Option
	ctx      context.Context
	log      *logger.Logger
}

// NewScheduler creates a scheduler reloading path into current. opts are
// applied to every registry created on a reference date roll.
func NewScheduler(ctx context.Context, current *service.Current, path string, opts ...service.Option) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		current:  current,
		snapshot: path,
		opts:     opts,
		ctx:      ctx,
		log:      logger.GetLogger("scheduler"),
	}
}

// Register adds the reload task under a standard five-field cron spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.reloadTask); err != nil {
		return fmt.Errorf("register reload task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Infow("scheduler started", "snapshot", s.snapshot)
}

// Stop stops the scheduler and waits for a running reload.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) reloadTask() {
	if err := s.Reload(s.ctx); err != nil {
		s.log.Errorw("reload failed", "error", err)
	}
}

// Reload reads the snapshot. Quotes on the current reference date are
// applied to the registry in use; a new reference date builds a new registry
// and swaps it in once its curves are built. The returned error joins the
// curve failures of the run.
func (s *Scheduler) Reload(ctx context.Context) error {
	snap, err := marketdata.Load(s.snapshot)
	if err != nil {
		return err
	}
	ref, err := snap.Reference()
	if err != nil {
		return err
	}

	reg := s.current.Load()
	if reg != nil && reg.ReferenceDate().Equal(ref) {
		n, err := reg.ApplyQuotes(snap)
		if err != nil {
			return err
		}
		s.log.Infow("quotes reloaded", "changed", n)
		_, err = reg.Refresh(ctx)
		return err
	}

	next, err := service.NewRegistry(snap, s.opts...)
	if err != nil {
		return err
	}
	_, buildErr := next.Refresh(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.current.Store(next)
	s.log.Infow("reference date rolled", "reference", ref.Format("2006-01-02"))
	return buildErr
}
