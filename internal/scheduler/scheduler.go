// Package scheduler periodically recalculates the health score of every
// registered machine.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	rcron "github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/devpulse/internal/healthscore"
	"github.com/blackwell-systems/devpulse/internal/store"
)

// MachineLister lists the machines to recalculate.
type MachineLister interface {
	ListMachines(ctx context.Context) ([]*store.Machine, error)
}

// Recalculator appends a fresh health score snapshot for one machine.
type Recalculator interface {
	Recalculate(ctx context.Context, machineID string) (*healthscore.RecalculateResult, error)
}

// RunStats summarizes one recalculation sweep.
type RunStats struct {
	Machines  int
	Succeeded int
	Failed    int
}

// Scheduler runs recalculation sweeps on a cron schedule.
type Scheduler struct {
	machines MachineLister
	calc     Recalculator
	workers  int

	mu     sync.Mutex
	cron   *rcron.Cron
	cancel context.CancelFunc
}

// New creates a Scheduler that recalculates at most workers machines at once.
func New(machines MachineLister, calc Recalculator, workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{machines: machines, calc: calc, workers: workers}
}

// RunOnce recalculates every machine concurrently. A failure for one machine
// is logged and counted but does not stop the others; only a failure to list
// machines is returned.
func (s *Scheduler) RunOnce(ctx context.Context) (*RunStats, error) {
	machines, err := s.machines.ListMachines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}

	var succeeded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, m := range machines {
		m := m
		g.Go(func() error {
			res, err := s.calc.Recalculate(gctx, m.ID)
			if err != nil {
				failed.Add(1)
				log.WithError(err).WithField("machine", m.ID).Error("scheduled recalculation failed")
				return nil
			}
			succeeded.Add(1)
			log.WithFields(log.Fields{
				"machine": m.ID,
				"score":   res.Score.Composite,
				"trend":   res.Score.Trend,
			}).Debug("scheduled recalculation")
			return nil
		})
	}
	_ = g.Wait()

	return &RunStats{
		Machines:  len(machines),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}, nil
}

// Start registers the sweep under spec, a standard 5-field cron expression,
// and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	schedule, err := rcron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid recalculation schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.cron = rcron.New()
	s.cron.Schedule(schedule, rcron.FuncJob(func() {
		stats, err := s.RunOnce(runCtx)
		if err != nil {
			log.WithError(err).Error("scheduled recalculation sweep failed")
			return
		}
		log.WithFields(log.Fields{
			"machines":  stats.Machines,
			"succeeded": stats.Succeeded,
			"failed":    stats.Failed,
		}).Info("scheduled recalculation sweep finished")
	}))
	s.cron.Start()

	log.WithFields(log.Fields{
		"schedule": spec,
		"next":     schedule.Next(time.Now()).Format(time.RFC3339),
	}).Info("recalculation scheduler started")

	return nil
}

// Stop halts the cron runner and waits up to five seconds for a running
// sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Warn("scheduler stop timed out waiting for a running sweep")
	}
	cancel()
}

// ValidateSchedule reports whether spec is a valid standard cron expression.
func ValidateSchedule(spec string) error {
	if _, err := rcron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid recalculation schedule %q: %w", spec, err)
	}
	return nil
}
