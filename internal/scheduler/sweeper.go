// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ExpiredSessionSweeper deletes sessions past their expiry.
// *service.SessionManager satisfies it.
type ExpiredSessionSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper removes expired sessions on a cron schedule. Expired rows are
// already rejected on refresh; sweeping only keeps the table small.
type Sweeper struct {
	cron    *cron.Cron
	target  ExpiredSessionSweeper
	log     logrus.FieldLogger
	timeout time.Duration
}

// NewSweeper schedules target on spec, which accepts standard five-field
// cron expressions and descriptors such as "@every 1h".
func NewSweeper(spec string, target ExpiredSessionSweeper, log logrus.FieldLogger) (*Sweeper, error) {
	s := &Sweeper{
		cron:    cron.New(),
		target:  target,
		log:     log.WithField("job", "session_sweep"),
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("schedule session sweep %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.target.SweepExpired(ctx)
	if err != nil {
		s.log.WithError(err).Error("session sweep failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"deleted":  n,
		"duration": time.Since(start).String(),
	}).Info("session sweep completed")
}

// Start runs the schedule in the background.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running sweep to finish or ctx
// to expire.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
