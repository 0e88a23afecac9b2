package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/py-sit/skyalert/internal/logging"
	"github.com/py-sit/skyalert/internal/observability"
)

const (
	// stopPoll bounds how long the loop sleeps before re-checking the stop
	// flag, so Stop never waits longer than this plus one cycle.
	stopPoll = 10 * time.Second
	// cycleErrorBackoff is the pause after a failed cycle before the next
	// wake time is computed again.
	cycleErrorBackoff = 60 * time.Second
)

// CycleRunner runs one evaluation cycle and reports its settings source.
// The scheduler re-reads the schedule every iteration so settings changes
// take effect at the next wake without a restart.
type CycleRunner interface {
	RunCycle(ctx context.Context) (CycleResult, error)
	Schedule(ctx context.Context) (firstAlertTime string, intervalHours int, err error)
}

// Scheduler drives the periodic alert loop. Start and Stop are safe to call
// from API handlers; a second Start while running is rejected.
type Scheduler struct {
	runner  CycleRunner
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *logging.Logger

	mu       sync.Mutex
	running  bool
	stopping bool
	stop     chan struct{}
	done     chan struct{}
}

func NewScheduler(runner CycleRunner, clock clockwork.Clock, metrics *observability.Metrics, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		runner:  runner,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// NextWake computes the next cycle time strictly after now. The anchor is
// today at firstAlertTime; wakes repeat every intervalHours from there.
func NextWake(now time.Time, firstAlertTime string, intervalHours int) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", firstAlertTime, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid first alert time %q: %w", firstAlertTime, err)
	}
	if intervalHours <= 0 {
		return time.Time{}, fmt.Errorf("invalid interval %d hours", intervalHours)
	}

	anchor := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if now.Before(anchor) {
		return anchor, nil
	}

	interval := time.Duration(intervalHours) * time.Hour
	passed := now.Sub(anchor) / interval
	next := anchor.Add((passed + 1) * interval)
	if !next.After(now) {
		next = next.Add(interval)
	}
	return next, nil
}

// Start launches the loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.metrics.SetSchedulerRunning(true)
	go s.loop(ctx, s.stop, s.done)
	s.logger.Infof("Alert scheduler started")
	return nil
}

// Stop signals the loop and waits for it to exit. The wait is bounded by
// the stop poll interval; when it expires the scheduler stays marked
// running and Stop returns an error, so a new Start cannot overlap a loop
// still finishing a cycle. Calling Stop again resumes the wait.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not running")
	}
	if !s.stopping {
		s.stopping = true
		close(s.stop)
	}
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-s.clock.After(stopPoll):
		s.logger.Warnf("Scheduler stop timed out; loop still finishing a cycle")
		return fmt.Errorf("scheduler stop timed out")
	}

	s.mu.Lock()
	s.running = false
	s.stopping = false
	s.mu.Unlock()
	s.metrics.SetSchedulerRunning(false)
	s.logger.Infof("Alert scheduler stopped")
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	for {
		firstAlertTime, intervalHours, err := s.runner.Schedule(ctx)
		if err != nil {
			s.logger.Errorf("Read schedule failed: %v", err)
			if s.sleep(stop, cycleErrorBackoff) {
				return
			}
			continue
		}

		next, err := NextWake(s.clock.Now(), firstAlertTime, intervalHours)
		if err != nil {
			s.logger.Errorf("Compute next wake failed: %v", err)
			if s.sleep(stop, cycleErrorBackoff) {
				return
			}
			continue
		}
		s.logger.Infof("Next alert cycle at %s", next.Format("2006-01-02 15:04:05"))

		if s.sleepUntil(stop, next) {
			return
		}

		started := s.clock.Now()
		result, err := s.runner.RunCycle(ctx)
		s.metrics.ObserveCycle(s.clock.Now().Sub(started))
		if err != nil {
			s.logger.Errorf("Alert cycle failed: %v", err)
			if s.sleep(stop, cycleErrorBackoff) {
				return
			}
			continue
		}
		s.logger.Infof("Alert cycle done: %d candidates, %d sent, %d failed", result.Candidates, result.Sent, result.Failed)
	}
}

// sleepUntil waits for the deadline in stop-poll slices. Returns true when
// the stop signal fired.
func (s *Scheduler) sleepUntil(stop chan struct{}, deadline time.Time) bool {
	for {
		remaining := deadline.Sub(s.clock.Now())
		if remaining <= 0 {
			return false
		}
		if remaining > stopPoll {
			remaining = stopPoll
		}
		if s.sleep(stop, remaining) {
			return true
		}
	}
}

func (s *Scheduler) sleep(stop chan struct{}, d time.Duration) bool {
	select {
	case <-stop:
		return true
	case <-s.clock.After(d):
		return false
	}
}
