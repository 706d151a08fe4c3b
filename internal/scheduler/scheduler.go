// Package scheduler runs a refresh cycle on a reconfigurable interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// State is the scheduler's lifecycle state.
type State int

const (
	// Idle means Start has not been called.
	Idle State = iota
	// Waiting means a cycle is armed.
	Waiting
	// Firing means a cycle is running.
	Firing
	// Stopped means Stop was called; Start may be called again.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Firing:
		return "firing"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrRunning is returned by Start when the scheduler is already started.
var ErrRunning = errors.New("scheduler already running")

// Scheduler calls its cycle function after every interval. The interval is
// read when a cycle is armed, so Reconfigure never shortens a pending wait.
type Scheduler struct {
	cycle  func(ctx context.Context)
	clock  clockwork.Clock
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	fired    int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock (defaults to the real clock).
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New creates an idle scheduler that runs cycle on each fire.
// Cycles run one at a time; the next wait is armed after cycle returns.
func New(cycle func(ctx context.Context), opts ...Option) *Scheduler {
	s := &Scheduler{
		cycle:  cycle,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start arms the first cycle after interval. It does not fire immediately.
func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Waiting || s.state == Firing {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.interval = interval
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = Waiting

	go s.loop(ctx, s.done)
	s.logger.Info("scheduler: started", "interval", interval)
	return nil
}

// Reconfigure sets the interval used from the next arming on.
func (s *Scheduler) Reconfigure(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s", interval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = interval
	s.logger.Info("scheduler: interval changed", "interval", interval)
	return nil
}

// Stop cancels the pending wait, cancels a running cycle's context and
// waits for it to return. It must not be called from inside a cycle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != Waiting && s.state != Firing {
		s.mu.Unlock()
		return
	}
	done := s.done
	s.cancel()
	s.state = Stopped
	s.mu.Unlock()

	<-done
	s.logger.Info("scheduler: stopped")
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Interval returns the interval the next arming will use.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Fired returns how many cycles have run.
func (s *Scheduler) Fired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		timer, ok := s.arm(ctx)
		if !ok {
			return
		}

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}

		if !s.transition(ctx, Firing) {
			return
		}
		s.runCycle(ctx)
	}
}

// arm reads the interval and starts the wait for the next cycle.
func (s *Scheduler) arm(ctx context.Context) (clockwork.Timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return nil, false
	}
	s.state = Waiting
	s.logger.Debug("scheduler: armed", "interval", s.interval)
	return s.clock.NewTimer(s.interval), true
}

func (s *Scheduler) transition(ctx context.Context, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	s.state = to
	if to == Firing {
		s.fired++
	}
	return true
}

// runCycle runs one cycle. A panic is logged and the scheduler re-arms.
func (s *Scheduler) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler: cycle panicked", "panic", r)
		}
	}()
	start := s.clock.Now()
	s.cycle(ctx)
	s.logger.Debug("scheduler: cycle finished", "took", s.clock.Since(start))
}
