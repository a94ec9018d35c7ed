package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultActivationInterval is the tick period used when none is configured.
const DefaultActivationInterval = time.Minute

// activationRunner is satisfied by *ActivationEngine.
type activationRunner interface {
	RunOnce(ctx context.Context) (ActivationResult, error)
}

// LeaveScheduler runs auto-activation on a fixed period.  It is STOPPED
// until Start and can be started again after Stop.
type LeaveScheduler struct {
	runner activationRunner
	period time.Duration
	log    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLeaveScheduler returns a stopped scheduler.  A non-positive period
// falls back to DefaultActivationInterval.
func NewLeaveScheduler(engine *ActivationEngine, period time.Duration, log *zap.Logger) *LeaveScheduler {
	return newLeaveScheduler(engine, period, log)
}

func newLeaveScheduler(runner activationRunner, period time.Duration, log *zap.Logger) *LeaveScheduler {
	if period <= 0 {
		period = DefaultActivationInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LeaveScheduler{runner: runner, period: period, log: log}
}

// Start launches the loop.  Calling Start on a running scheduler is a no-op.
func (s *LeaveScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.log.Info("leave scheduler started", zap.Duration("period", s.period))
}

// Stop cancels future ticks and blocks until the loop has exited.  A run
// already in progress completes first.
func (s *LeaveScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("leave scheduler stopped")
}

// Running reports whether the loop is active.
func (s *LeaveScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *LeaveScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	var ticker = time.NewTicker(s.period)
	defer ticker.Stop()

	// Run immediately on start, then periodically
	s.tick()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.tick()
		}
	}
}

// tick runs the engine on a context detached from the stop signal.
func (s *LeaveScheduler) tick() {
	res, err := s.runner.RunOnce(context.Background())
	if err != nil {
		s.log.Error("auto-activation run failed", zap.Error(err))
		return
	}
	if res.PassesGranted > 0 || res.WindowsProcessed > 0 {
		s.log.Info("auto-activation run",
			zap.Int("windows_processed", res.WindowsProcessed),
			zap.Int("passes_granted", res.PassesGranted))
	}
}
