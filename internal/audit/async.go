package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Async decouples callers from a slow Recorder.  Record enqueues the event
// and returns immediately; a single worker drains the queue.  When the
// buffer is full the event is dropped and logged.
type Async struct {
	next    Recorder
	log     *zap.Logger
	timeout time.Duration
	events  chan Event
	wg      sync.WaitGroup
	once    sync.Once
}

// NewAsync starts the worker.  Call Close to drain and stop it.
func NewAsync(next Recorder, buffer int, log *zap.Logger) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &Async{
		next:    next,
		log:     log,
		timeout: 5 * time.Second,
		events:  make(chan Event, buffer),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) Record(_ context.Context, ev Event) error {
	select {
	case a.events <- ev:
	default:
		a.log.Warn("audit buffer full, dropping event",
			zap.String("event_id", ev.ID), zap.String("action", string(ev.Action)))
	}
	return nil
}

func (a *Async) run() {
	defer a.wg.Done()
	for ev := range a.events {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Record(ctx, ev); err != nil {
			a.log.Error("audit record failed",
				zap.String("event_id", ev.ID),
				zap.String("action", string(ev.Action)),
				zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.once.Do(func() { close(a.events) })
	a.wg.Wait()
}
