package chat

import (
	"context"
	"sync"
	"time"

	"PPRelay/tools/safe"

	"go.uber.org/zap"
)

// PresenceEvent 是推给外部 sink 的在线状态变更
type PresenceEvent struct {
	UserID string    `json:"user_id"`
	Status string    `json:"status"`
	ConnID string    `json:"conn_id"`
	NodeID int64     `json:"node_id"`
	At     time.Time `json:"at"`
}

// PresenceSink mirrors presence changes somewhere outside the process
// (redis, nats, the users table). Sinks never affect relay behaviour.
type PresenceSink interface {
	Name() string
	Apply(ctx context.Context, ev PresenceEvent) error
}

// sinkFanout feeds every sink from one worker goroutine, so events reach each
// sink in the order they were emitted and online never lands after offline.
type sinkFanout struct {
	sinks   []PresenceSink
	timeout time.Duration
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan PresenceEvent
	done   chan struct{}
}

func newSinkFanout(sinks []PresenceSink, queue int, timeout time.Duration, log *zap.Logger) *sinkFanout {
	if queue <= 0 {
		queue = 1024
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	f := &sinkFanout{
		sinks:   sinks,
		timeout: timeout,
		log:     log,
		jobs:    make(chan PresenceEvent, queue),
		done:    make(chan struct{}),
	}
	safe.Go(log, "presence-sinks", f.run)
	return f
}

func (f *sinkFanout) run() {
	defer close(f.done)
	for ev := range f.jobs {
		for _, s := range f.sinks {
			safe.Run(f.log, s.Name(), func() {
				ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
				defer cancel()
				if err := s.Apply(ctx, ev); err != nil {
					f.log.Warn("presence sink failed",
						zap.String("sink", s.Name()), zap.String("user", ev.UserID),
						zap.String("status", ev.Status), zap.Error(err))
				}
			})
		}
	}
}

// Emit never blocks: when the queue is full the event is dropped and logged.
func (f *sinkFanout) Emit(ev PresenceEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	select {
	case f.jobs <- ev:
	default:
		f.log.Warn("presence sink queue full, drop event", zap.String("user", ev.UserID), zap.String("status", ev.Status))
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (f *sinkFanout) Close(ctx context.Context) error {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.jobs)
	}
	f.mu.Unlock()

	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
