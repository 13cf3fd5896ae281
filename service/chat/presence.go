package chat

import (
	"context"
	"slices"
	"sync"
	"time"

	"PPRelay/tools/errs"

	"go.uber.org/zap"
)

// Presence announces online/offline transitions to the other connected
// sockets and mirrors them into the configured sinks.
type Presence struct {
	reg    *ConnManager
	nodeID int64
	log    *zap.Logger
	sinks  *sinkFanout // nil 表示没有 sink
	locks  userLocks
}

func NewPresence(reg *ConnManager, nodeID int64, log *zap.Logger, sinks ...PresenceSink) *Presence {
	p := &Presence{reg: reg, nodeID: nodeID, log: log, locks: userLocks{m: make(map[string]*userLock)}}
	if len(sinks) > 0 {
		p.sinks = newSinkFanout(sinks, 0, 0, log.Named("sinks"))
	}
	return p
}

// Online tells every connection except from that user came online.
func (p *Presence) Online(from *WsConn, user string) int {
	n := broadcast(p.reg, NewUserStatus(user, StatusOnline), from, p.log)
	p.emit(user, StatusOnline, from)
	return n
}

// Offline tells every remaining connection that user went offline.
func (p *Presence) Offline(c *WsConn, user string) int {
	n := broadcast(p.reg, NewUserStatus(user, StatusOffline), c, p.log)
	p.emit(user, StatusOffline, c)
	return n
}

func (p *Presence) emit(user, status string, c *WsConn) {
	if p.sinks == nil {
		return
	}
	ev := PresenceEvent{UserID: user, Status: status, NodeID: p.nodeID, At: time.Now()}
	if c != nil {
		ev.ConnID = c.SnowID
	}
	p.sinks.Emit(ev)
}

func (p *Presence) Close(ctx context.Context) error {
	if p.sinks == nil {
		return nil
	}
	return p.sinks.Close(ctx)
}

// Lock serialises presence transitions of the given users. A registry change
// and the broadcast it causes must happen under the same lock, otherwise an
// offline for a closed connection can land after the user's next online.
func (p *Presence) Lock(users ...string) (unlock func()) {
	return p.locks.lock(users...)
}

// userLocks 按用户加锁；无人持有时从 map 中移除
type userLocks struct {
	mu sync.Mutex
	m  map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func (l *userLocks) lock(users ...string) func() {
	keys := make([]string, 0, len(users))
	for _, u := range users {
		if u != "" {
			keys = append(keys, u)
		}
	}
	// 固定顺序加锁，避免两个用户互相等待
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*userLock, 0, len(keys))
	for _, k := range keys {
		l.mu.Lock()
		ul, ok := l.m[k]
		if !ok {
			ul = &userLock{}
			l.m[k] = ul
		}
		ul.refs++
		l.mu.Unlock()
		ul.Lock()
		held = append(held, ul)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			l.mu.Lock()
			if held[i].refs--; held[i].refs == 0 {
				delete(l.m, keys[i])
			}
			l.mu.Unlock()
		}
	}
}

// broadcast encodes f once and queues it on every registered connection
// except except. A failed recipient is logged and skipped.
func broadcast(reg *ConnManager, f OutboundFrame, except *WsConn, log *zap.Logger) int {
	payload, err := Encode(f)
	if err != nil {
		log.Error("encode broadcast frame", zap.String("type", string(f.Kind())), zap.Error(err))
		return 0
	}
	delivered := 0
	for c := range reg.All() {
		if c == except {
			continue
		}
		if err := c.Send(payload); err != nil {
			log.Warn("broadcast delivery failed",
				zap.String("type", string(f.Kind())), zap.String("to", c.SnowID),
				zap.Int("code", errs.Code(err)), zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}
