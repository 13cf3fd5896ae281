package storage

import (
	"context"
	"iter"
	"strconv"
	"time"

	"PPRelay/service/chat"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// presence key: im:presence:<user>
// Value: node id, TTL controls the online validity period
func presenceKey(user string) string { return "im:presence:" + user }

// RedisPresence mirrors the local registry into redis so other services can
// ask whether a user is online. It never routes frames.
type RedisPresence struct {
	rdb  *redis.Client
	node string
	ttl  time.Duration
}

func NewRedisPresence(rdb *redis.Client, nodeID int64, ttl time.Duration) *RedisPresence {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisPresence{rdb: rdb, node: strconv.FormatInt(nodeID, 10), ttl: ttl}
}

func (p *RedisPresence) Name() string { return "redis" }

// TTL is how long a key survives without Touch.
func (p *RedisPresence) TTL() time.Duration { return p.ttl }

func (p *RedisPresence) Apply(ctx context.Context, ev chat.PresenceEvent) error {
	switch ev.Status {
	case chat.StatusOnline:
		return errors.Wrap(p.rdb.Set(ctx, presenceKey(ev.UserID), p.node, p.ttl).Err(), "presence online")
	case chat.StatusOffline:
		return errors.Wrap(p.rdb.Del(ctx, presenceKey(ev.UserID)).Err(), "presence offline")
	default:
		return errors.Errorf("unknown presence status %q", ev.Status)
	}
}

// Touch renews the TTL of every given user in one pipeline.
func (p *RedisPresence) Touch(ctx context.Context, users iter.Seq[string]) (int, error) {
	pipe := p.rdb.Pipeline()
	n := 0
	for u := range users {
		pipe.Set(ctx, presenceKey(u), p.node, p.ttl)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Wrap(err, "presence touch")
	}
	return n, nil
}

// Lookup checks whether the user is online and on which node.
func (p *RedisPresence) Lookup(ctx context.Context, user string) (node string, online bool, err error) {
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "presence lookup")
	}
	return val, true, nil
}
