package natsx

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// NatsxProducer 生产端（core NATS，带重试）
type NatsxProducer struct {
	c       *NatsxClient
	Retries int
	Backoff time.Duration
}

func NewNatsxProducer(c *NatsxClient) *NatsxProducer {
	return &NatsxProducer{c: c, Retries: 2, Backoff: 100 * time.Millisecond}
}

// Publish 发送一条消息；hdr 中的 Nats-Msg-Id 供下游去重
func (p *NatsxProducer) Publish(ctx context.Context, subject string, data []byte, hdr map[string]string) error {
	// 用 NewMsg 构造更安全
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Add(k, v)
	}

	var err error
	for i := 0; i <= p.Retries; i++ {
		if err = p.c.nc.PublishMsg(msg); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "publish cancelled")
		case <-time.After(p.Backoff):
		}
	}
	return errors.Wrapf(err, "publish %s", subject)
}
