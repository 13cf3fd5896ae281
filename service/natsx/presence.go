package natsx

import (
	"context"
	"encoding/json"
	"strconv"

	"PPRelay/service/chat"

	"github.com/pkg/errors"
)

// PresencePublisher exports user_status changes as JSON on
// <subject>.online / <subject>.offline. Chat frames are never sent over NATS.
type PresencePublisher struct {
	p       *NatsxProducer
	subject string
}

func NewPresencePublisher(p *NatsxProducer, subject string) *PresencePublisher {
	return &PresencePublisher{p: p, subject: subject}
}

func (pp *PresencePublisher) Name() string { return "nats" }

func (pp *PresencePublisher) Subject(status string) string {
	return pp.subject + "." + status
}

func (pp *PresencePublisher) Apply(ctx context.Context, ev chat.PresenceEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal presence event")
	}
	hdr := map[string]string{
		"Nats-Msg-Id":     ev.ConnID + ":" + ev.Status,
		"Relay-Node":      strconv.FormatInt(ev.NodeID, 10),
		"Presence-Status": ev.Status,
	}
	return pp.p.Publish(ctx, pp.Subject(ev.Status), data, hdr)
}
