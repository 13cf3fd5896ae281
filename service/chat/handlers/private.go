package handlers

import (
	"PPRelay/service/chat"
	"PPRelay/tools/errs"

	"go.uber.org/zap"
)

type PrivateHandler struct{ log *zap.Logger }

func NewPrivateHandler(log *zap.Logger) *PrivateHandler { return &PrivateHandler{log: log} }

func (h *PrivateHandler) Type() chat.FrameType { return chat.TypePrivateMessage }

// Handle delivers to the receiver's current connection. An offline receiver
// is reported back to the sender; a failed write to an online receiver is
// only logged.
func (h *PrivateHandler) Handle(ctx *chat.Context, f chat.InboundFrame, conn *chat.WsConn) error {
	m, ok := f.(chat.PrivateMessage)
	if !ok {
		return errs.ErrInvalidPrivate.Wrap()
	}
	reg := ctx.S.Registry()
	sender, ok := reg.Identity(conn)
	if !ok {
		return errs.ErrUnauthenticated.Wrap()
	}
	to, ok := reg.LookupByUser(m.ReceiverID)
	if !ok {
		return errs.ErrReceiverOffline.WrapMsg("", "receiver", m.ReceiverID)
	}
	if err := ctx.S.Deliver(to, chat.NewPrivateMessage(sender, m.Message)); err != nil {
		h.log.Warn("private delivery failed", zap.String("from", sender),
			zap.String("to", m.ReceiverID), zap.Error(err))
	}
	return nil
}
