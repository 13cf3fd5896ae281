package handlers

import (
	"PPRelay/service/chat"
	"PPRelay/tools/errs"

	"go.uber.org/zap"
)

// GroupHandler fans a group message out to every other registered connection.
// Group membership is not checked here.
type GroupHandler struct{ log *zap.Logger }

func NewGroupHandler(log *zap.Logger) *GroupHandler { return &GroupHandler{log: log} }

func (h *GroupHandler) Type() chat.FrameType { return chat.TypeGroupMessage }

func (h *GroupHandler) Handle(ctx *chat.Context, f chat.InboundFrame, conn *chat.WsConn) error {
	m, ok := f.(chat.GroupMessage)
	if !ok {
		return errs.ErrInvalidGroup.Wrap()
	}
	sender, ok := ctx.S.Registry().Identity(conn)
	if !ok {
		return errs.ErrUnauthenticated.Wrap()
	}
	n := ctx.S.Broadcast(chat.NewGroupMessage(m.GroupID, sender, m.Message), conn)
	h.log.Debug("group fan-out", zap.String("group", m.GroupID), zap.String("from", sender), zap.Int("delivered", n))
	return nil
}
