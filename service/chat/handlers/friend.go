package handlers

import (
	"PPRelay/service/chat"
	"PPRelay/tools/errs"

	"go.uber.org/zap"
)

type FriendHandler struct{ log *zap.Logger }

func NewFriendHandler(log *zap.Logger) *FriendHandler { return &FriendHandler{log: log} }

func (h *FriendHandler) Type() chat.FrameType { return chat.TypeFriendRequest }

// Handle notifies an online receiver; requests to offline users are dropped
// without telling the sender.
func (h *FriendHandler) Handle(ctx *chat.Context, f chat.InboundFrame, conn *chat.WsConn) error {
	m, ok := f.(chat.FriendRequest)
	if !ok {
		return errs.ErrInvalidFriendReq.Wrap()
	}
	reg := ctx.S.Registry()
	sender, ok := reg.Identity(conn)
	if !ok {
		return errs.ErrUnauthenticated.Wrap()
	}
	to, ok := reg.LookupByUser(m.ReceiverID)
	if !ok {
		h.log.Debug("friend request dropped, receiver offline", zap.String("from", sender), zap.String("to", m.ReceiverID))
		return nil
	}
	if err := ctx.S.Deliver(to, chat.NewFriendRequest(sender)); err != nil {
		h.log.Warn("friend request delivery failed", zap.String("from", sender),
			zap.String("to", m.ReceiverID), zap.Error(err))
	}
	return nil
}
