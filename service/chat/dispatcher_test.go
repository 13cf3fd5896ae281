package chat

import (
	"testing"

	"PPRelay/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcHandler struct {
	typ FrameType
	fn  func(*Context, InboundFrame, *WsConn) error
}

func (h funcHandler) Type() FrameType { return h.typ }
func (h funcHandler) Handle(ctx *Context, f InboundFrame, c *WsConn) error {
	return h.fn(ctx, f, c)
}

func TestDispatcher(t *testing.T) {
	d := NewDispatcher()
	called := 0
	d.Register(funcHandler{TypeGroupMessage, func(*Context, InboundFrame, *WsConn) error {
		called++
		return nil
	}})
	d.Register(funcHandler{TypeFriendRequest, func(*Context, InboundFrame, *WsConn) error {
		panic("handler bug")
	}})

	require.NoError(t, d.Dispatch(&Context{}, GroupMessage{GroupID: "g", Message: "m"}, nil))
	assert.Equal(t, 1, called)

	err := d.Dispatch(&Context{}, FriendRequest{ReceiverID: "x"}, nil)
	assert.Equal(t, errs.ServerInternalError, errs.Code(err))

	err = d.Dispatch(&Context{}, Authenticate{}, nil)
	assert.True(t, errs.ErrUnknownType.Is(err))

	_, ok := d.GetHandler(TypePrivateMessage)
	assert.False(t, ok)
}
