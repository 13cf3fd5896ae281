package chat

import (
	"testing"

	"PPRelay/tools/errs"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want InboundFrame
	}{
		{"authenticate", `{"type":"authenticate","user_id":"u1"}`, Authenticate{UserID: "u1"}},
		{"authenticate numeric", `{"type":"authenticate","user_id":12345678901234}`, Authenticate{UserID: "12345678901234"}},
		{"authenticate token", `{"type":"authenticate","token":"t"}`, Authenticate{Token: "t"}},
		{"private", `{"type":"private_message","receiver_id":2,"message":"hi","extra":true}`, PrivateMessage{ReceiverID: "2", Message: "hi"}},
		{"group", `{"type":"group_message","group_id":"g","message":"m"}`, GroupMessage{GroupID: "g", Message: "m"}},
		{"friend", `{"type":"friend_request","receiver_id":"b"}`, FriendRequest{ReceiverID: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrame([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFrame_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want errs.CodeError
	}{
		{"not json", `hello`, errs.ErrInvalidFormat},
		{"array", `[1,2]`, errs.ErrInvalidFormat},
		{"null", `null`, errs.ErrInvalidFormat},
		{"trailing", `{"type":"authenticate"} {}`, errs.ErrInvalidFormat},
		{"no type", `{"user_id":"u"}`, errs.ErrInvalidFormat},
		{"numeric type", `{"type":5}`, errs.ErrInvalidFormat},
		{"unknown", `{"type":"message","content":"x"}`, errs.ErrUnknownType},
		{"private empty", `{"type":"private_message","receiver_id":"","message":"x"}`, errs.ErrInvalidPrivate},
		{"private no message", `{"type":"private_message","receiver_id":"b"}`, errs.ErrInvalidPrivate},
		{"group no id", `{"type":"group_message","message":"x"}`, errs.ErrInvalidGroup},
		{"friend no receiver", `{"type":"friend_request"}`, errs.ErrInvalidFriendReq},
		{"object receiver", `{"type":"friend_request","receiver_id":{"id":1}}`, errs.ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame([]byte(tt.raw))
			require.Error(t, err)
			ce, ok := errs.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.want.Code, ce.Code)
			assert.Equal(t, tt.want.Msg, ce.Msg)
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		f    OutboundFrame
		want string
	}{
		{NewAuthSuccess(), `{"type":"authentication","status":"success","message":"Connected successfully"}`},
		{NewAuthError("nope"), `{"type":"auth_error","message":"nope"}`},
		{NewPrivateMessage("a", "<hi> & bye"), `{"type":"private_message","sender_id":"a","message":"<hi> & bye"}`},
		{NewGroupMessage("g", "a", "m"), `{"type":"group_message","group_id":"g","sender_id":"a","message":"m"}`},
		{NewUserStatus("a", StatusOffline), `{"type":"user_status","user_id":"a","status":"offline"}`},
		{NewFriendRequest("a"), `{"type":"friend_request","sender_id":"a","message":"New friend request"}`},
		{NewError("bad"), `{"type":"error","message":"bad"}`},
	}
	for _, tt := range tests {
		got, err := Encode(tt.f)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}
}

func TestErrorFrameFor(t *testing.T) {
	assert.Equal(t, NewAuthError("Token has expired"), ErrorFrameFor(errs.ErrTokenExpired.WrapMsg("exp")))
	assert.Equal(t, NewError("Receiver not online"), ErrorFrameFor(errs.ErrReceiverOffline.Wrap()))
	assert.Equal(t, NewError("Internal server error"), ErrorFrameFor(errors.New("boom")))
}
