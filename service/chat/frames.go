package chat

import (
	"bytes"
	"encoding/json"
	"io"

	"PPRelay/tools/decode"
	"PPRelay/tools/errs"
)

type FrameType string

// 入站
const (
	TypeAuthenticate   FrameType = "authenticate"
	TypePrivateMessage FrameType = "private_message"
	TypeGroupMessage   FrameType = "group_message"
	TypeFriendRequest  FrameType = "friend_request"
)

// 出站（private_message / group_message / friend_request 同名复用）
const (
	TypeAuthentication FrameType = "authentication"
	TypeAuthError      FrameType = "auth_error"
	TypeUserStatus     FrameType = "user_status"
	TypeError          FrameType = "error"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"

	authSuccess         = "success"
	authSuccessMessage  = "Connected successfully"
	friendRequestNotice = "New friend request"
)

// ===== 入站帧 =====

// InboundFrame is implemented only by the frame structs in this package.
type InboundFrame interface {
	Type() FrameType
	validate() error
}

type Authenticate struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type PrivateMessage struct {
	ReceiverID string `json:"receiver_id"`
	Message    string `json:"message"`
}

type GroupMessage struct {
	GroupID string `json:"group_id"`
	Message string `json:"message"`
}

type FriendRequest struct {
	ReceiverID string `json:"receiver_id"`
}

func (Authenticate) Type() FrameType   { return TypeAuthenticate }
func (PrivateMessage) Type() FrameType { return TypePrivateMessage }
func (GroupMessage) Type() FrameType   { return TypeGroupMessage }
func (FriendRequest) Type() FrameType  { return TypeFriendRequest }

// user_id / token 缺失由鉴权按模式判断，回 auth_error 而不是 error
func (Authenticate) validate() error { return nil }

func (f PrivateMessage) validate() error {
	if f.ReceiverID == "" || f.Message == "" {
		return errs.ErrInvalidPrivate.Wrap()
	}
	return nil
}

func (f GroupMessage) validate() error {
	if f.GroupID == "" || f.Message == "" {
		return errs.ErrInvalidGroup.Wrap()
	}
	return nil
}

func (f FriendRequest) validate() error {
	if f.ReceiverID == "" {
		return errs.ErrInvalidFriendReq.Wrap()
	}
	return nil
}

// ParseFrame decodes one client frame. Numeric ids are normalised to their
// decimal string and unknown fields are ignored.
func ParseFrame(raw []byte) (InboundFrame, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, errs.ErrInvalidFormat.WrapMsg(err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errs.ErrInvalidFormat.WrapMsg("trailing data after frame")
	}
	if m == nil {
		return nil, errs.ErrInvalidFormat.WrapMsg("frame is null")
	}
	typ, err := decode.ReadString(m, "type")
	if err != nil {
		return nil, errs.ErrInvalidFormat.WrapMsg(err.Error())
	}

	switch FrameType(typ) {
	case TypeAuthenticate:
		return decodeAs[Authenticate](m)
	case TypePrivateMessage:
		return decodeAs[PrivateMessage](m)
	case TypeGroupMessage:
		return decodeAs[GroupMessage](m)
	case TypeFriendRequest:
		return decodeAs[FriendRequest](m)
	default:
		return nil, errs.ErrUnknownType.WrapMsg("", "type", typ)
	}
}

func decodeAs[T InboundFrame](m map[string]any) (InboundFrame, error) {
	f, err := decode.Map[T](m)
	if err != nil {
		return nil, errs.ErrInvalidFormat.WrapMsg(err.Error())
	}
	if err := (*f).validate(); err != nil {
		return nil, err
	}
	return *f, nil
}

// ===== 出站帧 =====

// OutboundFrame is implemented only by the frame structs in this package.
type OutboundFrame interface {
	Kind() FrameType
	outbound()
}

// envelope 提供 "type" 字段，嵌入后 json 会展开到顶层
type envelope struct {
	Type FrameType `json:"type"`
}

func (e envelope) Kind() FrameType { return e.Type }
func (envelope) outbound()         {}

type AuthenticationFrame struct {
	envelope
	Status  string `json:"status"`
	Message string `json:"message"`
}

type AuthErrorFrame struct {
	envelope
	Message string `json:"message"`
}

type PrivateMessageFrame struct {
	envelope
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
}

type GroupMessageFrame struct {
	envelope
	GroupID  string `json:"group_id"`
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
}

type UserStatusFrame struct {
	envelope
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type FriendRequestFrame struct {
	envelope
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
}

type ErrorFrame struct {
	envelope
	Message string `json:"message"`
}

// ---- 构造若干服务端回执 ----

func NewAuthSuccess() AuthenticationFrame {
	return AuthenticationFrame{envelope{TypeAuthentication}, authSuccess, authSuccessMessage}
}

func NewAuthError(msg string) AuthErrorFrame {
	return AuthErrorFrame{envelope{TypeAuthError}, msg}
}

func NewPrivateMessage(senderID, msg string) PrivateMessageFrame {
	return PrivateMessageFrame{envelope{TypePrivateMessage}, senderID, msg}
}

func NewGroupMessage(groupID, senderID, msg string) GroupMessageFrame {
	return GroupMessageFrame{envelope{TypeGroupMessage}, groupID, senderID, msg}
}

func NewUserStatus(userID, status string) UserStatusFrame {
	return UserStatusFrame{envelope{TypeUserStatus}, userID, status}
}

func NewFriendRequest(senderID string) FriendRequestFrame {
	return FriendRequestFrame{envelope{TypeFriendRequest}, senderID, friendRequestNotice}
}

func NewError(msg string) ErrorFrame {
	return ErrorFrame{envelope{TypeError}, msg}
}

// ErrorFrameFor maps a handler error onto the frame sent back to the client.
// AuthFailed codes become auth_error; anything without a code is reported as internal.
func ErrorFrameFor(err error) OutboundFrame {
	ce, ok := errs.As(err)
	if !ok {
		return NewError(errs.ErrInternal.Msg)
	}
	if ce.Code == errs.AuthFailed {
		return NewAuthError(ce.Msg)
	}
	return NewError(ce.Msg)
}

// Encode 不转义 HTML，消息体原样下发
func Encode(f OutboundFrame) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(f); err != nil {
		return nil, errs.Wrap(err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
