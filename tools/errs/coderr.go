package errs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Relay error codes. The message of each CodeError is what the client sees
// in the reply frame, so keep it short and stable.
const (
	InvalidFrame        = 1001
	Unauthenticated     = 1002
	RecipientOffline    = 1003
	DeliveryFailure     = 1004
	ConnectionError     = 1005
	AuthFailed          = 1006
	RateLimited         = 1007
	ServerInternalError = 1500
)

var (
	ErrInvalidFormat    = NewCodeError(InvalidFrame, "Invalid message format")
	ErrUnknownType      = NewCodeError(InvalidFrame, "Unknown message type")
	ErrInvalidPrivate   = NewCodeError(InvalidFrame, "Invalid private message data")
	ErrInvalidGroup     = NewCodeError(InvalidFrame, "Invalid group message data")
	ErrInvalidFriendReq = NewCodeError(InvalidFrame, "Invalid friend request data")
	ErrUnauthenticated  = NewCodeError(Unauthenticated, "Authentication required")
	ErrReceiverOffline  = NewCodeError(RecipientOffline, "Receiver not online")
	ErrDeliveryFailed   = NewCodeError(DeliveryFailure, "Delivery failed")
	ErrConnClosed       = NewCodeError(ConnectionError, "Connection closed")
	ErrAuthFailed       = NewCodeError(AuthFailed, "Authentication failed")
	ErrRateLimited      = NewCodeError(RateLimited, "Rate limit exceeded")
	ErrInternal         = NewCodeError(ServerInternalError, "Internal server error")
	ErrUserIDRequired   = NewCodeError(AuthFailed, "User ID required for authentication")
	ErrTokenRequired    = NewCodeError(AuthFailed, "Authentication token required")
	ErrTokenInvalid     = NewCodeError(AuthFailed, "Invalid authentication token")
	ErrTokenExpired     = NewCodeError(AuthFailed, "Token has expired")
	ErrUserNotFound     = NewCodeError(AuthFailed, "User not found")
	ErrNotRegistered    = NewCodeError(ConnectionError, "Connection not registered")
)

func NewCodeError(code int, msg string) CodeError {
	return CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e CodeError) WithDetail(detail string) CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: d,
	}
}

// Wrap attaches a stack trace.
func (e CodeError) Wrap() error {
	return errors.WithStack(e)
}

// WrapMsg 附加 detail（msg + kv）并带上调用栈
func (e CodeError) WrapMsg(msg string, kv ...any) error {
	ret := e
	if msg != "" || len(kv) > 0 {
		ret = e.WithDetail(toString(msg, kv))
	}
	return errors.WithStack(ret)
}

// Is reports whether err carries a CodeError with the same code.
func (e CodeError) Is(err error) bool {
	ce, ok := As(err)
	if !ok {
		return false
	}
	return ce.Code == e.Code
}

const initialCapacity = 3

func (e CodeError) Error() string {
	v := make([]string, 0, initialCapacity)
	v = append(v, strconv.Itoa(e.Code), e.Msg)

	if e.Detail != "" {
		v = append(v, e.Detail)
	}

	return strings.Join(v, " ")
}

// As 沿着 Unwrap / Cause 链找到 CodeError
func As(err error) (CodeError, bool) {
	var ce CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	var pce *CodeError
	if errors.As(err, &pce) && pce != nil {
		return *pce, true
	}
	return CodeError{}, false
}

// Code returns the CodeError code carried by err, or ServerInternalError.
func Code(err error) int {
	if ce, ok := As(err); ok {
		return ce.Code
	}
	return ServerInternalError
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, toString(msg, kv))
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(toStr(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(toStr(kv[i+1]))
		} else {
			sb.WriteString("MISSING")
		}
	}
	return sb.String()
}

func toStr(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
