package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrPanic converts a recovered panic value into an internal CodeError.
func ErrPanic(r any) error {
	return ErrPanicMsg(r, ServerInternalError, "Internal server error")
}

func ErrPanicMsg(r any, code int, msg string) error {
	if r == nil {
		return nil
	}
	err := CodeError{
		Code:   code,
		Msg:    msg,
		Detail: fmt.Sprint(r),
	}
	return errors.WithStack(err)
}
