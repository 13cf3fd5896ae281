package safe

import (
	"PPRelay/tools/errs"

	"go.uber.org/zap"
)

// Go starts f in a goroutine that recovers from panic,
// so a bug in one worker doesn't take the relay down.
func Go(log *zap.Logger, name string, f func()) {
	go Run(log, name, f)
}

// Run calls f on the current goroutine and recovers from panic.
// It reports whether f returned normally.
func Run(log *zap.Logger, name string, f func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if log != nil {
				log.Error("panic recovered", zap.String("task", name), zap.Error(errs.ErrPanic(r)), zap.Stack("stack"))
			}
		}
	}()
	f()
	return true
}
