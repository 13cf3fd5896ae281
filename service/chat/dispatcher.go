package chat

import (
	"sync"

	"PPRelay/tools/errs"
)

type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[FrameType]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[FrameType]Handler)}
}

func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	d.handlers[h.Type()] = h
	d.mu.Unlock()
}

func (d *Dispatcher) GetHandler(t FrameType) (Handler, bool) {
	d.mu.RLock()
	h, ok := d.handlers[t]
	d.mu.RUnlock()
	return h, ok
}

// Dispatch runs the handler for f. A panicking handler is converted into
// an internal error so one bad frame cannot take the read loop down.
func (d *Dispatcher) Dispatch(ctx *Context, f InboundFrame, conn *WsConn) (err error) {
	h, ok := d.GetHandler(f.Type())
	if !ok {
		return errs.ErrUnknownType.WrapMsg("no handler", "type", string(f.Type()))
	}
	defer func() {
		if r := recover(); r != nil {
			err = errs.ErrPanic(r)
		}
	}()
	return h.Handle(ctx, f, conn)
}
