package chat

import (
	"sync"
	"time"

	"PPRelay/tools/errs"
	"PPRelay/tools/safe"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const closeWait = time.Second

// Socket is the write side of a websocket connection; *websocket.Conn satisfies it.
type Socket interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type ConnOptions struct {
	SendQueueSize int           // 每连接发送队列长度
	WriteWait     time.Duration // 单次写 socket 的超时
	SendTimeout   time.Duration // 入队超时；队列满且超时视为投递失败
	PingInterval  time.Duration // <=0 不发 ping
	RateBurst     int           // <=0 不限流
	RateRefill    time.Duration // 每个令牌的补充间隔
}

func (o *ConnOptions) norm() {
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 256
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 2 * time.Second
	}
	if o.RateRefill <= 0 {
		o.RateRefill = 100 * time.Millisecond
	}
}

// WsConn is one live client socket. All writes go through a single writer
// goroutine fed by the send queue; Close may be called from any goroutine.
type WsConn struct {
	ID        int64
	SnowID    string
	Remote    string
	CreatedAt time.Time
	// Token 握手阶段携带的凭证（header/cookie/query），authenticate 帧未带 token 时使用
	Token string

	sock      Socket
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	startOnce sync.Once
	opts      ConnOptions
	limiter   *rate.Limiter
	log       *zap.Logger

	userID string // 由 ConnManager.mu 保护
}

func NewWsConn(id int64, snowID string, sock Socket, remote string, opts ConnOptions, log *zap.Logger) *WsConn {
	opts.norm()
	if log == nil {
		log = zap.NewNop()
	}
	c := &WsConn{
		ID:        id,
		SnowID:    snowID,
		Remote:    remote,
		CreatedAt: time.Now(),
		sock:      sock,
		send:      make(chan []byte, opts.SendQueueSize),
		done:      make(chan struct{}),
		opts:      opts,
		log:       log.With(zap.String("conn", snowID)),
	}
	if opts.RateBurst > 0 {
		c.limiter = rate.NewLimiter(rate.Every(opts.RateRefill), opts.RateBurst)
	}
	return c
}

// Start launches the writer goroutine. Calling it more than once is a no-op.
func (c *WsConn) Start() {
	c.startOnce.Do(func() {
		safe.Go(c.log, "ws-writer", c.writePump)
	})
}

func (c *WsConn) writePump() {
	var tick <-chan time.Time
	if c.opts.PingInterval > 0 {
		t := time.NewTicker(c.opts.PingInterval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Info("write failed, closing", zap.Error(err))
				c.Close()
				return
			}
		case <-tick:
			if err := c.sock.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteWait)); err != nil {
				c.log.Info("ping failed, closing", zap.Error(err))
				c.Close()
				return
			}
		}
	}
}

// Send queues payload for the writer. It waits at most SendTimeout when the
// queue is full, so one stalled client cannot hold up the caller.
func (c *WsConn) Send(payload []byte) error {
	select {
	case <-c.done:
		return errs.ErrConnClosed.WrapMsg("", "conn", c.SnowID)
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
	}

	t := time.NewTimer(c.opts.SendTimeout)
	defer t.Stop()
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errs.ErrConnClosed.WrapMsg("", "conn", c.SnowID)
	case <-t.C:
		return errs.ErrDeliveryFailed.WrapMsg("send queue full", "conn", c.SnowID)
	}
}

// Close stops the writer and closes the socket; queued frames are dropped.
// WriteControl and Close are safe to call concurrently with the writer.
func (c *WsConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.sock.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWait))
		_ = c.sock.Close()
	})
}

func (c *WsConn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done is closed once the connection is closed.
func (c *WsConn) Done() <-chan struct{} { return c.done }

// Allow reports whether another inbound frame fits the rate limit.
func (c *WsConn) Allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}
