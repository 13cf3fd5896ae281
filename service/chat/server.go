package chat

import (
	"context"
	"sync/atomic"
	"time"

	"PPRelay/tools/errs"
	"PPRelay/tools/ids"

	"go.uber.org/zap"
)

type Options struct {
	NodeID         int64
	Conn           ConnOptions
	MaxMessageSize int64         // 入站帧上限，超出即断开
	PongWait       time.Duration // 读超时；收到 pong 或任意帧时续期
	// Lookup 本地注册表查不到时，/online 再问一次外部在线表（可为 nil）
	Lookup PresenceLookup
}

// PresenceLookup reports whether a user is online on any relay node that
// mirrors its presence, and which node.
type PresenceLookup interface {
	Lookup(ctx context.Context, user string) (node string, online bool, err error)
}

// Server is the relay's composition root: it owns the registry, the handler
// table and presence, and turns socket events into calls on them.
type Server struct {
	opts     Options
	reg      *ConnManager
	disp     *Dispatcher
	presence *Presence
	ids      *ids.Generator
	log      *zap.Logger
	closing  atomic.Bool
}

func NewServer(opts Options, log *zap.Logger, sinks ...PresenceSink) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 64 << 10
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	reg := NewConnManager()
	return &Server{
		opts:     opts,
		reg:      reg,
		disp:     NewDispatcher(),
		presence: NewPresence(reg, opts.NodeID, log.Named("presence"), sinks...),
		ids:      ids.New(opts.NodeID),
		log:      log,
	}
}

func (s *Server) Registry() *ConnManager { return s.reg }
func (s *Server) Presence() *Presence    { return s.presence }
func (s *Server) Log() *zap.Logger       { return s.log }
func (s *Server) NodeID() int64          { return s.opts.NodeID }

// Handle registers h for its frame type, replacing any previous handler.
func (s *Server) Handle(h Handler) { s.disp.Register(h) }

// NewConn wraps sock with a fresh connection id. token is the credential
// presented at the handshake, if any.
func (s *Server) NewConn(sock Socket, remote, token string) *WsConn {
	id := s.ids.Next()
	c := NewWsConn(id, ids.Format(id), sock, remote, s.opts.Conn, s.log)
	c.Token = token
	return c
}

// OnOpen registers c (unauthenticated) and starts its writer.
func (s *Server) OnOpen(c *WsConn) {
	s.reg.Register(c)
	c.Start()
	s.log.Debug("conn opened", zap.String("conn", c.SnowID), zap.String("remote", c.Remote))
}

// OnMessage handles one raw client frame. Every failure is answered with an
// error frame to c only; c stays open.
func (s *Server) OnMessage(ctx context.Context, c *WsConn, raw []byte) {
	if !c.Allow() {
		s.log.Warn("frame dropped", zap.String("conn", c.SnowID), zap.Error(errs.ErrRateLimited))
		return
	}
	f, err := ParseFrame(raw)
	if err != nil {
		s.log.Debug("bad frame", zap.String("conn", c.SnowID), zap.Int("len", len(raw)), zap.Error(err))
		s.Reply(c, ErrorFrameFor(err))
		return
	}
	if err := s.disp.Dispatch(&Context{S: s, Ctx: ctx}, f, c); err != nil {
		if errs.Code(err) == errs.ServerInternalError {
			s.log.Error("handler failed", zap.String("conn", c.SnowID), zap.String("type", string(f.Type())), zap.Error(err))
		} else {
			s.log.Debug("frame rejected", zap.String("conn", c.SnowID), zap.String("type", string(f.Type())), zap.Error(err))
		}
		s.Reply(c, ErrorFrameFor(err))
	}
}

// OnClose unregisters c and, when c was its user's current connection,
// announces the user offline. Safe to call more than once.
func (s *Server) OnClose(c *WsConn) {
	// c 的身份只会在它自己的读协程里改变，这里读到的就是 Unregister 将返回的身份
	held, _ := s.reg.Identity(c)
	unlock := s.presence.Lock(held)
	defer unlock()

	user, current := s.reg.Unregister(c)
	c.Close()
	if user == "" {
		return
	}
	s.log.Debug("conn closed", zap.String("conn", c.SnowID), zap.String("user", user), zap.Bool("current", current))
	if current && !s.closing.Load() {
		s.presence.Offline(c, user)
	}
}

// Login binds c to user, confirms it to c and announces the user online.
// When c drops a previous identity, sinks learn that identity went offline;
// other sockets are not told.
func (s *Server) Login(c *WsConn, user string) (Binding, error) {
	prev, _ := s.reg.Identity(c)
	unlock := s.presence.Lock(prev, user)
	defer unlock()

	b, err := s.reg.Bind(c, user)
	if err != nil {
		return b, err
	}
	s.Reply(c, NewAuthSuccess())
	if b.PrevUnmapped {
		s.presence.emit(b.PrevUser, StatusOffline, c)
	}
	s.presence.Online(c, user)
	return b, nil
}

// OnError logs a transport error and force-closes c with full cleanup.
func (s *Server) OnError(c *WsConn, err error) {
	s.log.Info("conn error", zap.String("conn", c.SnowID), zap.Error(err))
	s.OnClose(c)
}

// Reply sends f to c only. Failures are logged.
func (s *Server) Reply(c *WsConn, f OutboundFrame) {
	if err := s.Deliver(c, f); err != nil {
		s.log.Info("reply failed", zap.String("conn", c.SnowID), zap.String("type", string(f.Kind())), zap.Error(err))
	}
}

// Deliver encodes f and queues it on c.
func (s *Server) Deliver(c *WsConn, f OutboundFrame) error {
	payload, err := Encode(f)
	if err != nil {
		return err
	}
	return c.Send(payload)
}

// Broadcast queues f on every registered connection except except and
// returns how many accepted it.
func (s *Server) Broadcast(f OutboundFrame, except *WsConn) int {
	return broadcast(s.reg, f, except, s.log)
}

// Shutdown closes every connection without offline broadcasts to sockets.
// Sinks still learn that the bound users went offline before they drain.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)
	for c := range s.reg.All() {
		user, ok := s.reg.Identity(c)
		if !ok {
			continue
		}
		unlock := s.presence.Lock(user)
		if cur, ok := s.reg.LookupByUser(user); ok && cur == c {
			s.presence.emit(user, StatusOffline, c)
		}
		unlock()
	}
	n := s.reg.CloseAll()
	s.log.Info("relay shutting down", zap.Int("conns", n))
	return s.presence.Close(ctx)
}
