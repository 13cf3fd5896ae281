package chat

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"PPRelay/global"
	"PPRelay/middleware"
	midsec "PPRelay/middleware/security"
	"PPRelay/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Routes mounts the websocket endpoint and the ops endpoints on r.
func (s *Server) Routes(r gin.IRoutes, origins *middleware.OriginPolicy) {
	up := &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     origins.CheckRequest,
	}
	middleware.GET(r, "/ws", func(c *gin.Context) { s.HandleWS(c, up) },
		middleware.RouteOpt{Origins: origins, IsAuth: true})
	r.GET("/healthz", s.healthz)
	r.GET("/online/:user_id", s.online)
}

// HandleWS upgrades the request and runs the read loop until the peer goes
// away. The writer runs in its own goroutine, see WsConn.Start.
func (s *Server) HandleWS(c *gin.Context, up *websocket.Upgrader) {
	if s.closing.Load() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, global.Fail(http.StatusServiceUnavailable, "shutting down"))
		return
	}
	ws, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败，Upgrade 已写回 HTTP 错误
		s.log.Info("upgrade websocket failed", zap.String("remote", c.ClientIP()), zap.Error(err))
		return
	}

	conn := s.NewConn(ws, c.ClientIP(), midsec.Token(c))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws.SetReadLimit(s.opts.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	s.OnOpen(conn)
	defer s.OnClose(conn)

	// ---- 读循环：只读，不写；出错即退出 ----
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			s.readFailed(conn, rerr)
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		s.OnMessage(ctx, conn, data)
	}
}

func (s *Server) readFailed(conn *WsConn, err error) {
	var ne net.Error
	switch {
	case conn.Closed():
		// 本端已关闭（写失败/关停），OnClose 收尾
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		s.log.Debug("peer closed", zap.String("conn", conn.SnowID), zap.Error(err))
	case errors.Is(err, websocket.ErrReadLimit):
		s.OnError(conn, errs.ErrConnClosed.WrapMsg("frame too large", "limit", s.opts.MaxMessageSize))
	case errors.As(err, &ne) && ne.Timeout():
		s.OnError(conn, errs.ErrConnClosed.WrapMsg("read timeout"))
	default:
		s.OnError(conn, errs.ErrConnClosed.WrapMsg(err.Error()))
	}
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	if s.closing.Load() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, global.Success(gin.H{
		"node_id":      s.opts.NodeID,
		"connections":  s.reg.Count(),
		"online_users": s.reg.OnlineUsers(),
	}))
}

const lookupTimeout = 2 * time.Second

// online 先查本进程注册表，没有再查外部在线表
func (s *Server) online(c *gin.Context) {
	user := c.Param("user_id")
	data := gin.H{"user_id": user, "online": false}
	if conn, ok := s.reg.LookupByUser(user); ok {
		data["online"] = true
		data["node"] = strconv.FormatInt(s.opts.NodeID, 10)
		data["conn_id"] = conn.SnowID
		data["since"] = conn.CreatedAt.UTC().Format(time.RFC3339)
		c.JSON(http.StatusOK, global.Success(data))
		return
	}
	if s.opts.Lookup != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
		defer cancel()
		node, ok, err := s.opts.Lookup.Lookup(ctx, user)
		if err != nil {
			s.log.Warn("presence lookup failed", zap.String("user", user), zap.Error(err))
		} else if ok {
			data["online"] = true
			data["node"] = node
		}
	}
	c.JSON(http.StatusOK, global.Success(data))
}
