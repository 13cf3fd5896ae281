package chat

import "context"

// Handler 处理一种入站帧
type Handler interface {
	Type() FrameType
	Handle(*Context, InboundFrame, *WsConn) error
}

// Context 是单帧处理的上下文；Ctx 随连接关闭取消
type Context struct {
	S   *Server
	Ctx context.Context
}
