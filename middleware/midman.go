package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
)

// Manager 持有一组前置检查，按注册顺序执行，任一 Abort 即停止。
// 注册的 handler 不应调用 c.Next()。
type Manager struct {
	mu   sync.RWMutex
	mids []gin.HandlerFunc
}

func NewManager(hs ...gin.HandlerFunc) *Manager {
	m := &Manager{}
	for _, h := range hs {
		m.Add(h)
	}
	return m
}

// Add 注册一个前置检查
func (m *Manager) Add(h gin.HandlerFunc) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = append(m.mids, h)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.mids)
}

// Use 返回一个 gin.HandlerFunc，作为总控挂载到路由上
func (m *Manager) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		handlers := append([]gin.HandlerFunc{}, m.mids...) // 拷贝一份快照
		m.mu.RUnlock()

		for _, h := range handlers {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
