package middleware

import (
	midsec "PPRelay/middleware/security"

	"github.com/gin-gonic/gin"
)

// 配置选项
type RouteOpt struct {
	Origins *OriginPolicy // nil 不检查
	// IsAuth 提取 token 写入 context；Required 时缺 token 直接 401
	IsAuth       bool
	AuthRequired bool
}

func (o RouteOpt) chain() *Manager {
	m := NewManager()
	if o.Origins != nil {
		m.Add(Origin(o.Origins))
	}
	if o.IsAuth || o.AuthRequired {
		opts := midsec.DefaultOptions()
		opts.Required = o.AuthRequired
		m.Add(midsec.Middleware(opts))
	}
	return m
}

// 封装 GET
func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	m := opt.chain()
	if m.Len() == 0 {
		r.GET(path, handler)
		return
	}
	r.GET(path, m.Use(), handler)
}

// 封装 POST
func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	m := opt.chain()
	if m.Len() == 0 {
		r.POST(path, handler)
		return
	}
	r.POST(path, m.Use(), handler)
}
