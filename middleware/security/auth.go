package security

import (
	"net/http"
	"strings"

	"PPRelay/global"
	"PPRelay/tools/errs"

	"github.com/gin-gonic/gin"
)

// context key
const PPCtxAuthKey = "authorization" // string

type Options struct {
	HeaderToken               string // 默认 "authorization"
	EnableAuthorizationBearer bool   // 默认 true
	CookieName                string // 默认 "auth_token"，和 HTTP 层登录写的 cookie 一致
	QueryParam                string // 默认 "token"；浏览器 WebSocket 无法自定义 header
	Required                  bool   // 缺 token 时 401
}

func DefaultOptions() *Options {
	return &Options{
		HeaderToken:               PPCtxAuthKey,
		EnableAuthorizationBearer: true,
		CookieName:                "auth_token",
		QueryParam:                "token",
	}
}

// Extract 依次尝试 header → Bearer → cookie → query
func Extract(c *gin.Context, opts *Options) string {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.HeaderToken != "" {
		if token := strings.TrimSpace(c.GetHeader(opts.HeaderToken)); token != "" && !isBearer(token) {
			return token
		}
	}
	// 兼容 Authorization: Bearer xxx
	if opts.EnableAuthorizationBearer {
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); isBearer(authz) {
			if token := strings.TrimSpace(authz[len("bearer "):]); token != "" {
				return token
			}
		}
	}
	if opts.CookieName != "" {
		if v, err := c.Cookie(opts.CookieName); err == nil && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if opts.QueryParam != "" {
		if v := strings.TrimSpace(c.Query(opts.QueryParam)); v != "" {
			return v
		}
	}
	return ""
}

func isBearer(s string) bool {
	return len(s) > len("bearer ") && strings.EqualFold(s[:len("bearer ")], "bearer ")
}

func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions()
	}
	return func(c *gin.Context) {
		token := Extract(c, opts)
		if token != "" {
			c.Set(PPCtxAuthKey, token)
			return
		}
		if opts.Required {
			c.AbortWithStatusJSON(http.StatusUnauthorized, global.Fail(errs.AuthFailed, errs.ErrTokenRequired.Msg))
		}
	}
}

// Token 读取 Middleware 写入的 token，没有则为空
func Token(c *gin.Context) string {
	return c.GetString(PPCtxAuthKey)
}
