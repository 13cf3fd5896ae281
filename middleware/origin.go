package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"PPRelay/global"

	"github.com/gin-gonic/gin"
)

// OriginPolicy is an allow-list of browser origins. "*" allows every origin.
// Requests without an Origin header (non-browser clients) are always allowed.
type OriginPolicy struct {
	any     bool
	allowed map[string]struct{}
}

func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			p.any = true
			continue
		}
		if n := normalizeOrigin(o); n != "" {
			p.allowed[n] = struct{}{}
		}
	}
	return p
}

func (p *OriginPolicy) Allowed(origin string) bool {
	if p == nil || p.any || origin == "" {
		return true
	}
	_, ok := p.allowed[normalizeOrigin(origin)]
	return ok
}

// CheckRequest matches websocket.Upgrader.CheckOrigin.
func (p *OriginPolicy) CheckRequest(r *http.Request) bool {
	return p.Allowed(r.Header.Get("Origin"))
}

// Origin aborts with 403 when the request origin is not allowed.
func Origin(p *OriginPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !p.CheckRequest(c.Request) {
			c.AbortWithStatusJSON(http.StatusForbidden, global.Fail(http.StatusForbidden, "origin not allowed"))
		}
	}
}

// scheme://host[:port]，小写，去掉默认端口和尾部斜杠
func normalizeOrigin(o string) string {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(o), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host
}
