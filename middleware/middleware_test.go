package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	midsec "PPRelay/middleware/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() { gin.SetMode(gin.TestMode) }

func TestOriginPolicy(t *testing.T) {
	p := NewOriginPolicy([]string{"https://Chat.Example:443/", "http://localhost:3000"})

	assert.True(t, p.Allowed("https://chat.example"))
	assert.True(t, p.Allowed("http://localhost:3000"))
	assert.True(t, p.Allowed(""), "non-browser clients carry no origin")
	assert.False(t, p.Allowed("https://evil.example"))
	assert.False(t, p.Allowed("http://localhost:3001"))

	assert.True(t, NewOriginPolicy([]string{"*"}).Allowed("https://anything.example"))
}

func TestGETWithOriginAndToken(t *testing.T) {
	r := gin.New()
	GET(r, "/ws", func(c *gin.Context) {
		c.String(http.StatusOK, midsec.Token(c))
	}, RouteOpt{Origins: NewOriginPolicy([]string{"https://chat.example"}), IsAuth: true})

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
		body   string
	}{
		{"bearer", func(r *http.Request) {
			r.Header.Set("Origin", "https://chat.example")
			r.Header.Set("Authorization", "Bearer abc")
		}, http.StatusOK, "abc"},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "auth_token", Value: "from-cookie"})
		}, http.StatusOK, "from-cookie"},
		{"query", func(r *http.Request) {
			r.URL.RawQuery = "token=q"
		}, http.StatusOK, "q"},
		{"none", func(r *http.Request) {}, http.StatusOK, ""},
		{"bad origin", func(r *http.Request) {
			r.Header.Set("Origin", "https://evil.example")
		}, http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestAuthRequired(t *testing.T) {
	r := gin.New()
	POST(r, "/secure", func(c *gin.Context) { c.Status(http.StatusNoContent) }, RouteOpt{AuthRequired: true})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/secure", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/secure", nil)
	req.Header.Set("Authorization", "Bearer t")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestManagerStopsOnAbort(t *testing.T) {
	var ran []string
	m := NewManager(
		func(c *gin.Context) { ran = append(ran, "a") },
		func(c *gin.Context) { ran = append(ran, "b"); c.AbortWithStatus(http.StatusTeapot) },
		func(c *gin.Context) { ran = append(ran, "c") },
	)
	r := gin.New()
	r.GET("/", m.Use(), func(c *gin.Context) { ran = append(ran, "handler") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, []string{"a", "b"}, ran)
}
