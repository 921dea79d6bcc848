package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wb-go/wbf/ginext"
)

func newEngine(handlers ...func(*ginext.Context)) *ginext.Engine {
	app := ginext.New("test")
	app.Use(LoggingMiddleware())
	chain := append(handlers, func(c *ginext.Context) {
		c.String(http.StatusOK, "ok")
	})
	for _, h := range chain[:len(chain)-1] {
		app.Use(h)
	}
	app.GET("/", chain[len(chain)-1])
	return app
}

func serve(app *ginext.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(0.0001, 2)
	defer rl.Stop()
	app := newEngine(rl.Middleware())

	from := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		return serve(app, req).Code
	}

	assert.Equal(t, http.StatusOK, from("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, from("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2:1000"))
}

func TestAdminAuth(t *testing.T) {
	validate := func(token string) error {
		if token == "good" {
			return nil
		}
		return errors.New("bad token")
	}
	app := newEngine(AdminAuth(validate))

	cases := map[string]int{
		"":            http.StatusUnauthorized,
		"Basic good":  http.StatusUnauthorized,
		"Bearer ":     http.StatusUnauthorized,
		"Bearer nope": http.StatusUnauthorized,
		"Bearer good": http.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := serve(app, req)
		assert.Equal(t, want, w.Code, header)
		if want == http.StatusUnauthorized {
			assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
		}
	}
}
