package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRateLimitBurstThenReject(t *testing.T) {
	r := gin.New()
	r.GET("/ping", RateLimit(rate.Limit(0.001), 2), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// burst of 2 allowed, third rejected
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))

	// a different client has its own bucket
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))
}
