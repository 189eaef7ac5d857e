package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLimiterPoolIsolatesKeys(t *testing.T) {
	pool := newLimiterPool(2, time.Minute)

	assert.True(t, pool.allow("session:a"))
	assert.True(t, pool.allow("session:a"))
	assert.False(t, pool.allow("session:a"))

	// 另一個會話有獨立配額
	assert.True(t, pool.allow("session:b"))
}

func TestLimiterPoolPrunesIdleKeys(t *testing.T) {
	pool := newLimiterPool(1, time.Minute)
	pool.allow("session:old")
	pool.entries["session:old"].lastSeen = time.Now().Add(-3 * time.Minute)

	// 新鍵進場觸發剔除
	pool.allow("session:new")

	pool.mu.Lock()
	_, ok := pool.entries["session:old"]
	pool.mu.Unlock()
	assert.False(t, ok)
}

func TestLimiterKeyPrefersSessionHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/api/v1/chat", nil)
	c.Request.Header.Set("X-Session-ID", "abc-123")
	assert.Equal(t, "session:abc-123", limiterKey(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/api/v1/chat", nil)
	c.Request.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "ip:10.0.0.7", limiterKey(c))
}
