package middleware

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"cooking-agent/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter 單一調用方的令牌桶
type RateLimiter struct {
	mu       sync.Mutex
	tokens   int
	capacity int
	rate     float64
	lastTime time.Time
}

// NewRateLimiter 創建新的限流器
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   requests,
		capacity: requests,
		rate:     float64(requests) / window.Seconds(),
		lastTime: time.Now(),
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastTime).Seconds()
	rl.lastTime = now

	// 添加新令牌
	newTokens := int(elapsed * rl.rate)
	if newTokens > 0 {
		rl.tokens = min(rl.capacity, rl.tokens+newTokens)
	}

	// 檢查是否有可用令牌
	if rl.tokens > 0 {
		rl.tokens--
		return true
	}

	return false
}

// limiterPool 按調用方鍵維護獨立令牌桶；
// 同一會話的輪次共享配額，不同會話互不擠兌
type limiterPool struct {
	mu       sync.Mutex
	entries  map[string]*poolEntry
	requests int
	window   time.Duration
}

type poolEntry struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

func newLimiterPool(requests int, window time.Duration) *limiterPool {
	return &limiterPool{
		entries:  make(map[string]*poolEntry),
		requests: requests,
		window:   window,
	}
}

// allow 取鍵對應的令牌桶並消耗一個令牌，新鍵先剔除閒置桶
func (p *limiterPool) allow(key string) bool {
	now := time.Now()

	p.mu.Lock()
	entry, ok := p.entries[key]
	if !ok {
		p.prune(now)
		entry = &poolEntry{limiter: NewRateLimiter(p.requests, p.window)}
		p.entries[key] = entry
	}
	entry.lastSeen = now
	p.mu.Unlock()

	return entry.limiter.Allow()
}

// prune 剔除兩個窗口沒出現過的鍵（調用方需持鎖）
func (p *limiterPool) prune(now time.Time) {
	for key, entry := range p.entries {
		if now.Sub(entry.lastSeen) > 2*p.window {
			delete(p.entries, key)
		}
	}
}

// limiterKey 限流鍵：優先會話標頭，未帶時退回客戶端 IP
func limiterKey(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader("X-Session-ID")); id != "" {
		return "session:" + id
	}
	return "ip:" + c.ClientIP()
}

// RateLimit 限流中間件，按會話（或 IP）各自計配額
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	pool := newLimiterPool(requests, window)

	return func(c *gin.Context) {
		key := limiterKey(c)
		if !pool.allow(key) {
			common.LogInfo("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			common.WriteError(c.Writer, common.ErrTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}

// min 返回兩個整數中的較小值
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
