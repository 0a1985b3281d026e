package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "tasktracker/internal/transport/http/response"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		resp.Abort(c, resp.Error(resp.CodeTooManyRequests, "too many requests"))
	}
}

// ipIdleTTL 超过这么久没请求的 IP 限速器会被清掉
const ipIdleTTL = 10 * time.Minute

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimitPerIP 每 IP 限速（登录/注册这类公开接口）
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	return rateLimitPerIP(rps, burst, ipIdleTTL, time.Now)
}

func rateLimitPerIP(rps rate.Limit, burst int, idle time.Duration, now func() time.Time) gin.HandlerFunc {
	var mu sync.Mutex
	buckets := make(map[string]*ipBucket)
	lastSweep := now()
	return func(c *gin.Context) {
		ip := c.ClientIP()
		t := now()
		mu.Lock()
		// 每个 idle 周期最多扫一次
		if t.Sub(lastSweep) >= idle {
			for k, b := range buckets {
				if t.Sub(b.seen) >= idle {
					delete(buckets, k)
				}
			}
			lastSweep = t
		}
		b, ok := buckets[ip]
		if !ok {
			b = &ipBucket{lim: rate.NewLimiter(rps, burst)}
			buckets[ip] = b
		}
		b.seen = t
		allowed := b.lim.AllowN(t, 1)
		mu.Unlock()
		if allowed {
			c.Next()
			return
		}
		resp.Abort(c, resp.Error(resp.CodeTooManyRequests, "too many requests"))
	}
}
