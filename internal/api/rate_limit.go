package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware 限流中间件
// 进程级令牌桶,覆盖全部路由。PDF 编码是请求内最重的同步环节,
// 桶容量限制的是同时进入编码流水线的请求量,不区分客户端
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			Error(c, http.StatusTooManyRequests, "too many requests", "")
			c.Abort()
			return
		}
		c.Next()
	}
}
