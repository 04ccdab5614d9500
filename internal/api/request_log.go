package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/HPNChanel/contract-generator/internal/metrics"
)

// RequestLogMiddleware 请求日志中间件
// 记录每个请求的方法、路径、状态码和耗时,并上报指标
func RequestLogMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		// 上报请求指标,使用路由模板避免标签爆炸
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordAPIRequest(c.Request.Method, endpoint, statusCode, duration.Seconds())

		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"status":     statusCode,
			"duration":   duration.String(),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString(requestIDKey),
		})

		switch {
		case statusCode >= 500:
			entry.Error("request completed")
		case statusCode >= 400:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}
