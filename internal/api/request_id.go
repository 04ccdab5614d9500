package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 请求 ID 头名称
const RequestIDHeader = "X-Request-ID"

// requestIDKey 请求 ID 在 gin 上下文中的键,请求日志按此取值
const requestIDKey = "request_id"

// RequestIDMiddleware 请求 ID 中间件
// 客户端携带的 X-Request-ID 原样透传,便于跨系统追踪一次合同操作;
// 未携带时生成新的 UUID 并回写到响应头
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}
