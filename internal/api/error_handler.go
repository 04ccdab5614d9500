package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError 带状态码的接口错误
// 控制器通常直接写响应,APIError 用于中间件链上被 c.Error 收集的错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
// 兜底处理链上收集但没有写过响应的错误,统一输出 JSON 错误格式
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		var apiErr *APIError
		if errors.As(c.Errors.Last(), &apiErr) {
			Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			return
		}
		Error(c, http.StatusInternalServerError, "internal server error", c.Errors.Last().Error())
	}
}
