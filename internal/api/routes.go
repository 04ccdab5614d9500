package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/HPNChanel/contract-generator/internal/config"
	"github.com/HPNChanel/contract-generator/internal/metrics"
)

// Controllers 路由需要的全部控制器
type Controllers struct {
	Contract *ContractController
	Email    *EmailController
	Health   *HealthController
}

// SetupRouter 创建并配置路由
func SetupRouter(cfg *config.Config, ctrls Controllers, logger *logrus.Logger) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 中间件顺序: 恢复 -> 请求 ID -> 日志 -> 安全头 -> CORS -> 限流 -> 错误处理
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware(logger))
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.Use(RateLimitMiddleware(100, 200))
	router.Use(ErrorHandlerMiddleware())

	// 根路径和运维端点
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "contract-generator",
			"message": "Quick Contract Generator API",
			"docs":    "/api/v1/contracts/sample-data",
		})
	})
	router.GET("/health", ctrls.Health.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		contracts := v1.Group("/contracts")
		{
			contracts.POST("", ctrls.Contract.Create)
			contracts.GET("", ctrls.Contract.List)
			contracts.GET("/sample-data", ctrls.Contract.SampleData)
			contracts.GET("/download/:filename", ctrls.Contract.Download)
			contracts.GET("/:id", ctrls.Contract.Get)
			contracts.PUT("/:id", ctrls.Contract.Update)
			contracts.DELETE("/:id", ctrls.Contract.Delete)
			contracts.GET("/:id/render", ctrls.Contract.Render)
			contracts.GET("/:id/pdf", ctrls.Contract.GeneratePDF)
			contracts.POST("/:id/pdf", ctrls.Contract.GeneratePDF)
			contracts.POST("/:id/email", ctrls.Contract.SendEmail)
		}

		pdfs := v1.Group("/pdfs")
		{
			pdfs.GET("", ctrls.Contract.ListPDFs)
			pdfs.POST("/cleanup", ctrls.Contract.CleanupPDFs)
		}

		emailGroup := v1.Group("/email")
		{
			emailGroup.GET("/config", ctrls.Email.Config)
			emailGroup.POST("/test", ctrls.Email.Test)
		}
	}

	// 未匹配路由统一返回 JSON 404
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", c.Request.URL.Path)
	})

	return router
}
