package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/HPNChanel/contract-generator/internal/database"
	"github.com/HPNChanel/contract-generator/internal/email"
	"github.com/HPNChanel/contract-generator/internal/metrics"
	"github.com/HPNChanel/contract-generator/internal/pdf"
)

// HealthController 健康检查控制器
type HealthController struct {
	db      *gorm.DB
	encoder pdf.Encoder
	sender  *email.Sender
	started time.Time
}

// NewHealthController 创建健康检查控制器
func NewHealthController(db *gorm.DB, encoder pdf.Encoder, sender *email.Sender) *HealthController {
	return &HealthController{
		db:      db,
		encoder: encoder,
		sender:  sender,
		started: time.Now(),
	}
}

// Health 健康检查
// @Summary 健康检查
// @Description 返回服务及各依赖组件的健康状态
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health [get]
func (ctrl *HealthController) Health(c *gin.Context) {
	dbHealthy := database.CheckHealth(ctrl.db)
	if dbHealthy {
		// 顺带刷新连接池指标
		_ = metrics.UpdateDatabaseConnections(ctrl.db)
	}

	status := gin.H{
		"status":         "healthy",
		"database":       dbHealthy,
		"pdf_encoder":    ctrl.encoder.Name(),
		"email_config":   ctrl.sender.ConfigStatus(),
		"uptime_seconds": int(time.Since(ctrl.started).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	if !dbHealthy {
		status["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, Response{
			Code:    1,
			Message: "unhealthy",
			Data:    status,
		})
		return
	}

	Success(c, status)
}
