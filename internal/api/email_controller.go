package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/HPNChanel/contract-generator/internal/email"
)

// EmailController 邮件配置控制器
type EmailController struct {
	sender *email.Sender
	logger *logrus.Logger
}

// NewEmailController 创建邮件配置控制器
func NewEmailController(sender *email.Sender, logger *logrus.Logger) *EmailController {
	return &EmailController{
		sender: sender,
		logger: logger,
	}
}

// Config 查看邮件配置状态
// @Summary 邮件配置状态
// @Description 返回 SMTP 配置的就绪状态,不包含凭据明文
// @Tags email
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/email/config [get]
func (ctrl *EmailController) Config(c *gin.Context) {
	Success(c, ctrl.sender.ConfigStatus())
}

// Test 测试 SMTP 连接
// @Summary 测试 SMTP 连接
// @Description 拨号并认证一次 SMTP 服务器后断开,验证配置可用性
// @Tags email
// @Produce json
// @Success 200 {object} Response
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/email/test [post]
func (ctrl *EmailController) Test(c *gin.Context) {
	if err := ctrl.sender.TestConnection(); err != nil {
		var configErr *email.ConfigError
		var authErr *email.AuthError

		switch {
		case errors.As(err, &configErr):
			Error(c, http.StatusBadRequest, "smtp configuration incomplete", configErr.Error())
		case errors.As(err, &authErr):
			Error(c, http.StatusBadGateway, "smtp authentication failed", authErr.Error())
		default:
			Error(c, http.StatusBadGateway, "smtp connection failed", err.Error())
		}
		return
	}

	Success(c, gin.H{"message": "SMTP connection successful"})
}
