package container

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/HPNChanel/contract-generator/internal/api"
	"github.com/HPNChanel/contract-generator/internal/config"
	"github.com/HPNChanel/contract-generator/internal/database"
	"github.com/HPNChanel/contract-generator/internal/email"
	"github.com/HPNChanel/contract-generator/internal/pdf"
	"github.com/HPNChanel/contract-generator/internal/render"
	"github.com/HPNChanel/contract-generator/internal/repository"
	"github.com/HPNChanel/contract-generator/internal/service"
)

// Container 依赖注入容器
// 持有所有组件实例,统一创建和释放
type Container struct {
	Config   *config.Config
	Logger   *logrus.Logger
	DB       *gorm.DB
	Repo     repository.ContractRepository
	Renderer *render.Renderer
	Encoder  pdf.Encoder
	Store    *pdf.FileStore
	Sender   *email.Sender
	Service  service.ContractService

	ContractController *api.ContractController
	EmailController    *api.EmailController
	HealthController   *api.HealthController
}

// New 创建并装配容器
// 装配顺序: 日志 -> 数据库 -> 渲染器 -> PDF 编码链 -> 文件存储 -> 邮件 -> 服务 -> 控制器
func New(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	// 1. 日志
	c.Logger = api.NewLogger(cfg.Log)

	// 2. 数据库连接与迁移
	db, err := database.ConnectWithRetry(cfg.Database, 5, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	c.DB = db
	c.Repo = repository.NewContractRepository(db)

	// 3. 模板渲染器
	renderer, err := render.NewRenderer(cfg.Template.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize renderer: %w", err)
	}
	c.Renderer = renderer

	// 4. PDF 编码链: wkhtmltopdf 优先,不可用时仅用内置回退编码器
	timeout := time.Duration(cfg.PDF.TimeoutSeconds) * time.Second
	var primary pdf.Encoder
	wk, err := pdf.NewWkhtmltopdfEncoder(cfg.PDF.WkhtmltopdfBin, timeout)
	switch {
	case err == nil:
		primary = wk
	case errors.Is(err, pdf.ErrUnavailable):
		c.Logger.Warn("wkhtmltopdf binary not found, using built-in fallback encoder only")
	default:
		return nil, fmt.Errorf("failed to initialize wkhtmltopdf encoder: %w", err)
	}
	c.Encoder = pdf.NewEncoderChain(primary, pdf.NewFallbackEncoder(), c.Logger)

	// 5. PDF 文件存储
	c.Store = pdf.NewFileStore(cfg.PDF.OutputDir)

	// 6. 邮件发送器
	c.Sender = email.NewSender(cfg.SMTP)

	// 7. 合同服务
	c.Service = service.NewContractService(c.Repo, c.Renderer, c.Encoder, c.Store, c.Sender, c.Logger)

	// 8. 控制器
	c.ContractController = api.NewContractController(c.Service, c.Store, c.Logger)
	c.EmailController = api.NewEmailController(c.Sender, c.Logger)
	c.HealthController = api.NewHealthController(c.DB, c.Encoder, c.Sender)

	return c, nil
}

// Controllers 返回路由需要的控制器集合
func (c *Container) Controllers() api.Controllers {
	return api.Controllers{
		Contract: c.ContractController,
		Email:    c.EmailController,
		Health:   c.HealthController,
	}
}

// Close 释放容器持有的资源
func (c *Container) Close() error {
	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
