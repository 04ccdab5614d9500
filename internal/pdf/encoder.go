package pdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/HPNChanel/contract-generator/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Encoder HTML 转 PDF 编码器
type Encoder interface {
	// Name 编码器名称,用于日志和指标
	Name() string
	// Encode 将 HTML 字符串转换为 PDF 字节流
	Encode(ctx context.Context, html string) ([]byte, error)
}

// ErrUnavailable 编码能力在当前运行环境中不存在
// 这是环境/配置条件,不是针对单次输入的编码失败,
// 调用方据此选择回退编码器而不视为数据损坏
var ErrUnavailable = errors.New("pdf encoder unavailable")

// EncodingError 针对特定输入的编码失败
type EncodingError struct {
	Encoder string
	Err     error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s encoding failed: %v", e.Encoder, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// EncoderChain 双编码器回退链
// 先尝试主编码器;主编码器不可用或编码失败时透明回退到备用编码器,
// 成功路径对调用方不可见区别,仅体现在日志与指标中
type EncoderChain struct {
	primary  Encoder
	fallback Encoder
	logger   *logrus.Logger
}

// NewEncoderChain 创建编码器回退链
// primary 可以为 nil(构造时即探测到不可用),此时直接使用 fallback
func NewEncoderChain(primary, fallback Encoder, logger *logrus.Logger) *EncoderChain {
	return &EncoderChain{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Name 编码器名称
func (c *EncoderChain) Name() string {
	return "chain"
}

// Encode 执行编码,必要时回退
// 仅当备用编码器也失败时才向调用方返回错误
func (c *EncoderChain) Encode(ctx context.Context, html string) ([]byte, error) {
	if c.primary != nil {
		out, err := c.primary.Encode(ctx, html)
		if err == nil {
			metrics.RecordPDFGenerated(c.primary.Name())
			return out, nil
		}

		if c.fallback == nil {
			return nil, err
		}

		// 区分"能力缺失"与"本次输入编码失败",两者都触发回退
		if errors.Is(err, ErrUnavailable) {
			c.log().WithField("encoder", c.primary.Name()).
				Warn("primary PDF encoder unavailable, falling back")
		} else {
			c.log().WithField("encoder", c.primary.Name()).WithError(err).
				Warn("primary PDF encoder failed, falling back")
		}
		metrics.RecordPDFFallback()
	}

	if c.fallback == nil {
		return nil, ErrUnavailable
	}

	out, err := c.fallback.Encode(ctx, html)
	if err != nil {
		return nil, err
	}
	metrics.RecordPDFGenerated(c.fallback.Name())
	return out, nil
}

func (c *EncoderChain) log() *logrus.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logrus.StandardLogger()
}
