package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HPNChanel/contract-generator/internal/config"
	"gopkg.in/gomail.v2"
)

// ConfigError 邮件配置不完整
// 属于环境配置错误,列出缺失的配置项
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("email configuration missing: %s", strings.Join(e.Missing, ", "))
}

// RecipientError 收件人地址无效
type RecipientError struct {
	Address string
	Err     error
}

func (e *RecipientError) Error() string {
	return fmt.Sprintf("invalid recipient address %q: %v", e.Address, e.Err)
}

func (e *RecipientError) Unwrap() error {
	return e.Err
}

// AuthError SMTP 认证失败
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("smtp authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TransportError SMTP 传输失败
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("smtp transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Sender SMTP 合同邮件发送器
// 配置在进程启动时构造一次并显式传入,不读取全局状态,
// 测试中可以替换配置或整个发送器
type Sender struct {
	cfg config.SMTPConfig
}

// NewSender 创建邮件发送器
func NewSender(cfg config.SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

// validateConfig 校验必要配置项
func (s *Sender) validateConfig() error {
	var missing []string
	if s.cfg.Host == "" {
		missing = append(missing, "smtp.host")
	}
	if s.cfg.Username == "" {
		missing = append(missing, "smtp.username")
	}
	if s.cfg.Password == "" {
		missing = append(missing, "smtp.password")
	}
	if s.senderEmail() == "" {
		missing = append(missing, "smtp.sender_email")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// senderEmail 发件人地址,未配置时回退到 SMTP 用户名
func (s *Sender) senderEmail() string {
	if s.cfg.SenderEmail != "" {
		return s.cfg.SenderEmail
	}
	return s.cfg.Username
}

// Send 发送合同 PDF 附件邮件
// 配置缺失返回 ConfigError,地址非法返回 RecipientError,
// 认证失败返回 AuthError,其余发送失败返回 TransportError
func (s *Sender) Send(ctx context.Context, recipient, pdfPath, contractType string, contractID uint) error {
	if err := s.validateConfig(); err != nil {
		return err
	}

	if _, err := mail.ParseAddress(recipient); err != nil {
		return &RecipientError{Address: recipient, Err: err}
	}

	if _, err := os.Stat(pdfPath); err != nil {
		return &TransportError{Err: fmt.Errorf("pdf file not found: %w", err)}
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail(), s.cfg.SenderName)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", fmt.Sprintf("Your %s Contract (ID: %d)", contractType, contractID))
	m.SetBody("text/plain", buildBody(contractType, contractID))
	m.Attach(pdfPath, gomail.Rename(filepath.Base(pdfPath)))

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)

	// gomail 不支持 context,发送在独立 goroutine 中执行,
	// 调用方取消时立即返回,连接由 goroutine 自行收尾
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return &TransportError{Err: ctx.Err()}
	case err := <-errCh:
		if err != nil {
			return classifySendError(err)
		}
		return nil
	}
}

// classifySendError 区分认证失败与一般传输失败
// SMTP 530/534/535 视为认证错误
func classifySendError(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case 530, 534, 535:
			return &AuthError{Err: err}
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "auth") {
		return &AuthError{Err: err}
	}
	return &TransportError{Err: err}
}

// buildBody 构造邮件正文
func buildBody(contractType string, contractID uint) string {
	return fmt.Sprintf(`Dear Customer,

Thank you for using Quick Contract Generator. Please find your %s contract attached to this email.

Contract Details:
- Contract ID: %d
- Contract Type: %s
- Generated: %s

If you have any questions about this contract, please contact us.

Best regards,
Quick Contract Generator Team`,
		contractType, contractID, contractType, time.Now().Format("2006-01-02 15:04:05"))
}

// TestConnection 测试 SMTP 连接,不发送实际邮件
func (s *Sender) TestConnection() error {
	if err := s.validateConfig(); err != nil {
		return err
	}

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	closer, err := d.Dial()
	if err != nil {
		return classifySendError(err)
	}
	return closer.Close()
}

// ConfigStatus 当前邮件配置状态,供诊断接口返回
// 不包含任何凭据明文
func (s *Sender) ConfigStatus() map[string]interface{} {
	configured := s.validateConfig() == nil

	server := s.cfg.Host
	if server == "" {
		server = "Not configured"
	}
	sender := s.senderEmail()
	if sender == "" {
		sender = "Not configured"
	}

	return map[string]interface{}{
		"smtp_server_configured":   s.cfg.Host != "",
		"smtp_username_configured": s.cfg.Username != "",
		"smtp_password_configured": s.cfg.Password != "",
		"sender_email_configured":  s.senderEmail() != "",
		"smtp_server":              server,
		"smtp_port":                s.cfg.Port,
		"sender_email":             sender,
		"configuration_complete":   configured,
	}
}
