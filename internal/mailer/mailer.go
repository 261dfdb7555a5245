// Package mailer 出站投递通道（邮件/短信）
//
// 投递通道位于请求处理的边界之外：除"发送验证码本身"外，
// 所有投递都经由 notify 包的异步分发器，失败只记录不回传。
package mailer

import (
	"context"
	"fmt"
	"log"

	"github.com/wneessen/go-mail"

	"careerhub/internal/config"
)

// EmailSender 邮件投递接口
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender 短信投递接口
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// ============================================================================
// SMTP
// ============================================================================

// SMTPSender 基于 SMTP 的邮件投递
type SMTPSender struct {
	client *mail.Client
	from   string
}

// NewSMTPSender 创建 SMTP 投递器
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("smtp host is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPSender{client: client, from: cfg.From}, nil
}

// SendEmail 发送纯文本邮件
func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

// ============================================================================
// NoOp（未配置投递通道时使用）
// ============================================================================

// NoOpSender 空操作投递器：记录日志后返回成功
// 开发/测试环境未配置 SMTP/Twilio 时使用
type NoOpSender struct{}

func (NoOpSender) SendEmail(_ context.Context, to, subject, _ string) error {
	log.Printf("[mailer] (noop) email to=%s subject=%q", to, subject)
	return nil
}

func (NoOpSender) SendSMS(_ context.Context, to, _ string) error {
	log.Printf("[mailer] (noop) sms to=%s", to)
	return nil
}
