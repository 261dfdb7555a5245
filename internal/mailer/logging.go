package mailer

import (
	"context"
	"time"

	"careerhub/pkg/logging"
)

// loggedEmailSender 包装邮件通道，记录每次投递的耗时与结果
type loggedEmailSender struct {
	inner EmailSender
	log   *logging.Logger
}

// loggedSMSSender 包装短信通道，记录每次投递的耗时与结果
type loggedSMSSender struct {
	inner SMSSender
	log   *logging.Logger
}

// WithEmailLog 为邮件通道加上投递日志
func WithEmailLog(inner EmailSender, log *logging.Logger) EmailSender {
	return &loggedEmailSender{inner: inner, log: log}
}

// WithSMSLog 为短信通道加上投递日志
func WithSMSLog(inner SMSSender, log *logging.Logger) SMSSender {
	return &loggedSMSSender{inner: inner, log: log}
}

func (s *loggedEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	start := time.Now()
	err := s.inner.SendEmail(ctx, to, subject, body)
	s.log.DeliveryLog("email", to, time.Since(start), err)
	return err
}

func (s *loggedSMSSender) SendSMS(ctx context.Context, to, body string) error {
	start := time.Now()
	err := s.inner.SendSMS(ctx, to, body)
	s.log.DeliveryLog("sms", to, time.Since(start), err)
	return err
}
