package mailer

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"careerhub/internal/config"
)

// TwilioSender 基于 Twilio 的短信投递
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender 创建 Twilio 投递器
func NewTwilioSender(cfg config.SMSConfig) (*TwilioSender, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("twilio account_sid and auth token are required")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioSender{client: client, from: cfg.FromNumber}, nil
}

// SendSMS 发送短信
// Twilio SDK 不接收 context；取消语义由调用方的超时兜底
func (s *TwilioSender) SendSMS(_ context.Context, to, body string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send sms to %s: %w", to, err)
	}
	return nil
}
