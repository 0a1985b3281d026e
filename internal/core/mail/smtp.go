package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"tasktracker/internal/core/config"
	"tasktracker/internal/notify"
)

// SMTPMailer 每次发送单独拨号；连接失败算一次发送失败，由调用方决定是否重试
type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	timeout time.Duration
}

// NewSMTP 在 mail.enabled=false 或缺少 host 时返回 nil，调用方据此走日志兜底
func NewSMTP(c config.Mail) *SMTPMailer {
	if !c.Enabled || c.Host == "" {
		return nil
	}
	d := gomail.NewDialer(c.Host, c.Port, c.Username, c.Password)
	d.TLSConfig = &tls.Config{ServerName: c.Host, MinVersion: tls.VersionTLS12}
	timeout := time.Duration(c.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	from := c.From
	if from == "" {
		from = c.Username
	}
	return &SMTPMailer{dialer: d, from: from, timeout: timeout}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		// 拨号/发送还在后台进行，邮件可能已经送达
		return fmt.Errorf("smtp send to %s: %w: %w", to, notify.ErrDeliveryUnknown, ctx.Err())
	}
}
