package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"tasktracker/internal/domain"
)

// Mailer 邮件通道，可选：nil 表示未配置。
// 等待超时放弃、但发送可能仍在进行时，Send 返回的错误包一层 ErrDeliveryUnknown
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

var ErrDeliveryUnknown = errors.New("delivery outcome unknown")

type Outcome string

const (
	OutcomeSent    Outcome = "sent"    // 已交给邮件通道
	OutcomeLogged  Outcome = "logged"  // 无通道或无邮箱，写日志
	OutcomeFailed  Outcome = "failed"  // 通道返回错误
	OutcomeUnknown Outcome = "unknown" // 放弃等待，邮件可能仍会送达
)

// Dispatcher 投递渲染好的消息，Deliver 不向调用方返回错误：
// 无通道/无邮箱走日志；发送失败连同正文记日志，结果为 OutcomeFailed。
// 不重试，下一轮调度就是重试
type Dispatcher struct {
	mailer Mailer
	log    *zap.Logger
}

func NewDispatcher(mailer Mailer, log *zap.Logger) *Dispatcher {
	return &Dispatcher{mailer: mailer, log: log.Named("dispatcher")}
}

func (d *Dispatcher) MailEnabled() bool { return d.mailer != nil }

func (d *Dispatcher) Deliver(ctx context.Context, u domain.User, msg Message) Outcome {
	addr, ok := u.ContactAddress()
	if d.mailer == nil || !ok {
		reason := "mail not configured"
		if d.mailer != nil {
			reason = "user has no email"
		}
		d.log.Info("notification (console)",
			zap.String("username", u.Username),
			zap.String("reason", reason),
			zap.String("subject", msg.Subject),
			zap.String("body", msg.Body),
		)
		return OutcomeLogged
	}
	if err := d.mailer.Send(ctx, addr, msg.Subject, msg.Body); err != nil {
		fields := []zap.Field{
			zap.String("username", u.Username),
			zap.String("to", addr),
			zap.String("subject", msg.Subject),
			zap.String("body", msg.Body),
			zap.Error(err),
		}
		if errors.Is(err, ErrDeliveryUnknown) {
			d.log.Warn("notification email outcome unknown", fields...)
			return OutcomeUnknown
		}
		d.log.Warn("notification email failed", fields...)
		return OutcomeFailed
	}
	d.log.Debug("notification email sent",
		zap.String("username", u.Username),
		zap.String("to", addr),
		zap.String("subject", msg.Subject),
	)
	return OutcomeSent
}
