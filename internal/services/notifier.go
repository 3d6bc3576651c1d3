package services

import (
	"context"
	"time"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

// NotificationPublisher is the transport behind Notifier (redis pub/sub in production).
type NotificationPublisher interface {
	Publish(ctx context.Context, n outreach.Notification) error
}

// Notifier publishes change notifications after a commit. Delivery is best effort:
// failures are logged and never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, n outreach.Notification)
}

type notifier struct {
	log     *logger.Logger
	pub     NotificationPublisher
	timeout time.Duration
}

func NewNotifier(baseLog *logger.Logger, pub NotificationPublisher) Notifier {
	return &notifier{
		log:     baseLog.With("service", "Notifier"),
		pub:     pub,
		timeout: 2 * time.Second,
	}
}

func (n *notifier) Notify(ctx context.Context, msg outreach.Notification) {
	if n == nil || n.pub == nil {
		return
	}
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	// the request may already be finishing; publishing must not be cut short by it
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	if err := n.pub.Publish(pctx, msg); err != nil {
		n.log.Warn("notification publish failed", "kind", msg.Kind, "institution_id", msg.InstitutionID, "error", err)
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, outreach.Notification) {}
