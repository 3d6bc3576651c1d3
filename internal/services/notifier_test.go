package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

type fakePublisher struct {
	got      []outreach.Notification
	err      error
	deadline bool
}

func (p *fakePublisher) Publish(ctx context.Context, n outreach.Notification) error {
	_, p.deadline = ctx.Deadline()
	p.got = append(p.got, n)
	return p.err
}

func TestNotifierPublishesDespiteCanceledRequest(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotifier(logger.Nop(), pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Notify(ctx, outreach.Notification{Kind: outreach.NotifyEventApplied, InstitutionID: uuid.New()})

	if len(pub.got) != 1 {
		t.Fatalf("published: want=1 got=%d", len(pub.got))
	}
	if pub.got[0].At.IsZero() {
		t.Fatalf("notification time not stamped")
	}
	if !pub.deadline {
		t.Fatalf("publish context has no deadline")
	}
}

func TestNotifierSwallowsPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	n := NewNotifier(logger.Nop(), pub)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n.Notify(context.Background(), outreach.Notification{Kind: outreach.NotifyDraftSent, At: at})
	if len(pub.got) != 1 || !pub.got[0].At.Equal(at) {
		t.Fatalf("unexpected publish: %+v", pub.got)
	}

	NewNotifier(logger.Nop(), nil).Notify(context.Background(), outreach.Notification{Kind: outreach.NotifyDraftSent})
}
