package redis

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

func testClient(t *testing.T) (goredis.UniversalClient, Config) {
	t.Helper()
	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	cfg := Config{Addr: addr, Channel: "outreach-test-" + uuid.NewString()[:8], LockTTL: 2 * time.Second, Prefix: "outreach-test"}
	rdb, err := NewClient(logger.Nop(), cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, cfg
}

func TestNewClientNotConfigured(t *testing.T) {
	if _, err := NewClient(logger.Nop(), Config{}); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestLockerExcludesConcurrentHolders(t *testing.T) {
	rdb, cfg := testClient(t)
	l := NewLocker(logger.Nop(), rdb, cfg)
	key := "inst-" + uuid.NewString()

	unlock, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, key); err == nil {
		t.Fatalf("second Lock should time out while the first is held")
	}

	unlock()
	unlock2, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	unlock2()
}

func TestPublisherRoundTrip(t *testing.T) {
	rdb, cfg := testClient(t)
	p := NewPublisher(logger.Nop(), rdb, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got atomic.Value
	done := make(chan struct{})
	if err := p.Subscribe(ctx, func(n outreach.Notification) {
		got.Store(n)
		close(done)
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	instID := uuid.New()
	if err := p.Publish(ctx, outreach.Notification{Kind: outreach.NotifyStateChanged, InstitutionID: instID, ToState: outreach.StateEngaged, At: time.Now().UTC()}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("notification not received")
	}
	n := got.Load().(outreach.Notification)
	if n.InstitutionID != instID || n.ToState != outreach.StateEngaged {
		t.Fatalf("unexpected notification %+v", n)
	}
}
