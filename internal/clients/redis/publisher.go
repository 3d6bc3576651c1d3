package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

// Publisher fans notifications out over a redis pub/sub channel.
type Publisher struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
}

func NewPublisher(log *logger.Logger, rdb goredis.UniversalClient, cfg Config) *Publisher {
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = "outreach-events"
	}
	return &Publisher{
		log:     log.With("client", "RedisPublisher"),
		rdb:     rdb,
		channel: ch,
	}
}

func (p *Publisher) Publish(ctx context.Context, n outreach.Notification) error {
	if p == nil || p.rdb == nil {
		return ErrNotConfigured
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, raw).Err()
}

// Subscribe forwards notifications to onMsg until ctx is done.
func (p *Publisher) Subscribe(ctx context.Context, onMsg func(n outreach.Notification)) error {
	if p == nil || p.rdb == nil {
		return ErrNotConfigured
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := p.rdb.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var n outreach.Notification
				if err := json.Unmarshal([]byte(m.Payload), &n); err != nil {
					p.log.Warn("bad redis notification payload", "error", err)
					continue
				}
				onMsg(n)
			}
		}
	}()
	return nil
}
