package app

import (
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/outreach-backend/internal/clients/redis"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
	"github.com/yungbote/outreach-backend/internal/platform/openai"
	"github.com/yungbote/outreach-backend/internal/platform/sendgrid"
)

// Clients holds external connections. Any of them may be nil when unconfigured.
type Clients struct {
	Redis     goredis.UniversalClient
	Locker    *redis.Locker
	Publisher *redis.Publisher
	OpenAI    openai.Client
	Mail      sendgrid.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	rdb, err := redis.NewClient(log, cfg.Redis)
	switch {
	case errors.Is(err, redis.ErrNotConfigured):
		log.Warn("REDIS_ADDR not set; using in-process locks and no notifications")
	case err != nil:
		return Clients{}, fmt.Errorf("init redis: %w", err)
	default:
		out.Redis = rdb
		out.Locker = redis.NewLocker(log, rdb, cfg.Redis)
		out.Publisher = redis.NewPublisher(log, rdb, cfg.Redis)
	}

	oa, err := openai.NewClient(log, cfg.OpenAI)
	switch {
	case errors.Is(err, openai.ErrNotConfigured):
		log.Warn("OPENAI_API_KEY not set; draft generation will report provider_unavailable")
	case err != nil:
		out.Close()
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	default:
		out.OpenAI = oa
	}

	mail, err := sendgrid.New(log, cfg.SendGrid)
	switch {
	case errors.Is(err, sendgrid.ErrNotConfigured):
		log.Warn("SENDGRID_API_KEY not set; draft delivery disabled")
	case err != nil:
		out.Close()
		return Clients{}, fmt.Errorf("init sendgrid client: %w", err)
	default:
		out.Mail = mail
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
