package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

var ErrNotConfigured = errors.New("redis not configured")

type Config struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	Channel  string        `env:"REDIS_CHANNEL" envDefault:"outreach-events"`
	LockTTL  time.Duration `env:"REDIS_LOCK_TTL" envDefault:"10s"`
	Prefix   string        `env:"REDIS_KEY_PREFIX" envDefault:"outreach"`
}

func (c Config) Enabled() bool { return strings.TrimSpace(c.Addr) != "" }

// NewClient dials and pings redis. It returns ErrNotConfigured when no address is set.
func NewClient(log *logger.Logger, cfg Config) (goredis.UniversalClient, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        strings.TrimSpace(cfg.Addr),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("Redis connected", "addr", cfg.Addr)
	return rdb, nil
}
