package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/yungbote/outreach-backend/internal/clients/redis"
	"github.com/yungbote/outreach-backend/internal/data/db"
	"github.com/yungbote/outreach-backend/internal/modules/engagement"
	"github.com/yungbote/outreach-backend/internal/observability"
	"github.com/yungbote/outreach-backend/internal/platform/openai"
	"github.com/yungbote/outreach-backend/internal/platform/sendgrid"
)

type Config struct {
	LogMode         string        `env:"LOG_MODE" envDefault:"development"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	MetricsEnabled        bool          `env:"METRICS_ENABLED"`
	MetricsScrapeInterval time.Duration `env:"METRICS_SCRAPE_INTERVAL" envDefault:"10s"`

	DB         db.Config
	Redis      redis.Config
	OpenAI     openai.Config
	SendGrid   sendgrid.Config
	Otel       observability.OtelConfig
	Engagement EngagementConfig
	Outreach   OutreachConfig
}

type EngagementConfig struct {
	DecayPerDay int `env:"ENGAGEMENT_DECAY_PER_DAY" envDefault:"1"`
	Threshold   int `env:"ENGAGEMENT_THRESHOLD" envDefault:"30"`
	MaxScore    int `env:"ENGAGEMENT_MAX_SCORE" envDefault:"100"`
	// Points overrides the default point table, e.g. "EMAIL_OPENED:3,LINK_CLICKED:12".
	Points      map[string]int `env:"ENGAGEMENT_POINTS" envKeyValSeparator:":"`
	LockTimeout time.Duration  `env:"ENGAGEMENT_LOCK_TIMEOUT" envDefault:"10s"`
}

// Scoring resolves the tunables into a validated scoring config.
func (c EngagementConfig) Scoring() (engagement.Config, error) {
	cfg := engagement.DefaultConfig()
	cfg.DecayPerDay = c.DecayPerDay
	cfg.Threshold = c.Threshold
	cfg.MaxScore = c.MaxScore
	cfg, err := cfg.WithPointOverrides(c.Points)
	if err != nil {
		return engagement.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return engagement.Config{}, err
	}
	return cfg, nil
}

type OutreachConfig struct {
	PolicyPath       string        `env:"OUTREACH_POLICY_PATH"`
	ProviderTimeout  time.Duration `env:"OUTREACH_PROVIDER_TIMEOUT" envDefault:"45s"`
	AutoDraft        bool          `env:"OUTREACH_AUTO_DRAFT"`
	BatchConcurrency int           `env:"OUTREACH_BATCH_CONCURRENCY" envDefault:"4"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
