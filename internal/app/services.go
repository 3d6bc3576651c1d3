package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/outreach-backend/internal/data/aggregates"
	"github.com/yungbote/outreach-backend/internal/data/repos"
	"github.com/yungbote/outreach-backend/internal/modules/engagement"
	"github.com/yungbote/outreach-backend/internal/modules/outreach/policy"
	"github.com/yungbote/outreach-backend/internal/observability"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
	"github.com/yungbote/outreach-backend/internal/services"
)

type Services struct {
	Engagement services.EngagementService
	Generator  services.DraftGenerator
	Review     services.DraftReviewService
	Sender     services.DraftSender
	Templates  services.TemplateService
	Notifier   services.Notifier
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet repos.Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	scoring, err := cfg.Engagement.Scoring()
	if err != nil {
		return Services{}, fmt.Errorf("engagement config: %w", err)
	}
	scorer := engagement.NewScorer(scoring)

	// an empty path loads the embedded policy
	pol, err := policy.Load(cfg.Outreach.PolicyPath)
	if err != nil {
		return Services{}, fmt.Errorf("load content policy: %w", err)
	}

	var pub services.NotificationPublisher
	if clients.Publisher != nil {
		pub = clients.Publisher
	}
	notifier := services.NewNotifier(log, pub)

	locker := services.NewLocalLocker()
	if clients.Locker != nil {
		locker = services.ChainLockers(locker, clients.Locker)
	}

	base := aggregates.BaseDeps{
		DB:    db,
		Log:   log,
		Hooks: aggregates.NewObservabilityHooks(metrics, log),
	}

	generator, err := services.NewDraftGenerator(services.DraftGeneratorDeps{
		Log:              log,
		Institutions:     reposet.Institutions,
		Drafts:           reposet.Drafts,
		Templates:        reposet.Templates,
		Provider:         clients.OpenAI,
		Policy:           pol,
		Notifier:         notifier,
		Metrics:          metrics,
		Timeout:          cfg.Outreach.ProviderTimeout,
		BatchConcurrency: cfg.Outreach.BatchConcurrency,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init draft generator: %w", err)
	}

	engDeps := services.EngagementServiceDeps{
		DB:  db,
		Log: log,
		Aggregate: aggregates.NewEngagementAggregate(aggregates.EngagementAggregateDeps{
			Base:         base,
			Institutions: reposet.Institutions,
			Events:       reposet.Events,
			Scorer:       scorer,
		}),
		Institutions: reposet.Institutions,
		Events:       reposet.Events,
		Scorer:       scorer,
		Locker:       locker,
		Notifier:     notifier,
		Metrics:      metrics,
		LockTimeout:  cfg.Engagement.LockTimeout,
	}
	if cfg.Outreach.AutoDraft {
		engDeps.AutoDraft = generator
	}
	eng := services.NewEngagementService(engDeps)

	return Services{
		Engagement: eng,
		Generator:  generator,
		Review:     services.NewDraftReviewService(reposet.Drafts, notifier, metrics, log),
		Sender: services.NewDraftSender(services.DraftSenderDeps{
			Log:        log,
			Drafts:     reposet.Drafts,
			Mail:       clients.Mail,
			Engagement: eng,
			Notifier:   notifier,
			Metrics:    metrics,

			Locker:      locker,
			LockTimeout: cfg.Engagement.LockTimeout,
		}),
		Templates: services.NewTemplateService(services.TemplateServiceDeps{
			Log:       log,
			Templates: reposet.Templates,
			Aggregate: aggregates.NewTemplateAggregate(aggregates.TemplateAggregateDeps{
				Base:      base,
				Templates: reposet.Templates,
			}),
			Locker:      locker,
			LockTimeout: cfg.Engagement.LockTimeout,
			Notifier:    notifier,
			Metrics:     metrics,
		}),
		Notifier: notifier,
	}, nil
}
