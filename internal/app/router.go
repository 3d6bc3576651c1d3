package app

import (
	"github.com/yungbote/outreach-backend/internal/http"
	"github.com/yungbote/outreach-backend/internal/observability"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		ServiceName:        cfg.Otel.ServiceName,
		CORSOrigins:        cfg.CORSOrigins,
		InstitutionHandler: handlers.Institution,
		DraftHandler:       handlers.Draft,
		TemplateHandler:    handlers.Template,
		HealthHandler:      handlers.Health,
	})
}
