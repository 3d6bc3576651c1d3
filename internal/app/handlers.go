package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/outreach-backend/internal/http/handlers"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Institution *httpH.InstitutionHandler
	Draft       *httpH.DraftHandler
	Template    *httpH.TemplateHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, svc Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		Institution: httpH.NewInstitutionHandler(svc.Engagement, svc.Generator, svc.Review),
		Draft:       httpH.NewDraftHandler(svc.Review, svc.Sender),
		Template:    httpH.NewTemplateHandler(svc.Templates),
	}
}
