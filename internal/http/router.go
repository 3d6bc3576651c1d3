package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/outreach-backend/internal/http/handlers"
	httpMW "github.com/yungbote/outreach-backend/internal/http/middleware"
	"github.com/yungbote/outreach-backend/internal/observability"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	InstitutionHandler *httpH.InstitutionHandler
	DraftHandler       *httpH.DraftHandler
	TemplateHandler    *httpH.TemplateHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "outreach-backend"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachOperator())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Institutions
		if cfg.InstitutionHandler != nil {
			api.POST("/institutions", cfg.InstitutionHandler.Create)
			api.GET("/institutions", cfg.InstitutionHandler.List)
			api.GET("/institutions/:id", cfg.InstitutionHandler.Get)
			api.POST("/institutions/:id/events", cfg.InstitutionHandler.ApplyEvent)
			api.POST("/institutions/:id/signals", cfg.InstitutionHandler.RecordSignal)
			api.GET("/institutions/:id/timeline", cfg.InstitutionHandler.Timeline)
			api.POST("/institutions/:id/drafts", cfg.InstitutionHandler.GenerateDraft)
			api.GET("/institutions/:id/drafts", cfg.InstitutionHandler.ListDrafts)
		}

		// Drafts
		if cfg.DraftHandler != nil {
			api.GET("/drafts/pending", cfg.DraftHandler.ListPending)
			api.GET("/drafts/:id", cfg.DraftHandler.Get)
			api.POST("/drafts/:id/approve", cfg.DraftHandler.Approve)
			api.POST("/drafts/:id/reject", cfg.DraftHandler.Reject)
			api.POST("/drafts/:id/send", cfg.DraftHandler.Send)
		}

		// Templates
		if cfg.TemplateHandler != nil {
			api.PATCH("/templates/drafts/:id", cfg.TemplateHandler.UpdateDraft)
			api.POST("/templates/drafts/:id/publish", cfg.TemplateHandler.PublishDraft)
			api.GET("/templates/by-id/:id", cfg.TemplateHandler.Get)
			api.GET("/templates/live", cfg.TemplateHandler.ActiveByStage)
			api.POST("/templates/:stage/publish", cfg.TemplateHandler.Publish)
			api.GET("/templates/:stage/active", cfg.TemplateHandler.Active)
			api.GET("/templates/:stage/versions", cfg.TemplateHandler.Versions)
			api.POST("/templates/:stage/drafts", cfg.TemplateHandler.CreateDraft)
			api.GET("/templates/:stage/drafts", cfg.TemplateHandler.ListDrafts)
		}
	}

	return r
}
