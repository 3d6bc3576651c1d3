package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/outreach-backend/internal/data/repos/outreach"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

type InstitutionRepo = outreach.InstitutionRepo
type OutreachEventRepo = outreach.OutreachEventRepo
type DraftRepo = outreach.DraftRepo
type EmailTemplateRepo = outreach.EmailTemplateRepo

type InstitutionListFilter = outreach.InstitutionListFilter
type TimelineCursor = outreach.TimelineCursor
type DraftReview = outreach.DraftReview

// Repos bundles every table repo over one database handle.
type Repos struct {
	Institutions InstitutionRepo
	Events       OutreachEventRepo
	Drafts       DraftRepo
	Templates    EmailTemplateRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Institutions: outreach.NewInstitutionRepo(db, log),
		Events:       outreach.NewOutreachEventRepo(db, log),
		Drafts:       outreach.NewDraftRepo(db, log),
		Templates:    outreach.NewEmailTemplateRepo(db, log),
	}
}

func NewInstitutionRepo(db *gorm.DB, log *logger.Logger) InstitutionRepo {
	return outreach.NewInstitutionRepo(db, log)
}

func NewOutreachEventRepo(db *gorm.DB, log *logger.Logger) OutreachEventRepo {
	return outreach.NewOutreachEventRepo(db, log)
}

func NewDraftRepo(db *gorm.DB, log *logger.Logger) DraftRepo {
	return outreach.NewDraftRepo(db, log)
}

func NewEmailTemplateRepo(db *gorm.DB, log *logger.Logger) EmailTemplateRepo {
	return outreach.NewEmailTemplateRepo(db, log)
}
