package outreach

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/outreach-backend/internal/domain"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

type InstitutionListFilter struct {
	State  types.EngagementState
	Query  string
	Limit  int
	Offset int
}

type InstitutionRepo interface {
	Create(dbc dbctx.Context, inst *types.Institution) (*types.Institution, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Institution, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Institution, error)
	List(dbc dbctx.Context, filter InstitutionListFilter) ([]*types.Institution, error)
	CountByState(dbc dbctx.Context) (map[types.EngagementState]int64, error)
}

type institutionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInstitutionRepo(db *gorm.DB, baseLog *logger.Logger) InstitutionRepo {
	repoLog := baseLog.With("repo", "InstitutionRepo")
	return &institutionRepo{db: db, log: repoLog}
}

func (r *institutionRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *institutionRepo) Create(dbc dbctx.Context, inst *types.Institution) (*types.Institution, error) {
	if inst == nil {
		return nil, nil
	}
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	if inst.State == "" {
		inst.State = types.StateUncontacted
	}
	if err := r.tx(dbc).Create(inst).Error; err != nil {
		return nil, err
	}
	return inst, nil
}

// GetByID returns nil, nil when the institution does not exist.
func (r *institutionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Institution, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*types.Institution
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *institutionRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Institution, error) {
	var out []*types.Institution
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *institutionRepo) List(dbc dbctx.Context, filter InstitutionListFilter) ([]*types.Institution, error) {
	var out []*types.Institution
	q := r.tx(dbc).Model(&types.Institution{})
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if s := strings.TrimSpace(filter.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(domain) LIKE ?", like, like)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Order("name ASC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *institutionRepo) CountByState(dbc dbctx.Context) (map[types.EngagementState]int64, error) {
	type row struct {
		State types.EngagementState
		N     int64
	}
	var rows []row
	if err := r.tx(dbc).Model(&types.Institution{}).
		Select("state, COUNT(*) AS n").
		Group("state").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[types.EngagementState]int64, len(rows))
	for _, rw := range rows {
		out[rw.State] = rw.N
	}
	return out, nil
}
