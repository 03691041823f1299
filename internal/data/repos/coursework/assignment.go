package coursework

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/platform/dbctx"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type AssignmentRepo interface {
	// Upsert inserts a by (user_id, external_id) or refreshes its title and description.
	Upsert(dbc dbctx.Context, a *types.Assignment) (*types.Assignment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Assignment, error)
	// GetForUser returns ErrNotFound unless the assignment belongs to userID.
	GetForUser(dbc dbctx.Context, id, userID uuid.UUID) (*types.Assignment, error)
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, log *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: log.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) Upsert(dbc dbctx.Context, a *types.Assignment) (*types.Assignment, error) {
	if a == nil || a.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if a.ExternalID == "" {
		if err := txx.WithContext(dbc.Ctx).Create(a).Error; err != nil {
			return nil, err
		}
		return a, nil
	}
	if err := txx.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "updated_at"}),
		}).
		Create(a).Error; err != nil {
		return nil, err
	}
	var out types.Assignment
	if err := txx.WithContext(dbc.Ctx).
		Where("user_id = ? AND external_id = ?", a.UserID, a.ExternalID).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *assignmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Assignment, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.Assignment
	err := txx.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *assignmentRepo) GetForUser(dbc dbctx.Context, id, userID uuid.UUID) (*types.Assignment, error) {
	a, err := r.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, types.ErrNotFound
	}
	return a, nil
}
