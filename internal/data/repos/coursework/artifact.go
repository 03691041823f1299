package coursework

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/platform/dbctx"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type ArtifactRepo interface {
	// Get returns (nil, nil) when no artifact exists for the triple.
	Get(dbc dbctx.Context, assignmentID, userID uuid.UUID, mode types.Mode) (*types.Artifact, error)
	// Create stores the first version. A concurrent first save surfaces as ErrVersionConflict.
	Create(dbc dbctx.Context, a *types.Artifact) (*types.Artifact, error)
	// ReplaceContent bumps the version when the row is still at expectedVersion.
	ReplaceContent(dbc dbctx.Context, id uuid.UUID, expectedVersion int, content string, metadata datatypes.JSON) (*types.Artifact, error)
	// SetOverride sets or, with nil, clears the hand-edited draft.
	SetOverride(dbc dbctx.Context, id uuid.UUID, override *string) (*types.Artifact, error)
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, log *logger.Logger) ArtifactRepo {
	return &artifactRepo{db: db, log: log.With("repo", "ArtifactRepo")}
}

func (r *artifactRepo) Get(dbc dbctx.Context, assignmentID, userID uuid.UUID, mode types.Mode) (*types.Artifact, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.Artifact
	err := txx.WithContext(dbc.Ctx).
		Where("assignment_id = ? AND user_id = ? AND mode = ?", assignmentID, userID, mode).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *artifactRepo) Create(dbc dbctx.Context, a *types.Artifact) (*types.Artifact, error) {
	if a == nil || a.AssignmentID == uuid.Nil || a.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing artifact owner")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	a.Version = 1
	if err := txx.WithContext(dbc.Ctx).Create(a).Error; err != nil {
		if existing, gerr := r.Get(dbc, a.AssignmentID, a.UserID, a.Mode); gerr == nil && existing != nil {
			return nil, types.ErrVersionConflict
		}
		return nil, err
	}
	return a, nil
}

func (r *artifactRepo) ReplaceContent(dbc dbctx.Context, id uuid.UUID, expectedVersion int, content string, metadata datatypes.JSON) (*types.Artifact, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Model(&types.Artifact{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"content":    content,
			"metadata":   metadata,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, types.ErrVersionConflict
	}
	return r.getByID(dbc, id)
}

func (r *artifactRepo) SetOverride(dbc dbctx.Context, id uuid.UUID, override *string) (*types.Artifact, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Model(&types.Artifact{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"override":   override,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, types.ErrNotFound
	}
	return r.getByID(dbc, id)
}

func (r *artifactRepo) getByID(dbc dbctx.Context, id uuid.UUID) (*types.Artifact, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.Artifact
	if err := txx.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}
