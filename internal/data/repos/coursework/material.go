package coursework

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/platform/dbctx"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type RawMaterialRepo interface {
	// Replace swaps the full attachment list of an assignment.
	Replace(dbc dbctx.Context, assignmentID uuid.UUID, rows []*types.RawMaterial) ([]*types.RawMaterial, error)
	ListByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) ([]*types.RawMaterial, error)
	// SetStorage records where the material's bytes were uploaded.
	SetStorage(dbc dbctx.Context, id uuid.UUID, key, mimeType string, size int64) (*types.RawMaterial, error)
}

type rawMaterialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRawMaterialRepo(db *gorm.DB, log *logger.Logger) RawMaterialRepo {
	return &rawMaterialRepo{db: db, log: log.With("repo", "RawMaterialRepo")}
}

func (r *rawMaterialRepo) Replace(dbc dbctx.Context, assignmentID uuid.UUID, rows []*types.RawMaterial) ([]*types.RawMaterial, error) {
	if assignmentID == uuid.Nil {
		return nil, fmt.Errorf("missing assignment_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	err := txx.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ?", assignmentID).Delete(&types.RawMaterial{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for i, m := range rows {
			m.AssignmentID = assignmentID
			m.Position = i
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *rawMaterialRepo) ListByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) ([]*types.RawMaterial, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.RawMaterial
	if err := txx.WithContext(dbc.Ctx).
		Where("assignment_id = ?", assignmentID).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *rawMaterialRepo) SetStorage(dbc dbctx.Context, id uuid.UUID, key, mimeType string, size int64) (*types.RawMaterial, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Model(&types.RawMaterial{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"storage_key": key,
			"mime_type":   mimeType,
			"size_bytes":  size,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, types.ErrNotFound
	}
	var out types.RawMaterial
	if err := txx.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
