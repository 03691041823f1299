package coursework

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/platform/dbctx"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type ExtractedDocumentRepo interface {
	Create(dbc dbctx.Context, rows []*types.ExtractedDocument) ([]*types.ExtractedDocument, error)
	// ListLatestRun returns the documents of the newest run, in file order.
	// An assignment never extracted yields an empty slice.
	ListLatestRun(dbc dbctx.Context, assignmentID uuid.UUID) ([]*types.ExtractedDocument, error)
}

type extractedDocumentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExtractedDocumentRepo(db *gorm.DB, log *logger.Logger) ExtractedDocumentRepo {
	return &extractedDocumentRepo{db: db, log: log.With("repo", "ExtractedDocumentRepo")}
}

func (r *extractedDocumentRepo) Create(dbc dbctx.Context, rows []*types.ExtractedDocument) ([]*types.ExtractedDocument, error) {
	if len(rows) == 0 {
		return []*types.ExtractedDocument{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *extractedDocumentRepo) ListLatestRun(dbc dbctx.Context, assignmentID uuid.UUID) ([]*types.ExtractedDocument, error) {
	if assignmentID == uuid.Nil {
		return nil, fmt.Errorf("missing assignment_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var latest types.ExtractedDocument
	err := txx.WithContext(dbc.Ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC").
		First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []*types.ExtractedDocument{}, nil
	}
	if err != nil {
		return nil, err
	}

	var out []*types.ExtractedDocument
	if err := txx.WithContext(dbc.Ctx).
		Where("assignment_id = ? AND run_id = ?", assignmentID, latest.RunID).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
