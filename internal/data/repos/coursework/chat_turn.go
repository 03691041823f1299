package coursework

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/platform/dbctx"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type ChatTurnRepo interface {
	// Append assigns the next seq for the (assignment, user) session and inserts t.
	Append(dbc dbctx.Context, t *types.ChatTurn) (*types.ChatTurn, error)
	// List returns up to limit of the most recent turns, oldest first.
	List(dbc dbctx.Context, assignmentID, userID uuid.UUID, limit int) ([]*types.ChatTurn, error)
	DeleteAll(dbc dbctx.Context, assignmentID, userID uuid.UUID) error
}

type chatTurnRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatTurnRepo(db *gorm.DB, log *logger.Logger) ChatTurnRepo {
	return &chatTurnRepo{db: db, log: log.With("repo", "ChatTurnRepo")}
}

func (r *chatTurnRepo) Append(dbc dbctx.Context, t *types.ChatTurn) (*types.ChatTurn, error) {
	if t == nil || t.AssignmentID == uuid.Nil || t.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing chat session key")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	err := txx.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&types.ChatTurn{}).
			Select("COALESCE(MAX(seq), 0)").
			Where("assignment_id = ? AND user_id = ?", t.AssignmentID, t.UserID).
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		t.Seq = maxSeq + 1
		return tx.Create(t).Error
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *chatTurnRepo) List(dbc dbctx.Context, assignmentID, userID uuid.UUID, limit int) ([]*types.ChatTurn, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ChatTurn
	if err := txx.WithContext(dbc.Ctx).
		Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		Order("seq DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	// Normalize to ASC for clients.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *chatTurnRepo) DeleteAll(dbc dbctx.Context, assignmentID, userID uuid.UUID) error {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		Delete(&types.ChatTurn{}).Error
}
