package ingestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursework-backend/internal/platform/dbctx"
)

// SaveAssignment upserts the assignment and replaces its attachment list in
// one transaction. Materials are stored in the order given.
func (s *Service) SaveAssignment(ctx context.Context, a *types.Assignment, materials []*types.RawMaterial) (*types.Assignment, []*types.RawMaterial, error) {
	ctx = ctxutil.Default(ctx)
	if a == nil || a.UserID == uuid.Nil {
		return nil, nil, fmt.Errorf("%w: missing owner", types.ErrInvalidArgument)
	}
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return nil, nil, fmt.Errorf("%w: title is required", types.ErrInvalidArgument)
	}
	for i, m := range materials {
		if m == nil || strings.TrimSpace(m.Title) == "" {
			return nil, nil, fmt.Errorf("%w: material %d has no title", types.ErrInvalidArgument, i)
		}
		m.Position = i
	}

	var (
		saved *types.Assignment
		rows  []*types.RawMaterial
	)
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		var err error
		if saved, err = s.deps.Assignments.Upsert(dbc, a); err != nil {
			return fmt.Errorf("upsert assignment: %w", err)
		}
		if rows, err = s.deps.Materials.Replace(dbc, saved.ID, materials); err != nil {
			return fmt.Errorf("replace materials: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("Assignment saved", "assignment_id", saved.ID, "materials", len(rows))
	return saved, rows, nil
}
