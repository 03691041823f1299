package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursework-backend/internal/domain"
)

func SeedAssignment(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, title string) *types.Assignment {
	tb.Helper()
	a := &types.Assignment{
		ID:         uuid.New(),
		UserID:     userID,
		ExternalID: "ext-" + uuid.NewString()[:8],
		Title:      title,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assignment: %v", err)
	}
	return a
}

// SeedMaterials stores one raw material per title, in order.
func SeedMaterials(tb testing.TB, ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID, titles ...string) []*types.RawMaterial {
	tb.Helper()
	out := make([]*types.RawMaterial, 0, len(titles))
	for i, title := range titles {
		m := &types.RawMaterial{
			ID:           uuid.New(),
			AssignmentID: assignmentID,
			Position:     i,
			Title:        title,
			StorageKey:   assignmentID.String() + "/" + title,
		}
		if err := tx.WithContext(ctx).Create(m).Error; err != nil {
			tb.Fatalf("seed raw material: %v", err)
		}
		out = append(out, m)
	}
	return out
}
