package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursework-backend/internal/platform/dbctx"
)

// ErrUploadsDisabled is returned when no object store is wired for uploads.
var ErrUploadsDisabled = errors.New("material uploads are not configured")

type Uploader interface {
	Upload(dbc dbctx.Context, key, contentType string, r io.Reader) error
}

// MaterialKey is the object key for a material that arrived without one.
func MaterialKey(assignmentID, materialID uuid.UUID) string {
	return fmt.Sprintf("assignments/%s/materials/%s", assignmentID, materialID)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// UploadMaterial stores the bytes of one attachment and records the storage
// key, content type and size on the material row.
func (s *Service) UploadMaterial(ctx context.Context, assignmentID, userID, materialID uuid.UUID, contentType string, body io.Reader) (*types.RawMaterial, error) {
	ctx = ctxutil.Default(ctx)
	if s.deps.Uploads == nil {
		return nil, ErrUploadsDisabled
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.deps.Assignments.GetForUser(dbc, assignmentID, userID); err != nil {
		return nil, err
	}
	mats, err := s.deps.Materials.ListByAssignment(dbc, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	var target *types.RawMaterial
	for _, m := range mats {
		if m.ID == materialID {
			target = m
			break
		}
	}
	if target == nil {
		return nil, types.ErrNotFound
	}

	key := strings.TrimSpace(target.StorageKey)
	if key == "" {
		key = MaterialKey(assignmentID, materialID)
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = target.MimeType
	}
	cr := &countingReader{r: body}
	if err := s.deps.Uploads.Upload(dbc, key, contentType, cr); err != nil {
		return nil, fmt.Errorf("upload material: %w", err)
	}
	out, err := s.deps.Materials.SetStorage(dbc, materialID, key, contentType, cr.n)
	if err != nil {
		return nil, err
	}
	s.log.Info("Material uploaded", "assignment_id", assignmentID, "material_id", materialID, "bytes", cr.n)
	return out, nil
}
