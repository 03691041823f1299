package ingestion

import (
	"context"
	"fmt"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/platform/gcp"
)

// StoreDownloader reads attachment bytes from the material bucket by storage key.
type StoreDownloader struct {
	Store gcp.MaterialStore
}

func (d StoreDownloader) Download(ctx context.Context, m *types.RawMaterial) ([]byte, error) {
	if m == nil || m.StorageKey == "" {
		return nil, fmt.Errorf("material has no storage key")
	}
	return d.Store.Read(ctx, m.StorageKey)
}
