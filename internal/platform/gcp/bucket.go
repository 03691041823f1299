package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/coursework-backend/internal/platform/dbctx"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

var (
	ErrObjectNotFound = errors.New("material object not found")
	ErrObjectTooLarge = errors.New("material object exceeds size limit")
)

// MaterialStore holds the raw attachment bytes fetched from the classroom provider.
type MaterialStore interface {
	Upload(dbc dbctx.Context, key, contentType string, r io.Reader) error
	Read(ctx context.Context, key string) ([]byte, error)
}

type materialStore struct {
	log    *logger.Logger
	cfg    StoreConfig
	client *storage.Client
	httpc  *http.Client
}

func NewMaterialStore(log *logger.Logger, cfg StoreConfig) (MaterialStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []option.ClientOption{}
	if cfg.Mode == ModeEmulator {
		opts = append(opts, option.WithoutAuthentication(), option.WithEndpoint(cfg.EmulatorHost+"/storage/v1/"))
	} else {
		opts = append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	log = log.With("service", "MaterialStore")
	log.Info("Material storage initialized", "mode", cfg.Mode, "bucket", cfg.Bucket, "emulator_host", cfg.EmulatorHost)
	return &materialStore{log: log, cfg: cfg, client: client, httpc: &http.Client{Timeout: 2 * time.Minute}}, nil
}

func (s *materialStore) Upload(dbc dbctx.Context, key, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(dbc.Ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer %s: %w", key, err)
	}
	return nil
}

// Read returns the whole object, refusing anything above the configured cap.
func (s *materialStore) Read(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var rc io.ReadCloser
	if s.cfg.Mode == ModeEmulator {
		body, err := s.emulatorMedia(ctx, key)
		if err != nil {
			return nil, err
		}
		rc = body
	} else {
		r, err := s.client.Bucket(s.cfg.Bucket).Object(key).NewReader(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		if err != nil {
			return nil, fmt.Errorf("open reader %s: %w", key, err)
		}
		rc = r
	}
	defer rc.Close()
	return readCapped(rc, s.cfg.maxBytes())
}

// emulatorMedia goes straight to the JSON API media endpoint; fake-gcs-server
// handles that more reliably than the client's XML reads.
func (s *materialStore) emulatorMedia(ctx context.Context, key string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", s.cfg.EmulatorHost, url.PathEscape(s.cfg.Bucket), url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("emulator download %s: %w", key, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("emulator download %s: status=%d body=%s", key, resp.StatusCode, strings.TrimSpace(string(b)))
	}
}

func readCapped(r io.Reader, max int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > max {
		return nil, ErrObjectTooLarge
	}
	return b, nil
}
