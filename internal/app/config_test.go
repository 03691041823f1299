package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

func TestConfigFileSeedsUnsetEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "HTTP_ADDR: \":9090\"\nDB_DRIVER: sqlite\nMAX_PDF_PAGES: 7\nAUTH_JWT_SECRET: from-file\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DB_DRIVER", "postgres")
	// Registered with t.Setenv so the values seeded below are restored.
	t.Setenv("HTTP_ADDR", "")
	os.Unsetenv("HTTP_ADDR")
	t.Setenv("MAX_PDF_PAGES", "")
	os.Unsetenv("MAX_PDF_PAGES")
	t.Setenv("AUTH_JWT_SECRET", "")
	os.Unsetenv("AUTH_JWT_SECRET")

	if err := ApplyConfigFile(path); err != nil {
		t.Fatalf("ApplyConfigFile: %v", err)
	}
	cfg, err := LoadConfig(logger.Nop())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.MaxPDFPages != 7 || cfg.AuthSecret != "from-file" {
		t.Fatalf("file values: got addr=%q pages=%d", cfg.HTTPAddr, cfg.MaxPDFPages)
	}
	if cfg.DB.Driver != "postgres" {
		t.Fatalf("env wins: want=postgres got=%q", cfg.DB.Driver)
	}
}

func TestLoadConfigRequiresAuthSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	if _, err := LoadConfig(logger.Nop()); err == nil {
		t.Fatalf("LoadConfig: want error without AUTH_JWT_SECRET")
	}
}
