package gcp

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

type Mode string

const (
	ModeGCS      Mode = "gcs"
	ModeEmulator Mode = "gcs_emulator"
)

// StoreConfig selects the material bucket and how to reach it.
type StoreConfig struct {
	Bucket       string
	Mode         Mode
	EmulatorHost string
	// MaxObjectBytes caps a single download; zero means DefaultMaxObjectBytes.
	MaxObjectBytes int64
}

const DefaultMaxObjectBytes int64 = 50 << 20

type ConfigError struct {
	Field string
	Value string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("material storage: %s is required", e.Field)
	}
	return fmt.Sprintf("material storage: invalid %s=%q", e.Field, e.Value)
}

// StoreConfigFromEnv reads MATERIAL_GCS_BUCKET_NAME, OBJECT_STORAGE_MODE and
// STORAGE_EMULATOR_HOST. An emulator host with no explicit mode selects the emulator.
func StoreConfigFromEnv() (StoreConfig, error) {
	cfg := StoreConfig{
		Bucket:       strings.TrimSpace(os.Getenv("MATERIAL_GCS_BUCKET_NAME")),
		EmulatorHost: strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/"),
	}
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("OBJECT_STORAGE_MODE")))
	switch Mode(raw) {
	case "":
		cfg.Mode = ModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = ModeEmulator
		}
	case ModeGCS, ModeEmulator:
		cfg.Mode = Mode(raw)
	default:
		return cfg, &ConfigError{Field: "OBJECT_STORAGE_MODE", Value: raw}
	}
	return cfg, cfg.Validate()
}

func (c StoreConfig) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "MATERIAL_GCS_BUCKET_NAME"}
	}
	switch c.Mode {
	case ModeGCS:
		return nil
	case ModeEmulator:
		if c.EmulatorHost == "" {
			return &ConfigError{Field: "STORAGE_EMULATOR_HOST"}
		}
		u, err := url.Parse(c.EmulatorHost)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ConfigError{Field: "STORAGE_EMULATOR_HOST", Value: c.EmulatorHost}
		}
		return nil
	default:
		return &ConfigError{Field: "OBJECT_STORAGE_MODE", Value: string(c.Mode)}
	}
}

func (c StoreConfig) maxBytes() int64 {
	if c.MaxObjectBytes > 0 {
		return c.MaxObjectBytes
	}
	return DefaultMaxObjectBytes
}
