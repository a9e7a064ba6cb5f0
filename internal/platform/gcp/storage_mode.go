package gcp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

var (
	ErrInvalidStorageMode  = errors.New("gcp: invalid OBJECT_STORAGE_MODE")
	ErrMissingBucket       = errors.New("gcp: GCS_ARTIFACT_BUCKET is required")
	ErrMissingEmulatorHost = errors.New("gcp: gcs_emulator mode requires STORAGE_EMULATOR_HOST")
	ErrInvalidEmulatorHost = errors.New("gcp: STORAGE_EMULATOR_HOST must be an absolute URL")
)

type ObjectStorageConfig struct {
	Mode         ObjectStorageMode
	EmulatorHost string
	Bucket       string
	// PublicBaseURL overrides the URL prefix handed to the graph store.
	PublicBaseURL string
}

func (cfg ObjectStorageConfig) IsEmulatorMode() bool {
	return cfg.Mode == ObjectStorageModeGCSEmulator
}

// NormalizeObjectStorageConfig resolves the mode from its raw setting and
// validates the result. An empty mode is gcs, or gcs_emulator when an
// emulator host is set.
func NormalizeObjectStorageConfig(rawMode string, cfg ObjectStorageConfig) (ObjectStorageConfig, error) {
	cfg.EmulatorHost = strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	cfg.Mode = ObjectStorageMode(strings.ToLower(strings.TrimSpace(rawMode)))
	if cfg.Mode == "" {
		cfg.Mode = ObjectStorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
		}
	}
	return cfg, ValidateObjectStorageConfig(cfg)
}

func ValidateObjectStorageConfig(cfg ObjectStorageConfig) error {
	switch cfg.Mode {
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidStorageMode, cfg.Mode, ObjectStorageModeGCS, ObjectStorageModeGCSEmulator)
	}
	if cfg.Bucket == "" {
		return ErrMissingBucket
	}
	if !cfg.IsEmulatorMode() {
		return nil
	}
	if cfg.EmulatorHost == "" {
		return ErrMissingEmulatorHost
	}
	if u, err := url.Parse(cfg.EmulatorHost); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidEmulatorHost, cfg.EmulatorHost)
	}
	return nil
}

// publicBaseURL is the prefix under which uploaded objects are readable.
func publicBaseURL(cfg ObjectStorageConfig) string {
	if base := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"); base != "" {
		return base
	}
	if cfg.IsEmulatorMode() {
		return cfg.EmulatorHost + "/storage/v1/b/" + cfg.Bucket + "/o"
	}
	return "https://storage.googleapis.com/" + cfg.Bucket
}
