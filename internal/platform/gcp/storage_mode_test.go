package gcp

import (
	"errors"
	"testing"
)

func TestNormalizeObjectStorageConfigDefaultGCS(t *testing.T) {
	cfg, err := NormalizeObjectStorageConfig("", ObjectStorageConfig{Bucket: "wg-artifacts"})
	if err != nil {
		t.Fatalf("NormalizeObjectStorageConfig: %v", err)
	}
	if cfg.Mode != ObjectStorageModeGCS {
		t.Fatalf("mode: want=%q got=%q", ObjectStorageModeGCS, cfg.Mode)
	}
	if got, want := publicBaseURL(cfg), "https://storage.googleapis.com/wg-artifacts"; got != want {
		t.Fatalf("base url: want=%q got=%q", want, got)
	}
}

func TestNormalizeObjectStorageConfigEmulatorFallback(t *testing.T) {
	cfg, err := NormalizeObjectStorageConfig("", ObjectStorageConfig{
		Bucket:       "wg-artifacts",
		EmulatorHost: "http://fake-gcs:4443/",
	})
	if err != nil {
		t.Fatalf("NormalizeObjectStorageConfig: %v", err)
	}
	if cfg.Mode != ObjectStorageModeGCSEmulator {
		t.Fatalf("mode: want=%q got=%q", ObjectStorageModeGCSEmulator, cfg.Mode)
	}
	if got, want := publicBaseURL(cfg), "http://fake-gcs:4443/storage/v1/b/wg-artifacts/o"; got != want {
		t.Fatalf("base url: want=%q got=%q", want, got)
	}
}

func TestNormalizeObjectStorageConfigErrors(t *testing.T) {
	cases := []struct {
		name    string
		rawMode string
		cfg     ObjectStorageConfig
		want    error
	}{
		{"invalid mode", "local", ObjectStorageConfig{Bucket: "b"}, ErrInvalidStorageMode},
		{"missing bucket", "gcs", ObjectStorageConfig{}, ErrMissingBucket},
		{"missing emulator host", "gcs_emulator", ObjectStorageConfig{Bucket: "b"}, ErrMissingEmulatorHost},
		{"invalid emulator host", "gcs_emulator", ObjectStorageConfig{Bucket: "b", EmulatorHost: "fake-gcs:4443"}, ErrInvalidEmulatorHost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeObjectStorageConfig(tc.rawMode, tc.cfg)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want=%v got=%v", tc.want, err)
			}
		})
	}
}

func TestPublicURL(t *testing.T) {
	b := &ArtifactBucket{cfg: ObjectStorageConfig{Mode: ObjectStorageModeGCS, Bucket: "wg"}}
	b.baseURL = publicBaseURL(b.cfg)
	if got, want := b.PublicURL("artifacts/x.csv"), "https://storage.googleapis.com/wg/artifacts/x.csv"; got != want {
		t.Fatalf("gcs: want=%q got=%q", want, got)
	}

	b = &ArtifactBucket{cfg: ObjectStorageConfig{Mode: ObjectStorageModeGCSEmulator, Bucket: "wg", EmulatorHost: "http://fake-gcs:4443"}}
	b.baseURL = publicBaseURL(b.cfg)
	if got, want := b.PublicURL("artifacts/x.csv"), "http://fake-gcs:4443/storage/v1/b/wg/o/artifacts%2Fx.csv?alt=media"; got != want {
		t.Fatalf("emulator: want=%q got=%q", want, got)
	}
}
