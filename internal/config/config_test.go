package config

import (
	"os"
	"path/filepath"
	"testing"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv(configFileEnv, "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dumps.Retain != 2 || cfg.Neo4j.LoadMode != "load_csv" || cfg.Temporal.Cron != "0 3 * * *" {
		t.Fatalf("defaults: got=%+v", cfg)
	}
	if cfg.SQLitePath() != filepath.Join("data", "runs.db") {
		t.Fatalf("SQLitePath: got=%q", cfg.SQLitePath())
	}
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "wikigraph.yaml")
	body := []byte(`
data_dir: /srv/wikigraph
dumps:
  retain: 4
neo4j:
  uri: bolt://yaml:7687
  batch_size: 500
transport:
  kind: gcs
  bucket: from-yaml
http:
  admin_jwt_secret: yaml-secret
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(configFileEnv, path)
	t.Setenv("NEO4J_URI", "bolt://env:7687")
	t.Setenv("RETAIN_DUMPS", "")
	t.Setenv("ADMIN_JWT_SECRET", "env-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/srv/wikigraph" || cfg.Dumps.Retain != 4 || cfg.Neo4j.BatchSize != 500 {
		t.Fatalf("yaml values: got=%+v", cfg)
	}
	if cfg.Neo4j.URI != "bolt://env:7687" {
		t.Fatalf("env override: want=bolt://env:7687 got=%q", cfg.Neo4j.URI)
	}
	if cfg.HTTP.AdminJWTSecret != "env-secret" {
		t.Fatalf("admin secret: want=env-secret got=%q", cfg.HTTP.AdminJWTSecret)
	}
	if cfg.Transport.Bucket != "from-yaml" || cfg.ArtifactsDir() != "/srv/wikigraph/artifacts" {
		t.Fatalf("transport/dirs: got=%+v %q", cfg.Transport, cfg.ArtifactsDir())
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("INGEST_CRON=15 2 * * *\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(configFileEnv, "")
	// godotenv never overrides variables that are already set, so make sure it is not.
	t.Setenv("INGEST_CRON", "")
	_ = os.Unsetenv("INGEST_CRON")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Temporal.Cron != "15 2 * * *" {
		t.Fatalf("cron: want=%q got=%q", "15 2 * * *", cfg.Temporal.Cron)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown ledger", func(c *Config) { c.Ledger.Backend = "etcd" }},
		{"redis without addr", func(c *Config) { c.Ledger.Backend = "redis" }},
		{"unknown transport", func(c *Config) { c.Transport.Kind = "ftp" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
	}
	for _, tc := range cases {
		cfg := Defaults()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
