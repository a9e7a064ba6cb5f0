// Package config assembles runtime settings. Values come from an optional YAML
// file (WIKIGRAPH_CONFIG), then the process environment, which may itself be
// seeded from a .env file. Environment always wins.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/wikigraph-backend/internal/platform/envutil"
)

const configFileEnv = "WIKIGRAPH_CONFIG"

type Config struct {
	LogMode string `yaml:"log_mode"`
	DataDir string `yaml:"data_dir"`

	Dumps     DumpsConfig     `yaml:"dumps"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Neo4j     Neo4jConfig     `yaml:"neo4j"`
	Transport TransportConfig `yaml:"transport"`
	Runs      RunsConfig      `yaml:"runs"`
	HTTP      HTTPConfig      `yaml:"http"`
	Temporal  TemporalConfig  `yaml:"temporal"`
	Otel      OtelConfig      `yaml:"otel"`
}

type DumpsConfig struct {
	BaseURL             string `yaml:"base_url"`
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
	Retain              int    `yaml:"retain"`
}

type LedgerConfig struct {
	Backend     string `yaml:"backend"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type Neo4jConfig struct {
	URI            string `yaml:"uri"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Database       string `yaml:"database"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxPoolSize    int    `yaml:"max_pool_size"`
	LoadMode       string `yaml:"load_mode"`
	BatchSize      int    `yaml:"batch_size"`
}

type TransportConfig struct {
	Kind              string `yaml:"kind"`
	ImportDir         string `yaml:"import_dir"`
	Bucket            string `yaml:"bucket"`
	Prefix            string `yaml:"prefix"`
	ObjectStorageMode string `yaml:"object_storage_mode"`
	EmulatorHost      string `yaml:"emulator_host"`
	PublicBaseURL     string `yaml:"public_base_url"`
}

type RunsConfig struct {
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresName     string `yaml:"postgres_name"`
	SQLitePath       string `yaml:"sqlite_path"`
}

type HTTPConfig struct {
	Port string `yaml:"port"`
	// AllowOrigins is a comma-separated CORS allow list.
	AllowOrigins string `yaml:"allow_origins"`
	// AdminJWTSecret signs HS256 admin tokens; empty refuses POST /api/runs.
	AdminJWTSecret string `yaml:"admin_jwt_secret"`
}

type TemporalConfig struct {
	Address                string `yaml:"address"`
	Namespace              string `yaml:"namespace"`
	TaskQueue              string `yaml:"task_queue"`
	Cron                   string `yaml:"cron"`
	WorkflowID             string `yaml:"workflow_id"`
	ActivityTimeoutMinutes int    `yaml:"activity_timeout_minutes"`
	AutoRegisterNamespace  bool   `yaml:"auto_register_namespace"`
	NamespaceRetentionDays int    `yaml:"namespace_retention_days"`
	DialTimeoutSeconds     int    `yaml:"dial_timeout_seconds"`
	DialMaxWaitSeconds     int    `yaml:"dial_max_wait_seconds"`
	ClientCertPath         string `yaml:"client_cert_path"`
	ClientKeyPath          string `yaml:"client_key_path"`
	ClientCAPath           string `yaml:"client_ca_path"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	Environment string  `yaml:"environment"`
}

func Defaults() Config {
	return Config{
		LogMode: "development",
		DataDir: "data",
		Dumps: DumpsConfig{
			BaseURL:             "https://dumps.wikimedia.org/enwiki/latest/",
			FetchTimeoutSeconds: 0,
			Retain:              2,
		},
		Ledger: LedgerConfig{Backend: "file", RedisPrefix: "wikigraph"},
		Neo4j: Neo4jConfig{
			User:           "neo4j",
			TimeoutSeconds: 10,
			MaxPoolSize:    50,
			LoadMode:       "load_csv",
			BatchSize:      10000,
		},
		Transport: TransportConfig{
			Kind:      "local",
			ImportDir: "/var/lib/neo4j/import",
			Prefix:    "artifacts",
		},
		Runs: RunsConfig{
			PostgresPort: "5432",
			PostgresUser: "postgres",
			PostgresName: "wikigraph",
		},
		HTTP: HTTPConfig{
			Port:         "8080",
			AllowOrigins: "http://localhost:3000,http://127.0.0.1:3000",
		},
		Temporal: TemporalConfig{
			Namespace:              "wikigraph",
			TaskQueue:              "wikigraph",
			Cron:                   "0 3 * * *",
			WorkflowID:             "wikigraph-ingest-dumps",
			ActivityTimeoutMinutes: 360,
			NamespaceRetentionDays: 7,
			DialTimeoutSeconds:     5,
			DialMaxWaitSeconds:     60,
		},
		Otel: OtelConfig{SampleRatio: 1, Environment: "development"},
	}
}

// Load reads .env (if present), the YAML file named by WIKIGRAPH_CONFIG (if
// set), then applies environment overrides.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv(configFileEnv)); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.LogMode = envutil.String("LOG_MODE", c.LogMode)
	c.DataDir = envutil.String("DATA_DIR", c.DataDir)

	c.Dumps.BaseURL = envutil.String("DUMPS_BASE_URL", c.Dumps.BaseURL)
	c.Dumps.FetchTimeoutSeconds = envutil.Int("FETCH_TIMEOUT_SECONDS", c.Dumps.FetchTimeoutSeconds)
	c.Dumps.Retain = envutil.Int("RETAIN_DUMPS", c.Dumps.Retain)

	c.Ledger.Backend = envutil.String("LEDGER_BACKEND", c.Ledger.Backend)
	c.Ledger.RedisAddr = envutil.String("REDIS_ADDR", c.Ledger.RedisAddr)
	c.Ledger.RedisPrefix = envutil.String("REDIS_PREFIX", c.Ledger.RedisPrefix)

	c.Neo4j.URI = envutil.String("NEO4J_URI", c.Neo4j.URI)
	c.Neo4j.User = envutil.String("NEO4J_USER", c.Neo4j.User)
	c.Neo4j.Password = envutil.String("NEO4J_PASSWORD", c.Neo4j.Password)
	c.Neo4j.Database = envutil.String("NEO4J_DATABASE", c.Neo4j.Database)
	c.Neo4j.TimeoutSeconds = envutil.Int("NEO4J_TIMEOUT_SECONDS", c.Neo4j.TimeoutSeconds)
	c.Neo4j.MaxPoolSize = envutil.Int("NEO4J_MAX_POOL_SIZE", c.Neo4j.MaxPoolSize)
	c.Neo4j.LoadMode = envutil.String("NEO4J_LOAD_MODE", c.Neo4j.LoadMode)
	c.Neo4j.BatchSize = envutil.Int("NEO4J_BATCH_SIZE", c.Neo4j.BatchSize)

	c.Transport.Kind = envutil.String("STORE_TRANSPORT", c.Transport.Kind)
	c.Transport.ImportDir = envutil.String("NEO4J_IMPORT_DIR", c.Transport.ImportDir)
	c.Transport.Bucket = envutil.String("GCS_ARTIFACT_BUCKET", c.Transport.Bucket)
	c.Transport.Prefix = envutil.String("GCS_ARTIFACT_PREFIX", c.Transport.Prefix)
	c.Transport.ObjectStorageMode = envutil.String("OBJECT_STORAGE_MODE", c.Transport.ObjectStorageMode)
	c.Transport.EmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", c.Transport.EmulatorHost)
	c.Transport.PublicBaseURL = envutil.String("GCS_PUBLIC_BASE_URL", c.Transport.PublicBaseURL)

	c.Runs.PostgresHost = envutil.String("POSTGRES_HOST", c.Runs.PostgresHost)
	c.Runs.PostgresPort = envutil.String("POSTGRES_PORT", c.Runs.PostgresPort)
	c.Runs.PostgresUser = envutil.String("POSTGRES_USER", c.Runs.PostgresUser)
	c.Runs.PostgresPassword = envutil.String("POSTGRES_PASSWORD", c.Runs.PostgresPassword)
	c.Runs.PostgresName = envutil.String("POSTGRES_NAME", c.Runs.PostgresName)
	c.Runs.SQLitePath = envutil.String("RUNS_SQLITE_PATH", c.Runs.SQLitePath)

	c.HTTP.Port = envutil.String("PORT", c.HTTP.Port)
	c.HTTP.AllowOrigins = envutil.String("CORS_ALLOW_ORIGINS", c.HTTP.AllowOrigins)
	c.HTTP.AdminJWTSecret = envutil.String("ADMIN_JWT_SECRET", c.HTTP.AdminJWTSecret)

	c.Temporal.Address = envutil.String("TEMPORAL_ADDRESS", c.Temporal.Address)
	c.Temporal.Namespace = envutil.String("TEMPORAL_NAMESPACE", c.Temporal.Namespace)
	c.Temporal.TaskQueue = envutil.String("TEMPORAL_TASK_QUEUE", c.Temporal.TaskQueue)
	c.Temporal.Cron = envutil.String("INGEST_CRON", c.Temporal.Cron)
	c.Temporal.WorkflowID = envutil.String("TEMPORAL_WORKFLOW_ID", c.Temporal.WorkflowID)
	c.Temporal.ActivityTimeoutMinutes = envutil.Int("TEMPORAL_ACTIVITY_TIMEOUT_MINUTES", c.Temporal.ActivityTimeoutMinutes)
	c.Temporal.AutoRegisterNamespace = envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", c.Temporal.AutoRegisterNamespace)
	c.Temporal.NamespaceRetentionDays = envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", c.Temporal.NamespaceRetentionDays)
	c.Temporal.DialTimeoutSeconds = envutil.Int("TEMPORAL_DIAL_TIMEOUT_SECONDS", c.Temporal.DialTimeoutSeconds)
	c.Temporal.DialMaxWaitSeconds = envutil.Int("TEMPORAL_DIAL_MAX_WAIT_SECONDS", c.Temporal.DialMaxWaitSeconds)
	c.Temporal.ClientCertPath = envutil.String("TEMPORAL_CLIENT_CERT_PATH", c.Temporal.ClientCertPath)
	c.Temporal.ClientKeyPath = envutil.String("TEMPORAL_CLIENT_KEY_PATH", c.Temporal.ClientKeyPath)
	c.Temporal.ClientCAPath = envutil.String("TEMPORAL_CLIENT_CA_PATH", c.Temporal.ClientCAPath)

	c.Otel.Enabled = envutil.Bool("OTEL_ENABLED", c.Otel.Enabled)
	c.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", c.Otel.Endpoint)
	c.Otel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", c.Otel.Headers)
	c.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", c.Otel.Insecure)
	c.Otel.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", c.Otel.SampleRatio)
	c.Otel.Environment = envutil.String("APP_ENV", c.Otel.Environment)
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Ledger.Backend) {
	case "file":
	case "redis":
		if strings.TrimSpace(c.Ledger.RedisAddr) == "" {
			return fmt.Errorf("config: LEDGER_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown LEDGER_BACKEND %q", c.Ledger.Backend)
	}
	switch strings.ToLower(c.Transport.Kind) {
	case "local", "gcs":
	default:
		return fmt.Errorf("config: unknown STORE_TRANSPORT %q", c.Transport.Kind)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DATA_DIR must not be empty")
	}
	return nil
}

func (c Config) DumpsDir() string     { return filepath.Join(c.DataDir, "dumps") }
func (c Config) SQLDir() string       { return filepath.Join(c.DataDir, "sql") }
func (c Config) ArtifactsDir() string { return filepath.Join(c.DataDir, "artifacts") }

// SQLitePath defaults to runs.db inside the data directory.
func (c Config) SQLitePath() string {
	if p := strings.TrimSpace(c.Runs.SQLitePath); p != "" {
		return p
	}
	return filepath.Join(c.DataDir, "runs.db")
}
