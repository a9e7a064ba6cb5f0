package temporalx

import "time"

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace  bool
	NamespaceRetentionDays int
	DialTimeout            time.Duration
	DialMaxWait            time.Duration

	// Schedule
	WorkflowID      string
	CronSchedule    string
	ActivityTimeout time.Duration
}

func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) WithDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = "wikigraph"
	}
	if c.TaskQueue == "" {
		c.TaskQueue = "wikigraph"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.NamespaceRetentionDays < 1 {
		c.NamespaceRetentionDays = 7
	}
	if c.NamespaceRetentionDays > 365 {
		c.NamespaceRetentionDays = 365
	}
	if c.WorkflowID == "" {
		c.WorkflowID = "wikigraph-ingest-dumps"
	}
	if c.CronSchedule == "" {
		c.CronSchedule = "0 3 * * *"
	}
	if c.ActivityTimeout <= 0 {
		c.ActivityTimeout = 6 * time.Hour
	}
	return c
}
