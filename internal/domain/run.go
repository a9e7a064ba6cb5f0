package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunStatusRunning   = "running"
	RunStatusSkipped   = "skipped"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// PipelineRun is the persisted history entry for one pipeline invocation.
type PipelineRun struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Trigger string    `gorm:"column:trigger_source;not null" json:"trigger"`
	Status  string    `gorm:"column:status;not null;index" json:"status"`
	Stage   string    `gorm:"column:stage" json:"stage"`

	PageVersion      string `gorm:"column:page_version" json:"page_version"`
	PagelinksVersion string `gorm:"column:pagelinks_version" json:"pagelinks_version"`

	PagesParsed    int64 `gorm:"column:pages_parsed" json:"pages_parsed"`
	LinksParsed    int64 `gorm:"column:links_parsed" json:"links_parsed"`
	ParseAnomalies int64 `gorm:"column:parse_anomalies" json:"parse_anomalies"`
	EdgesResolved  int64 `gorm:"column:edges_resolved" json:"edges_resolved"`
	EdgesDropped   int64 `gorm:"column:edges_dropped" json:"edges_dropped"`

	NodesCreated         int64 `gorm:"column:nodes_created" json:"nodes_created"`
	RelationshipsCreated int64 `gorm:"column:relationships_created" json:"relationships_created"`

	ArtifactPath string         `gorm:"column:artifact_path" json:"artifact_path"`
	Details      datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
	Error        string         `gorm:"column:error" json:"error,omitempty"`

	StartedAt  time.Time  `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

func (PipelineRun) TableName() string { return "pipeline_run" }

// SetVersion records the version processed for a dump kind.
func (r *PipelineRun) SetVersion(kind DumpKind, v DumpVersion) {
	switch kind {
	case DumpKindPage:
		r.PageVersion = v
	case DumpKindPagelinks:
		r.PagelinksVersion = v
	}
}

// RunDetails is the free-form part of a run, stored as JSON.
type RunDetails struct {
	StageMillis  map[string]int64 `json:"stage_ms,omitempty"`
	FetchedBytes map[string]int64 `json:"fetched_bytes,omitempty"`
	Reused       []string         `json:"reused,omitempty"`
	Pruned       []string         `json:"pruned,omitempty"`
}

func DecodeRunDetails(raw datatypes.JSON) RunDetails {
	var d RunDetails
	if len(raw) == 0 {
		return d
	}
	_ = json.Unmarshal(raw, &d)
	return d
}

func EncodeRunDetails(d RunDetails) datatypes.JSON {
	b, err := json.Marshal(d)
	if err != nil {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON(b)
}
