package ingest

const (
	WorkflowName        = "ingest_dumps"
	ActivityRunPipeline = "run_pipeline"
)

type Input struct {
	Trigger string `json:"trigger"`
}

type Result struct {
	RunID         string `json:"run_id,omitempty"`
	Status        string `json:"status"`
	Stage         string `json:"stage,omitempty"`
	EdgesResolved int64  `json:"edges_resolved,omitempty"`
	Message       string `json:"message,omitempty"`
}

// StatusBusy means another run held the pipeline when the activity fired.
const StatusBusy = "busy"
