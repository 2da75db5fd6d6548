package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity runs the ledger integrity scan.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskReportWarmup precomputes reports into the cache.
	TaskReportWarmup = "reports:warmup"
)

// IntegrityScanPayload scopes an integrity scan. EntityID zero scans every
// entity.
type IntegrityScanPayload struct {
	EntityID int64  `json:"entity_id"`
	AsOf     string `json:"as_of"`
}

// NewLedgerIntegrityTask constructs an integrity scan task.
func NewLedgerIntegrityTask(payload IntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// WarmupPayload scopes a report warmup run.
type WarmupPayload struct {
	AsOf string `json:"as_of"`
}

// NewReportWarmupTask constructs a report warmup task.
func NewReportWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}
