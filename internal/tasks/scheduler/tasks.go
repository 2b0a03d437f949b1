// Package scheduler triggers queue processing through asynq. The
// Postgres tasks table stays the source of truth; asynq only carries
// the "run a pass now" signals so API pods never process batches
// in-request.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TaskProcessBatch = "queue:process_batch"
	TaskCleanup      = "queue:cleanup"
)

type processBatchPayload struct {
	Reason string `json:"reason"`
}

// NewProcessBatchTask creates the trigger for one processing pass.
// Reason distinguishes interval ticks from on-demand API triggers in
// the asynq dashboard.
func NewProcessBatchTask(reason string) (*asynq.Task, error) {
	payload, err := json.Marshal(processBatchPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProcessBatch, payload), nil
}

// ParseProcessBatchReason extracts the trigger reason.
func ParseProcessBatchReason(t *asynq.Task) string {
	var payload processBatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return "unknown"
	}
	return payload.Reason
}

// NewCleanupTask creates the trigger for the retention sweep.
func NewCleanupTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskCleanup, nil), nil
}
