package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBalanceSnapshot refreshes materialised balances for one company.
	TaskBalanceSnapshot = "balances:snapshot"
	// TaskBalanceSnapshotAll refreshes materialised balances for every company.
	TaskBalanceSnapshotAll = "balances:snapshot:all"
)

// BalanceSnapshotPayload identifies the company to refresh.
type BalanceSnapshotPayload struct {
	CompanyID int64 `json:"company_id"`
}

// NewBalanceSnapshotTask constructs the per-company refresh task.
func NewBalanceSnapshotTask(payload BalanceSnapshotPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceSnapshot, data), nil
}

// NewBalanceSnapshotAllTask constructs the full sweep task used by cron.
func NewBalanceSnapshotAllTask() *asynq.Task {
	return asynq.NewTask(TaskBalanceSnapshotAll, nil)
}
