package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/agrilink-erp/agrilink/internal/upstream"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPayoutRefresh rebuilds the payout cache for one entity type.
	TaskPayoutRefresh = "payout:refresh"
	// TaskNotificationPrune removes stale read notifications upstream.
	TaskNotificationPrune = "notification:prune"
)

// PayoutRefreshPayload scopes a cache warmup run to a single ledger slice.
type PayoutRefreshPayload struct {
	Ledger   upstream.Ledger     `json:"ledger"`
	Type     upstream.EntityType `json:"type"`
	EntityID string              `json:"entity_id,omitempty"`
}

// NewPayoutRefreshTask constructs an Asynq task for a refresh run.
func NewPayoutRefreshTask(payload PayoutRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPayoutRefresh, data), nil
}

// NotificationPrunePayload bounds how old a read notification must be before
// the prune run deletes it.
type NotificationPrunePayload struct {
	MaxAgeDays int `json:"max_age_days"`
}

// NewNotificationPruneTask constructs an Asynq task for a prune run.
func NewNotificationPruneTask(payload NotificationPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationPrune, data), nil
}
