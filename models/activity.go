package models

import "time"

type QueueAction string

const (
	ActionJoined       QueueAction = "joined"
	ActionLeft         QueueAction = "left"
	ActionForceAdded   QueueAction = "force_added"
	ActionForceRemoved QueueAction = "force_removed"
	ActionCleared      QueueAction = "cleared"
)

// QueueActivity is one audit row of queue membership changes,
// staff-visible through the activity endpoint.
type QueueActivity struct {
	ID        int         `json:"id"`
	TenantID  int         `json:"tenant_id"`
	QueueName string      `json:"queue_name"`
	UserID    int         `json:"user_id"`
	Action    QueueAction `json:"action"`
	CreatedAt time.Time   `json:"created_at"`
}
