package model

import (
	"time"
)

// UsageAction identifies what happened to a code.
type UsageAction string

const (
	ActionGenerated UsageAction = "generated"
	ActionUsed      UsageAction = "used"
	ActionExpired   UsageAction = "expired"
	ActionRevoked   UsageAction = "revoked"
)

// UsageLog is one append-only audit record. Rows are never mutated.
type UsageLog struct {
	ID        int64       `db:"id" json:"id"`
	Code      string      `db:"code" json:"code"`
	Action    UsageAction `db:"action" json:"action"`
	Details   string      `db:"details" json:"details"`
	IP        *string     `db:"ip" json:"ip,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// AppendUsageLogParams contains parameters for appending an audit entry.
type AppendUsageLogParams struct {
	Code    string
	Action  UsageAction
	Details string
	IP      *string
}
