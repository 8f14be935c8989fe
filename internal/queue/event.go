// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// AdminActionEvent is published whenever an admin action is recorded in the
// audit trail. It mirrors the stored audit entry so downstream consumers can
// log or alert without querying the primary database.
type AdminActionEvent struct {
	Admin      string            `json:"admin"`
	Action     string            `json:"action"`
	TargetUser string            `json:"target_user"`
	Details    map[string]string `json:"details,omitempty"`
	Timestamp  string            `json:"timestamp"`
}

// AdminActionQueue is the default durable queue name for admin-action events.
const AdminActionQueue = "audit.admin_action"
