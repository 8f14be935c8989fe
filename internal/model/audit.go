package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// AuditEntry is an append-only record in the `audit_logs` collection.
// One entry is written for every state-changing admin operation.
type AuditEntry struct {
	ID         bson.ObjectID     `bson:"_id,omitempty" json:"id"`
	Admin      string            `bson:"admin" json:"admin"`
	Action     string            `bson:"action" json:"action"`
	TargetUser string            `bson:"target_user" json:"target_user"`
	Details    map[string]string `bson:"details,omitempty" json:"details,omitempty"`
	Timestamp  time.Time         `bson:"timestamp" json:"timestamp"`
}

// SystemTarget marks audit entries whose target is the system itself rather
// than a specific user account (e.g. listing all users).
const SystemTarget = "system"
