// Package service contains the audit recorder sitting between handlers and
// the audit trail collaborators (document store + message broker).
package service

import (
	"context"
	"log"
	"time"

	"github.com/streamverse/catalog-api/internal/model"
	"github.com/streamverse/catalog-api/internal/queue"
)

// AuditStore is the write contract of the audit trail.
type AuditStore interface {
	Insert(ctx context.Context, e model.AuditEntry) error
}

// Recorder writes audit entries and fans them out to the message broker.
// Both writes are best-effort from the caller's point of view: an admin
// operation that already succeeded is never failed retroactively because
// its audit entry could not be stored, but every failure is logged loudly.
type Recorder struct {
	store     AuditStore
	queueName string
}

func NewRecorder(store AuditStore, queueName string) *Recorder {
	if queueName == "" {
		queueName = queue.AdminActionQueue
	}
	return &Recorder{store: store, queueName: queueName}
}

// Record appends an audit entry for an admin action and publishes the
// matching event to RabbitMQ.
func (r *Recorder) Record(ctx context.Context, admin, action, target string, details map[string]string) {
	now := time.Now().UTC()
	entry := model.AuditEntry{
		Admin:      admin,
		Action:     action,
		TargetUser: target,
		Details:    details,
		Timestamp:  now,
	}
	if err := r.store.Insert(ctx, entry); err != nil {
		log.Printf("audit: insert failed for admin=%s action=%s target=%s: %v", admin, action, target, err)
	}

	ev := queue.AdminActionEvent{
		Admin:      admin,
		Action:     action,
		TargetUser: target,
		Details:    details,
		Timestamp:  now.Format(time.RFC3339),
	}
	if err := publishAdminAction(ctx, r.queueName, ev); err != nil {
		log.Printf("audit: publish failed for admin=%s action=%s: %v", admin, action, err)
	}
}
