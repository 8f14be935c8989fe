package handler

import (
	"context"
	"time"

	"github.com/streamverse/catalog-api/internal/model"
	"github.com/streamverse/catalog-api/internal/repository"
)

// Store contracts consumed by the handlers. The Mongo repositories satisfy
// them in production; tests substitute in-memory fakes.

type UserStore interface {
	Create(ctx context.Context, u model.User) error
	GetByUsername(ctx context.Context, username string) (model.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	List(ctx context.Context, pageNum, pageSize int, status, sortBy string, asc bool) ([]model.User, int64, int64, error)
	UpdateDetails(ctx context.Context, username string, fields map[string]any) error
	SetActiveStatus(ctx context.Context, username string, active bool, reason string) error
	ResetPassword(ctx context.Context, username, digest string) error
	Delete(ctx context.Context, username string) error
}

type BlacklistStore interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Insert(ctx context.Context, e model.RevocationEntry) error
	PruneExpired(ctx context.Context) (int64, error)
}

type AuditReader interface {
	List(ctx context.Context, pageNum, pageSize int) ([]model.AuditEntry, int64, error)
	GetByID(ctx context.Context, id string) (model.AuditEntry, error)
	Stats(ctx context.Context) ([]repository.AdminActivity, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRecorder is the write side of the audit trail; recording never fails
// the admin operation it documents.
type AuditRecorder interface {
	Record(ctx context.Context, admin, action, target string, details map[string]string)
}
