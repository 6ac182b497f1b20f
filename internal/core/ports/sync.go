package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// SyncDispatcher accepts best-effort propagation jobs. Enqueue never blocks;
// it reports false when the job was dropped.
type SyncDispatcher interface {
	Enqueue(job domain.SyncJob) bool
}

// SyncProcessor delivers a single job to its collaborator.
type SyncProcessor interface {
	Process(ctx context.Context, job domain.SyncJob) error
}

// SyncFailureLog keeps failed jobs around for operator reconciliation.
type SyncFailureLog interface {
	Record(ctx context.Context, failure domain.SyncFailure) error
	List(ctx context.Context, limit int64) ([]domain.SyncFailure, error)
}
