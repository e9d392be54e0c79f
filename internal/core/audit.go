package core

import (
	"context"

	"docvault/internal/model"
)

// AuditSink receives structured events from the orchestrator and the
// permission evaluator. Emission is fire-and-forget: a sink failure never
// fails the operation that produced the event.
type AuditSink interface {
	Record(ctx context.Context, e *model.AuditEntry)
}

// RepositoryAuditSink appends entries to the metadata store.
type RepositoryAuditSink struct {
	repo   Repository
	logger Logger
}

func NewRepositoryAuditSink(repo Repository, logger Logger) *RepositoryAuditSink {
	return &RepositoryAuditSink{repo: repo, logger: logger}
}

func (s *RepositoryAuditSink) Record(ctx context.Context, e *model.AuditEntry) {
	if err := s.repo.AppendAudit(ctx, e); err != nil {
		s.logger.Warn("audit append failed", "action", e.Action, "resource", e.ResourceID, "error", err)
	}
}

// NopAuditSink discards all events. Use in tests that don't assert audit.
type NopAuditSink struct{}

func (NopAuditSink) Record(context.Context, *model.AuditEntry) {}
