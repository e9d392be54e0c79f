package testutil

import (
	"context"
	"sync"

	"docvault/internal/core"
	"docvault/internal/model"
)

// RecordingAuditSink captures audit entries in memory for assertions.
type RecordingAuditSink struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

var _ core.AuditSink = (*RecordingAuditSink)(nil)

func NewRecordingAuditSink() *RecordingAuditSink {
	return &RecordingAuditSink{}
}

func (r *RecordingAuditSink) Record(_ context.Context, e *model.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Entries returns a copy of everything recorded so far.
func (r *RecordingAuditSink) Entries() []*model.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
