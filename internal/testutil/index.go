package testutil

import (
	"context"
	"fmt"
	"sync"

	"docvault/internal/core"
	"docvault/internal/index"
)

// NewTestIndex creates a new in-memory search index for testing.
func NewTestIndex() *index.Memory {
	return index.NewMemory()
}

// FailingIndex wraps a search index and fails the first FailUpserts
// Upsert calls and the first FailDeletes Delete calls, for exercising
// reconciliation.
type FailingIndex struct {
	Inner       core.SearchIndex
	FailUpserts int
	FailDeletes int

	mu      sync.Mutex
	upserts int
	deletes int
}

var _ core.SearchIndex = (*FailingIndex)(nil)

func (f *FailingIndex) Upsert(ctx context.Context, doc core.IndexDocument) error {
	f.mu.Lock()
	f.upserts++
	fail := f.upserts <= f.FailUpserts
	f.mu.Unlock()

	if fail {
		return fmt.Errorf("injected upsert failure")
	}
	return f.Inner.Upsert(ctx, doc)
}

func (f *FailingIndex) Delete(ctx context.Context, documentID string) error {
	f.mu.Lock()
	f.deletes++
	fail := f.deletes <= f.FailDeletes
	f.mu.Unlock()

	if fail {
		return fmt.Errorf("injected delete failure")
	}
	return f.Inner.Delete(ctx, documentID)
}

func (f *FailingIndex) Query(ctx context.Context, filter core.IndexFilter, page core.IndexPage) ([]core.IndexDocument, error) {
	return f.Inner.Query(ctx, filter, page)
}
