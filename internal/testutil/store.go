package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"docvault/internal/blob"
	"docvault/internal/core"
)

// NewTestStore creates a new in-memory object store for testing.
func NewTestStore() *blob.MemoryStore {
	return blob.NewMemoryStore()
}

// FlakyStore wraps an object store and fails the first FailPuts Put
// calls, for exercising retry and compensation paths.
type FlakyStore struct {
	Inner    core.ObjectStore
	FailPuts int

	mu       sync.Mutex
	putCalls int
}

var _ core.ObjectStore = (*FlakyStore)(nil)

func (f *FlakyStore) Put(ctx context.Context, key string, r io.Reader) error {
	f.mu.Lock()
	f.putCalls++
	fail := f.putCalls <= f.FailPuts
	f.mu.Unlock()

	if fail {
		// Drain so the caller observes a consumed reader, like a real
		// transport failure mid-upload.
		io.Copy(io.Discard, r)
		return fmt.Errorf("injected put failure")
	}
	return f.Inner.Put(ctx, key, r)
}

func (f *FlakyStore) Get(ctx context.Context, key string, w io.Writer) error {
	return f.Inner.Get(ctx, key, w)
}

func (f *FlakyStore) Delete(ctx context.Context, key string) error {
	return f.Inner.Delete(ctx, key)
}

func (f *FlakyStore) ValidateSetup(ctx context.Context) error {
	return f.Inner.ValidateSetup(ctx)
}

// PutCalls reports how many Put calls the store has seen.
func (f *FlakyStore) PutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.putCalls
}
