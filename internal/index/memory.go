package index

import (
	"context"
	"sort"
	"strings"
	"sync"

	"docvault/internal/core"
)

// Memory is an in-process search index. It serves single-node
// deployments and tests; swapping in an external index only requires
// another implementation of core.SearchIndex.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]core.IndexDocument
}

var _ core.SearchIndex = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]core.IndexDocument)}
}

// Upsert replaces the entry for the document id, last write wins.
func (m *Memory) Upsert(_ context.Context, doc core.IndexDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.DocumentID] = doc
	return nil
}

// Delete removes the entry. Deleting an absent id is not an error.
func (m *Memory) Delete(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, documentID)
	return nil
}

// Query returns matching entries newest first.
func (m *Memory) Query(_ context.Context, filter core.IndexFilter, page core.IndexPage) ([]core.IndexDocument, error) {
	m.mu.RLock()
	matched := make([]core.IndexDocument, 0, len(m.docs))
	for _, doc := range m.docs {
		if matches(doc, filter) {
			matched = append(matched, doc)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ModifiedAt != matched[j].ModifiedAt {
			return matched[i].ModifiedAt > matched[j].ModifiedAt
		}
		return matched[i].DocumentID < matched[j].DocumentID
	})

	if page.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[page.Offset:]
	if page.Limit > 0 && page.Limit < len(matched) {
		matched = matched[:page.Limit]
	}
	return matched, nil
}

func matches(doc core.IndexDocument, f core.IndexFilter) bool {
	if f.DocumentID != "" && doc.DocumentID != f.DocumentID {
		return false
	}
	if f.OwnerID != "" && doc.OwnerID != f.OwnerID {
		return false
	}
	if f.ContentType != "" && doc.ContentType != f.ContentType {
		return false
	}
	if f.Text != "" && !strings.Contains(strings.ToLower(doc.Name), strings.ToLower(f.Text)) {
		return false
	}
	if f.Tag != "" && !contains(doc.Tags, f.Tag) {
		return false
	}
	if f.SharedWith != "" && !contains(doc.SharedWith, f.SharedWith) {
		return false
	}
	return true
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
