package index

import (
	"context"
	"testing"

	"docvault/internal/core"
)

func entry(id, owner, name string, modified int64) core.IndexDocument {
	return core.IndexDocument{
		DocumentID: id,
		VersionID:  id + "-v1",
		OwnerID:    owner,
		Name:       name,
		ModifiedAt: modified,
	}
}

func TestMemoryQuery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	docs := []core.IndexDocument{
		entry("d1", "alice", "budget.xlsx", 100),
		entry("d2", "alice", "Budget Notes.txt", 300),
		entry("d3", "bob", "plan.txt", 200),
	}
	docs[2].Tags = []string{"urgent"}
	docs[2].SharedWith = []string{"alice"}
	for _, d := range docs {
		if err := m.Upsert(ctx, d); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter core.IndexFilter
		page   core.IndexPage
		want   []string
	}{
		{
			name:   "owner scope newest first",
			filter: core.IndexFilter{OwnerID: "alice"},
			want:   []string{"d2", "d1"},
		},
		{
			name:   "text match is case insensitive",
			filter: core.IndexFilter{Text: "budget"},
			want:   []string{"d2", "d1"},
		},
		{
			name:   "tag filter",
			filter: core.IndexFilter{Tag: "urgent"},
			want:   []string{"d3"},
		},
		{
			name:   "shared with",
			filter: core.IndexFilter{SharedWith: "alice"},
			want:   []string{"d3"},
		},
		{
			name:   "no match",
			filter: core.IndexFilter{Text: "missing"},
			want:   nil,
		},
		{
			name: "pagination",
			page: core.IndexPage{Offset: 1, Limit: 1},
			want: []string{"d3"},
		},
		{
			name: "offset past end",
			page: core.IndexPage{Offset: 10},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Query(ctx, tt.filter, tt.page)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(got), len(tt.want))
			}
			for i, doc := range got {
				if doc.DocumentID != tt.want[i] {
					t.Errorf("result[%d] = %s, want %s", i, doc.DocumentID, tt.want[i])
				}
			}
		})
	}
}

func TestMemoryUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Upsert(ctx, entry("d1", "alice", "old.txt", 100)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := m.Upsert(ctx, entry("d1", "alice", "new.txt", 200)); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := m.Query(ctx, core.IndexFilter{DocumentID: "d1"}, core.IndexPage{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "new.txt" {
		t.Errorf("got %+v, want single entry named new.txt", got)
	}
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Upsert(ctx, entry("d1", "alice", "a.txt", 100)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := m.Delete(ctx, "d1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	// Absent ids delete cleanly.
	if err := m.Delete(ctx, "d1"); err != nil {
		t.Errorf("repeat Delete = %v, want nil", err)
	}

	got, err := m.Query(ctx, core.IndexFilter{}, core.IndexPage{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d entries after delete, want 0", len(got))
	}
}
