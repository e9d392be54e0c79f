package core

import "context"

// IndexDocument is the denormalized view of a document the search index
// holds. VersionID lets reconciliation detect stale entries.
type IndexDocument struct {
	DocumentID  string
	VersionID   string
	FolderID    string
	OwnerID     string
	Name        string
	ContentType string
	Tags        []string
	SharedWith  []string // Principal ids with read access through grants
	ModifiedAt  int64    // Unix seconds
}

// IndexFilter narrows a Query. Zero-value fields are not applied.
type IndexFilter struct {
	DocumentID  string
	OwnerID     string
	Text        string // Matches against name
	Tag         string
	ContentType string
	SharedWith  string // Principal id appearing in SharedWith
}

// IndexPage is offset/limit pagination for Query.
type IndexPage struct {
	Offset int
	Limit  int
}

// SearchIndex is the capability interface over the search subsystem. The
// raw index client is external; the engine only needs upsert, delete and
// query by document id.
type SearchIndex interface {
	Upsert(ctx context.Context, doc IndexDocument) error
	Delete(ctx context.Context, documentID string) error
	Query(ctx context.Context, filter IndexFilter, page IndexPage) ([]IndexDocument, error)
}
