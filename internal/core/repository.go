package core

import (
	"context"

	"docvault/internal/model"
)

// ListOptions controls pagination for listing queries.
type ListOptions struct {
	Offset         int
	Limit          int
	IncludeTrashed bool
}

// Repository provides an interface for metadata storage operations.
// Find methods return (nil, nil) when the record does not exist; typed
// NotFound errors are the service layer's job. The store may not enforce
// referential integrity, so implementations validate foreign keys on write.
type Repository interface {
	// Document operations

	// CreateDocument inserts a new document together with its first
	// version in one transaction, so no committed document ever lacks a
	// current version.
	CreateDocument(ctx context.Context, doc *model.Document, first *model.Version) error

	// FindDocument returns a document by id, in any lifecycle state.
	FindDocument(ctx context.Context, id string) (*model.Document, error)

	// FindDocumentByName returns the active document with the given name
	// in a folder.
	FindDocumentByName(ctx context.Context, folderID, name string) (*model.Document, error)

	// ListDocumentsByFolder returns a folder's documents ordered by
	// creation time, newest first. Trashed documents are excluded unless
	// opts.IncludeTrashed is set; purged documents never appear.
	ListDocumentsByFolder(ctx context.Context, folderID string, opts ListOptions) ([]*model.Document, error)

	// ListDocumentsByOwner returns a principal's documents, newest first.
	ListDocumentsByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]*model.Document, error)

	// ListActiveDocuments returns every active document, for the
	// reconciliation scan. Ordered by id so the scan is restartable.
	ListActiveDocuments(ctx context.Context, afterID string, limit int) ([]*model.Document, error)

	// MoveDocument updates a document's folder and name.
	MoveDocument(ctx context.Context, id, folderID, name string) error

	// UpdateDocumentTags replaces a document's tag set.
	UpdateDocumentTags(ctx context.Context, id string, tags []string) error

	// SetDocumentState transitions lifecycle state and stamps trashedAt
	// (set on trash, cleared on restore).
	SetDocumentState(ctx context.Context, id string, state model.LifecycleState) error

	// TouchLastAccessed stamps the last-accessed time.
	TouchLastAccessed(ctx context.Context, id string) error

	// PurgeDocument marks the document purged and deletes its version
	// rows in one transaction. Returns the storage keys the deleted
	// versions referenced so the caller can reclaim blobs afterwards.
	PurgeDocument(ctx context.Context, id string) ([]string, error)

	// Version operations

	// CommitVersion atomically inserts a version and repoints the
	// document's current version to it. Fails if the (document, seq)
	// pair already exists, so concurrent appends cannot both win a slot.
	CommitVersion(ctx context.Context, v *model.Version) error

	// ListVersions returns all versions of a document, ascending by seq.
	ListVersions(ctx context.Context, documentID string) ([]*model.Version, error)

	// FindVersionBySeq returns one version of a document by sequence.
	FindVersionBySeq(ctx context.Context, documentID string, seq int64) (*model.Version, error)

	// FindVersion returns a version by id.
	FindVersion(ctx context.Context, id string) (*model.Version, error)

	// Folder operations

	// CreateFolder inserts a new folder record.
	CreateFolder(ctx context.Context, f *model.Folder) error

	// FindFolder returns a folder by id.
	FindFolder(ctx context.Context, id string) (*model.Folder, error)

	// FindFolderByName returns the folder with the given name under a
	// parent (empty parentID means root level).
	FindFolderByName(ctx context.Context, parentID, name string) (*model.Folder, error)

	// ListFolderAncestors returns the chain from the folder's parent up
	// to the root, nearest ancestor first.
	ListFolderAncestors(ctx context.Context, id string) ([]*model.Folder, error)

	// MoveFolder updates a folder's parent. Cycle checks are the
	// service's job; the store only records the edge.
	MoveFolder(ctx context.Context, id string, parentID *string) error

	// RenameFolder updates a folder's name.
	RenameFolder(ctx context.Context, id, name string) error

	// Grant operations

	// CreateGrant inserts a grant, replacing any existing grant for the
	// same subject and resource.
	CreateGrant(ctx context.Context, g *model.Grant) error

	// DeleteGrant removes the grant for a subject on a resource.
	DeleteGrant(ctx context.Context, subjectID string, subjectKind model.SubjectKind, resourceID string) error

	// ListGrantsByResources returns all grants attached to any of the
	// given resource ids.
	ListGrantsByResources(ctx context.Context, resourceIDs []string) ([]*model.Grant, error)

	// ListGrantsForResource returns all grants attached to one resource,
	// used for shared-with listings and index documents.
	ListGrantsForResource(ctx context.Context, resourceID string) ([]*model.Grant, error)

	// Batch job operations

	// CreateBatchJob inserts a running job with its (pending) items.
	CreateBatchJob(ctx context.Context, job *model.BatchJob) error

	// FinishBatchJob records final status and per-item outcomes.
	FinishBatchJob(ctx context.Context, job *model.BatchJob) error

	// FindBatchJob returns a job with its items in input order.
	FindBatchJob(ctx context.Context, id string) (*model.BatchJob, error)

	// Audit operations

	// AppendAudit appends one audit entry. Entries are never mutated.
	AppendAudit(ctx context.Context, e *model.AuditEntry) error

	// ListAudit returns the most recent audit entries, newest first.
	ListAudit(ctx context.Context, limit int) ([]*model.AuditEntry, error)

	// Orphan candidates

	// AddOrphanCandidate records a storage key that may be unreferenced.
	AddOrphanCandidate(ctx context.Context, storageKey, reason string) error

	// ListOrphanCandidates returns recorded candidates, oldest first.
	ListOrphanCandidates(ctx context.Context, limit int) ([]*model.OrphanCandidate, error)

	// Close closes the underlying connection.
	Close() error
}
