package model

import "time"

// LifecycleState is the document lifecycle: active documents are visible,
// trashed documents are soft-deleted and restorable, purged documents are
// gone for good (no retrievable version).
type LifecycleState string

const (
	StateActive  LifecycleState = "active"
	StateTrashed LifecycleState = "trashed"
	StatePurged  LifecycleState = "purged"
)

// Principal is an authenticated actor (user or service) on whose behalf
// operations run. Authentication happens outside the engine; the engine
// only consumes the result.
type Principal struct {
	ID    string
	Roles []string
}

// Document is the metadata record for a stored document. Binary content
// lives in the object store, addressed through Version storage keys.
type Document struct {
	ID               string // UUID
	OwnerID          string
	FolderID         string // Foreign key to Folder
	Name             string // Unique among active siblings in the folder
	CurrentVersionID string // Foreign key to the current Version
	CurrentSeq       int64  // Sequence number of the current version
	ContentType      string
	Tags             []string
	State            LifecycleState
	CreatedAt        time.Time
	ModifiedAt       time.Time
	TrashedAt        *time.Time
	LastAccessedAt   *time.Time
}

// Version is one content revision of a document. History is append-only:
// sequence numbers per document are gap-free from 1, and a storage key is
// never reused or overwritten.
type Version struct {
	ID          string // UUID
	DocumentID  string
	Seq         int64  // Strictly increasing within the document, from 1
	StorageKey  string // Object store locator
	ContentHash string // SHA-256 of the content, lowercase hex
	Size        int64
	ContentType string
	CreatedBy   string
	CreatedAt   time.Time
}

// Folder is a node in the folder tree. ParentID is nil for root folders.
// The tree is acyclic and names are unique among siblings.
type Folder struct {
	ID        string // UUID
	ParentID  *string
	OwnerID   string
	Name      string
	CreatedAt time.Time
}

// SubjectKind distinguishes grants addressed to a single principal from
// grants addressed to everyone holding a role.
type SubjectKind string

const (
	SubjectPrincipal SubjectKind = "principal"
	SubjectRole      SubjectKind = "role"
)

// ResourceKind identifies what a grant attaches to. Folder grants inherit
// to descendants unless overridden by a more specific grant.
type ResourceKind string

const (
	ResourceDocument ResourceKind = "document"
	ResourceFolder   ResourceKind = "folder"
)

// Grant authorizes a subject to exercise capabilities on a resource.
// A grant with an empty capability set is an explicit deny: it blocks the
// subject on that exact resource regardless of any other grant.
type Grant struct {
	ID           string // UUID
	SubjectID    string // Principal ID or role name
	SubjectKind  SubjectKind
	ResourceID   string
	ResourceKind ResourceKind
	Capabilities CapabilitySet
	GrantedBy    string
	GrantedAt    time.Time
}

// BatchStatus is the job-level outcome. A job with item failures is
// completed-with-errors, never a hard failure.
type BatchStatus string

const (
	BatchRunning             BatchStatus = "running"
	BatchCompleted           BatchStatus = "completed"
	BatchCompletedWithErrors BatchStatus = "completed-with-errors"
)

// ItemStatus is the per-target outcome within a batch job.
type ItemStatus string

const (
	ItemSucceeded ItemStatus = "success"
	ItemFailed    ItemStatus = "failed"
	ItemCancelled ItemStatus = "cancelled"
)

// BatchJob records a batch operation for audit. Items are kept in input
// order regardless of completion order.
type BatchJob struct {
	ID          string // UUID
	Kind        string // e.g. "delete", "restore", "upload"
	PrincipalID string
	Status      BatchStatus
	StartedAt   time.Time
	FinishedAt  *time.Time
	Items       []BatchItem
}

// BatchItem is the outcome of one target within a batch job.
type BatchItem struct {
	Position  int // Input position, 0-based
	TargetID  string
	Status    ItemStatus
	ErrorKind string // Error taxonomy kind for failed items, "" otherwise
	Reason    string
}

// AuditEntry is an append-only record of one attempted operation.
type AuditEntry struct {
	ID         int64 // Auto-increment
	ActorID    string
	Action     string
	ResourceID string
	Outcome    string // "success" or the error kind
	Detail     string
	CreatedAt  time.Time
}

// OrphanCandidate marks an object-store key that may be unreferenced,
// typically because a compensating delete failed. An external sweep
// consumes these; the engine only emits them.
type OrphanCandidate struct {
	ID         int64 // Auto-increment
	StorageKey string
	Reason     string
	CreatedAt  time.Time
}
