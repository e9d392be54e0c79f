package core

import (
	"context"
	"time"

	"docvault/internal/model"
)

// Step names for the per-operation state machine. An operation moves
// pending → storage-written → metadata-committed → index-enqueued → done;
// failure at any step is absorbing and names the step in the error.
const (
	stepPending      = "pending"
	stepStorage      = "storage-written"
	stepMetadata     = "metadata-committed"
	stepIndexEnqueue = "index-enqueued"
	stepDone         = "done"
)

// Options tunes orchestration behavior.
type Options struct {
	// BatchWorkers caps concurrent batch items. Zero means 4.
	BatchWorkers int
	// ItemTimeout is the per-item deadline inside batch jobs. Zero means
	// no deadline beyond the caller's context.
	ItemTimeout time.Duration
	// PutRetries is how many extra attempts a failed object-store write
	// gets. Pre-commit writes are idempotent, so retrying is safe. Zero
	// means 1 retry.
	PutRetries int
}

func (o Options) batchWorkers() int {
	if o.BatchWorkers <= 0 {
		return 4
	}
	return o.BatchWorkers
}

func (o Options) putRetries() int {
	if o.PutRetries <= 0 {
		return 1
	}
	return o.PutRetries
}

// Service is the orchestration layer. It coordinates the object store,
// the metadata repository and the search index per operation, enforcing
// the ordering policy: content is durable in the object store before the
// metadata commit references it, and metadata stops referencing content
// before its blob is reclaimed.
type Service struct {
	repo   Repository
	store  ObjectStore
	index  SearchIndex
	sync   *Synchronizer
	audit  AuditSink
	logger Logger
	clock  Clock
	idgen  IDGenerator
	locks  *keyedLocks
	opts   Options
}

// NewService creates a Service with the provided dependencies. sync must
// be built over the same repository and index.
func NewService(repo Repository, store ObjectStore, index SearchIndex, sync *Synchronizer, audit AuditSink, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		index:  index,
		sync:   sync,
		audit:  audit,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
		locks:  newKeyedLocks(),
		opts:   opts,
	}
}

// step logs a state transition of the per-operation state machine.
func (s *Service) step(op, resource, state string) {
	s.logger.Debug("operation step", "op", op, "resource", resource, "state", state)
}

// emit sends an audit event; outcome is "success" or the error kind.
func (s *Service) emit(ctx context.Context, actor model.Principal, action, resourceID string, err error, detail string) {
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	s.audit.Record(ctx, &model.AuditEntry{
		ActorID:    actor.ID,
		Action:     action,
		ResourceID: resourceID,
		Outcome:    outcome,
		Detail:     detail,
		CreatedAt:  s.clock.Now(),
	})
}

// loadDocument fetches a document or fails with NotFound. Purged
// documents are reported as NotFound: they have no retrievable state.
func (s *Service) loadDocument(ctx context.Context, op, id string) (*model.Document, error) {
	doc, err := s.repo.FindDocument(ctx, id)
	if err != nil {
		return nil, E(KindStorage, op, id, err)
	}
	if doc == nil || doc.State == model.StatePurged {
		return nil, E(KindNotFound, op, id, "document does not exist")
	}
	return doc, nil
}

// loadFolder fetches a folder or fails with NotFound.
func (s *Service) loadFolder(ctx context.Context, op, id string) (*model.Folder, error) {
	f, err := s.repo.FindFolder(ctx, id)
	if err != nil {
		return nil, E(KindStorage, op, id, err)
	}
	if f == nil {
		return nil, E(KindNotFound, op, id, "folder does not exist")
	}
	return f, nil
}

// resourceForDocument builds the authorization view of a document: its
// folder chain (containing folder first) and every grant attached to the
// document or the chain.
func (s *Service) resourceForDocument(ctx context.Context, doc *model.Document) (Resource, []*model.Grant, error) {
	chain, err := s.folderChain(ctx, doc.FolderID)
	if err != nil {
		return Resource{}, nil, err
	}

	ids := make([]string, 0, len(chain)+1)
	ids = append(ids, doc.ID)
	for _, f := range chain {
		ids = append(ids, f.ID)
	}
	grants, err := s.repo.ListGrantsByResources(ctx, ids)
	if err != nil {
		return Resource{}, nil, E(KindStorage, "authorize", doc.ID, err)
	}

	return Resource{
		ID:        doc.ID,
		Kind:      model.ResourceDocument,
		OwnerID:   doc.OwnerID,
		Ancestors: chain,
	}, grants, nil
}

// resourceForFolder builds the authorization view of a folder.
func (s *Service) resourceForFolder(ctx context.Context, folder *model.Folder) (Resource, []*model.Grant, error) {
	ancestors, err := s.repo.ListFolderAncestors(ctx, folder.ID)
	if err != nil {
		return Resource{}, nil, E(KindStorage, "authorize", folder.ID, err)
	}

	ids := make([]string, 0, len(ancestors)+1)
	ids = append(ids, folder.ID)
	for _, f := range ancestors {
		ids = append(ids, f.ID)
	}
	grants, err := s.repo.ListGrantsByResources(ctx, ids)
	if err != nil {
		return Resource{}, nil, E(KindStorage, "authorize", folder.ID, err)
	}

	return Resource{
		ID:        folder.ID,
		Kind:      model.ResourceFolder,
		OwnerID:   folder.OwnerID,
		Ancestors: ancestors,
	}, grants, nil
}

// folderChain returns the folder itself followed by its ancestors,
// nearest first. Grants on any link inherit to the document inside.
func (s *Service) folderChain(ctx context.Context, folderID string) ([]*model.Folder, error) {
	folder, err := s.repo.FindFolder(ctx, folderID)
	if err != nil {
		return nil, E(KindStorage, "authorize", folderID, err)
	}
	if folder == nil {
		return nil, nil
	}
	ancestors, err := s.repo.ListFolderAncestors(ctx, folderID)
	if err != nil {
		return nil, E(KindStorage, "authorize", folderID, err)
	}
	return append([]*model.Folder{folder}, ancestors...), nil
}

// authorizeDocument gates an operation on a document.
func (s *Service) authorizeDocument(ctx context.Context, principal model.Principal, doc *model.Document, capability model.Capability) error {
	res, grants, err := s.resourceForDocument(ctx, doc)
	if err != nil {
		return err
	}
	return Authorize(principal, res, capability, grants)
}

// authorizeFolder gates an operation on a folder.
func (s *Service) authorizeFolder(ctx context.Context, principal model.Principal, folder *model.Folder, capability model.Capability) error {
	res, grants, err := s.resourceForFolder(ctx, folder)
	if err != nil {
		return err
	}
	return Authorize(principal, res, capability, grants)
}
