package core

import (
	"context"
	"sync"

	"docvault/internal/model"
)

// Synchronizer keeps the search index eventually consistent with the
// metadata store. Enqueue is fire-and-forget relative to the triggering
// operation: the caller's write is already successful when indexing
// happens. Reconcile is the recovery path for lost or stale entries.
type Synchronizer struct {
	repo   Repository
	index  SearchIndex
	logger Logger

	tasks chan string // document ids
	wg    sync.WaitGroup

	closeOnce sync.Once
}

// NewSynchronizer creates a Synchronizer and starts its worker. queueSize
// caps pending sync tasks; when the queue is full, tasks are dropped with
// a warning and reconciliation converges them later.
func NewSynchronizer(repo Repository, index SearchIndex, logger Logger, queueSize int) *Synchronizer {
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &Synchronizer{
		repo:   repo,
		index:  index,
		logger: logger,
		tasks:  make(chan string, queueSize),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Synchronizer) run() {
	defer s.wg.Done()
	for id := range s.tasks {
		if err := s.SyncOne(context.Background(), id); err != nil {
			s.logger.Warn("index sync failed", "document", id, "error", err)
		}
	}
}

// Enqueue schedules a document for index sync. Non-blocking: a full
// queue drops the task (reconciliation recovers it).
func (s *Synchronizer) Enqueue(documentID, versionID string) {
	select {
	case s.tasks <- documentID:
		s.logger.Debug("index sync enqueued", "document", documentID, "version", versionID)
	default:
		s.logger.Warn("index sync queue full, dropping", "document", documentID, "version", versionID)
	}
}

// SyncOne brings the index entry for one document up to date with the
// metadata store: upsert for active documents, delete otherwise.
func (s *Synchronizer) SyncOne(ctx context.Context, documentID string) error {
	doc, err := s.repo.FindDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil || doc.State != model.StateActive {
		return s.index.Delete(ctx, documentID)
	}

	entry, err := s.buildEntry(ctx, doc)
	if err != nil {
		return err
	}
	return s.index.Upsert(ctx, entry)
}

// buildEntry derives the denormalized index document from metadata:
// document fields plus the principals its grants give read access to.
func (s *Synchronizer) buildEntry(ctx context.Context, doc *model.Document) (IndexDocument, error) {
	grants, err := s.repo.ListGrantsForResource(ctx, doc.ID)
	if err != nil {
		return IndexDocument{}, err
	}

	var sharedWith []string
	for _, g := range grants {
		if g.SubjectKind == model.SubjectPrincipal && g.Capabilities.Has(model.CapRead) {
			sharedWith = append(sharedWith, g.SubjectID)
		}
	}

	return IndexDocument{
		DocumentID:  doc.ID,
		VersionID:   doc.CurrentVersionID,
		FolderID:    doc.FolderID,
		OwnerID:     doc.OwnerID,
		Name:        doc.Name,
		ContentType: doc.ContentType,
		Tags:        doc.Tags,
		SharedWith:  sharedWith,
		ModifiedAt:  doc.ModifiedAt.Unix(),
	}, nil
}

// Reconcile converges the index with the metadata store from both
// directions: active documents whose entry is missing or references a
// stale version get re-synced, and entries whose document is missing,
// trashed or purged get removed (the delete on trash is best-effort, so
// a failed one surfaces here). The scan tolerates documents mid-update:
// a stale read just means the next pass converges it. Returns the
// number of documents repaired.
func (s *Synchronizer) Reconcile(ctx context.Context) (int, error) {
	fixed, err := s.syncActiveDocuments(ctx)
	if err != nil {
		return fixed, err
	}
	removed, err := s.sweepStaleEntries(ctx)
	return fixed + removed, err
}

const reconcilePageSize = 200

func (s *Synchronizer) syncActiveDocuments(ctx context.Context) (int, error) {
	fixed := 0
	afterID := ""
	for {
		docs, err := s.repo.ListActiveDocuments(ctx, afterID, reconcilePageSize)
		if err != nil {
			return fixed, err
		}
		if len(docs) == 0 {
			return fixed, nil
		}

		for _, doc := range docs {
			afterID = doc.ID

			entries, err := s.index.Query(ctx, IndexFilter{DocumentID: doc.ID}, IndexPage{Limit: 1})
			if err != nil {
				return fixed, err
			}
			if len(entries) == 1 && entries[0].VersionID == doc.CurrentVersionID {
				continue // up to date
			}

			if err := s.SyncOne(ctx, doc.ID); err != nil {
				s.logger.Warn("reconcile sync failed", "document", doc.ID, "error", err)
				continue
			}
			fixed++
		}

		if len(docs) < reconcilePageSize {
			return fixed, nil
		}
	}
}

// sweepStaleEntries pages over the whole index and removes entries whose
// backing document no longer exists or left the active state. Candidates
// are collected first and deleted after the scan, so the offset-based
// paging never skips an entry.
func (s *Synchronizer) sweepStaleEntries(ctx context.Context) (int, error) {
	var stale []string
	offset := 0
	for {
		entries, err := s.index.Query(ctx, IndexFilter{}, IndexPage{Offset: offset, Limit: reconcilePageSize})
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			doc, err := s.repo.FindDocument(ctx, e.DocumentID)
			if err != nil {
				return 0, err
			}
			if doc == nil || doc.State != model.StateActive {
				stale = append(stale, e.DocumentID)
			}
		}
		if len(entries) < reconcilePageSize {
			break
		}
		offset += len(entries)
	}

	removed := 0
	for _, id := range stale {
		if err := s.index.Delete(ctx, id); err != nil {
			s.logger.Warn("reconcile delete failed", "document", id, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Close stops the worker after draining queued tasks.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		close(s.tasks)
	})
	s.wg.Wait()
}
