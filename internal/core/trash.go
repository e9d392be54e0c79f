package core

import (
	"context"
	"fmt"

	"docvault/internal/model"
)

// Trash soft-deletes a document: lifecycle goes to trashed, trashed-at is
// stamped, and the index entry is removed before the operation reports
// success. Content and history stay intact for restore.
func (s *Service) Trash(ctx context.Context, principal model.Principal, documentID string) error {
	const op = "trash"

	doc, err := s.loadDocument(ctx, op, documentID)
	if err != nil {
		return err
	}
	if err := s.authorizeDocument(ctx, principal, doc, model.CapDelete); err != nil {
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}
	if doc.State == model.StateTrashed {
		return nil // already trashed, nothing to do
	}

	unlock := s.locks.Lock("doc:" + documentID)
	defer unlock()

	if err := s.repo.SetDocumentState(ctx, documentID, model.StateTrashed); err != nil {
		err = E(KindStorage, op, documentID, err)
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}
	s.step(op, documentID, stepMetadata)

	// Index removal is part of delete's success path, but a failure here
	// is non-fatal: the metadata is committed, reconciliation converges.
	if err := s.index.Delete(ctx, documentID); err != nil {
		s.logger.Warn("index removal failed on trash", "document", documentID, "error", err)
	}
	s.step(op, documentID, stepDone)

	s.emit(ctx, principal, op, documentID, nil, "")
	s.logger.Info("document trashed", "document", documentID)
	return nil
}

// RestoreDocument transitions trashed → active. It fails with Conflict if
// an active sibling took the name while the document sat in trash; the
// caller must rename or the restore fails.
func (s *Service) RestoreDocument(ctx context.Context, principal model.Principal, documentID string) error {
	const op = "restore"

	doc, err := s.loadDocument(ctx, op, documentID)
	if err != nil {
		return err
	}
	if err := s.authorizeDocument(ctx, principal, doc, model.CapWrite); err != nil {
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}
	if doc.State != model.StateTrashed {
		err = E(KindConflict, op, documentID, "document is not trashed")
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}

	unlock := s.locks.Lock("doc:" + documentID)
	defer unlock()

	sibling, err := s.repo.FindDocumentByName(ctx, doc.FolderID, doc.Name)
	if err != nil {
		return E(KindStorage, op, documentID, err)
	}
	if sibling != nil && sibling.ID != doc.ID {
		err = E(KindConflict, op, documentID,
			fmt.Sprintf("name %q is taken by %s", doc.Name, sibling.ID))
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}

	if err := s.repo.SetDocumentState(ctx, documentID, model.StateActive); err != nil {
		err = E(KindStorage, op, documentID, err)
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}
	s.step(op, documentID, stepMetadata)

	s.sync.Enqueue(documentID, doc.CurrentVersionID)
	s.step(op, documentID, stepIndexEnqueue)

	s.emit(ctx, principal, op, documentID, nil, "")
	s.logger.Info("document restored", "document", documentID)
	return nil
}

// Purge physically deletes a trashed document: metadata goes first so no
// reader can follow a committed record to a missing blob, then blobs are
// reclaimed best-effort (failures become orphan candidates). Purge is
// irreversible and only reachable from trashed.
func (s *Service) Purge(ctx context.Context, principal model.Principal, documentID string) error {
	const op = "purge"

	doc, err := s.loadDocument(ctx, op, documentID)
	if err != nil {
		return err
	}
	if err := s.authorizeDocument(ctx, principal, doc, model.CapDelete); err != nil {
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}
	if doc.State != model.StateTrashed {
		err = E(KindConflict, op, documentID, "purge requires a trashed document")
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}

	unlock := s.locks.Lock("doc:" + documentID)
	defer unlock()

	keys, err := s.repo.PurgeDocument(ctx, documentID)
	if err != nil {
		err = E(KindStorage, op, documentID, err)
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}
	s.step(op, documentID, stepMetadata)

	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("blob reclaim failed on purge", "key", key, "error", err)
			if aerr := s.repo.AddOrphanCandidate(ctx, key, "purge reclaim failed"); aerr != nil {
				s.logger.Error("recording orphan candidate failed", "key", key, "error", aerr)
			}
		}
	}

	if err := s.index.Delete(ctx, documentID); err != nil {
		s.logger.Warn("index removal failed on purge", "document", documentID, "error", err)
	}
	s.step(op, documentID, stepDone)

	s.emit(ctx, principal, op, documentID, nil, "")
	s.logger.Info("document purged", "document", documentID, "blobs", len(keys))
	return nil
}
