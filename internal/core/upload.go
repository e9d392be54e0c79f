package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"docvault/internal/model"
)

// versionKey builds the object-store locator for one version's content.
// Keys embed the version id, so a key is never reused across versions and
// committed content is never overwritten.
func versionKey(documentID, versionID string) string {
	return fmt.Sprintf("documents/%s/%s", documentID, versionID)
}

// Create uploads a new document: content goes to the object store first,
// then the document and its version 1 are committed in one metadata
// transaction, then index sync is enqueued.
func (s *Service) Create(ctx context.Context, principal model.Principal, folderID, name, contentType string, content io.Reader) (*model.Document, error) {
	const op = "create"

	folder, err := s.loadFolder(ctx, op, folderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeFolder(ctx, principal, folder, model.CapWrite); err != nil {
		s.emit(ctx, principal, op, folderID, err, name)
		return nil, err
	}

	docID := s.idgen.New()
	doc, err := s.createDocument(ctx, principal, folder, docID, name, contentType, content)
	s.emit(ctx, principal, op, docID, err, name)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) createDocument(ctx context.Context, principal model.Principal, folder *model.Folder, docID, name, contentType string, content io.Reader) (*model.Document, error) {
	const op = "create"
	s.step(op, docID, stepPending)

	unlock := s.locks.Lock("doc:" + docID)
	defer unlock()

	existing, err := s.repo.FindDocumentByName(ctx, folder.ID, name)
	if err != nil {
		return nil, E(KindStorage, op, docID, err)
	}
	if existing != nil {
		return nil, E(KindInvalidStructure, op, docID,
			fmt.Sprintf("name %q already exists in folder %s", name, folder.ID))
	}

	versionID := s.idgen.New()
	key := versionKey(docID, versionID)

	hash, size, err := s.writeContent(ctx, key, content)
	if err != nil {
		return nil, E(KindStorage, op, docID, err)
	}
	s.step(op, docID, stepStorage)

	now := s.clock.Now()
	doc := &model.Document{
		ID:               docID,
		OwnerID:          principal.ID,
		FolderID:         folder.ID,
		Name:             name,
		CurrentVersionID: versionID,
		CurrentSeq:       1,
		ContentType:      contentType,
		State:            model.StateActive,
		CreatedAt:        now,
		ModifiedAt:       now,
	}
	first := &model.Version{
		ID:          versionID,
		DocumentID:  docID,
		Seq:         1,
		StorageKey:  key,
		ContentHash: hash,
		Size:        size,
		ContentType: contentType,
		CreatedBy:   principal.ID,
		CreatedAt:   now,
	}
	if err := s.repo.CreateDocument(ctx, doc, first); err != nil {
		s.compensateStorage(ctx, op, key)
		if errors.Is(err, ErrDuplicate) {
			return nil, E(KindInvalidStructure, op, docID,
				fmt.Sprintf("name %q already exists in folder %s", name, folder.ID))
		}
		return nil, E(KindStorage, op, docID, err)
	}
	s.step(op, docID, stepMetadata)

	s.sync.Enqueue(docID, versionID)
	s.step(op, docID, stepIndexEnqueue)
	s.step(op, docID, stepDone)

	s.logger.Info("document created", "document", docID, "folder", folder.ID, "name", name, "size", size)
	return doc, nil
}

// UpdateContent appends a new version of an existing document. The
// sequence number is allocated under the per-document lock, so concurrent
// appends never receive the same slot.
func (s *Service) UpdateContent(ctx context.Context, principal model.Principal, documentID, contentType string, content io.Reader) (*model.Version, error) {
	const op = "update-content"

	doc, err := s.loadDocument(ctx, op, documentID)
	if err != nil {
		return nil, err
	}
	if doc.State == model.StateTrashed {
		err = E(KindConflict, op, documentID, "document is trashed")
		s.emit(ctx, principal, op, documentID, err, "")
		return nil, err
	}
	if err := s.authorizeDocument(ctx, principal, doc, model.CapWrite); err != nil {
		s.emit(ctx, principal, op, documentID, err, "")
		return nil, err
	}

	v, err := s.appendVersion(ctx, principal, documentID, contentType, content)
	s.emit(ctx, principal, op, documentID, err, "")
	return v, err
}

func (s *Service) appendVersion(ctx context.Context, principal model.Principal, documentID, contentType string, content io.Reader) (*model.Version, error) {
	const op = "update-content"
	s.step(op, documentID, stepPending)

	unlock := s.locks.Lock("doc:" + documentID)
	defer unlock()

	// Reload under the lock: a concurrent append may have advanced the
	// sequence, or a concurrent trash may have taken the document, between
	// authorization and here.
	doc, err := s.loadDocument(ctx, op, documentID)
	if err != nil {
		return nil, err
	}
	if doc.State == model.StateTrashed {
		return nil, E(KindConflict, op, documentID, "document is trashed")
	}

	versionID := s.idgen.New()
	key := versionKey(documentID, versionID)

	hash, size, err := s.writeContent(ctx, key, content)
	if err != nil {
		return nil, E(KindStorage, op, documentID, err)
	}
	s.step(op, documentID, stepStorage)

	v := &model.Version{
		ID:          versionID,
		DocumentID:  documentID,
		Seq:         doc.CurrentSeq + 1,
		StorageKey:  key,
		ContentHash: hash,
		Size:        size,
		ContentType: contentType,
		CreatedBy:   principal.ID,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.CommitVersion(ctx, v); err != nil {
		// Never retried past this boundary: a retry could commit twice.
		s.compensateStorage(ctx, op, key)
		if errors.Is(err, ErrDuplicate) {
			return nil, E(KindConflict, op, documentID,
				fmt.Sprintf("version %d was committed concurrently", v.Seq))
		}
		return nil, E(KindStorage, op, documentID, err)
	}
	s.step(op, documentID, stepMetadata)

	s.sync.Enqueue(documentID, versionID)
	s.step(op, documentID, stepIndexEnqueue)
	s.step(op, documentID, stepDone)

	s.logger.Info("version appended", "document", documentID, "seq", v.Seq, "size", size)
	return v, nil
}

// Download streams the current version's content to w and stamps the
// last-accessed time (non-fatal if the stamp fails).
func (s *Service) Download(ctx context.Context, principal model.Principal, documentID string, w io.Writer) (*model.Version, error) {
	const op = "download"

	doc, err := s.loadDocument(ctx, op, documentID)
	if err != nil {
		return nil, err
	}
	if doc.State == model.StateTrashed {
		err = E(KindConflict, op, documentID, "document is trashed")
		s.emit(ctx, principal, op, documentID, err, "")
		return nil, err
	}
	if err := s.authorizeDocument(ctx, principal, doc, model.CapRead); err != nil {
		s.emit(ctx, principal, op, documentID, err, "")
		return nil, err
	}

	v, err := s.repo.FindVersion(ctx, doc.CurrentVersionID)
	if err != nil {
		return nil, E(KindStorage, op, documentID, err)
	}
	if v == nil {
		return nil, E(KindNotFound, op, documentID, "current version missing")
	}

	if err := s.store.Get(ctx, v.StorageKey, w); err != nil {
		kind := KindStorage
		if errors.Is(err, ErrObjectNotFound) {
			kind = KindNotFound
		}
		err = E(kind, op, documentID, err)
		s.emit(ctx, principal, op, documentID, err, "")
		return nil, err
	}

	if err := s.repo.TouchLastAccessed(ctx, documentID); err != nil {
		s.logger.Warn("last-accessed stamp failed", "document", documentID, "error", err)
	}

	s.emit(ctx, principal, op, documentID, nil, "")
	return v, nil
}

// writeContent spools content to a temp file, hashing as it copies, then
// uploads to the object store with retries. Spooling makes the upload
// repeatable: the pre-commit write is idempotent per key, so a retry
// after a timeout cannot produce a second version.
func (s *Service) writeContent(ctx context.Context, key string, content io.Reader) (hash string, size int64, err error) {
	tmp, err := os.CreateTemp("", "docvault-spool-*")
	if err != nil {
		return "", 0, fmt.Errorf("creating spool file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	h := sha256.New()
	size, err = io.Copy(tmp, io.TeeReader(content, h))
	if err != nil {
		return "", 0, fmt.Errorf("spooling content: %w", err)
	}
	hash = hex.EncodeToString(h.Sum(nil))

	attempts := 1 + s.opts.putRetries()
	var lastErr error
	for i := 0; i < attempts; i++ {
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return "", 0, fmt.Errorf("rewinding spool file: %w", err)
		}
		if lastErr = s.store.Put(ctx, key, tmp); lastErr == nil {
			return hash, size, nil
		}
		if ctx.Err() != nil {
			break
		}
		s.logger.Warn("object store write failed, retrying", "key", key, "attempt", i+1, "error", lastErr)
	}
	return "", 0, fmt.Errorf("uploading content: %w", lastErr)
}

// compensateStorage best-effort deletes a just-written object after the
// metadata commit failed. If the delete itself fails the key is recorded
// as an orphan candidate for the external sweep.
func (s *Service) compensateStorage(ctx context.Context, op, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("compensating delete failed", "op", op, "key", key, "error", err)
		if aerr := s.repo.AddOrphanCandidate(ctx, key, "compensating delete failed after "+op); aerr != nil {
			s.logger.Error("recording orphan candidate failed", "key", key, "error", aerr)
		}
	}
}
