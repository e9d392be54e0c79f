package core

import (
	"context"
	"strings"

	"docvault/internal/model"
)

// SearchQuery is a caller's search request. Zero-value fields are not
// applied. Scope restricts results to documents the principal owns or,
// with SharedWithMe, documents granted to them.
type SearchQuery struct {
	Text         string
	Tag          string
	ContentType  string
	SharedWithMe bool
	Offset       int
	Limit        int
}

// Search queries the search index on the principal's behalf. Results
// reflect the index's view, which converges on metadata via the
// synchronizer; a just-written document may lag until its index task or
// a reconciliation pass lands.
func (s *Service) Search(ctx context.Context, principal model.Principal, q SearchQuery) ([]IndexDocument, error) {
	filter := IndexFilter{
		Text:        strings.TrimSpace(q.Text),
		Tag:         q.Tag,
		ContentType: q.ContentType,
	}
	if q.SharedWithMe {
		filter.SharedWith = principal.ID
	} else {
		filter.OwnerID = principal.ID
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	docs, err := s.index.Query(ctx, filter, IndexPage{Offset: q.Offset, Limit: limit})
	if err != nil {
		return nil, E(KindStorage, "search", principal.ID, err)
	}
	return docs, nil
}

// ListFolderDocuments lists a folder's documents from the metadata
// store, newest first. Unlike Search this is strongly consistent with
// writes. Read access on the folder is required.
func (s *Service) ListFolderDocuments(ctx context.Context, principal model.Principal, folderID string, opts ListOptions) ([]*model.Document, error) {
	const op = "list"
	folder, err := s.loadFolder(ctx, op, folderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeFolder(ctx, principal, folder, model.CapRead); err != nil {
		return nil, err
	}
	docs, err := s.repo.ListDocumentsByFolder(ctx, folderID, opts)
	if err != nil {
		return nil, E(KindStorage, op, folderID, err)
	}
	return docs, nil
}

// ListOwnDocuments lists the principal's own documents, newest first.
func (s *Service) ListOwnDocuments(ctx context.Context, principal model.Principal, opts ListOptions) ([]*model.Document, error) {
	docs, err := s.repo.ListDocumentsByOwner(ctx, principal.ID, opts)
	if err != nil {
		return nil, E(KindStorage, "list", principal.ID, err)
	}
	return docs, nil
}

// ListAudit returns the most recent audit entries, newest first.
func (s *Service) ListAudit(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	entries, err := s.repo.ListAudit(ctx, limit)
	if err != nil {
		return nil, E(KindStorage, "audit", "", err)
	}
	return entries, nil
}

// ListOrphanCandidates returns storage keys flagged as possibly
// unreferenced by failed compensations and purges. An external sweep
// decides whether to reclaim them; nothing here deletes blobs.
func (s *Service) ListOrphanCandidates(ctx context.Context, limit int) ([]*model.OrphanCandidate, error) {
	if limit <= 0 {
		limit = 100
	}
	candidates, err := s.repo.ListOrphanCandidates(ctx, limit)
	if err != nil {
		return nil, E(KindStorage, "orphans", "", err)
	}
	return candidates, nil
}
