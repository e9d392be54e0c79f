package core

import (
	"context"
	"fmt"
	"sort"

	"docvault/internal/model"
)

// Share grants a subject capabilities on a document or folder. The actor
// needs the share capability. Granting replaces any previous grant for
// the same subject on the resource; granting the empty set is an explicit
// deny. Sharing a document re-enqueues index sync, since the shared-with
// list is an indexed field.
func (s *Service) Share(ctx context.Context, principal model.Principal, resourceID string, resourceKind model.ResourceKind, subjectID string, subjectKind model.SubjectKind, caps model.CapabilitySet) (*model.Grant, error) {
	const op = "share"

	doc, err := s.authorizeShare(ctx, principal, resourceID, resourceKind)
	if err != nil {
		s.emit(ctx, principal, op, resourceID, err, subjectID)
		return nil, err
	}

	g := &model.Grant{
		ID:           s.idgen.New(),
		SubjectID:    subjectID,
		SubjectKind:  subjectKind,
		ResourceID:   resourceID,
		ResourceKind: resourceKind,
		Capabilities: caps,
		GrantedBy:    principal.ID,
		GrantedAt:    s.clock.Now(),
	}
	if err := s.repo.CreateGrant(ctx, g); err != nil {
		err = E(KindStorage, op, resourceID, err)
		s.emit(ctx, principal, op, resourceID, err, subjectID)
		return nil, err
	}

	if doc != nil {
		s.sync.Enqueue(doc.ID, doc.CurrentVersionID)
	}

	s.emit(ctx, principal, op, resourceID, nil, fmt.Sprintf("%s:%s=%s", subjectKind, subjectID, caps))
	s.logger.Info("grant created", "resource", resourceID, "subject", subjectID, "caps", caps.String())
	return g, nil
}

// Unshare removes a subject's grant on a resource.
func (s *Service) Unshare(ctx context.Context, principal model.Principal, resourceID string, resourceKind model.ResourceKind, subjectID string, subjectKind model.SubjectKind) error {
	const op = "unshare"

	doc, err := s.authorizeShare(ctx, principal, resourceID, resourceKind)
	if err != nil {
		s.emit(ctx, principal, op, resourceID, err, subjectID)
		return err
	}

	if err := s.repo.DeleteGrant(ctx, subjectID, subjectKind, resourceID); err != nil {
		err = E(KindStorage, op, resourceID, err)
		s.emit(ctx, principal, op, resourceID, err, subjectID)
		return err
	}

	if doc != nil {
		s.sync.Enqueue(doc.ID, doc.CurrentVersionID)
	}

	s.emit(ctx, principal, op, resourceID, nil, subjectID)
	return nil
}

// authorizeShare loads the resource and checks the share capability.
// Returns the document when the resource is one, for index re-sync.
func (s *Service) authorizeShare(ctx context.Context, principal model.Principal, resourceID string, resourceKind model.ResourceKind) (*model.Document, error) {
	switch resourceKind {
	case model.ResourceDocument:
		doc, err := s.loadDocument(ctx, "share", resourceID)
		if err != nil {
			return nil, err
		}
		if err := s.authorizeDocument(ctx, principal, doc, model.CapShare); err != nil {
			return nil, err
		}
		return doc, nil
	case model.ResourceFolder:
		folder, err := s.loadFolder(ctx, "share", resourceID)
		if err != nil {
			return nil, err
		}
		if err := s.authorizeFolder(ctx, principal, folder, model.CapShare); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return nil, E(KindNotFound, "share", resourceID, "unknown resource kind")
}

// ListShares returns the grants attached directly to a resource. The
// actor needs read on the resource.
func (s *Service) ListShares(ctx context.Context, principal model.Principal, resourceID string, resourceKind model.ResourceKind) ([]*model.Grant, error) {
	const op = "list-shares"

	if _, err := s.authorizeRead(ctx, principal, resourceID, resourceKind); err != nil {
		s.emit(ctx, principal, op, resourceID, err, "")
		return nil, err
	}

	grants, err := s.repo.ListGrantsForResource(ctx, resourceID)
	if err != nil {
		return nil, E(KindStorage, op, resourceID, err)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].GrantedAt.Before(grants[j].GrantedAt) })
	return grants, nil
}

func (s *Service) authorizeRead(ctx context.Context, principal model.Principal, resourceID string, resourceKind model.ResourceKind) (*model.Document, error) {
	switch resourceKind {
	case model.ResourceDocument:
		doc, err := s.loadDocument(ctx, "read", resourceID)
		if err != nil {
			return nil, err
		}
		return doc, s.authorizeDocument(ctx, principal, doc, model.CapRead)
	case model.ResourceFolder:
		folder, err := s.loadFolder(ctx, "read", resourceID)
		if err != nil {
			return nil, err
		}
		return nil, s.authorizeFolder(ctx, principal, folder, model.CapRead)
	}
	return nil, E(KindNotFound, "read", resourceID, "unknown resource kind")
}

// UpdateTags adds and removes tags on a document and re-enqueues index
// sync. Tag order is not significant; the stored set is sorted for
// deterministic reads.
func (s *Service) UpdateTags(ctx context.Context, principal model.Principal, documentID string, add, remove []string) ([]string, error) {
	const op = "update-tags"

	doc, err := s.loadDocument(ctx, op, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeDocument(ctx, principal, doc, model.CapWrite); err != nil {
		s.emit(ctx, principal, op, documentID, err, "")
		return nil, err
	}

	unlock := s.locks.Lock("doc:" + documentID)
	defer unlock()

	doc, err = s.loadDocument(ctx, op, documentID)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(doc.Tags)+len(add))
	for _, t := range doc.Tags {
		set[t] = true
	}
	for _, t := range add {
		if t != "" {
			set[t] = true
		}
	}
	for _, t := range remove {
		delete(set, t)
	}

	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	if err := s.repo.UpdateDocumentTags(ctx, documentID, tags); err != nil {
		err = E(KindStorage, op, documentID, err)
		s.emit(ctx, principal, op, documentID, err, "")
		return nil, err
	}

	s.sync.Enqueue(documentID, doc.CurrentVersionID)
	s.emit(ctx, principal, op, documentID, nil, "")
	return tags, nil
}
