package core

import (
	"context"
	"errors"
	"fmt"

	"docvault/internal/model"
)

// CreateFolder creates a folder under parentID (empty for root level).
// Sibling names must be unique.
func (s *Service) CreateFolder(ctx context.Context, principal model.Principal, parentID *string, name string) (*model.Folder, error) {
	const op = "create-folder"

	if name == "" {
		return nil, E(KindInvalidStructure, op, "", "folder name is empty")
	}

	if parentID != nil {
		parent, err := s.loadFolder(ctx, op, *parentID)
		if err != nil {
			return nil, err
		}
		if err := s.authorizeFolder(ctx, principal, parent, model.CapWrite); err != nil {
			s.emit(ctx, principal, op, *parentID, err, name)
			return nil, err
		}
	}

	unlock := s.locks.Lock(folderStructureKey)
	defer unlock()

	parentKey := ""
	if parentID != nil {
		parentKey = *parentID
	}
	existing, err := s.repo.FindFolderByName(ctx, parentKey, name)
	if err != nil {
		return nil, E(KindStorage, op, parentKey, err)
	}
	if existing != nil {
		err = E(KindInvalidStructure, op, parentKey, fmt.Sprintf("folder name %q already exists", name))
		s.emit(ctx, principal, op, parentKey, err, name)
		return nil, err
	}

	f := &model.Folder{
		ID:        s.idgen.New(),
		ParentID:  parentID,
		OwnerID:   principal.ID,
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateFolder(ctx, f); err != nil {
		return nil, E(KindStorage, op, f.ID, err)
	}

	s.emit(ctx, principal, op, f.ID, nil, name)
	s.logger.Info("folder created", "folder", f.ID, "name", name)
	return f, nil
}

// MoveFolder re-parents a folder. It fails with InvalidStructure if the
// destination is the folder itself or one of its descendants (the folder
// graph must stay acyclic), or if the destination already has a child
// with the same name.
func (s *Service) MoveFolder(ctx context.Context, principal model.Principal, folderID string, newParentID *string) error {
	const op = "move-folder"

	folder, err := s.loadFolder(ctx, op, folderID)
	if err != nil {
		return err
	}
	if err := s.authorizeFolder(ctx, principal, folder, model.CapWrite); err != nil {
		s.emit(ctx, principal, op, folderID, err, "")
		return err
	}

	unlock := s.locks.Lock(folderStructureKey)
	defer unlock()

	newParentKey := ""
	if newParentID != nil {
		newParentKey = *newParentID

		parent, err := s.loadFolder(ctx, op, *newParentID)
		if err != nil {
			return err
		}
		if err := s.authorizeFolder(ctx, principal, parent, model.CapWrite); err != nil {
			s.emit(ctx, principal, op, folderID, err, "")
			return err
		}

		// Cycle check: walk from the destination up to the root. If the
		// moved folder appears on that path, it would become its own
		// ancestor.
		if *newParentID == folderID {
			err = E(KindInvalidStructure, op, folderID, "folder cannot contain itself")
			s.emit(ctx, principal, op, folderID, err, "")
			return err
		}
		ancestors, err := s.repo.ListFolderAncestors(ctx, *newParentID)
		if err != nil {
			return E(KindStorage, op, folderID, err)
		}
		for _, anc := range ancestors {
			if anc.ID == folderID {
				err = E(KindInvalidStructure, op, folderID,
					fmt.Sprintf("destination %s is a descendant of %s", *newParentID, folderID))
				s.emit(ctx, principal, op, folderID, err, "")
				return err
			}
		}
	}

	sibling, err := s.repo.FindFolderByName(ctx, newParentKey, folder.Name)
	if err != nil {
		return E(KindStorage, op, folderID, err)
	}
	if sibling != nil && sibling.ID != folderID {
		err = E(KindInvalidStructure, op, folderID,
			fmt.Sprintf("folder name %q already exists at destination", folder.Name))
		s.emit(ctx, principal, op, folderID, err, "")
		return err
	}

	if err := s.repo.MoveFolder(ctx, folderID, newParentID); err != nil {
		return E(KindStorage, op, folderID, err)
	}

	s.emit(ctx, principal, op, folderID, nil, "")
	s.logger.Info("folder moved", "folder", folderID)
	return nil
}

// RenameFolder changes a folder's name, keeping sibling names unique.
func (s *Service) RenameFolder(ctx context.Context, principal model.Principal, folderID, name string) error {
	const op = "rename-folder"

	if name == "" {
		return E(KindInvalidStructure, op, folderID, "folder name is empty")
	}

	folder, err := s.loadFolder(ctx, op, folderID)
	if err != nil {
		return err
	}
	if err := s.authorizeFolder(ctx, principal, folder, model.CapWrite); err != nil {
		s.emit(ctx, principal, op, folderID, err, name)
		return err
	}

	unlock := s.locks.Lock(folderStructureKey)
	defer unlock()

	parentKey := ""
	if folder.ParentID != nil {
		parentKey = *folder.ParentID
	}
	sibling, err := s.repo.FindFolderByName(ctx, parentKey, name)
	if err != nil {
		return E(KindStorage, op, folderID, err)
	}
	if sibling != nil && sibling.ID != folderID {
		err = E(KindInvalidStructure, op, folderID, fmt.Sprintf("folder name %q already exists", name))
		s.emit(ctx, principal, op, folderID, err, name)
		return err
	}

	if err := s.repo.RenameFolder(ctx, folderID, name); err != nil {
		return E(KindStorage, op, folderID, err)
	}

	s.emit(ctx, principal, op, folderID, nil, name)
	return nil
}

// MoveDocument moves a document to another folder, optionally renaming
// it. The destination must not already hold an active document with the
// final name.
func (s *Service) MoveDocument(ctx context.Context, principal model.Principal, documentID, destFolderID, newName string) error {
	const op = "move"

	doc, err := s.loadDocument(ctx, op, documentID)
	if err != nil {
		return err
	}
	if doc.State == model.StateTrashed {
		err = E(KindConflict, op, documentID, "document is trashed")
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}
	if err := s.authorizeDocument(ctx, principal, doc, model.CapWrite); err != nil {
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}

	dest, err := s.loadFolder(ctx, op, destFolderID)
	if err != nil {
		return err
	}
	if err := s.authorizeFolder(ctx, principal, dest, model.CapWrite); err != nil {
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}

	name := doc.Name
	if newName != "" {
		name = newName
	}

	unlock := s.locks.Lock("doc:" + documentID)
	defer unlock()

	sibling, err := s.repo.FindDocumentByName(ctx, destFolderID, name)
	if err != nil {
		return E(KindStorage, op, documentID, err)
	}
	if sibling != nil && sibling.ID != documentID {
		err = E(KindInvalidStructure, op, documentID,
			fmt.Sprintf("name %q already exists in folder %s", name, destFolderID))
		s.emit(ctx, principal, op, documentID, err, "")
		return err
	}

	if err := s.repo.MoveDocument(ctx, documentID, destFolderID, name); err != nil {
		if errors.Is(err, ErrDuplicate) {
			err = E(KindInvalidStructure, op, documentID,
				fmt.Sprintf("name %q already exists in folder %s", name, destFolderID))
			s.emit(ctx, principal, op, documentID, err, "")
			return err
		}
		return E(KindStorage, op, documentID, err)
	}
	s.step(op, documentID, stepMetadata)

	s.sync.Enqueue(documentID, doc.CurrentVersionID)
	s.step(op, documentID, stepIndexEnqueue)

	s.emit(ctx, principal, op, documentID, nil, fmt.Sprintf("to %s as %q", destFolderID, name))
	s.logger.Info("document moved", "document", documentID, "folder", destFolderID)
	return nil
}

// RenameDocument changes a document's name within its folder.
func (s *Service) RenameDocument(ctx context.Context, principal model.Principal, documentID, name string) error {
	doc, err := s.loadDocument(ctx, "rename", documentID)
	if err != nil {
		return err
	}
	if name == "" {
		return E(KindInvalidStructure, "rename", documentID, "document name is empty")
	}
	return s.MoveDocument(ctx, principal, documentID, doc.FolderID, name)
}
