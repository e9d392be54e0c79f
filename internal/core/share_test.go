package core_test

import (
	"context"
	"strings"
	"testing"

	"docvault/internal/core"
	"docvault/internal/model"
)

func TestShareGrantsAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.mustFolder(alice, nil, "docs")
	doc := f.mustCreate(alice, folder.ID, "a.txt", "secret")

	if _, err := f.download(bob, doc.ID); !core.IsUnauthorized(err) {
		t.Fatalf("pre-share download error = %v, want Unauthorized", err)
	}

	_, err := f.svc.Share(ctx, alice, doc.ID, model.ResourceDocument,
		bob.ID, model.SubjectPrincipal, model.Caps(model.CapRead))
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}

	if got, err := f.download(bob, doc.ID); err != nil || got != "secret" {
		t.Errorf("post-share download = %q, %v", got, err)
	}
	// Read does not imply write.
	if _, err := f.svc.UpdateContent(ctx, bob, doc.ID, "", strings.NewReader("x")); !core.IsUnauthorized(err) {
		t.Errorf("UpdateContent with read-only grant error = %v, want Unauthorized", err)
	}

	if err := f.svc.Unshare(ctx, alice, doc.ID, model.ResourceDocument, bob.ID, model.SubjectPrincipal); err != nil {
		t.Fatalf("Unshare failed: %v", err)
	}
	if _, err := f.download(bob, doc.ID); !core.IsUnauthorized(err) {
		t.Errorf("post-unshare download error = %v, want Unauthorized", err)
	}
}

func TestShareRequiresShareCapability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.mustFolder(alice, nil, "docs")
	doc := f.mustCreate(alice, folder.ID, "a.txt", "x")

	// bob holds read+write but not share; regranting is not allowed.
	_, err := f.svc.Share(ctx, alice, doc.ID, model.ResourceDocument,
		bob.ID, model.SubjectPrincipal, model.Caps(model.CapRead, model.CapWrite))
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}
	carol := model.Principal{ID: "carol"}
	_, err = f.svc.Share(ctx, bob, doc.ID, model.ResourceDocument,
		carol.ID, model.SubjectPrincipal, model.Caps(model.CapRead))
	if !core.IsUnauthorized(err) {
		t.Errorf("Share without share capability error = %v, want Unauthorized", err)
	}
}

func TestFolderShareInheritsToDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.mustFolder(alice, nil, "team")
	child := f.mustFolder(alice, &parent.ID, "reports")
	doc := f.mustCreate(alice, child.ID, "q3.txt", "numbers")

	// A role grant on the parent folder reaches documents in subfolders.
	_, err := f.svc.Share(ctx, alice, parent.ID, model.ResourceFolder,
		"auditors", model.SubjectRole, model.Caps(model.CapRead))
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}

	auditor := model.Principal{ID: "carol", Roles: []string{"auditors"}}
	if got, err := f.download(auditor, doc.ID); err != nil || got != "numbers" {
		t.Errorf("download via folder role grant = %q, %v", got, err)
	}

	// An empty grant directly on the document is an explicit deny and
	// overrides the inherited folder grant.
	_, err = f.svc.Share(ctx, alice, doc.ID, model.ResourceDocument,
		"auditors", model.SubjectRole, model.CapabilitySet(0))
	if err != nil {
		t.Fatalf("deny Share failed: %v", err)
	}
	if _, err := f.download(auditor, doc.ID); !core.IsUnauthorized(err) {
		t.Errorf("download past explicit deny error = %v, want Unauthorized", err)
	}
}

func TestListShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.mustFolder(alice, nil, "docs")
	doc := f.mustCreate(alice, folder.ID, "a.txt", "x")

	if _, err := f.svc.Share(ctx, alice, doc.ID, model.ResourceDocument,
		bob.ID, model.SubjectPrincipal, model.Caps(model.CapRead)); err != nil {
		t.Fatalf("Share failed: %v", err)
	}

	grants, err := f.svc.ListShares(ctx, alice, doc.ID, model.ResourceDocument)
	if err != nil {
		t.Fatalf("ListShares failed: %v", err)
	}
	if len(grants) != 1 || grants[0].SubjectID != bob.ID {
		t.Errorf("grants = %+v, want single grant for bob", grants)
	}

	stranger := model.Principal{ID: "mallory"}
	if _, err := f.svc.ListShares(ctx, stranger, doc.ID, model.ResourceDocument); !core.IsUnauthorized(err) {
		t.Errorf("ListShares by stranger error = %v, want Unauthorized", err)
	}
}

func TestUpdateTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.mustFolder(alice, nil, "docs")
	doc := f.mustCreate(alice, folder.ID, "a.txt", "x")

	tags, err := f.svc.UpdateTags(ctx, alice, doc.ID, []string{"urgent", "draft"}, nil)
	if err != nil {
		t.Fatalf("UpdateTags add failed: %v", err)
	}
	if len(tags) != 2 || tags[0] != "draft" || tags[1] != "urgent" {
		t.Errorf("tags = %v, want [draft urgent]", tags)
	}

	// Adding an existing tag is a no-op, removal drops it.
	tags, err = f.svc.UpdateTags(ctx, alice, doc.ID, []string{"urgent"}, []string{"draft"})
	if err != nil {
		t.Fatalf("UpdateTags mutate failed: %v", err)
	}
	if len(tags) != 1 || tags[0] != "urgent" {
		t.Errorf("tags = %v, want [urgent]", tags)
	}

	reloaded, err := f.repo.FindDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("FindDocument failed: %v", err)
	}
	if len(reloaded.Tags) != 1 || reloaded.Tags[0] != "urgent" {
		t.Errorf("persisted tags = %v, want [urgent]", reloaded.Tags)
	}

	if _, err := f.svc.UpdateTags(ctx, bob, doc.ID, []string{"x"}, nil); !core.IsUnauthorized(err) {
		t.Errorf("UpdateTags by stranger error = %v, want Unauthorized", err)
	}
}

func TestSearchScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	aliceFolder := f.mustFolder(alice, nil, "alice-docs")
	bobFolder := f.mustFolder(bob, nil, "bob-docs")
	mine := f.mustCreate(alice, aliceFolder.ID, "mine.txt", "x")
	theirs := f.mustCreate(bob, bobFolder.ID, "theirs.txt", "y")

	if _, err := f.svc.Share(ctx, bob, theirs.ID, model.ResourceDocument,
		alice.ID, model.SubjectPrincipal, model.Caps(model.CapRead)); err != nil {
		t.Fatalf("Share failed: %v", err)
	}
	for _, id := range []string{mine.ID, theirs.ID} {
		if err := f.sync.SyncOne(ctx, id); err != nil {
			t.Fatalf("SyncOne(%s) failed: %v", id, err)
		}
	}

	// Default scope is own documents.
	results, err := f.svc.Search(ctx, alice, core.SearchQuery{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].DocumentID != mine.ID {
		t.Errorf("own search = %+v, want only %s", results, mine.ID)
	}

	// SharedWithMe flips to documents granted to the caller.
	results, err = f.svc.Search(ctx, alice, core.SearchQuery{SharedWithMe: true})
	if err != nil {
		t.Fatalf("shared Search failed: %v", err)
	}
	if len(results) != 1 || results[0].DocumentID != theirs.ID {
		t.Errorf("shared search = %+v, want only %s", results, theirs.ID)
	}

	// Text filter narrows by name.
	results, err = f.svc.Search(ctx, alice, core.SearchQuery{Text: "nope"})
	if err != nil {
		t.Fatalf("text Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("text search = %+v, want empty", results)
	}
}
