package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docvault/internal/core"
	"docvault/internal/model"
)

func newDB(t *testing.T) *SQLDatabase {
	t.Helper()
	db, err := NewSQLiteDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testDocument(id, folderID, name string) (*model.Document, *model.Version) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	doc := &model.Document{
		ID:               id,
		OwnerID:          "alice",
		FolderID:         folderID,
		Name:             name,
		CurrentVersionID: id + "-v1",
		CurrentSeq:       1,
		ContentType:      "text/plain",
		State:            model.StateActive,
		CreatedAt:        now,
		ModifiedAt:       now,
	}
	first := &model.Version{
		ID:          id + "-v1",
		DocumentID:  id,
		Seq:         1,
		StorageKey:  "documents/" + id + "/" + id + "-v1",
		ContentHash: "abc123",
		Size:        11,
		ContentType: "text/plain",
		CreatedBy:   "alice",
		CreatedAt:   now,
	}
	return doc, first
}

func mustFolder(t *testing.T, db *SQLDatabase, id string, parentID *string) *model.Folder {
	t.Helper()
	f := &model.Folder{
		ID:        id,
		ParentID:  parentID,
		OwnerID:   "alice",
		Name:      id,
		CreatedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
	require.NoError(t, db.CreateFolder(context.Background(), f))
	return f
}

func TestDocumentRoundtrip(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	mustFolder(t, db, "f1", nil)
	doc, first := testDocument("d1", "f1", "a.txt")
	doc.Tags = []string{"draft", "urgent"}
	require.NoError(t, db.CreateDocument(ctx, doc, first))

	got, err := db.FindDocument(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "a.txt", got.Name)
	require.Equal(t, []string{"draft", "urgent"}, got.Tags)
	require.Equal(t, model.StateActive, got.State)
	require.Equal(t, int64(1), got.CurrentSeq)
	require.Nil(t, got.TrashedAt)

	// The first version is committed in the same transaction.
	v, err := db.FindVersion(ctx, "d1-v1")
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Equal(t, int64(1), v.Seq)

	missing, err := db.FindDocument(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestCreateDocumentDuplicateName(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	mustFolder(t, db, "f1", nil)
	doc, first := testDocument("d1", "f1", "a.txt")
	require.NoError(t, db.CreateDocument(ctx, doc, first))

	dup, dupFirst := testDocument("d2", "f1", "a.txt")
	err := db.CreateDocument(ctx, dup, dupFirst)
	require.Error(t, err)
	require.True(t, errors.Is(err, core.ErrDuplicate))

	// The freed name can be reused after trashing the holder.
	require.NoError(t, db.SetDocumentState(ctx, "d1", model.StateTrashed))
	require.NoError(t, db.CreateDocument(ctx, dup, dupFirst))
}

func TestFindDocumentByNameIgnoresTrashed(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	mustFolder(t, db, "f1", nil)
	doc, first := testDocument("d1", "f1", "a.txt")
	require.NoError(t, db.CreateDocument(ctx, doc, first))

	got, err := db.FindDocumentByName(ctx, "f1", "a.txt")
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, db.SetDocumentState(ctx, "d1", model.StateTrashed))
	got, err = db.FindDocumentByName(ctx, "f1", "a.txt")
	require.NoError(t, err)
	require.Nil(t, got)

	trashed, err := db.FindDocument(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, trashed.TrashedAt)
}

func TestCommitVersionDuplicateSeq(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	mustFolder(t, db, "f1", nil)
	doc, first := testDocument("d1", "f1", "a.txt")
	require.NoError(t, db.CreateDocument(ctx, doc, first))

	v2 := &model.Version{
		ID: "d1-v2", DocumentID: "d1", Seq: 2,
		StorageKey: "documents/d1/d1-v2", ContentHash: "def", Size: 5,
		ContentType: "text/plain", CreatedBy: "alice", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.CommitVersion(ctx, v2))

	// A second commit at the same sequence is a duplicate: the unique
	// constraint on (document_id, seq) keeps history gap-free.
	race := &model.Version{
		ID: "d1-v2b", DocumentID: "d1", Seq: 2,
		StorageKey: "documents/d1/d1-v2b", ContentHash: "ghi", Size: 5,
		ContentType: "text/plain", CreatedBy: "alice", CreatedAt: time.Now().UTC(),
	}
	err := db.CommitVersion(ctx, race)
	require.Error(t, err)
	require.True(t, errors.Is(err, core.ErrDuplicate))

	// The losing commit left nothing behind.
	got, err := db.FindDocument(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "d1-v2", got.CurrentVersionID)
	require.Equal(t, int64(2), got.CurrentSeq)
	versions, err := db.ListVersions(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
}

func TestPurgeDocumentReturnsKeys(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	mustFolder(t, db, "f1", nil)
	doc, first := testDocument("d1", "f1", "a.txt")
	require.NoError(t, db.CreateDocument(ctx, doc, first))
	v2 := &model.Version{
		ID: "d1-v2", DocumentID: "d1", Seq: 2,
		StorageKey: "documents/d1/d1-v2", ContentHash: "def", Size: 5,
		ContentType: "text/plain", CreatedBy: "alice", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.CommitVersion(ctx, v2))

	keys, err := db.PurgeDocument(ctx, "d1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"documents/d1/d1-v1", "documents/d1/d1-v2"}, keys)

	got, err := db.FindDocument(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, model.StatePurged, got.State)
	require.Empty(t, got.CurrentVersionID)

	versions, err := db.ListVersions(ctx, "d1")
	require.NoError(t, err)
	require.Empty(t, versions)
}

func TestGrantUpsertReplaces(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	g := &model.Grant{
		ID: "g1", SubjectID: "bob", SubjectKind: model.SubjectPrincipal,
		ResourceID: "d1", ResourceKind: model.ResourceDocument,
		Capabilities: model.Caps(model.CapRead), GrantedBy: "alice", GrantedAt: at,
	}
	require.NoError(t, db.CreateGrant(ctx, g))

	// Granting again for the same subject and resource replaces the
	// capabilities rather than stacking a second row.
	g2 := &model.Grant{
		ID: "g2", SubjectID: "bob", SubjectKind: model.SubjectPrincipal,
		ResourceID: "d1", ResourceKind: model.ResourceDocument,
		Capabilities: model.Caps(model.CapRead, model.CapWrite), GrantedBy: "alice", GrantedAt: at.Add(time.Hour),
	}
	require.NoError(t, db.CreateGrant(ctx, g2))

	grants, err := db.ListGrantsForResource(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, model.Caps(model.CapRead, model.CapWrite), grants[0].Capabilities)

	require.NoError(t, db.DeleteGrant(ctx, "bob", model.SubjectPrincipal, "d1"))
	grants, err = db.ListGrantsForResource(ctx, "d1")
	require.NoError(t, err)
	require.Empty(t, grants)
}

func TestListGrantsByResources(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	for i, res := range []string{"d1", "f1", "f2"} {
		g := &model.Grant{
			ID: "g" + string(rune('1'+i)), SubjectID: "bob", SubjectKind: model.SubjectPrincipal,
			ResourceID: res, ResourceKind: model.ResourceDocument,
			Capabilities: model.Caps(model.CapRead), GrantedBy: "alice", GrantedAt: at,
		}
		require.NoError(t, db.CreateGrant(ctx, g))
	}

	grants, err := db.ListGrantsByResources(ctx, []string{"d1", "f2", "absent"})
	require.NoError(t, err)
	require.Len(t, grants, 2)

	grants, err = db.ListGrantsByResources(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, grants)
}

func TestFolderAncestors(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	root := mustFolder(t, db, "root", nil)
	mid := mustFolder(t, db, "mid", &root.ID)
	leaf := mustFolder(t, db, "leaf", &mid.ID)

	ancestors, err := db.ListFolderAncestors(ctx, leaf.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	require.Equal(t, "mid", ancestors[0].ID)
	require.Equal(t, "root", ancestors[1].ID)

	// Moving mid under root's sibling shortens the chain.
	other := mustFolder(t, db, "other", nil)
	require.NoError(t, db.MoveFolder(ctx, mid.ID, &other.ID))
	ancestors, err = db.ListFolderAncestors(ctx, leaf.ID)
	require.NoError(t, err)
	require.Equal(t, "other", ancestors[1].ID)

	// Root lookup by empty parent id.
	found, err := db.FindFolderByName(ctx, "", "root")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Nil(t, found.ParentID)
}

func TestBatchJobRoundtrip(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	started := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	job := &model.BatchJob{
		ID: "j1", Kind: "delete", PrincipalID: "alice",
		Status: model.BatchRunning, StartedAt: started,
		Items: []model.BatchItem{
			{Position: 0, TargetID: "d1"},
			{Position: 1, TargetID: "d2"},
		},
	}
	require.NoError(t, db.CreateBatchJob(ctx, job))

	finished := started.Add(time.Minute)
	job.Status = model.BatchCompletedWithErrors
	job.FinishedAt = &finished
	job.Items[0].Status = model.ItemSucceeded
	job.Items[1].Status = model.ItemFailed
	job.Items[1].ErrorKind = "Unauthorized"
	job.Items[1].Reason = "no grant"
	require.NoError(t, db.FinishBatchJob(ctx, job))

	got, err := db.FindBatchJob(ctx, "j1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, model.BatchCompletedWithErrors, got.Status)
	require.NotNil(t, got.FinishedAt)
	require.Len(t, got.Items, 2)
	require.Equal(t, model.ItemSucceeded, got.Items[0].Status)
	require.Equal(t, "Unauthorized", got.Items[1].ErrorKind)

	missing, err := db.FindBatchJob(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestAuditAndOrphans(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.AppendAudit(ctx, &model.AuditEntry{
			ActorID: "alice", Action: "create", ResourceID: "d1",
			Outcome: "success", CreatedAt: at,
		}))
	}
	entries, err := db.ListAudit(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first by insertion order.
	require.Greater(t, entries[0].ID, entries[1].ID)

	require.NoError(t, db.AddOrphanCandidate(ctx, "documents/d1/v9", "compensating delete failed"))
	candidates, err := db.ListOrphanCandidates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "documents/d1/v9", candidates[0].StorageKey)
}

func TestListActiveDocumentsPagination(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	mustFolder(t, db, "f1", nil)
	for _, id := range []string{"a", "b", "c"} {
		doc, first := testDocument(id, "f1", id+".txt")
		require.NoError(t, db.CreateDocument(ctx, doc, first))
	}
	require.NoError(t, db.SetDocumentState(ctx, "b", model.StateTrashed))

	page, err := db.ListActiveDocuments(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "a", page[0].ID)
	require.Equal(t, "c", page[1].ID)

	page, err = db.ListActiveDocuments(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "c", page[0].ID)
}
