package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"docvault/internal/core"
	"docvault/internal/database/migrations"
	"docvault/internal/model"
)

// SQLDatabase implements the Repository interface over database/sql.
// Queries are written with ? placeholders and rebound for postgres.
type SQLDatabase struct {
	db      *sql.DB
	dialect migrations.Dialect
}

// Compile-time check that SQLDatabase implements core.Repository
var _ core.Repository = (*SQLDatabase)(nil)

// NewFromDB wraps an existing connection. The caller is responsible for
// schema setup and connection configuration.
func NewFromDB(db *sql.DB, dialect migrations.Dialect) *SQLDatabase {
	return &SQLDatabase{db: db, dialect: dialect}
}

// q rewrites ? placeholders to $1..$n for postgres. SQLite takes the
// query as written.
func (s *SQLDatabase) q(query string) string {
	if s.dialect != migrations.Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isDuplicate reports whether err is a unique-constraint violation from
// either driver.
func isDuplicate(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func mapDuplicate(err error) error {
	if isDuplicate(err) {
		return fmt.Errorf("%w: %v", core.ErrDuplicate, err)
	}
	return err
}

// Document operations

func (s *SQLDatabase) CreateDocument(ctx context.Context, doc *model.Document, first *model.Version) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	tags, err := encodeTags(doc.Tags)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO documents (id, owner_id, folder_id, name, current_version_id, current_seq,
			content_type, tags, state, created_at, modified_at, trashed_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		doc.ID, doc.OwnerID, doc.FolderID, doc.Name, doc.CurrentVersionID, doc.CurrentSeq,
		doc.ContentType, tags, string(doc.State), doc.CreatedAt, doc.ModifiedAt,
		nullTime(doc.TrashedAt), nullTime(doc.LastAccessedAt))
	if err != nil {
		return fmt.Errorf("inserting document: %w", mapDuplicate(err))
	}

	if err := insertVersion(ctx, tx, s.q, first); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing document: %w", err)
	}
	return nil
}

const documentColumns = `id, owner_id, folder_id, name, current_version_id, current_seq,
	content_type, tags, state, created_at, modified_at, trashed_at, last_accessed_at`

func (s *SQLDatabase) FindDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`), id)
	return scanDocument(row)
}

func (s *SQLDatabase) FindDocumentByName(ctx context.Context, folderID, name string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+documentColumns+` FROM documents WHERE folder_id = ? AND name = ? AND state = 'active'`),
		folderID, name)
	return scanDocument(row)
}

func (s *SQLDatabase) ListDocumentsByFolder(ctx context.Context, folderID string, opts core.ListOptions) ([]*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE folder_id = ?`
	if opts.IncludeTrashed {
		query += ` AND state != 'purged'`
	} else {
		query += ` AND state = 'active'`
	}
	query += ` ORDER BY created_at DESC, id`
	query, args := paginate(query, []any{folderID}, opts)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return collectDocuments(rows)
}

func (s *SQLDatabase) ListDocumentsByOwner(ctx context.Context, ownerID string, opts core.ListOptions) ([]*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE owner_id = ?`
	if opts.IncludeTrashed {
		query += ` AND state != 'purged'`
	} else {
		query += ` AND state = 'active'`
	}
	query += ` ORDER BY created_at DESC, id`
	query, args := paginate(query, []any{ownerID}, opts)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return collectDocuments(rows)
}

func (s *SQLDatabase) ListActiveDocuments(ctx context.Context, afterID string, limit int) ([]*model.Document, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+documentColumns+` FROM documents WHERE state = 'active' AND id > ? ORDER BY id LIMIT ?`),
		afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing active documents: %w", err)
	}
	return collectDocuments(rows)
}

func (s *SQLDatabase) MoveDocument(ctx context.Context, id, folderID, name string) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`UPDATE documents SET folder_id = ?, name = ?, modified_at = ? WHERE id = ?`),
		folderID, name, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("moving document: %w", mapDuplicate(err))
	}
	return nil
}

func (s *SQLDatabase) UpdateDocumentTags(ctx context.Context, id string, tags []string) error {
	encoded, err := encodeTags(tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(
		`UPDATE documents SET tags = ?, modified_at = ? WHERE id = ?`),
		encoded, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating tags: %w", err)
	}
	return nil
}

func (s *SQLDatabase) SetDocumentState(ctx context.Context, id string, state model.LifecycleState) error {
	now := time.Now().UTC()
	var trashedAt any
	if state == model.StateTrashed {
		trashedAt = now
	}
	_, err := s.db.ExecContext(ctx, s.q(
		`UPDATE documents SET state = ?, trashed_at = ?, modified_at = ? WHERE id = ?`),
		string(state), trashedAt, now, id)
	if err != nil {
		return fmt.Errorf("setting document state: %w", err)
	}
	return nil
}

func (s *SQLDatabase) TouchLastAccessed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`UPDATE documents SET last_accessed_at = ? WHERE id = ?`),
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("stamping last accessed: %w", err)
	}
	return nil
}

func (s *SQLDatabase) PurgeDocument(ctx context.Context, id string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, s.q(
		`SELECT storage_key FROM versions WHERE document_id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("listing version keys: %w", err)
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning storage key: %w", err)
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading version keys: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.q(
		`DELETE FROM versions WHERE document_id = ?`), id); err != nil {
		return nil, fmt.Errorf("deleting versions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(
		`UPDATE documents SET state = 'purged', current_version_id = '', modified_at = ? WHERE id = ?`),
		time.Now().UTC(), id); err != nil {
		return nil, fmt.Errorf("marking document purged: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing purge: %w", err)
	}
	return keys, nil
}

// Version operations

func (s *SQLDatabase) CommitVersion(ctx context.Context, v *model.Version) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertVersion(ctx, tx, s.q, v); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, s.q(
		`UPDATE documents SET current_version_id = ?, current_seq = ?, content_type = ?, modified_at = ? WHERE id = ?`),
		v.ID, v.Seq, v.ContentType, v.CreatedAt, v.DocumentID)
	if err != nil {
		return fmt.Errorf("updating current version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing version: %w", err)
	}
	return nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, q func(string) string, v *model.Version) error {
	_, err := tx.ExecContext(ctx, q(`
		INSERT INTO versions (id, document_id, seq, storage_key, content_hash, size, content_type, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		v.ID, v.DocumentID, v.Seq, v.StorageKey, v.ContentHash, v.Size, v.ContentType, v.CreatedBy, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting version: %w", mapDuplicate(err))
	}
	return nil
}

const versionColumns = `id, document_id, seq, storage_key, content_hash, size, content_type, created_by, created_at`

func (s *SQLDatabase) ListVersions(ctx context.Context, documentID string) ([]*model.Version, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+versionColumns+` FROM versions WHERE document_id = ? ORDER BY seq`), documentID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	defer rows.Close()

	var versions []*model.Version
	for rows.Next() {
		v, err := scanVersionRow(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *SQLDatabase) FindVersionBySeq(ctx context.Context, documentID string, seq int64) (*model.Version, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+versionColumns+` FROM versions WHERE document_id = ? AND seq = ?`), documentID, seq)
	return scanVersion(row)
}

func (s *SQLDatabase) FindVersion(ctx context.Context, id string) (*model.Version, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+versionColumns+` FROM versions WHERE id = ?`), id)
	return scanVersion(row)
}

// Folder operations

func (s *SQLDatabase) CreateFolder(ctx context.Context, f *model.Folder) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO folders (id, parent_id, owner_id, name, created_at) VALUES (?, ?, ?, ?, ?)`),
		f.ID, f.ParentID, f.OwnerID, f.Name, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting folder: %w", mapDuplicate(err))
	}
	return nil
}

func (s *SQLDatabase) FindFolder(ctx context.Context, id string) (*model.Folder, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT id, parent_id, owner_id, name, created_at FROM folders WHERE id = ?`), id)
	return scanFolder(row)
}

func (s *SQLDatabase) FindFolderByName(ctx context.Context, parentID, name string) (*model.Folder, error) {
	var row *sql.Row
	if parentID == "" {
		row = s.db.QueryRowContext(ctx, s.q(
			`SELECT id, parent_id, owner_id, name, created_at FROM folders WHERE parent_id IS NULL AND name = ?`), name)
	} else {
		row = s.db.QueryRowContext(ctx, s.q(
			`SELECT id, parent_id, owner_id, name, created_at FROM folders WHERE parent_id = ? AND name = ?`), parentID, name)
	}
	return scanFolder(row)
}

func (s *SQLDatabase) ListFolderAncestors(ctx context.Context, id string) ([]*model.Folder, error) {
	// Walk parent links in Go. A visited set guards against a corrupted
	// cycle in the stored tree.
	var ancestors []*model.Folder
	visited := map[string]bool{id: true}

	current, err := s.FindFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	for current != nil && current.ParentID != nil {
		parentID := *current.ParentID
		if visited[parentID] {
			return nil, fmt.Errorf("folder tree contains a cycle at %s", parentID)
		}
		visited[parentID] = true

		parent, err := s.FindFolder(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		ancestors = append(ancestors, parent)
		current = parent
	}
	return ancestors, nil
}

func (s *SQLDatabase) MoveFolder(ctx context.Context, id string, parentID *string) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`UPDATE folders SET parent_id = ? WHERE id = ?`), parentID, id)
	if err != nil {
		return fmt.Errorf("moving folder: %w", err)
	}
	return nil
}

func (s *SQLDatabase) RenameFolder(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`UPDATE folders SET name = ? WHERE id = ?`), name, id)
	if err != nil {
		return fmt.Errorf("renaming folder: %w", err)
	}
	return nil
}

// Grant operations

func (s *SQLDatabase) CreateGrant(ctx context.Context, g *model.Grant) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO grants (id, subject_id, subject_kind, resource_id, resource_kind, capabilities, granted_by, granted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject_id, subject_kind, resource_id) DO UPDATE SET
			capabilities = excluded.capabilities,
			granted_by = excluded.granted_by,
			granted_at = excluded.granted_at`),
		g.ID, g.SubjectID, string(g.SubjectKind), g.ResourceID, string(g.ResourceKind),
		int(g.Capabilities), g.GrantedBy, g.GrantedAt)
	if err != nil {
		return fmt.Errorf("upserting grant: %w", err)
	}
	return nil
}

func (s *SQLDatabase) DeleteGrant(ctx context.Context, subjectID string, subjectKind model.SubjectKind, resourceID string) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`DELETE FROM grants WHERE subject_id = ? AND subject_kind = ? AND resource_id = ?`),
		subjectID, string(subjectKind), resourceID)
	if err != nil {
		return fmt.Errorf("deleting grant: %w", err)
	}
	return nil
}

const grantColumns = `id, subject_id, subject_kind, resource_id, resource_kind, capabilities, granted_by, granted_at`

func (s *SQLDatabase) ListGrantsByResources(ctx context.Context, resourceIDs []string) ([]*model.Grant, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(resourceIDs)), ", ")
	args := make([]any, len(resourceIDs))
	for i, id := range resourceIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+grantColumns+` FROM grants WHERE resource_id IN (`+placeholders+`)`), args...)
	if err != nil {
		return nil, fmt.Errorf("listing grants: %w", err)
	}
	return collectGrants(rows)
}

func (s *SQLDatabase) ListGrantsForResource(ctx context.Context, resourceID string) ([]*model.Grant, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+grantColumns+` FROM grants WHERE resource_id = ?`), resourceID)
	if err != nil {
		return nil, fmt.Errorf("listing grants: %w", err)
	}
	return collectGrants(rows)
}

// Batch job operations

func (s *SQLDatabase) CreateBatchJob(ctx context.Context, job *model.BatchJob) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO batch_jobs (id, kind, principal_id, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		job.ID, job.Kind, job.PrincipalID, string(job.Status), job.StartedAt, nullTime(job.FinishedAt))
	if err != nil {
		return fmt.Errorf("inserting batch job: %w", mapDuplicate(err))
	}

	for _, item := range job.Items {
		_, err = tx.ExecContext(ctx, s.q(`
			INSERT INTO batch_items (job_id, position, target_id, status, error_kind, reason)
			VALUES (?, ?, ?, ?, ?, ?)`),
			job.ID, item.Position, item.TargetID, string(item.Status), item.ErrorKind, item.Reason)
		if err != nil {
			return fmt.Errorf("inserting batch item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch job: %w", err)
	}
	return nil
}

func (s *SQLDatabase) FinishBatchJob(ctx context.Context, job *model.BatchJob) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(
		`UPDATE batch_jobs SET status = ?, finished_at = ? WHERE id = ?`),
		string(job.Status), nullTime(job.FinishedAt), job.ID)
	if err != nil {
		return fmt.Errorf("updating batch job: %w", err)
	}

	for _, item := range job.Items {
		_, err = tx.ExecContext(ctx, s.q(`
			UPDATE batch_items SET target_id = ?, status = ?, error_kind = ?, reason = ?
			WHERE job_id = ? AND position = ?`),
			item.TargetID, string(item.Status), item.ErrorKind, item.Reason, job.ID, item.Position)
		if err != nil {
			return fmt.Errorf("updating batch item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch outcome: %w", err)
	}
	return nil
}

func (s *SQLDatabase) FindBatchJob(ctx context.Context, id string) (*model.BatchJob, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT id, kind, principal_id, status, started_at, finished_at FROM batch_jobs WHERE id = ?`), id)

	var job model.BatchJob
	var status string
	var finishedAt sql.NullTime
	err := row.Scan(&job.ID, &job.Kind, &job.PrincipalID, &status, &job.StartedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning batch job: %w", err)
	}
	job.Status = model.BatchStatus(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}

	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT position, target_id, status, error_kind, reason FROM batch_items WHERE job_id = ? ORDER BY position`), id)
	if err != nil {
		return nil, fmt.Errorf("listing batch items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.BatchItem
		var itemStatus string
		if err := rows.Scan(&item.Position, &item.TargetID, &itemStatus, &item.ErrorKind, &item.Reason); err != nil {
			return nil, fmt.Errorf("scanning batch item: %w", err)
		}
		item.Status = model.ItemStatus(itemStatus)
		job.Items = append(job.Items, item)
	}
	return &job, rows.Err()
}

// Audit operations

func (s *SQLDatabase) AppendAudit(ctx context.Context, e *model.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO audit_log (actor_id, action, resource_id, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		e.ActorID, e.Action, e.ResourceID, e.Outcome, e.Detail, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

func (s *SQLDatabase) ListAudit(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, actor_id, action, resource_id, outcome, detail, created_at FROM audit_log ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.ResourceID, &e.Outcome, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Orphan candidates

func (s *SQLDatabase) AddOrphanCandidate(ctx context.Context, storageKey, reason string) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO orphan_candidates (storage_key, reason, created_at) VALUES (?, ?, ?)`),
		storageKey, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording orphan candidate: %w", err)
	}
	return nil
}

func (s *SQLDatabase) ListOrphanCandidates(ctx context.Context, limit int) ([]*model.OrphanCandidate, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, storage_key, reason, created_at FROM orphan_candidates ORDER BY id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("listing orphan candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*model.OrphanCandidate
	for rows.Next() {
		var c model.OrphanCandidate
		if err := rows.Scan(&c.ID, &c.StorageKey, &c.Reason, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning orphan candidate: %w", err)
		}
		candidates = append(candidates, &c)
	}
	return candidates, rows.Err()
}

// Close closes the underlying connection.
func (s *SQLDatabase) Close() error {
	return s.db.Close()
}

// Scanning helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var doc model.Document
	var tags, state string
	var trashedAt, lastAccessedAt sql.NullTime
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.FolderID, &doc.Name, &doc.CurrentVersionID,
		&doc.CurrentSeq, &doc.ContentType, &tags, &state, &doc.CreatedAt, &doc.ModifiedAt,
		&trashedAt, &lastAccessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.State = model.LifecycleState(state)
	if err := json.Unmarshal([]byte(tags), &doc.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if trashedAt.Valid {
		t := trashedAt.Time
		doc.TrashedAt = &t
	}
	if lastAccessedAt.Valid {
		t := lastAccessedAt.Time
		doc.LastAccessedAt = &t
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]*model.Document, error) {
	defer rows.Close()
	var docs []*model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanVersion(row *sql.Row) (*model.Version, error) {
	v, err := scanVersionRow(row)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func scanVersionRow(row rowScanner) (*model.Version, error) {
	var v model.Version
	err := row.Scan(&v.ID, &v.DocumentID, &v.Seq, &v.StorageKey, &v.ContentHash,
		&v.Size, &v.ContentType, &v.CreatedBy, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning version: %w", err)
	}
	return &v, nil
}

func scanFolder(row *sql.Row) (*model.Folder, error) {
	var f model.Folder
	var parentID sql.NullString
	err := row.Scan(&f.ID, &parentID, &f.OwnerID, &f.Name, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning folder: %w", err)
	}
	if parentID.Valid {
		p := parentID.String
		f.ParentID = &p
	}
	return &f, nil
}

func collectGrants(rows *sql.Rows) ([]*model.Grant, error) {
	defer rows.Close()
	var grants []*model.Grant
	for rows.Next() {
		var g model.Grant
		var subjectKind, resourceKind string
		var caps int
		if err := rows.Scan(&g.ID, &g.SubjectID, &subjectKind, &g.ResourceID, &resourceKind,
			&caps, &g.GrantedBy, &g.GrantedAt); err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		g.SubjectKind = model.SubjectKind(subjectKind)
		g.ResourceKind = model.ResourceKind(resourceKind)
		g.Capabilities = model.CapabilitySet(caps)
		grants = append(grants, &g)
	}
	return grants, rows.Err()
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(data), nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func paginate(query string, args []any, opts core.ListOptions) (string, []any) {
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, opts.Offset)
		}
	}
	return query, args
}
