package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"docvault/internal/database/migrations"
)

// These tests inject driver failures that a live SQLite file will not
// produce, to pin down transaction rollback behavior.

func TestCreateDocumentRollsBackOnVersionFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewFromDB(db, migrations.SQLite)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO versions").WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	doc, first := testDocument("d1", "f1", "a.txt")
	err = repo.CreateDocument(context.Background(), doc, first)
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitVersionRollsBackOnPointerFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewFromDB(db, migrations.SQLite)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO versions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents SET current_version_id").WillReturnError(context.Canceled)
	mock.ExpectRollback()

	_, first := testDocument("d1", "f1", "a.txt")
	err = repo.CommitVersion(context.Background(), first)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlaceholderRebind(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	repo := NewFromDB(db, migrations.Postgres)

	// The postgres dialect must reach the driver with $n placeholders.
	mock.ExpectExec(`UPDATE folders SET parent_id = $1 WHERE id = $2`).
		WithArgs(nil, "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	var parent *string
	require.NoError(t, repo.MoveFolder(context.Background(), "f1", parent))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindDocumentQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewFromDB(db, migrations.SQLite)

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
		WillReturnError(context.DeadlineExceeded)

	_, err = repo.FindDocument(context.Background(), "d1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
