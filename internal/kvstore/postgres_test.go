package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("medassist", "token").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("abc"))
	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("medassist", "username").
		WillReturnError(sql.ErrNoRows)

	store := NewPostgresStore(db, "medassist")
	v, err := store.Get(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	_, err = store.Get(context.Background(), "username")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO kv_entries").
		WithArgs("medassist", "conversations", "[]").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPostgresStore(db, "medassist")
	require.NoError(t, store.Set(context.Background(), "conversations", "[]"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM kv_entries").
		WithArgs("medassist", "token").
		WillReturnError(errors.New("connection reset"))

	store := NewPostgresStore(db, "medassist")
	err = store.Delete(context.Background(), "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}
