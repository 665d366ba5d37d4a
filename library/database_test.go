package library

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMigratesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.db.Get(&version, `SELECT value FROM meta WHERE key = 'schema_version'`))
	assert.Equal(t, schemaVersion, version)

	for _, table := range []string{"members", "books", "authors", "subjects", "loans", "reservations", "fines"} {
		var name string
		err := db.db.Get(&name, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table)
		assert.NoError(t, err, "table %s should exist", table)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.db.Exec(`INSERT INTO authors (author_name) VALUES ('Kept Across Reopen')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.db.Get(&count, `SELECT COUNT(*) FROM authors`))
	assert.Equal(t, 1, count)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	boom := fmt.Errorf("%w: deliberate failure", ErrInvalidState)
	err = db.WithTx(func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`INSERT INTO authors (author_name) VALUES ('Phantom')`); err != nil {
			return err
		}
		return boom
	})
	// The caller's error comes back unwrapped so kinds still match.
	assert.ErrorIs(t, err, ErrInvalidState)

	var count int
	require.NoError(t, db.db.Get(&count, `SELECT COUNT(*) FROM authors`))
	assert.Equal(t, 0, count)
}
