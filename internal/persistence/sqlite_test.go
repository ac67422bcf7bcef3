package persistence

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestOpenSQLiteAppliesMigrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.db")

	db, err := OpenSQLite(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, tableExists(t, db, "credential_slots"))
	assert.True(t, tableExists(t, db, "goose_db_version"))
}

func TestOpenSQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	first, err := OpenSQLite(ctx, path, zap.NewNop())
	require.NoError(t, err)
	_, err = first.Exec(`INSERT INTO credential_slots (name, credential) VALUES ('pt_jwt', 'abc')`)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer second.Close()

	var credential string
	require.NoError(t, second.QueryRow(`SELECT credential FROM credential_slots WHERE name = 'pt_jwt'`).Scan(&credential))
	assert.Equal(t, "abc", credential)
}

func TestOpenSQLiteInMemory(t *testing.T) {
	db, err := OpenSQLite(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	defer db.Close()
	assert.True(t, tableExists(t, db, "credential_slots"))
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "", zap.NewNop())
	assert.Error(t, err)
}

func TestUpSection(t *testing.T) {
	content := "-- +goose Up\nCREATE TABLE a (id INT);\n\n-- +goose Down\nDROP TABLE a;\n"
	up := upSection(content)
	assert.Contains(t, up, "CREATE TABLE a")
	assert.NotContains(t, up, "DROP TABLE")
	assert.Equal(t, "SELECT 1", upSection("SELECT 1"))
}
