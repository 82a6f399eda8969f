package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_BootstrapsSchema(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "duckdb-test-*")
	require.NoError(t, err)

	defer func() {
		err := os.RemoveAll(tmpDir)
		if err != nil {
			t.Errorf("failed to cleanup test directory: %v", err)
		}
	}()

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := NewDB(Settings{
		DbPath: dbPath,
	})
	require.NoError(t, err)
	require.NotNil(t, db)

	defer func() {
		err := db.Close()
		if err != nil {
			t.Errorf("failed to close database connection: %v", err)
		}
	}()

	_, err = db.Exec(
		`INSERT INTO advisory_state (clinic_id) VALUES (?)`,
		"clinic-001",
	)
	require.NoError(t, err)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM advisory_state WHERE clinic_id = ?", "clinic-001").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var threshold int
	err = db.QueryRow("SELECT threshold FROM advisory_state WHERE clinic_id = ?", "clinic-001").Scan(&threshold)
	require.NoError(t, err)
	assert.Equal(t, 30, threshold, "threshold defaults to the generation cadence")
}

func TestInTransaction_Commit(t *testing.T) {
	db, err := NewDB(Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	err = InTransaction(ctx, db, func(ctx context.Context) error {
		tx := GetTransaction(ctx)
		require.NotNil(t, tx)
		_, err := tx.ExecContext(ctx, `INSERT INTO advisory_state (clinic_id) VALUES ('clinic-a')`)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM advisory_state").Scan(&count))
	assert.Equal(t, 1, count)
}
