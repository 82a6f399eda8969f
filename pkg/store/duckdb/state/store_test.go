package state

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/store/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)

	store, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{
		db:    db,
		store: store,
	}
}

func TestStateStore_IncrementResponses(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t.Run("creates clinic row on first increment", func(t *testing.T) {
		st, err := f.store.IncrementResponses(ctx, "clinic-a")
		require.NoError(t, err)

		assert.Equal(t, "clinic-a", st.ClinicID)
		assert.Equal(t, 1, st.ResponsesSinceLast)
		assert.Equal(t, 1, st.TotalResponses)
		assert.Equal(t, 30, st.Threshold)
		assert.Nil(t, st.LastGeneratedAt)
	})

	t.Run("counters accumulate", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			_, err := f.store.IncrementResponses(ctx, "clinic-a")
			require.NoError(t, err)
		}

		st, err := f.store.Get(ctx, "clinic-a")
		require.NoError(t, err)
		assert.Equal(t, 5, st.ResponsesSinceLast)
		assert.Equal(t, 5, st.TotalResponses)
	})

	t.Run("clinics are independent", func(t *testing.T) {
		st, err := f.store.IncrementResponses(ctx, "clinic-b")
		require.NoError(t, err)
		assert.Equal(t, 1, st.ResponsesSinceLast)
	})
}

func TestStateStore_IncrementResponses_Concurrent(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	// DuckDB aborts one of two simultaneous writes to the same row, so the
	// pool is capped at one connection. The goroutines still interleave at
	// the statement level, which is where a read-modify-write implementation
	// would lose increments.
	f.db.SetMaxOpenConns(1)

	const workers = 20

	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.store.IncrementResponses(ctx, "clinic-a")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	st, err := f.store.Get(ctx, "clinic-a")
	require.NoError(t, err)
	assert.Equal(t, workers, st.ResponsesSinceLast, "no increment may be lost")
	assert.Equal(t, workers, st.TotalResponses)
}

func TestStateStore_ResetCounter(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.store.IncrementResponses(ctx, "clinic-a")
		require.NoError(t, err)
	}

	generatedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.ResetCounter(ctx, "clinic-a", generatedAt))

	st, err := f.store.Get(ctx, "clinic-a")
	require.NoError(t, err)
	assert.Equal(t, 0, st.ResponsesSinceLast)
	assert.Equal(t, 3, st.TotalResponses, "total never resets")
	require.NotNil(t, st.LastGeneratedAt)
	assert.Equal(t, generatedAt, st.LastGeneratedAt.UTC())
}

func TestStateStore_ResetCounter_RollsBackWithTransaction(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.store.IncrementResponses(ctx, "clinic-a")
	require.NoError(t, err)

	boom := assert.AnError
	err = duckdb.InTransaction(ctx, f.db, func(ctx context.Context) error {
		if err := f.store.ResetCounter(ctx, "clinic-a", time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	st, err := f.store.Get(ctx, "clinic-a")
	require.NoError(t, err)
	assert.Equal(t, 1, st.ResponsesSinceLast, "failed transaction must not reset the counter")
}

func TestStateStore_ListClinics(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.EnsureClinic(ctx, "clinic-b"))
	require.NoError(t, f.store.EnsureClinic(ctx, "clinic-a"))
	require.NoError(t, f.store.EnsureClinic(ctx, "clinic-a"))

	clinics, err := f.store.ListClinics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"clinic-a", "clinic-b"}, clinics)
}
