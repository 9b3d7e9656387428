package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/euromillionsworker/internal/models"
	"sjsage522/euromillionsworker/pkg/errors"
)

func openMemory(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), ":memory:", 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUpsertDrawIdempotent(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()
	draw := models.NewDraw(day(2025, 3, 18), []int{50, 1, 23, 7, 12}, []int{11, 2})

	inserted, err := store.UpsertDraw(ctx, draw)
	require.NoError(t, err)
	assert.True(t, inserted)

	// same date, different balls: silent no-op
	other := models.NewDraw(day(2025, 3, 18), []int{2, 3, 4, 5, 6}, []int{3, 4})
	inserted, err = store.UpsertDraw(ctx, other)
	require.NoError(t, err)
	assert.False(t, inserted)

	draws, err := store.ListDraws(ctx, 10)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, []int{1, 7, 12, 23, 50}, draws[0].Numbers)
	assert.Equal(t, []int{2, 11}, draws[0].Stars)
	assert.True(t, day(2025, 3, 18).Equal(draws[0].Date))
}

func TestUpsertDrawRejectsInvalid(t *testing.T) {
	store := openMemory(t)

	_, err := store.UpsertDraw(context.Background(), models.NewDraw(day(2025, 1, 3), []int{1, 2, 3, 4}, []int{1, 2}))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeStorage, errors.TypeOf(err))
}

func TestListDrawsNewestFirst(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()
	for _, d := range []time.Time{day(2024, 12, 31), day(2025, 1, 7), day(2025, 1, 3)} {
		_, err := store.UpsertDraw(ctx, models.NewDraw(d, []int{1, 2, 3, 4, 5}, []int{1, 2}))
		require.NoError(t, err)
	}

	draws, err := store.ListDraws(ctx, 2)
	require.NoError(t, err)
	require.Len(t, draws, 2)
	assert.Equal(t, "2025-01-07", draws[0].DateKey())
	assert.Equal(t, "2025-01-03", draws[1].DateKey())
}

func TestMostFrequent(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()
	draws := []models.Draw{
		models.NewDraw(day(2025, 1, 3), []int{1, 2, 3, 4, 5}, []int{1, 2}),
		models.NewDraw(day(2025, 1, 7), []int{5, 6, 7, 8, 9}, []int{2, 3}),
		models.NewDraw(day(2025, 1, 10), []int{5, 9, 10, 11, 12}, []int{2, 12}),
	}
	for _, d := range draws {
		_, err := store.UpsertDraw(ctx, d)
		require.NoError(t, err)
	}

	numbers, err := store.MostFrequentNumbers(ctx, 4)
	require.NoError(t, err)
	// 5 drawn three times, 9 twice, then ties broken by value
	assert.Equal(t, []int{5, 9, 1, 2}, numbers)

	stars, err := store.MostFrequentStars(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 3, 12}, stars)
}

func TestMostFrequentEmpty(t *testing.T) {
	store := openMemory(t)

	numbers, err := store.MostFrequentNumbers(context.Background(), 15)
	require.NoError(t, err)
	assert.Empty(t, numbers)
}

func TestGrids(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)

	for i := range 3 {
		saved, err := store.SaveGrid(ctx, models.Grid{
			DrawDate:  day(2025, 1, 7),
			Numbers:   []int{1, 2, 3, 4, 5 + i},
			Stars:     []int{1, 2},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)
	}

	grids, err := store.ListGrids(ctx, 2)
	require.NoError(t, err)
	require.Len(t, grids, 2)
	assert.Equal(t, []int{1, 2, 3, 4, 7}, grids[0].Numbers)
	assert.Equal(t, []int{1, 2, 3, 4, 6}, grids[1].Numbers)
	assert.True(t, base.Add(2*time.Second).Equal(grids[0].CreatedAt))
	assert.True(t, day(2025, 1, 7).Equal(grids[0].DrawDate))
}

func TestSaveGridStampsCreatedAt(t *testing.T) {
	store := openMemory(t)

	saved, err := store.SaveGrid(context.Background(), models.Grid{
		DrawDate: day(2025, 1, 7),
		Numbers:  []int{10, 20, 30, 40, 50},
		Stars:    []int{6, 7},
	})
	require.NoError(t, err)
	assert.False(t, saved.CreatedAt.IsZero())

	_, err = store.SaveGrid(context.Background(), models.Grid{DrawDate: day(2025, 1, 7)})
	assert.Error(t, err)
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "draws.db")

	store, err := Open(context.Background(), Options{Driver: "sqlite", DSN: path})
	require.NoError(t, err)

	_, err = store.UpsertDraw(context.Background(), models.NewDraw(day(2025, 1, 3), []int{1, 2, 3, 4, 5}, []int{1, 2}))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// reopening keeps the data and the schema
	store, err = Open(context.Background(), Options{Driver: "sqlite", DSN: path})
	require.NoError(t, err)
	defer store.Close()
	draws, err := store.ListDraws(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, draws, 1)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "postgres", DSN: "x"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeConfiguration, errors.TypeOf(err))
}
