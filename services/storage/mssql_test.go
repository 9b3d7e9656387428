package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/euromillionsworker/internal/models"
)

// This test requires a running SQL Server reachable through MSSQL_TEST_DSN
// If it is not set, the test will be skipped
func TestMSSQLStore(t *testing.T) {
	dsn := os.Getenv("MSSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MSSQL_TEST_DSN is not set, skipping test")
	}

	ctx := context.Background()
	store, err := OpenMSSQL(ctx, dsn, 10*time.Second)
	if err != nil {
		t.Skipf("SQL Server is not available, skipping test: %v", err)
	}
	defer store.Close()

	_, err = store.db.ExecContext(ctx, "DELETE FROM dbo.draws; DELETE FROM dbo.grids;")
	require.NoError(t, err)

	draw := models.NewDraw(day(2025, 3, 18), []int{50, 1, 23, 7, 12}, []int{11, 2})
	inserted, err := store.UpsertDraw(ctx, draw)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.UpsertDraw(ctx, draw)
	require.NoError(t, err)
	assert.False(t, inserted)

	draws, err := store.ListDraws(ctx, 10)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, "2025-03-18", draws[0].DateKey())

	numbers, err := store.MostFrequentNumbers(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 7}, numbers)

	saved, err := store.SaveGrid(ctx, models.Grid{DrawDate: day(2025, 3, 21), Numbers: []int{1, 2, 3, 4, 5}, Stars: []int{1, 2}})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	grids, err := store.ListGrids(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, grids, 1)
}
