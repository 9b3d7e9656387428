package storage

import (
	"context"
	"fmt"
	"time"

	"sjsage522/euromillionsworker/internal/models"
	"sjsage522/euromillionsworker/pkg/errors"
)

// Store persists draws and generated grids
type Store interface {
	// UpsertDraw inserts a draw unless one is stored for the same date.
	// inserted is false for an existing date; the stored row is left untouched.
	UpsertDraw(ctx context.Context, draw models.Draw) (inserted bool, err error)

	// ListDraws returns the most recent draws first
	ListDraws(ctx context.Context, limit int) ([]models.Draw, error)

	// MostFrequentNumbers returns up to limit numbers, most drawn first, ties by value
	MostFrequentNumbers(ctx context.Context, limit int) ([]int, error)

	// MostFrequentStars returns up to limit stars, most drawn first, ties by value
	MostFrequentStars(ctx context.Context, limit int) ([]int, error)

	// SaveGrid stores a grid and returns it with its ID and creation time
	SaveGrid(ctx context.Context, grid models.Grid) (models.Grid, error)

	// ListGrids returns the most recently created grids first
	ListGrids(ctx context.Context, limit int) ([]models.Grid, error)

	// Close releases the database connection
	Close() error
}

// Options selects and configures a Store
type Options struct {
	Driver         string
	DSN            string
	CommandTimeout time.Duration
}

// Open opens the store named by opts.Driver
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 30 * time.Second
	}

	switch opts.Driver {
	case "", "sqlite":
		return OpenSQLite(ctx, opts.DSN, opts.CommandTimeout)
	case "mssql", "sqlserver":
		return OpenMSSQL(ctx, opts.DSN, opts.CommandTimeout)
	default:
		return nil, errors.NewConfiguration(fmt.Sprintf("unknown storage driver %q", opts.Driver), nil)
	}
}

// ballArgs flattens numbers then stars in column order n1..n5, s1, s2
func ballArgs(numbers, stars []int) []any {
	args := make([]any, 0, len(numbers)+len(stars))
	for _, n := range numbers {
		args = append(args, n)
	}
	for _, s := range stars {
		args = append(args, s)
	}
	return args
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// ballDest returns scan targets for n1..n5, s1, s2
func ballDest(numbers, stars []int) []any {
	dest := make([]any, 0, len(numbers)+len(stars))
	for i := range numbers {
		dest = append(dest, &numbers[i])
	}
	for i := range stars {
		dest = append(dest, &stars[i])
	}
	return dest
}

func newBalls() ([]int, []int) {
	return make([]int, models.NumbersPerDraw), make([]int, models.StarsPerDraw)
}
