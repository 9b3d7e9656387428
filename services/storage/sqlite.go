package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"sjsage522/euromillionsworker/internal/models"
	"sjsage522/euromillionsworker/logger"
	"sjsage522/euromillionsworker/pkg/errors"
)

// createdAtLayout is fixed width so text ordering matches time ordering
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS draws (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	draw_date TEXT    NOT NULL UNIQUE,
	n1 INTEGER NOT NULL, n2 INTEGER NOT NULL, n3 INTEGER NOT NULL,
	n4 INTEGER NOT NULL, n5 INTEGER NOT NULL,
	s1 INTEGER NOT NULL, s2 INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS grids (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	draw_date  TEXT    NOT NULL,
	n1 INTEGER NOT NULL, n2 INTEGER NOT NULL, n3 INTEGER NOT NULL,
	n4 INTEGER NOT NULL, n5 INTEGER NOT NULL,
	s1 INTEGER NOT NULL, s2 INTEGER NOT NULL,
	created_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_grids_created_at ON grids (created_at);
`

var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// SQLiteStore implements Store on modernc.org/sqlite
type SQLiteStore struct {
	db             *sql.DB
	commandTimeout time.Duration
	log            *logger.Logger
}

// OpenSQLite opens (and creates) the database at path. ":memory:" opens a
// private in-memory database on a single connection.
func OpenSQLite(ctx context.Context, path string, commandTimeout time.Duration) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.NewStorage("sqlite", "failed to create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewStorage("sqlite", "failed to open database", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	for _, p := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, errors.NewStorage("sqlite", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, errors.NewStorage("sqlite", "failed to create schema", err)
	}

	return &SQLiteStore{
		db:             db,
		commandTimeout: commandTimeout,
		log:            logger.ForStorage().WithField("driver", "sqlite"),
	}, nil
}

// UpsertDraw inserts the draw or does nothing when its date is stored
func (s *SQLiteStore) UpsertDraw(ctx context.Context, draw models.Draw) (bool, error) {
	if err := draw.Validate(); err != nil {
		return false, errors.NewStorage("sqlite", "invalid draw "+draw.DateKey(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	args := append([]any{draw.DateKey()}, ballArgs(draw.Numbers, draw.Stars)...)
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO draws (draw_date, n1, n2, n3, n4, n5, s1, s2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (draw_date) DO NOTHING`, args...)
	if err != nil {
		return false, errors.NewStorage("sqlite", "failed to upsert draw "+draw.DateKey(), err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewStorage("sqlite", "failed to get rows affected", err)
	}
	return affected > 0, nil
}

// ListDraws returns up to limit draws, newest first
func (s *SQLiteStore) ListDraws(ctx context.Context, limit int) ([]models.Draw, error) {
	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, draw_date, n1, n2, n3, n4, n5, s1, s2
		FROM draws ORDER BY draw_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewStorage("sqlite", "failed to list draws", err)
	}
	defer rows.Close()

	var draws []models.Draw
	for rows.Next() {
		draw, err := scanSQLiteDraw(rows)
		if err != nil {
			return nil, err
		}
		draws = append(draws, draw)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage("sqlite", "failed to read draws", err)
	}
	return draws, nil
}

func scanSQLiteDraw(row scanner) (models.Draw, error) {
	var (
		draw    models.Draw
		dateStr string
	)
	numbers, stars := newBalls()
	dest := append([]any{&draw.ID, &dateStr}, ballDest(numbers, stars)...)
	if err := row.Scan(dest...); err != nil {
		return draw, errors.NewStorage("sqlite", "failed to scan draw", err)
	}

	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return draw, errors.NewStorage("sqlite", "invalid stored draw date "+dateStr, err)
	}
	draw.Date = date
	draw.Numbers = numbers
	draw.Stars = stars
	return draw, nil
}

// MostFrequentNumbers ranks n1..n5 values across all stored draws
func (s *SQLiteStore) MostFrequentNumbers(ctx context.Context, limit int) ([]int, error) {
	return s.mostFrequent(ctx, []string{"n1", "n2", "n3", "n4", "n5"}, limit)
}

// MostFrequentStars ranks s1, s2 values across all stored draws
func (s *SQLiteStore) MostFrequentStars(ctx context.Context, limit int) ([]int, error) {
	return s.mostFrequent(ctx, []string{"s1", "s2"}, limit)
}

func (s *SQLiteStore) mostFrequent(ctx context.Context, columns []string, limit int) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, frequencyQuery(columns, "LIMIT ?"), limit)
	if err != nil {
		return nil, errors.NewStorage("sqlite", "failed to rank values", err)
	}
	defer rows.Close()

	var values []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, errors.NewStorage("sqlite", "failed to scan value", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage("sqlite", "failed to read values", err)
	}
	return values, nil
}

// frequencyQuery unpivots the ball columns and counts each value
func frequencyQuery(columns []string, limitClause string) string {
	union := ""
	for i, c := range columns {
		if i > 0 {
			union += " UNION ALL "
		}
		union += fmt.Sprintf("SELECT %s AS value FROM draws", c)
	}
	return fmt.Sprintf(
		"SELECT value FROM (%s) GROUP BY value ORDER BY COUNT(*) DESC, value ASC %s",
		union, limitClause)
}

// SaveGrid stores the grid, stamping CreatedAt when it is zero
func (s *SQLiteStore) SaveGrid(ctx context.Context, grid models.Grid) (models.Grid, error) {
	if err := grid.Validate(); err != nil {
		return grid, errors.NewStorage("sqlite", "invalid grid", err)
	}
	if grid.CreatedAt.IsZero() {
		grid.CreatedAt = time.Now()
	}
	grid.CreatedAt = grid.CreatedAt.UTC()

	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	args := append([]any{grid.DrawDate.Format(models.DateLayout)}, ballArgs(grid.Numbers, grid.Stars)...)
	args = append(args, grid.CreatedAt.Format(createdAtLayout))
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO grids (draw_date, n1, n2, n3, n4, n5, s1, s2, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return grid, errors.NewStorage("sqlite", "failed to save grid", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return grid, errors.NewStorage("sqlite", "failed to get grid id", err)
	}
	grid.ID = id
	return grid, nil
}

// ListGrids returns up to limit grids, newest first
func (s *SQLiteStore) ListGrids(ctx context.Context, limit int) ([]models.Grid, error) {
	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, draw_date, n1, n2, n3, n4, n5, s1, s2, created_at
		FROM grids ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewStorage("sqlite", "failed to list grids", err)
	}
	defer rows.Close()

	var grids []models.Grid
	for rows.Next() {
		var (
			grid             models.Grid
			dateStr, created string
		)
		numbers, stars := newBalls()
		dest := append([]any{&grid.ID, &dateStr}, ballDest(numbers, stars)...)
		dest = append(dest, &created)
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.NewStorage("sqlite", "failed to scan grid", err)
		}

		if grid.DrawDate, err = time.Parse(models.DateLayout, dateStr); err != nil {
			return nil, errors.NewStorage("sqlite", "invalid stored grid date "+dateStr, err)
		}
		if grid.CreatedAt, err = time.Parse(createdAtLayout, created); err != nil {
			return nil, errors.NewStorage("sqlite", "invalid grid timestamp "+created, err)
		}
		grid.Numbers = numbers
		grid.Stars = stars
		grids = append(grids, grid)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage("sqlite", "failed to read grids", err)
	}
	return grids, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	s.log.Debug().Msg("Closing database")
	return s.db.Close()
}
