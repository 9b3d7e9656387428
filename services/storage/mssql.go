package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"sjsage522/euromillionsworker/internal/models"
	"sjsage522/euromillionsworker/logger"
	"sjsage522/euromillionsworker/pkg/errors"
)

const mssqlSchema = `
IF OBJECT_ID(N'dbo.draws', N'U') IS NULL
CREATE TABLE dbo.draws (
	id        BIGINT IDENTITY(1,1) PRIMARY KEY,
	draw_date DATE NOT NULL CONSTRAINT uq_draws_draw_date UNIQUE,
	n1 TINYINT NOT NULL, n2 TINYINT NOT NULL, n3 TINYINT NOT NULL,
	n4 TINYINT NOT NULL, n5 TINYINT NOT NULL,
	s1 TINYINT NOT NULL, s2 TINYINT NOT NULL
);
IF OBJECT_ID(N'dbo.grids', N'U') IS NULL
CREATE TABLE dbo.grids (
	id         BIGINT IDENTITY(1,1) PRIMARY KEY,
	draw_date  DATE NOT NULL,
	n1 TINYINT NOT NULL, n2 TINYINT NOT NULL, n3 TINYINT NOT NULL,
	n4 TINYINT NOT NULL, n5 TINYINT NOT NULL,
	s1 TINYINT NOT NULL, s2 TINYINT NOT NULL,
	created_at DATETIME2 NOT NULL
);
`

// MSSQLStore implements Store on Microsoft SQL Server
type MSSQLStore struct {
	db             *sql.DB
	commandTimeout time.Duration
	log            *logger.Logger
}

// OpenMSSQL connects with a sqlserver:// DSN and creates missing tables
func OpenMSSQL(ctx context.Context, dsn string, commandTimeout time.Duration) (*MSSQLStore, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, errors.NewStorage("mssql", "failed to open database", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.NewStorage("mssql", "failed to ping database", err)
	}

	schemaCtx, cancelSchema := context.WithTimeout(ctx, commandTimeout)
	defer cancelSchema()
	if _, err := db.ExecContext(schemaCtx, mssqlSchema); err != nil {
		db.Close()
		return nil, errors.NewStorage("mssql", "failed to create schema", err)
	}

	return &MSSQLStore{
		db:             db,
		commandTimeout: commandTimeout,
		log:            logger.ForStorage().WithField("driver", "mssql"),
	}, nil
}

// prepare wraps PrepareContext; the caller closes the statement with closeStmt
func (s *MSSQLStore) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, errors.NewStorage("mssql", "failed to prepare statement", err)
	}
	return stmt, nil
}

func (s *MSSQLStore) closeStmt(stmt *sql.Stmt) {
	if err := stmt.Close(); err != nil {
		s.log.Error().Err(err).Msg("Failed to close statement")
	}
}

func namedBalls(numbers, stars []int) []any {
	args := make([]any, 0, len(numbers)+len(stars))
	for i, n := range numbers {
		args = append(args, sql.Named(fmt.Sprintf("N%d", i+1), n))
	}
	for i, st := range stars {
		args = append(args, sql.Named(fmt.Sprintf("S%d", i+1), st))
	}
	return args
}

// UpsertDraw inserts the draw when no row has its date
func (s *MSSQLStore) UpsertDraw(ctx context.Context, draw models.Draw) (bool, error) {
	if err := draw.Validate(); err != nil {
		return false, errors.NewStorage("mssql", "invalid draw "+draw.DateKey(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	stmt, err := s.prepare(ctx, `
		MERGE INTO dbo.draws AS target
		USING (SELECT @DrawDate AS draw_date) AS source
		ON target.draw_date = source.draw_date
		WHEN NOT MATCHED THEN
			INSERT (draw_date, n1, n2, n3, n4, n5, s1, s2)
			VALUES (@DrawDate, @N1, @N2, @N3, @N4, @N5, @S1, @S2);`)
	if err != nil {
		return false, err
	}
	defer s.closeStmt(stmt)

	args := append([]any{sql.Named("DrawDate", draw.DateKey())}, namedBalls(draw.Numbers, draw.Stars)...)
	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return false, errors.NewStorage("mssql", "failed to upsert draw "+draw.DateKey(), err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewStorage("mssql", "failed to get rows affected", err)
	}
	return affected > 0, nil
}

// ListDraws returns up to limit draws, newest first
func (s *MSSQLStore) ListDraws(ctx context.Context, limit int) ([]models.Draw, error) {
	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	stmt, err := s.prepare(ctx, `
		SELECT TOP (@Limit) id, draw_date, n1, n2, n3, n4, n5, s1, s2
		FROM dbo.draws ORDER BY draw_date DESC`)
	if err != nil {
		return nil, err
	}
	defer s.closeStmt(stmt)

	rows, err := stmt.QueryContext(ctx, sql.Named("Limit", limit))
	if err != nil {
		return nil, errors.NewStorage("mssql", "failed to list draws", err)
	}
	defer rows.Close()

	var draws []models.Draw
	for rows.Next() {
		var draw models.Draw
		numbers, stars := newBalls()
		dest := append([]any{&draw.ID, &draw.Date}, ballDest(numbers, stars)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.NewStorage("mssql", "failed to scan draw", err)
		}
		draw.Date = draw.Date.UTC()
		draw.Numbers = numbers
		draw.Stars = stars
		draws = append(draws, draw)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage("mssql", "failed to read draws", err)
	}
	return draws, nil
}

// MostFrequentNumbers ranks n1..n5 values across all stored draws
func (s *MSSQLStore) MostFrequentNumbers(ctx context.Context, limit int) ([]int, error) {
	return s.mostFrequent(ctx, "(d.n1), (d.n2), (d.n3), (d.n4), (d.n5)", limit)
}

// MostFrequentStars ranks s1, s2 values across all stored draws
func (s *MSSQLStore) MostFrequentStars(ctx context.Context, limit int) ([]int, error) {
	return s.mostFrequent(ctx, "(d.s1), (d.s2)", limit)
}

func (s *MSSQLStore) mostFrequent(ctx context.Context, values string, limit int) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	stmt, err := s.prepare(ctx, fmt.Sprintf(`
		SELECT TOP (@Limit) CAST(v.value AS INT)
		FROM dbo.draws AS d
		CROSS APPLY (VALUES %s) AS v(value)
		GROUP BY v.value
		ORDER BY COUNT(*) DESC, v.value ASC`, values))
	if err != nil {
		return nil, err
	}
	defer s.closeStmt(stmt)

	rows, err := stmt.QueryContext(ctx, sql.Named("Limit", limit))
	if err != nil {
		return nil, errors.NewStorage("mssql", "failed to rank values", err)
	}
	defer rows.Close()

	var result []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, errors.NewStorage("mssql", "failed to scan value", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage("mssql", "failed to read values", err)
	}
	return result, nil
}

// SaveGrid stores the grid, stamping CreatedAt when it is zero
func (s *MSSQLStore) SaveGrid(ctx context.Context, grid models.Grid) (models.Grid, error) {
	if err := grid.Validate(); err != nil {
		return grid, errors.NewStorage("mssql", "invalid grid", err)
	}
	if grid.CreatedAt.IsZero() {
		grid.CreatedAt = time.Now()
	}
	grid.CreatedAt = grid.CreatedAt.UTC()

	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	stmt, err := s.prepare(ctx, `
		INSERT INTO dbo.grids (draw_date, n1, n2, n3, n4, n5, s1, s2, created_at)
		OUTPUT INSERTED.id
		VALUES (@DrawDate, @N1, @N2, @N3, @N4, @N5, @S1, @S2, @CreatedAt)`)
	if err != nil {
		return grid, err
	}
	defer s.closeStmt(stmt)

	args := append([]any{sql.Named("DrawDate", grid.DrawDate.Format(models.DateLayout))},
		namedBalls(grid.Numbers, grid.Stars)...)
	args = append(args, sql.Named("CreatedAt", grid.CreatedAt))
	if err := stmt.QueryRowContext(ctx, args...).Scan(&grid.ID); err != nil {
		return grid, errors.NewStorage("mssql", "failed to save grid", err)
	}
	return grid, nil
}

// ListGrids returns up to limit grids, newest first
func (s *MSSQLStore) ListGrids(ctx context.Context, limit int) ([]models.Grid, error) {
	ctx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	stmt, err := s.prepare(ctx, `
		SELECT TOP (@Limit) id, draw_date, n1, n2, n3, n4, n5, s1, s2, created_at
		FROM dbo.grids ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer s.closeStmt(stmt)

	rows, err := stmt.QueryContext(ctx, sql.Named("Limit", limit))
	if err != nil {
		return nil, errors.NewStorage("mssql", "failed to list grids", err)
	}
	defer rows.Close()

	var grids []models.Grid
	for rows.Next() {
		var grid models.Grid
		numbers, stars := newBalls()
		dest := append([]any{&grid.ID, &grid.DrawDate}, ballDest(numbers, stars)...)
		dest = append(dest, &grid.CreatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.NewStorage("mssql", "failed to scan grid", err)
		}
		grid.DrawDate = grid.DrawDate.UTC()
		grid.CreatedAt = grid.CreatedAt.UTC()
		grid.Numbers = numbers
		grid.Stars = stars
		grids = append(grids, grid)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage("mssql", "failed to read grids", err)
	}
	return grids, nil
}

// Close closes the database
func (s *MSSQLStore) Close() error {
	s.log.Debug().Msg("Closing database")
	return s.db.Close()
}
