package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"auction-sniper/models"
)

// PostgresStore persists lots in the lot_items table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS lot_items (
			id          SERIAL PRIMARY KEY,
			name        TEXT        NOT NULL DEFAULT '',
			current_bid TEXT        NOT NULL DEFAULT 'N/A',
			description TEXT        NOT NULL DEFAULT '',
			url         TEXT        UNIQUE NOT NULL,
			analysis    TEXT,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_lot_items_unanalyzed
			ON lot_items(id) WHERE analysis IS NULL OR analysis = '';
	`)
	return err
}

// InsertLot appends a crawled lot. The url unique constraint gives re-crawls
// upsert semantics: a duplicate URL keeps the existing row and its analysis.
func (s *PostgresStore) InsertLot(ctx context.Context, lot *models.Lot) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO lot_items (name, current_bid, description, url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (url) DO NOTHING
		RETURNING id
	`, lot.Name, lot.CurrentBid, lot.Description, lot.URL).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		// Already crawled; hand back the existing row's ID.
		err = s.db.QueryRowContext(ctx,
			`SELECT id FROM lot_items WHERE url = $1`, lot.URL).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: insert lot %q: %w", lot.URL, err)
	}

	lot.ID = id
	return id, nil
}

// UnanalyzedLots returns up to limit lots still awaiting analysis.
func (s *PostgresStore) UnanalyzedLots(ctx context.Context, limit int) ([]*models.Lot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, current_bid, description, url, analysis, created_at
		FROM lot_items
		WHERE analysis IS NULL OR analysis = ''
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: select unanalyzed: %w", err)
	}
	defer rows.Close()

	return scanLots(rows)
}

// SetAnalysis writes the terminal analysis for one lot.
func (s *PostgresStore) SetAnalysis(ctx context.Context, id int64, analysis string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE lot_items SET analysis = $1 WHERE id = $2`, analysis, id)
	if err != nil {
		return fmt.Errorf("postgres: set analysis for lot %d: %w", id, err)
	}
	return nil
}

// FlaggedLots returns analyzed lots whose verdict is surfaced to the user.
func (s *PostgresStore) FlaggedLots(ctx context.Context) ([]*models.Lot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, current_bid, description, url, analysis, created_at
		FROM lot_items
		WHERE analysis IS NOT NULL AND analysis <> '' AND analysis NOT LIKE $1
		ORDER BY id
	`, models.DroppedPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("postgres: select flagged: %w", err)
	}
	defer rows.Close()

	return scanLots(rows)
}

// AllLots returns every stored lot.
func (s *PostgresStore) AllLots(ctx context.Context) ([]*models.Lot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, current_bid, description, url, analysis, created_at
		FROM lot_items
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: select all: %w", err)
	}
	defer rows.Close()

	return scanLots(rows)
}

// Reset clears the catalogue before a fresh crawl.
func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE lot_items RESTART IDENTITY`)
	if err != nil {
		return fmt.Errorf("postgres: reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func scanLots(rows *sql.Rows) ([]*models.Lot, error) {
	var lots []*models.Lot
	for rows.Next() {
		lot := &models.Lot{}
		var analysis sql.NullString
		if err := rows.Scan(&lot.ID, &lot.Name, &lot.CurrentBid, &lot.Description,
			&lot.URL, &analysis, &lot.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		lot.Analysis = analysis.String
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}
