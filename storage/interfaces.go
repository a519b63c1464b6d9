package storage

import (
	"context"

	"auction-sniper/models"
)

// LotStore is the shared record table the crawler and scheduler coordinate
// through. The crawler appends; the scheduler reads unanalyzed rows and
// writes each lot's terminal analysis exactly once.
type LotStore interface {
	// InsertLot persists a freshly crawled lot with no analysis. Re-crawling
	// the same URL is a no-op; the existing row's ID is returned.
	InsertLot(ctx context.Context, lot *models.Lot) (int64, error)

	// UnanalyzedLots returns up to limit lots whose analysis is unset, oldest
	// first.
	UnanalyzedLots(ctx context.Context, limit int) ([]*models.Lot, error)

	// SetAnalysis writes a lot's terminal analysis.
	SetAnalysis(ctx context.Context, id int64, analysis string) error

	// FlaggedLots returns analyzed lots not hidden by the dropped marker.
	FlaggedLots(ctx context.Context) ([]*models.Lot, error)

	// AllLots returns every stored lot, oldest first.
	AllLots(ctx context.Context) ([]*models.Lot, error)

	// Reset clears the table before a fresh crawl.
	Reset(ctx context.Context) error

	Close() error
}
