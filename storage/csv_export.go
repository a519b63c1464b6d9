package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"auction-sniper/models"
)

// WriteLotsCSV writes lots as CSV to w, for offline review of flagged
// bargains.
func WriteLotsCSV(w io.Writer, lots []*models.Lot) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{
		"id", "name", "current_bid", "url", "analysis", "created_at",
	}); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, lot := range lots {
		row := []string{
			fmt.Sprintf("%d", lot.ID),
			lot.Name,
			lot.CurrentBid,
			lot.URL,
			lot.Analysis,
			lot.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
