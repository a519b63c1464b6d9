package services

import (
	"strings"

	"auction-sniper/models"
)

// Report summarizes how a crawl's lots fared through analysis.
type Report struct {
	TotalLots     int `json:"total_lots"`
	Pending       int `json:"pending"`
	Bargains      int `json:"bargains"`
	NotBargains   int `json:"not_bargains"`
	Reproductions int `json:"reproductions"`
	Indeterminate int `json:"indeterminate"`
	Failures      int `json:"failures"`
}

// BuildReport tallies stored lots by the shape of their terminal analysis.
func BuildReport(lots []*models.Lot) *Report {
	report := &Report{TotalLots: len(lots)}

	for _, lot := range lots {
		switch {
		case !lot.Analyzed():
			report.Pending++
		case strings.HasPrefix(lot.Analysis, "Bargain:"):
			report.Bargains++
		case lot.Analysis == models.DroppedPrefix+" Reproduction":
			report.Reproductions++
		case strings.HasPrefix(lot.Analysis, models.DroppedPrefix+" Indeterminate"):
			report.Indeterminate++
		case models.Dropped(lot.Analysis):
			report.NotBargains++
		default:
			report.Failures++
		}
	}

	return report
}
