package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Lot is one auction item as crawled from the catalogue.
// Analysis stays empty until the scheduler writes a terminal verdict;
// once written it is never revised.
type Lot struct {
	ID          int64
	Name        string
	CurrentBid  string // bid text as shown by the site, possibly "N/A"
	Description string
	URL         string
	Analysis    string
	CreatedAt   time.Time
}

// Analyzed reports whether the lot already carries a terminal analysis.
func (l *Lot) Analyzed() bool {
	return l.Analysis != ""
}

// Price is a normalized currency amount extracted from free text.
type Price struct {
	Symbol string
	Amount float64
}

func (p Price) String() string {
	return p.Symbol + strconv.FormatFloat(p.Amount, 'f', -1, 64)
}

// Source is one comparable listing backing a market estimate.
type Source struct {
	URL   string `json:"url"`
	Price string `json:"price"`
}

// MarketEstimate is the result of one researcher invocation. Valid is false
// when the summarizer reported uncertainty; Reasoning is kept either way.
type MarketEstimate struct {
	Value     float64
	Valid     bool
	Reasoning string
	Sources   []Source
}

// VerdictKind classifies the outcome of the bargain evaluation.
type VerdictKind int

const (
	VerdictIndeterminate VerdictKind = iota
	VerdictBargain
	VerdictNotBargain
	VerdictReproduction
)

// Verdict is the terminal classification for one lot.
type Verdict struct {
	Kind        VerdictKind
	TotalCost   float64 // auction bid including buyer premium
	MarketValue float64
	Sources     []Source
	Reason      string
}

// DroppedPrefix marks analyses that the flagged-lots view hides.
const DroppedPrefix = "Dropped:"

// Analysis renders the verdict as the terminal string stored on the lot.
// Non-bargain outcomes carry DroppedPrefix so the presentation layer can
// filter them out with a simple prefix match.
func (v Verdict) Analysis() string {
	switch v.Kind {
	case VerdictBargain:
		var b strings.Builder
		fmt.Fprintf(&b, "Bargain: auction price incl. premium €%.2f, estimated market value €%.2f.",
			v.TotalCost, v.MarketValue)
		if v.Reason != "" {
			fmt.Fprintf(&b, " Reasoning: %s", v.Reason)
		}
		if len(v.Sources) > 0 {
			parts := make([]string, 0, len(v.Sources))
			for _, s := range v.Sources {
				parts = append(parts, fmt.Sprintf("%s (%s)", s.URL, s.Price))
			}
			fmt.Fprintf(&b, " Sources: %s", strings.Join(parts, " | "))
		}
		return b.String()
	case VerdictReproduction:
		return DroppedPrefix + " Reproduction"
	case VerdictNotBargain:
		return DroppedPrefix + " Not a significant bargain."
	default:
		reason := v.Reason
		if reason == "" {
			reason = "no market estimate"
		}
		return DroppedPrefix + " Indeterminate: " + reason
	}
}

// Dropped reports whether an analysis string is hidden from the flagged view.
func Dropped(analysis string) bool {
	return strings.HasPrefix(analysis, DroppedPrefix)
}
