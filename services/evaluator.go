package services

import (
	"regexp"

	"auction-sniper/models"
)

// reproductionRegexp matches catalogue naming for copies, e.g. "after Monet".
var reproductionRegexp = regexp.MustCompile(`(?i)\bafter\b`)

// IsReproduction reports whether a lot name marks the item as a reproduction.
// Such lots are dropped before any research is spent on them.
func IsReproduction(name string) bool {
	return reproductionRegexp.MatchString(name)
}

// Evaluator applies the bargain decision rule. The premium rate and discount
// threshold are injected at construction; there is no global configuration.
type Evaluator struct {
	premiumRate       float64
	discountThreshold float64
}

// NewEvaluator creates an Evaluator. With the defaults (0.30, 0.30) a lot is
// flagged only when its bid plus 30% buyer premium stays under 30% of the
// estimated market value.
func NewEvaluator(premiumRate, discountThreshold float64) *Evaluator {
	return &Evaluator{
		premiumRate:       premiumRate,
		discountThreshold: discountThreshold,
	}
}

// Evaluate reconciles the auction bid with the market estimate. An absent
// estimate always yields Indeterminate.
func (e *Evaluator) Evaluate(bid float64, est models.MarketEstimate) models.Verdict {
	totalCost := bid * (1 + e.premiumRate)

	if !est.Valid {
		return models.Verdict{
			Kind:      models.VerdictIndeterminate,
			TotalCost: totalCost,
			Reason:    est.Reasoning,
		}
	}

	if totalCost < est.Value*e.discountThreshold {
		return models.Verdict{
			Kind:        models.VerdictBargain,
			TotalCost:   totalCost,
			MarketValue: est.Value,
			Sources:     est.Sources,
			Reason:      est.Reasoning,
		}
	}

	return models.Verdict{
		Kind:        models.VerdictNotBargain,
		TotalCost:   totalCost,
		MarketValue: est.Value,
	}
}
