package services

import (
	"regexp"
	"strconv"
	"strings"

	"auction-sniper/models"
)

// priceRegexp captures a currency symbol (or the EUR token) followed by an
// amount with optional group/decimal separators.
var priceRegexp = regexp.MustCompile(`(€|\$|£|EUR)\s?((?:\d{1,3}(?:[.,]\d{3})+|\d+)(?:[.,]\d{1,2})?)`)

// ExtractPrice scans free text for the first currency amount and returns it
// normalized to a dot-decimal value with the symbol retained. It handles both
// "1,234.56" and "1.234,56": the final separator group is treated as decimal
// only when it has 1–2 trailing digits, everything else is a thousands
// separator. The EUR token maps to €.
func ExtractPrice(text string) (models.Price, bool) {
	m := priceRegexp.FindStringSubmatch(text)
	if m == nil {
		return models.Price{}, false
	}

	symbol := m[1]
	if symbol == "EUR" {
		symbol = "€"
	}

	amount, err := normalizeAmount(m[2])
	if err != nil {
		return models.Price{}, false
	}
	return models.Price{Symbol: symbol, Amount: amount}, true
}

// normalizeAmount converts a matched amount string to a float64. A trailing
// separator group of 1–2 digits is the decimal part; all other separators are
// removed as thousands separators.
func normalizeAmount(raw string) (float64, error) {
	intPart := raw
	fracPart := ""

	if i := strings.LastIndexAny(raw, ".,"); i >= 0 && len(raw)-i-1 <= 2 {
		intPart, fracPart = raw[:i], raw[i+1:]
	}

	cleaned := strings.NewReplacer(",", "", ".", "").Replace(intPart)
	if fracPart != "" {
		cleaned += "." + fracPart
	}
	return strconv.ParseFloat(cleaned, 64)
}
