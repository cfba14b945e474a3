// Package currencyutils parses and formats the amounts found in bank exports.
package currencyutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyNoise = regexp.MustCompile(`[€$£¥₣₤₧₹₺₽₩฿₫₲₴₸₼₪\s]|\b(?:EUR|USD|GBP|CHF|JPY)\b`)
	validAmount   = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
)

// ParseAmount parses formats like "1,234.56", "1.234,56", "1234,56",
// "1'234.56" and "€ -12.50". Empty input is an error.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	standardized := StandardizeAmount(amountStr)
	if standardized == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	if !validAmount.MatchString(standardized) {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s'", amountStr)
	}

	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	return amount, nil
}

// StandardizeAmount rewrites an amount into the dotted form accepted by
// decimal.NewFromString.
func StandardizeAmount(amountStr string) string {
	amountStr = currencyNoise.ReplaceAllString(strings.TrimSpace(amountStr), "")
	amountStr = strings.ReplaceAll(amountStr, "'", "")

	lastDot := strings.LastIndex(amountStr, ".")
	lastComma := strings.LastIndex(amountStr, ",")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastDot < lastComma {
			// European format (1.234,56)
			amountStr = strings.ReplaceAll(amountStr, ".", "")
			amountStr = strings.ReplaceAll(amountStr, ",", ".")
		} else {
			// 1,234.56
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	case lastComma >= 0:
		parts := strings.Split(amountStr, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			// Comma used as decimal separator (1234,56)
			amountStr = strings.Replace(amountStr, ",", ".", 1)
		} else {
			// Comma used as thousand separator (1,234)
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	}

	return amountStr
}

// HasAtMostCents reports whether amount has no more than two decimals.
func HasAtMostCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(2))
}

// FormatDecimalComma formats the absolute amount with two decimals and a
// decimal comma, the form spreadsheets in a Dutch locale expect.
func FormatDecimalComma(amount decimal.Decimal) string {
	return strings.Replace(amount.Abs().StringFixed(2), ".", ",", 1)
}
