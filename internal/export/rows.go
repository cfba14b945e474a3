// Package export writes finalized sessions to their destination: CSV files
// on disk or a Google spreadsheet.
package export

import (
	"strings"

	"fjacquet/txsort/internal/models"

	"github.com/shopspring/decimal"
)

const maxDescriptionLength = 500

// sheetRow is the four-column layout of the bookkeeping spreadsheet.
type sheetRow struct {
	Date        string
	Amount      decimal.Decimal // absolute value; the column tells the sign
	Description string
	Category    string
}

func toSheetRow(c models.Categorized) sheetRow {
	return sheetRow{
		Date:        c.Transaction.DateString(),
		Amount:      c.Transaction.Amount.Abs(),
		Description: describe(c),
		Category:    c.Assignment.Label,
	}
}

// describe prefers the assignment note and falls back to the bank data.
func describe(c models.Categorized) string {
	text := strings.TrimSpace(c.Assignment.Note)
	if text == "" {
		var parts []string
		for _, p := range []string{c.Transaction.Counterparty, c.Transaction.Description} {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		text = strings.Join(parts, " - ")
	}
	if text == "" {
		text = "Unknown transaction"
	}
	if r := []rune(text); len(r) > maxDescriptionLength {
		text = string(r[:maxDescriptionLength-3]) + "..."
	}
	return text
}
