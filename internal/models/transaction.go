package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one normalized bank transaction. It is treated as immutable
// once the normalizer has produced it.
type Transaction struct {
	Date                time.Time       // booking date at UTC midnight
	Amount              decimal.Decimal // signed, negative is an expense
	Currency            string          // upper-cased ISO code
	Account             string          // own account identifier
	CounterpartyAccount string          // counterparty account identifier
	Counterparty        string          // counterparty name
	Code                string          // bank transaction code
	Description         string          // remittance information
	Identity            string          // fingerprint used for de-duplication
}

// Polarity returns the income/expense side of the transaction. The sign of the
// amount is authoritative; zero amounts count as income.
func (t Transaction) Polarity() Polarity {
	if t.Amount.IsNegative() {
		return PolarityExpense
	}
	return PolarityIncome
}

// IsExpense reports whether the amount is negative.
func (t Transaction) IsExpense() bool {
	return t.Polarity() == PolarityExpense
}

// MatchText returns the text categorization rules are evaluated against.
func (t Transaction) MatchText() string {
	return strings.TrimSpace(t.Description + " " + t.Counterparty)
}

// DateString formats the booking date as YYYY-MM-DD.
func (t Transaction) DateString() string {
	return t.Date.Format(DateLayoutISO)
}

// AmountString formats the amount with two decimal places.
func (t Transaction) AmountString() string {
	return t.Amount.StringFixed(2)
}

// Fingerprint computes the identity of a transaction from its normalized
// fields. Free text is case-folded so that re-exports differing only in
// capitalization are still recognized as the same transaction.
func Fingerprint(t Transaction) string {
	parts := []string{
		t.Date.Format(DateLayoutISO),
		t.Amount.StringFixed(2),
		t.Currency,
		t.Account,
		t.CounterpartyAccount,
		strings.ToLower(t.Counterparty),
		t.Code,
		strings.ToLower(t.Description),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// WithIdentity returns a copy of the transaction carrying its fingerprint.
func (t Transaction) WithIdentity() Transaction {
	t.Identity = Fingerprint(t)
	return t
}
