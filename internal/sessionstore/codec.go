package sessionstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"fjacquet/txsort/internal/apperror"
	"fjacquet/txsort/internal/models"

	"github.com/shopspring/decimal"
)

// SchemaVersion is the version written into every session document.
const SchemaVersion = 1

const timestampLayout = time.RFC3339Nano

type document struct {
	Version   int                `json:"version"`
	ID        string             `json:"id"`
	User      string             `json:"user"`
	State     string             `json:"state"`
	CreatedAt string             `json:"created_at"`
	UpdatedAt string             `json:"updated_at"`
	Remaining []transactionEntry `json:"remaining"`
	Income    []categorizedEntry `json:"income"`
	Expenses  []categorizedEntry `json:"expenses"`
	Exported  *exportedEntry     `json:"exported,omitempty"`
}

// exportedEntry is written only after a partly failed export.
type exportedEntry struct {
	Income   int `json:"income"`
	Expenses int `json:"expenses"`
}

type transactionEntry struct {
	Date                string `json:"date"`
	Amount              string `json:"amount"`
	Currency            string `json:"currency"`
	Account             string `json:"account"`
	CounterpartyAccount string `json:"counterparty_account"`
	Counterparty        string `json:"counterparty"`
	Code                string `json:"code"`
	Description         string `json:"description"`
	Identity            string `json:"identity"`
}

type categorizedEntry struct {
	Transaction transactionEntry `json:"transaction"`
	Category    string           `json:"category"`
	Label       string           `json:"label"`
	Note        string           `json:"note"`
	Source      string           `json:"source"`
}

// Encode serializes s into the version 1 document.
func Encode(s *models.Session) ([]byte, error) {
	doc := document{
		Version:   SchemaVersion,
		ID:        s.ID,
		User:      s.User,
		State:     string(s.State),
		CreatedAt: s.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt: s.UpdatedAt.UTC().Format(timestampLayout),
		Remaining: make([]transactionEntry, 0, len(s.Remaining)),
		Income:    encodeCategorized(s.Income),
		Expenses:  encodeCategorized(s.Expenses),
	}
	for _, tx := range s.Remaining {
		doc.Remaining = append(doc.Remaining, encodeTransaction(tx))
	}
	if s.Exported != (models.ExportProgress{}) {
		doc.Exported = &exportedEntry{Income: s.Exported.Income, Expenses: s.Exported.Expenses}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeTransaction(tx models.Transaction) transactionEntry {
	return transactionEntry{
		Date:                tx.DateString(),
		Amount:              tx.AmountString(),
		Currency:            tx.Currency,
		Account:             tx.Account,
		CounterpartyAccount: tx.CounterpartyAccount,
		Counterparty:        tx.Counterparty,
		Code:                tx.Code,
		Description:         tx.Description,
		Identity:            tx.Identity,
	}
}

func encodeCategorized(list []models.Categorized) []categorizedEntry {
	out := make([]categorizedEntry, 0, len(list))
	for _, c := range list {
		out = append(out, categorizedEntry{
			Transaction: encodeTransaction(c.Transaction),
			Category:    c.Assignment.Code,
			Label:       c.Assignment.Label,
			Note:        c.Assignment.Note,
			Source:      c.Assignment.Source,
		})
	}
	return out
}

// Decode parses a session document for user and checks the session
// invariants. Every failure is a CorruptSessionError.
func Decode(user string, data []byte) (*models.Session, error) {
	corrupt := func(reason string, err error) error {
		return &apperror.CorruptSessionError{User: user, Reason: reason, Err: err}
	}

	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, corrupt("unreadable document", err)
	}
	if doc.Version != SchemaVersion {
		return nil, corrupt(fmt.Sprintf("unsupported schema version %d", doc.Version), nil)
	}
	if doc.User == "" {
		return nil, corrupt("missing user", nil)
	}
	if doc.User != user {
		return nil, corrupt(fmt.Sprintf("document belongs to %q", doc.User), nil)
	}
	state := models.State(doc.State)
	if !state.Valid() {
		return nil, corrupt(fmt.Sprintf("unknown state %q", doc.State), nil)
	}
	created, err := time.Parse(timestampLayout, doc.CreatedAt)
	if err != nil {
		return nil, corrupt("invalid created_at", err)
	}
	updated, err := time.Parse(timestampLayout, doc.UpdatedAt)
	if err != nil {
		return nil, corrupt("invalid updated_at", err)
	}

	s := &models.Session{
		ID:        doc.ID,
		User:      doc.User,
		State:     state,
		CreatedAt: created.UTC(),
		UpdatedAt: updated.UTC(),
	}
	seen := make(map[string]string)
	track := func(list string, index int, tx models.Transaction) error {
		if prev, dup := seen[tx.Identity]; dup {
			return corrupt(fmt.Sprintf("%s[%d] duplicates an entry of %s", list, index, prev), nil)
		}
		seen[tx.Identity] = list
		return nil
	}

	for i, e := range doc.Remaining {
		tx, err := decodeTransaction(e)
		if err != nil {
			return nil, corrupt(fmt.Sprintf("remaining[%d]", i), err)
		}
		if err := track("remaining", i, tx); err != nil {
			return nil, err
		}
		s.Remaining = append(s.Remaining, tx)
	}

	lists := []struct {
		name     string
		entries  []categorizedEntry
		polarity models.Polarity
		target   *[]models.Categorized
	}{
		{"income", doc.Income, models.PolarityIncome, &s.Income},
		{"expenses", doc.Expenses, models.PolarityExpense, &s.Expenses},
	}
	for _, l := range lists {
		for i, e := range l.entries {
			c, err := decodeCategorized(e)
			if err != nil {
				return nil, corrupt(fmt.Sprintf("%s[%d]", l.name, i), err)
			}
			if c.Transaction.Polarity() != l.polarity {
				return nil, corrupt(fmt.Sprintf("%s[%d] has amount %s", l.name, i, c.Transaction.AmountString()), nil)
			}
			if err := track(l.name, i, c.Transaction); err != nil {
				return nil, err
			}
			*l.target = append(*l.target, c)
		}
	}

	switch {
	case state == models.StateFinalizing && len(s.Remaining) > 0:
		return nil, corrupt(fmt.Sprintf("finalizing session still has %d pending transactions", len(s.Remaining)), nil)
	case state == models.StateActive && len(s.Remaining) == 0:
		return nil, corrupt("active session has no pending transaction", nil)
	}

	if doc.Exported != nil {
		e := doc.Exported
		if e.Income < 0 || e.Income > len(s.Income) || e.Expenses < 0 || e.Expenses > len(s.Expenses) {
			return nil, corrupt(fmt.Sprintf("exported counts %d/%d exceed the lists", e.Income, e.Expenses), nil)
		}
		s.Exported = models.ExportProgress{Income: e.Income, Expenses: e.Expenses}
	}
	return s, nil
}

func decodeTransaction(e transactionEntry) (models.Transaction, error) {
	date, err := time.Parse(models.DateLayoutISO, e.Date)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid date %q: %w", e.Date, err)
	}
	amount, err := decimal.NewFromString(e.Amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid amount %q: %w", e.Amount, err)
	}
	if amount.StringFixed(2) != e.Amount {
		return models.Transaction{}, fmt.Errorf("amount %q is not written with two decimals", e.Amount)
	}
	if e.Identity == "" {
		return models.Transaction{}, fmt.Errorf("empty identity")
	}

	tx := models.Transaction{
		Date:                date,
		Amount:              decimal.RequireFromString(e.Amount),
		Currency:            e.Currency,
		Account:             e.Account,
		CounterpartyAccount: e.CounterpartyAccount,
		Counterparty:        e.Counterparty,
		Code:                e.Code,
		Description:         e.Description,
		Identity:            e.Identity,
	}
	if models.Fingerprint(tx) != e.Identity {
		return models.Transaction{}, fmt.Errorf("identity does not match transaction fields")
	}
	return tx, nil
}

func decodeCategorized(e categorizedEntry) (models.Categorized, error) {
	tx, err := decodeTransaction(e.Transaction)
	if err != nil {
		return models.Categorized{}, err
	}
	if e.Category == "" {
		return models.Categorized{}, fmt.Errorf("missing category")
	}
	if e.Source != models.SourceRule && e.Source != models.SourceManual {
		return models.Categorized{}, fmt.Errorf("unknown source %q", e.Source)
	}
	return models.Categorized{
		Transaction: tx,
		Assignment: models.Assignment{
			Code:   e.Category,
			Label:  e.Label,
			Note:   e.Note,
			Source: e.Source,
		},
	}, nil
}
