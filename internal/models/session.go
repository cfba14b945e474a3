package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is the durable categorization workflow of one user.
type Session struct {
	ID        string // random identifier, stable for the session lifetime
	User      string
	State     State
	Remaining []Transaction
	Income    []Categorized
	Expenses  []Categorized
	Exported  ExportProgress
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExportProgress counts the leading entries of Income and Expenses that an
// earlier, partly failed export already delivered.
type ExportProgress struct {
	Income   int
	Expenses int
}

// Unexported returns the categorized entries no export has delivered yet.
func (s *Session) Unexported() (income, expenses []Categorized) {
	return s.Income[min(s.Exported.Income, len(s.Income)):],
		s.Expenses[min(s.Exported.Expenses, len(s.Expenses)):]
}

// NewSession returns an empty active session for user.
func NewSession(user string, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		User:      user,
		State:     StateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Total is the number of transactions the session holds.
func (s *Session) Total() int {
	return len(s.Remaining) + len(s.Income) + len(s.Expenses)
}

// Processed is the number of transactions already categorized.
func (s *Session) Processed() int {
	return len(s.Income) + len(s.Expenses)
}

// Identities returns the set of fingerprints present in any list.
func (s *Session) Identities() map[string]struct{} {
	ids := make(map[string]struct{}, s.Total())
	for _, tx := range s.Remaining {
		ids[tx.Identity] = struct{}{}
	}
	for _, c := range s.Income {
		ids[c.Transaction.Identity] = struct{}{}
	}
	for _, c := range s.Expenses {
		ids[c.Transaction.Identity] = struct{}{}
	}
	return ids
}

// Contains reports whether a transaction with the given identity is tracked.
func (s *Session) Contains(identity string) bool {
	_, ok := s.Identities()[identity]
	return ok
}

// Append files a categorized transaction under income or expenses according
// to the sign of its amount.
func (s *Session) Append(c Categorized) {
	if c.Transaction.IsExpense() {
		s.Expenses = append(s.Expenses, c)
		return
	}
	s.Income = append(s.Income, c)
}

// Clone returns a deep copy whose slices can be mutated independently.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Remaining = append([]Transaction(nil), s.Remaining...)
	c.Income = append([]Categorized(nil), s.Income...)
	c.Expenses = append([]Categorized(nil), s.Expenses...)
	return &c
}
