package models

// Polarity distinguishes income from expenses.
type Polarity string

const (
	PolarityIncome  Polarity = "income"
	PolarityExpense Polarity = "expense"
)

// Valid reports whether p is one of the known polarities.
func (p Polarity) Valid() bool {
	return p == PolarityIncome || p == PolarityExpense
}

// State is the persisted lifecycle state of a categorization session.
// A user without a persisted session is implicitly in StateNone.
type State string

const (
	StateNone       State = "no_session"
	StateActive     State = "active"
	StatePaused     State = "paused"
	StateFinalizing State = "finalizing"
)

// Valid reports whether s may appear in a persisted session.
func (s State) Valid() bool {
	switch s {
	case StateActive, StatePaused, StateFinalizing:
		return true
	}
	return false
}

// Assignment sources
const (
	SourceRule   = "rule"
	SourceManual = "manual"
)

// Date layouts
const (
	DateLayoutISO = "2006-01-02"
	DateLayoutASN = "02-01-2006"
)

// File permissions
const (
	PermissionSessionFile = 0600
	PermissionDirectory   = 0750
	PermissionExportFile  = 0644
)
