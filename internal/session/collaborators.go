package session

import (
	"context"
	"io"

	"fjacquet/txsort/internal/models"
)

// Normalizer turns an uploaded export into transactions.
type Normalizer interface {
	Normalize(ctx context.Context, r io.Reader) ([]models.Transaction, error)
}

// Exporter receives the finalized lists of a session.
type Exporter interface {
	Export(ctx context.Context, income, expenses []models.Categorized) error
	Name() string
}

// Suggester proposes categories for a pending transaction. history holds the
// transactions already categorized in the session.
type Suggester interface {
	Suggest(ctx context.Context, tx models.Transaction, categories []models.Category, history []models.Categorized) ([]models.Suggestion, error)
	Name() string
}

// DecisionKind tells what the user answered for one transaction.
type DecisionKind int

const (
	DecisionCategory DecisionKind = iota
	DecisionSkip
	DecisionCancel
)

// Decision is the answer of the prompt collaborator.
type Decision struct {
	Kind     DecisionKind
	Category string // typed category, resolved against the taxonomy
	Note     string
}

// PromptRequest describes the transaction presented to the user.
type PromptRequest struct {
	Transaction models.Transaction
	Processed   int
	Total       int
	Categories  []models.Category // allowed categories for the transaction's polarity
	Suggestions []models.Suggestion
	Problem     string // why the previous answer was refused, if it was
}

// Prompter presents one pending transaction and waits for a decision. It
// must return ctx.Err() when ctx ends before the user answers.
type Prompter interface {
	Prompt(ctx context.Context, req PromptRequest) (Decision, error)
}

// Message kinds
const (
	MessageInfo  = "info"
	MessageError = "error"
)

// Message is a text response sent back through a channel.
type Message struct {
	Kind string
	Text string
}

// Channel is the delivery side of the workflow: it supplies uploaded files
// and receives text responses.
type Channel interface {
	Deliver(ctx context.Context, msg Message) error
	RequestFile(ctx context.Context) (io.ReadCloser, string, error)
}
