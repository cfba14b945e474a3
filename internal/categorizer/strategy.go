package categorizer

import (
	"context"

	"fjacquet/txsort/internal/models"
)

// CategorizationStrategy defines one way of assigning a category to a
// transaction. Strategies used by the Categorizer must be deterministic: the
// same transaction always yields the same answer.
type CategorizationStrategy interface {
	// Categorize returns the assignment and true on a match, or false when
	// the strategy has no opinion about tx.
	Categorize(ctx context.Context, tx models.Transaction) (models.Assignment, bool, error)

	// Name returns the name of this strategy for logging and debugging purposes.
	Name() string
}
