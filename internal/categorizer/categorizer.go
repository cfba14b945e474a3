// Package categorizer assigns categories to transactions with ordered,
// polarity-scoped pattern rules and resolves manually typed categories
// against the category taxonomy.
package categorizer

import (
	"context"
	"fmt"

	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"
)

// Categorizer runs its strategies in order and keeps the first match.
type Categorizer struct {
	strategies []CategorizationStrategy
	logger     logging.Logger
}

// PartitionResult splits transactions into those a strategy categorized and
// those left for a manual decision. Both keep input order.
type PartitionResult struct {
	Categorized []models.Categorized
	Pending     []models.Transaction
}

// NewCategorizer creates a Categorizer trying strategies in the given order.
func NewCategorizer(logger logging.Logger, strategies ...CategorizationStrategy) *Categorizer {
	return &Categorizer{strategies: strategies, logger: logger}
}

// NewRuleCategorizer creates a Categorizer backed by a single RuleStrategy.
func NewRuleCategorizer(rules *RuleSet, logger logging.Logger) *Categorizer {
	return NewCategorizer(logger, NewRuleStrategy(rules, logger))
}

// Categorize returns the assignment of the first strategy that matches tx.
func (c *Categorizer) Categorize(ctx context.Context, tx models.Transaction) (models.Assignment, bool, error) {
	for _, strategy := range c.strategies {
		assignment, found, err := strategy.Categorize(ctx, tx)
		if err != nil {
			return models.Assignment{}, false, fmt.Errorf("strategy %s failed: %w", strategy.Name(), err)
		}
		if found {
			return assignment, true, nil
		}
	}
	return models.Assignment{}, false, nil
}

// Partition categorizes every transaction in txs.
func (c *Categorizer) Partition(ctx context.Context, txs []models.Transaction) (PartitionResult, error) {
	var result PartitionResult
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return PartitionResult{}, err
		}
		assignment, found, err := c.Categorize(ctx, tx)
		if err != nil {
			return PartitionResult{}, err
		}
		if found {
			result.Categorized = append(result.Categorized, models.Categorized{Transaction: tx, Assignment: assignment})
			continue
		}
		result.Pending = append(result.Pending, tx)
	}

	c.logger.Debug("Partitioned transactions",
		logging.F(logging.FieldCount, len(txs)),
		logging.F(logging.FieldPending, len(result.Pending)))
	return result, nil
}
