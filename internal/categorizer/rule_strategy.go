package categorizer

import (
	"context"
	"strings"
	"unicode"

	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"
)

// RuleStrategy assigns the category of the first rule, in declaration order,
// whose pattern matches the transaction's counterparty or description.
// Only rules of the transaction's polarity are considered.
type RuleStrategy struct {
	rules  *RuleSet
	logger logging.Logger
}

// NewRuleStrategy creates a RuleStrategy over rules.
func NewRuleStrategy(rules *RuleSet, logger logging.Logger) *RuleStrategy {
	return &RuleStrategy{rules: rules, logger: logger}
}

// Name returns the name of this strategy for logging and debugging.
func (s *RuleStrategy) Name() string {
	return "Rule"
}

// Categorize evaluates the rules against tx. It never returns an error.
func (s *RuleStrategy) Categorize(_ context.Context, tx models.Transaction) (models.Assignment, bool, error) {
	text := tx.MatchText()
	if text == "" {
		return models.Assignment{}, false, nil
	}

	for _, rule := range s.rules.Rules(tx.Polarity()) {
		m := rule.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		note := renderLabel(rule.Label, m)
		s.logger.Debug("Transaction categorized by rule",
			logging.F(logging.FieldStrategy, s.Name()),
			logging.F(logging.FieldRule, rule.Pattern.String()),
			logging.F(logging.FieldCategory, rule.Category.Code),
			logging.F(logging.FieldIdentity, tx.Identity))

		return models.Assignment{
			Code:   rule.Category.Code,
			Label:  rule.Category.Label,
			Note:   note,
			Source: models.SourceRule,
		}, true, nil
	}

	return models.Assignment{}, false, nil
}

// renderLabel fills {c} with the captured name: the second group when the
// pattern has several, the only group when it has one, else the whole match.
func renderLabel(label string, m []string) string {
	var name string
	switch groups := m[1:]; {
	case len(groups) > 1:
		name = groups[1]
	case len(groups) == 1:
		name = groups[0]
	default:
		name = m[0]
	}
	return strings.TrimSpace(strings.ReplaceAll(label, "{c}", titleCase(strings.TrimSpace(name))))
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWord := false
	for _, r := range s {
		if !unicode.IsLetter(r) {
			inWord = false
			b.WriteRune(r)
			continue
		}
		if inWord {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(unicode.ToTitle(r))
		}
		inWord = true
	}
	return b.String()
}
