package categorizer

import (
	"fmt"
	"regexp"

	"fjacquet/txsort/internal/models"
)

// Rule is a compiled auto-categorization rule.
type Rule struct {
	Pattern  *regexp.Regexp
	Label    string // note template, {c} is replaced by the captured name
	Category models.Category
}

// RuleSet holds the taxonomy and the ordered, polarity-scoped rules. It is
// immutable after construction.
type RuleSet struct {
	taxonomy *Taxonomy
	expense  []Rule
	income   []Rule
}

// NewRuleSet validates cfg and compiles every pattern case-insensitively.
// A rule must reference a category of its own polarity.
func NewRuleSet(cfg models.RulesConfig) (*RuleSet, error) {
	taxonomy, err := NewTaxonomy(cfg.Categories)
	if err != nil {
		return nil, err
	}

	expense, err := compileRules(taxonomy, cfg.ExpenseRules, models.PolarityExpense)
	if err != nil {
		return nil, err
	}
	income, err := compileRules(taxonomy, cfg.IncomeRules, models.PolarityIncome)
	if err != nil {
		return nil, err
	}

	return &RuleSet{taxonomy: taxonomy, expense: expense, income: income}, nil
}

func compileRules(taxonomy *Taxonomy, configs []models.RuleConfig, p models.Polarity) ([]Rule, error) {
	rules := make([]Rule, 0, len(configs))
	for i, rc := range configs {
		category, ok := taxonomy.Lookup(rc.Category)
		if !ok {
			return nil, fmt.Errorf("%s rule %d (%q) references unknown category %q", p, i+1, rc.Pattern, rc.Category)
		}
		if category.Polarity != p {
			return nil, fmt.Errorf("%s rule %d (%q) references %s category %q", p, i+1, rc.Pattern, category.Polarity, rc.Category)
		}
		if rc.Pattern == "" {
			return nil, fmt.Errorf("%s rule %d has an empty pattern", p, i+1)
		}
		re, err := regexp.Compile("(?i)" + rc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s rule %d has invalid pattern: %w", p, i+1, err)
		}
		rules = append(rules, Rule{Pattern: re, Label: rc.Label, Category: category})
	}
	return rules, nil
}

// Taxonomy returns the category set.
func (r *RuleSet) Taxonomy() *Taxonomy {
	return r.taxonomy
}

// Rules returns the rules of polarity p in evaluation order.
func (r *RuleSet) Rules(p models.Polarity) []Rule {
	if p == models.PolarityExpense {
		return r.expense
	}
	return r.income
}
