// Package models provides the data structures used throughout the application.
package models

// Category is one variant of the closed category enumeration. Income and
// expense categories live in the same list and are told apart by Polarity.
type Category struct {
	Code      string   `yaml:"code"`
	Label     string   `yaml:"label"`
	Polarity  Polarity `yaml:"polarity"`
	Shorthand string   `yaml:"shorthand"` // regex resolving typed input to this category
	Default   bool     `yaml:"default"`
}

// Assignment is the category given to a transaction.
type Assignment struct {
	Code   string // category code
	Label  string // category label
	Note   string // human description, rendered from a rule or typed by the user
	Source string // SourceRule or SourceManual
}

// Categorized pairs a transaction with its final assignment.
type Categorized struct {
	Transaction Transaction
	Assignment  Assignment
}

// RuleConfig is an auto-categorization rule as written in the rules file.
type RuleConfig struct {
	Pattern  string `yaml:"pattern"`
	Label    string `yaml:"label"`
	Category string `yaml:"category"`
}

// RewriteConfig is a text substitution applied to descriptions before they
// are stored.
type RewriteConfig struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// RulesConfig represents the structure of the rules YAML file.
type RulesConfig struct {
	Categories   []Category      `yaml:"categories"`
	ExpenseRules []RuleConfig    `yaml:"expense_rules"`
	IncomeRules  []RuleConfig    `yaml:"income_rules"`
	Rewrites     []RewriteConfig `yaml:"rewrites"`
}

// Suggestion is a non-binding category hint shown next to a pending
// transaction.
type Suggestion struct {
	Code       string
	Label      string
	Confidence float64 // 0..1
	Source     string  // name of the suggester
}
