package categorizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"
	"fjacquet/txsort/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTx(amount, counterparty, description string) models.Transaction {
	return models.Transaction{
		Date:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Amount:       decimal.RequireFromString(amount),
		Currency:     "EUR",
		Counterparty: counterparty,
		Description:  description,
	}.WithIdentity()
}

func defaultRuleSet(t *testing.T) *RuleSet {
	t.Helper()
	cfg, err := store.DefaultRules()
	require.NoError(t, err)
	rules, err := NewRuleSet(cfg)
	require.NoError(t, err)
	return rules
}

func foodRuleSet(t *testing.T) *RuleSet {
	t.Helper()
	rules, err := NewRuleSet(models.RulesConfig{
		Categories: []models.Category{
			{Code: "food", Label: "Food", Polarity: models.PolarityExpense},
			{Code: "fun", Label: "Fun", Polarity: models.PolarityExpense},
			{Code: "salary", Label: "Salary", Polarity: models.PolarityIncome},
		},
		ExpenseRules: []models.RuleConfig{
			{Pattern: "JUMBO", Label: "Groceries", Category: "food"},
			{Pattern: "supermarket", Label: "Other shop", Category: "fun"},
		},
		IncomeRules: []models.RuleConfig{
			{Pattern: "salary", Label: "{c}", Category: "salary"},
		},
	})
	require.NoError(t, err)
	return rules
}

func TestRuleStrategy_Categorize(t *testing.T) {
	rules := defaultRuleSet(t)
	strategy := NewRuleStrategy(rules, logging.NewMockLogger())

	tests := []struct {
		name         string
		tx           models.Transaction
		expectFound  bool
		expectedCode string
		expectedNote string
	}{
		{
			name:         "counterparty match",
			tx:           newTx("-12.50", "JUMBO Driebergen", "Betaalautomaat"),
			expectFound:  true,
			expectedCode: "boodschappen",
			expectedNote: "Jumbo inkopen",
		},
		{
			name:         "description match is case-insensitive",
			tx:           newTx("-4.00", "", "betaling albert heijn 1234"),
			expectFound:  true,
			expectedCode: "boodschappen",
			expectedNote: "Albert Heijn inkopen",
		},
		{
			name:         "income rule",
			tx:           newTx("314.10", "Anamata B.V.", "SALARISBETALING PERIODE 4"),
			expectFound:  true,
			expectedCode: "salaris",
			expectedNote: "Salaris Ezra",
		},
		{
			name:         "single capture group",
			tx:           newTx("-50.00", "ASN Bank", "maandelijks spaargeld - vakantie"),
			expectFound:  true,
			expectedCode: "naar_spaarpotjes",
			expectedNote: "Sparen - Vakantie",
		},
		{
			name:         "leading capture group",
			tx:           newTx("-21.30", "", "Reis PROMOVENDUM"),
			expectFound:  true,
			expectedCode: "verzekeringen",
			expectedNote: "Promovendum Reis",
		},
		{
			name:         "donation names the receiver",
			tx:           newTx("-10.00", "", "donatie - Stichting Opwekking"),
			expectFound:  true,
			expectedCode: "goeie_doelen",
			expectedNote: "Donatie/bijdrage aan Stichting Opwekking",
		},
		{
			name:        "income rules do not apply to expenses",
			tx:          newTx("-314.10", "", "SALARISBETALING"),
			expectFound: false,
		},
		{
			name:        "expense rules do not apply to income",
			tx:          newTx("12.50", "JUMBO", "refund"),
			expectFound: false,
		},
		{
			name:        "no match",
			tx:          newTx("-3.00", "Bakker Bart", "broodjes"),
			expectFound: false,
		},
		{
			name:        "empty text",
			tx:          newTx("-3.00", "", ""),
			expectFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assignment, found, err := strategy.Categorize(context.Background(), tt.tx)
			require.NoError(t, err)
			assert.Equal(t, tt.expectFound, found)
			if !tt.expectFound {
				return
			}
			assert.Equal(t, tt.expectedCode, assignment.Code)
			assert.Equal(t, tt.expectedNote, assignment.Note)
			assert.Equal(t, models.SourceRule, assignment.Source)
		})
	}
}

func TestRuleStrategy_FirstMatchWins(t *testing.T) {
	strategy := NewRuleStrategy(foodRuleSet(t), logging.NewMockLogger())

	// Both rules match; declaration order decides.
	assignment, found, err := strategy.Categorize(context.Background(), newTx("-12.50", "", "JUMBO supermarket"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "food", assignment.Code)
	assert.Equal(t, "Food", assignment.Label)
	assert.Equal(t, "Groceries", assignment.Note)
}

func TestRuleStrategy_Deterministic(t *testing.T) {
	strategy := NewRuleStrategy(defaultRuleSet(t), logging.NewMockLogger())
	txs := []models.Transaction{
		newTx("-12.50", "JUMBO", "supermarket"),
		newTx("-9.99", "Vodafone", "abonnement"),
		newTx("-3.00", "Bakker Bart", "broodjes"),
		newTx("1200.00", "DUO", "studiefinanciering"),
	}

	for _, tx := range txs {
		first, foundFirst, err := strategy.Categorize(context.Background(), tx)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, foundAgain, err := strategy.Categorize(context.Background(), tx)
			require.NoError(t, err)
			assert.Equal(t, foundFirst, foundAgain)
			assert.Equal(t, first, again)
		}
	}
}

func TestRenderLabel(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		match    []string
		expected string
	}{
		{"whole match", "{c} inkopen", []string{"AH to go"}, "Ah To Go inkopen"},
		{"one group", "Sparen - {c}", []string{"spaargeld - auto", "auto"}, "Sparen - Auto"},
		{"second of two groups", "{c}!", []string{"foo bar", "foo", "bar"}, "Bar!"},
		{"unmatched optional group", "Huur {c}", []string{"x", ""}, "Huur"},
		{"no placeholder", "ASN Gebruikskosten", []string{"gebruik betaalrekening"}, "ASN Gebruikskosten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderLabel(tt.label, tt.match))
		})
	}
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Jumbo", titleCase("JUMBO"))
	assert.Equal(t, "O'Neil", titleCase("o'neil"))
	assert.Equal(t, "3Abc Def", titleCase("3abc def"))
	assert.Equal(t, "Één Twee", titleCase("één twee"))
}

func TestNewRuleSet_Errors(t *testing.T) {
	base := func() models.RulesConfig {
		return models.RulesConfig{
			Categories: []models.Category{
				{Code: "food", Label: "Food", Polarity: models.PolarityExpense},
				{Code: "salary", Label: "Salary", Polarity: models.PolarityIncome},
			},
		}
	}

	tests := []struct {
		name   string
		modify func(*models.RulesConfig)
	}{
		{"missing code", func(c *models.RulesConfig) { c.Categories[0].Code = "" }},
		{"missing label", func(c *models.RulesConfig) { c.Categories[0].Label = " " }},
		{"bad polarity", func(c *models.RulesConfig) { c.Categories[0].Polarity = "both" }},
		{"duplicate code", func(c *models.RulesConfig) { c.Categories[1].Code = "food"; c.Categories[1].Polarity = models.PolarityExpense }},
		{"two defaults", func(c *models.RulesConfig) {
			c.Categories = append(c.Categories, models.Category{Code: "x", Label: "X", Polarity: models.PolarityExpense, Default: true})
			c.Categories[0].Default = true
		}},
		{"bad shorthand", func(c *models.RulesConfig) { c.Categories[0].Shorthand = "(" }},
		{"unknown category", func(c *models.RulesConfig) {
			c.ExpenseRules = []models.RuleConfig{{Pattern: "x", Category: "rent"}}
		}},
		{"wrong polarity", func(c *models.RulesConfig) {
			c.ExpenseRules = []models.RuleConfig{{Pattern: "x", Category: "salary"}}
		}},
		{"empty pattern", func(c *models.RulesConfig) {
			c.IncomeRules = []models.RuleConfig{{Pattern: "", Category: "salary"}}
		}},
		{"bad pattern", func(c *models.RulesConfig) {
			c.IncomeRules = []models.RuleConfig{{Pattern: "[", Category: "salary"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.modify(&cfg)
			_, err := NewRuleSet(cfg)
			assert.Error(t, err)
		})
	}

	t.Run("valid", func(t *testing.T) {
		_, err := NewRuleSet(base())
		assert.NoError(t, err)
	})
}

func TestCategorizer_Partition(t *testing.T) {
	c := NewRuleCategorizer(foodRuleSet(t), logging.NewMockLogger())
	txs := []models.Transaction{
		newTx("-12.50", "", "JUMBO supermarket"),
		newTx("-3.00", "Bakker", "brood"),
		newTx("2500.00", "ACME", "salary january"),
		newTx("-1.00", "Kiosk", "krant"),
	}

	result, err := c.Partition(context.Background(), txs)
	require.NoError(t, err)

	require.Len(t, result.Categorized, 2)
	assert.Equal(t, txs[0], result.Categorized[0].Transaction)
	assert.Equal(t, "food", result.Categorized[0].Assignment.Code)
	assert.Equal(t, "salary", result.Categorized[1].Assignment.Code)
	assert.Equal(t, "Salary", result.Categorized[1].Assignment.Note)
	assert.Equal(t, []models.Transaction{txs[1], txs[3]}, result.Pending)
}

type failingStrategy struct{}

func (failingStrategy) Categorize(context.Context, models.Transaction) (models.Assignment, bool, error) {
	return models.Assignment{}, false, errors.New("boom")
}

func (failingStrategy) Name() string { return "Failing" }

func TestCategorizer_StrategyError(t *testing.T) {
	c := NewCategorizer(logging.NewMockLogger(), failingStrategy{})
	_, err := c.Partition(context.Background(), []models.Transaction{newTx("-1.00", "a", "b")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failing")
}

func TestCategorizer_CanceledContext(t *testing.T) {
	c := NewRuleCategorizer(foodRuleSet(t), logging.NewMockLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Partition(ctx, []models.Transaction{newTx("-1.00", "a", "b")})
	assert.ErrorIs(t, err, context.Canceled)
}
