package suggest

import (
	"context"
	"errors"
	"testing"
	"time"

	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expenseCategories = []models.Category{
	{Code: "food", Label: "Food", Polarity: models.PolarityExpense},
	{Code: "fun", Label: "Fun", Polarity: models.PolarityExpense},
	{Code: "other", Label: "Other", Polarity: models.PolarityExpense},
}

func tx(amount, counterparty, description string) models.Transaction {
	return models.Transaction{
		Date:         time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		Amount:       decimal.RequireFromString(amount),
		Currency:     "EUR",
		Counterparty: counterparty,
		Description:  description,
	}.WithIdentity()
}

func categorized(t models.Transaction, code string) models.Categorized {
	return models.Categorized{Transaction: t, Assignment: models.Assignment{Code: code, Source: models.SourceManual}}
}

func groceryHistory() []models.Categorized {
	return []models.Categorized{
		categorized(tx("-10.00", "Albert Heijn", "Betaalautomaat 1234"), "food"),
		categorized(tx("-12.00", "Albert Heijn Zeist", "Betaalautomaat"), "food"),
		categorized(tx("-9.50", "Pathe Bioscoop", "Tickets"), "fun"),
		categorized(tx("-19.00", "Pathe Utrecht", "Tickets"), "fun"),
	}
}

func TestBayesSuggester_RanksLearnedCategory(t *testing.T) {
	b := NewBayesSuggester(3, logging.NewMockLogger())

	hints, err := b.Suggest(context.Background(), tx("-7.00", "Heijn Driebergen", ""), expenseCategories, groceryHistory())
	require.NoError(t, err)
	require.NotEmpty(t, hints)
	assert.Equal(t, "food", hints[0].Code)
	assert.Equal(t, "Food", hints[0].Label)
	assert.Equal(t, "Bayes", hints[0].Source)
	assert.Greater(t, hints[0].Confidence, 0.9)
	assert.LessOrEqual(t, len(hints), maxBayesHints)
}

func TestBayesSuggester_StaysSilent(t *testing.T) {
	history := groceryHistory()
	tests := []struct {
		name       string
		suggester  *BayesSuggester
		tx         models.Transaction
		categories []models.Category
		history    []models.Categorized
	}{
		{"too few examples", NewBayesSuggester(10, logging.NewMockLogger()), tx("-1.00", "Albert Heijn", ""), expenseCategories, history},
		{"single category", NewBayesSuggester(1, logging.NewMockLogger()), tx("-1.00", "Albert Heijn", ""), expenseCategories, history[:2]},
		{"no shared words", NewBayesSuggester(1, logging.NewMockLogger()), tx("-1.00", "Kapper", "Knippen"), expenseCategories, history},
		{"other polarity history", NewBayesSuggester(1, logging.NewMockLogger()), tx("5.00", "Albert Heijn", "Retour"),
			[]models.Category{{Code: "gift", Label: "Gift", Polarity: models.PolarityIncome}}, history},
		{"categories not allowed", NewBayesSuggester(1, logging.NewMockLogger()), tx("-1.00", "Albert Heijn", ""), expenseCategories[2:], history},
		{"empty history", NewBayesSuggester(1, logging.NewMockLogger()), tx("-1.00", "Albert Heijn", ""), expenseCategories, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints, err := tt.suggester.Suggest(context.Background(), tt.tx, tt.categories, tt.history)
			require.NoError(t, err)
			assert.Empty(t, hints)
		})
	}
}

func TestTerms(t *testing.T) {
	terms := Terms(tx("-1.00", "AH to go", "Betaalautomaat 12:30 pas 123, Utrecht-Centraal"))
	assert.Equal(t, []string{"betaalautomaat", "pas", "utrecht", "centraal", "ah", "to", "go"}, terms)
}

type fakeGenerator struct {
	answer      string
	err         error
	prompt      string
	hadDeadline bool
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	_, f.hadDeadline = ctx.Deadline()
	return f.answer, f.err
}

func TestGeminiSuggester(t *testing.T) {
	pending := tx("-11.00", "Cinema", "Kaartjes")

	tests := []struct {
		name         string
		answer       string
		err          error
		expectedCode string
		expectErr    bool
	}{
		{name: "structured answer by code", answer: "Category: fun\nDescription: cinema tickets", expectedCode: "fun"},
		{name: "label in brackets", answer: "Category: [Food]\nDescription: snacks", expectedCode: "food"},
		{name: "bare answer", answer: "  other \n", expectedCode: "other"},
		{name: "category outside the list", answer: "Category: Travel"},
		{name: "api failure", err: errors.New("quota exceeded"), expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{answer: tt.answer, err: tt.err}
			g := NewGeminiSuggesterWithGenerator(gen, time.Second, logging.NewMockLogger())

			hints, err := g.Suggest(context.Background(), pending, expenseCategories, nil)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, gen.hadDeadline)
			if tt.expectedCode == "" {
				assert.Empty(t, hints)
				return
			}
			require.Len(t, hints, 1)
			assert.Equal(t, tt.expectedCode, hints[0].Code)
			assert.Equal(t, "Gemini", hints[0].Source)
		})
	}
}

func TestGeminiSuggester_Prompt(t *testing.T) {
	gen := &fakeGenerator{answer: "Category: food"}
	g := NewGeminiSuggesterWithGenerator(gen, 0, logging.NewMockLogger())

	_, err := g.Suggest(context.Background(), tx("-11.00", "Cinema", "Kaartjes"), expenseCategories, nil)
	require.NoError(t, err)
	assert.False(t, gen.hadDeadline)
	assert.Contains(t, gen.prompt, "Amount: -11.00 EUR")
	assert.Contains(t, gen.prompt, "Counterparty: Cinema")
	assert.Contains(t, gen.prompt, "- fun (Fun)\n")
	assert.NotContains(t, gen.prompt, "salary")

	hints, err := g.Suggest(context.Background(), tx("-1.00", "x", "y"), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, hints)
	require.NoError(t, g.Close())
}

func TestNewGeminiSuggester_RequiresKey(t *testing.T) {
	_, err := NewGeminiSuggester(context.Background(), "", "gemini-2.0-flash", time.Second, logging.NewMockLogger())
	assert.Error(t, err)
}
