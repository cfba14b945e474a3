package suggest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Generator sends a prompt to a language model and returns its text answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type geminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini API")
	}
	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}

// GeminiSuggester asks a Gemini model to pick one of the allowed categories.
type GeminiSuggester struct {
	generator Generator
	timeout   time.Duration
	logger    logging.Logger
	close     func() error
}

// NewGeminiSuggester connects to the Gemini API with apiKey.
func NewGeminiSuggester(ctx context.Context, apiKey, model string, timeout time.Duration, logger logging.Logger) (*GeminiSuggester, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	gm := client.GenerativeModel(model)
	gm.SetTemperature(0)

	s := NewGeminiSuggesterWithGenerator(&geminiGenerator{client: client, model: gm}, timeout, logger)
	s.close = client.Close
	return s, nil
}

// NewGeminiSuggesterWithGenerator uses gen instead of the Gemini API.
func NewGeminiSuggesterWithGenerator(gen Generator, timeout time.Duration, logger logging.Logger) *GeminiSuggester {
	return &GeminiSuggester{generator: gen, timeout: timeout, logger: logger, close: func() error { return nil }}
}

// Name returns the name of this suggester for logging and display.
func (g *GeminiSuggester) Name() string {
	return "Gemini"
}

// Close releases the API client.
func (g *GeminiSuggester) Close() error {
	return g.close()
}

// Suggest returns the category the model picked, or nothing when the answer
// names no allowed category.
func (g *GeminiSuggester) Suggest(ctx context.Context, tx models.Transaction, categories []models.Category, _ []models.Categorized) ([]models.Suggestion, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	answer, err := g.generator.Generate(ctx, buildPrompt(tx, categories))
	if err != nil {
		return nil, err
	}

	name, reason := parseAnswer(answer)
	for _, c := range categories {
		if strings.EqualFold(name, c.Code) || strings.EqualFold(name, c.Label) {
			g.logger.Debug("Gemini suggested category",
				logging.F(logging.FieldIdentity, tx.Identity),
				logging.F(logging.FieldCategory, c.Code),
				logging.F("reason", reason))
			return []models.Suggestion{{Code: c.Code, Label: c.Label, Source: g.Name()}}, nil
		}
	}

	g.logger.Debug("Gemini answer names no allowed category",
		logging.F(logging.FieldIdentity, tx.Identity),
		logging.F(logging.FieldCategory, name))
	return nil, nil
}

func buildPrompt(tx models.Transaction, categories []models.Category) string {
	var list strings.Builder
	for _, c := range categories {
		fmt.Fprintf(&list, "- %s (%s)\n", c.Code, c.Label)
	}
	return fmt.Sprintf(`Categorize the following bank transaction:
Date: %s
Amount: %s %s
Counterparty: %s
Description: %s

Assign it to exactly one of these categories, given as code (label):
%s
Respond in this format:
Category: [category code]
Description: [brief reason]`,
		tx.DateString(), tx.AmountString(), tx.Currency, tx.Counterparty, tx.Description, list.String())
}

// parseAnswer extracts the Category and Description lines of a model answer.
// Without a Category line the whole trimmed answer is taken as the name.
func parseAnswer(answer string) (string, string) {
	var name, reason string
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Category:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "Category:"))
		case strings.HasPrefix(line, "Description:"):
			reason = strings.TrimSpace(strings.TrimPrefix(line, "Description:"))
		}
	}
	if name == "" {
		name = strings.TrimSpace(answer)
	}
	return strings.Trim(name, "[]*` "), reason
}
