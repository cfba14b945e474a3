// Package suggest produces category hints for pending transactions. Hints
// are shown to the user and never assigned automatically.
package suggest

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"

	"github.com/jbrukh/bayesian"
)

const (
	maxBayesHints      = 3
	minBayesConfidence = 0.15
)

// BayesSuggester trains a naive Bayes classifier on the transactions already
// categorized in the session and ranks the allowed categories for a new one.
type BayesSuggester struct {
	minExamples int
	logger      logging.Logger
}

// NewBayesSuggester creates a suggester that stays silent until the session
// holds at least minExamples categorized transactions of the same polarity.
func NewBayesSuggester(minExamples int, logger logging.Logger) *BayesSuggester {
	if minExamples < 1 {
		minExamples = 1
	}
	return &BayesSuggester{minExamples: minExamples, logger: logger}
}

// Name returns the name of this suggester for logging and display.
func (b *BayesSuggester) Name() string {
	return "Bayes"
}

// Suggest ranks categories by posterior probability. At least two distinct
// categories must have been used, and tx must share a word with the training
// data; otherwise no hint is given.
func (b *BayesSuggester) Suggest(_ context.Context, tx models.Transaction, categories []models.Category, history []models.Categorized) ([]models.Suggestion, error) {
	allowed := make(map[string]models.Category, len(categories))
	for _, c := range categories {
		allowed[c.Code] = c
	}

	var examples []models.Categorized
	used := make(map[string]bool)
	vocabulary := make(map[string]bool)
	for _, h := range history {
		if h.Transaction.Polarity() != tx.Polarity() {
			continue
		}
		if _, ok := allowed[h.Assignment.Code]; !ok {
			continue
		}
		examples = append(examples, h)
		used[h.Assignment.Code] = true
		for _, term := range Terms(h.Transaction) {
			vocabulary[term] = true
		}
	}
	if len(examples) < b.minExamples || len(used) < 2 {
		return nil, nil
	}

	terms := Terms(tx)
	known := false
	for _, term := range terms {
		if vocabulary[term] {
			known = true
			break
		}
	}
	if !known {
		return nil, nil
	}

	codes := make([]string, 0, len(used))
	for code := range used {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	classes := make([]bayesian.Class, len(codes))
	for i, code := range codes {
		classes[i] = bayesian.Class(code)
	}

	classifier := bayesian.NewClassifier(classes...)
	for _, ex := range examples {
		classifier.Learn(Terms(ex.Transaction), bayesian.Class(ex.Assignment.Code))
	}
	scores, _, _ := classifier.ProbScores(terms)

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })

	var out []models.Suggestion
	for _, i := range order {
		if len(out) == maxBayesHints || scores[i] < minBayesConfidence {
			break
		}
		c := allowed[codes[i]]
		out = append(out, models.Suggestion{Code: c.Code, Label: c.Label, Confidence: scores[i], Source: b.Name()})
	}

	b.logger.Debug("Bayes suggestions computed",
		logging.F(logging.FieldIdentity, tx.Identity),
		logging.F(logging.FieldCount, len(out)))
	return out, nil
}

// Terms splits the counterparty and description of tx into lower-cased
// words. Numbers and single characters are dropped.
func Terms(tx models.Transaction) []string {
	fields := strings.FieldsFunc(strings.ToLower(tx.MatchText()), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 || isNumber(f) {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
