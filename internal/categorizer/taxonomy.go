package categorizer

import (
	"fmt"
	"regexp"
	"strings"

	"fjacquet/txsort/internal/apperror"
	"fjacquet/txsort/internal/models"
)

// Taxonomy is the closed, ordered set of categories.
type Taxonomy struct {
	categories []models.Category
	shorthand  []*regexp.Regexp // parallel to categories, nil when absent
}

// NewTaxonomy validates categories and compiles their shorthand patterns.
// Codes must be unique and each polarity may have at most one default.
func NewTaxonomy(categories []models.Category) (*Taxonomy, error) {
	t := &Taxonomy{
		categories: make([]models.Category, 0, len(categories)),
		shorthand:  make([]*regexp.Regexp, 0, len(categories)),
	}
	seen := make(map[string]bool, len(categories))
	defaults := make(map[models.Polarity]string, 2)

	for i, c := range categories {
		c.Code = strings.TrimSpace(c.Code)
		c.Label = strings.TrimSpace(c.Label)
		switch {
		case c.Code == "":
			return nil, fmt.Errorf("category %d has no code", i+1)
		case c.Label == "":
			return nil, fmt.Errorf("category %s has no label", c.Code)
		case !c.Polarity.Valid():
			return nil, fmt.Errorf("category %s has invalid polarity %q", c.Code, c.Polarity)
		case seen[c.Code]:
			return nil, fmt.Errorf("duplicate category code %s", c.Code)
		}
		seen[c.Code] = true

		if c.Default {
			if other, ok := defaults[c.Polarity]; ok {
				return nil, fmt.Errorf("categories %s and %s are both the %s default", other, c.Code, c.Polarity)
			}
			defaults[c.Polarity] = c.Code
		}

		var re *regexp.Regexp
		if c.Shorthand != "" {
			compiled, err := regexp.Compile("(?i)" + c.Shorthand)
			if err != nil {
				return nil, fmt.Errorf("category %s has invalid shorthand: %w", c.Code, err)
			}
			re = compiled
		}

		t.categories = append(t.categories, c)
		t.shorthand = append(t.shorthand, re)
	}

	return t, nil
}

// Categories returns the categories of polarity p in declaration order.
func (t *Taxonomy) Categories(p models.Polarity) []models.Category {
	var out []models.Category
	for _, c := range t.categories {
		if c.Polarity == p {
			out = append(out, c)
		}
	}
	return out
}

// Lookup returns the category with the given code.
func (t *Taxonomy) Lookup(code string) (models.Category, bool) {
	for _, c := range t.categories {
		if c.Code == code {
			return c, true
		}
	}
	return models.Category{}, false
}

// Default returns the fallback category of polarity p, if one is declared.
func (t *Taxonomy) Default(p models.Polarity) (models.Category, bool) {
	for _, c := range t.categories {
		if c.Polarity == p && c.Default {
			return c, true
		}
	}
	return models.Category{}, false
}

// Resolve maps typed input to a category of polarity p. It tries, in order:
// a case-insensitive match on code or label, the first category whose
// shorthand pattern matches the input, and finally a label containing the
// input, which must be unique.
func (t *Taxonomy) Resolve(input string, p models.Polarity) (models.Category, error) {
	input = strings.TrimSpace(input)
	unknown := &apperror.UnknownCategoryError{Input: input, Polarity: string(p)}
	if input == "" {
		return models.Category{}, unknown
	}

	for _, c := range t.categories {
		if c.Polarity == p && (strings.EqualFold(c.Code, input) || strings.EqualFold(c.Label, input)) {
			return c, nil
		}
	}

	for i, c := range t.categories {
		if c.Polarity == p && t.shorthand[i] != nil && t.shorthand[i].MatchString(input) {
			return c, nil
		}
	}

	needle := strings.ToLower(input)
	var matches []models.Category
	for _, c := range t.categories {
		if c.Polarity == p && strings.Contains(strings.ToLower(c.Label), needle) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return models.Category{}, unknown
	}

	for _, m := range matches {
		unknown.Candidates = append(unknown.Candidates, m.Label)
	}
	return models.Category{}, unknown
}
