package store

import (
	_ "embed"
	"fmt"

	"fjacquet/txsort/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// DefaultRules returns the built-in rule set used when no rules file exists.
func DefaultRules() (models.RulesConfig, error) {
	var cfg models.RulesConfig
	if err := yaml.Unmarshal(defaultRulesYAML, &cfg); err != nil {
		return models.RulesConfig{}, fmt.Errorf("error parsing built-in rules: %w", err)
	}
	return cfg, nil
}

// DefaultRulesYAML returns the raw built-in rules document.
func DefaultRulesYAML() []byte {
	return append([]byte(nil), defaultRulesYAML...)
}
