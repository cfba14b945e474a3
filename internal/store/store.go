// Package store loads the category taxonomy, the ordered categorization rules
// and the description rewrites from a YAML rules file.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fjacquet/txsort/internal/fileutils"
	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"

	"gopkg.in/yaml.v3"
)

// DefaultRulesFile is the file name searched for when none is configured.
const DefaultRulesFile = "rules.yaml"

// SourceBuiltin is reported by Load when the built-in rules were used.
const SourceBuiltin = "builtin"

// RuleStore manages loading and saving of the rules file.
type RuleStore struct {
	RulesFile string
	logger    logging.Logger
}

// NewRuleStore creates a store for the given rules file. An empty name means
// rules.yaml is searched in the standard locations.
func NewRuleStore(rulesFile string, logger logging.Logger) *RuleStore {
	return &RuleStore{
		RulesFile: rulesFile,
		logger:    logger,
	}
}

// FindConfigFile looks for a configuration file in standard locations
func (s *RuleStore) FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if fileutils.FileExists(filename) {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
		filepath.Join(".txsort", filename),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(homeDir, ".txsort", filename))
	}

	for _, location := range locations {
		if fileutils.FileExists(location) {
			return location, nil
		}
	}

	return "", os.ErrNotExist
}

// Load reads the rules file and returns its content together with the path
// it came from. When no file is configured and none is found in the standard
// locations the built-in rules are returned with source SourceBuiltin. A
// configured file that does not exist is an error.
func (s *RuleStore) Load() (models.RulesConfig, string, error) {
	filename := s.RulesFile
	explicit := filename != ""
	if !explicit {
		filename = DefaultRulesFile
	}

	filePath, err := s.FindConfigFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			s.logger.Debug("No rules file found, using built-in rules",
				logging.F(logging.FieldFile, filename))
			cfg, err := DefaultRules()
			return cfg, SourceBuiltin, err
		}
		return models.RulesConfig{}, "", fmt.Errorf("error resolving rules file %s: %w", filename, err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return models.RulesConfig{}, "", fmt.Errorf("error reading rules file: %w", err)
	}

	var cfg models.RulesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return models.RulesConfig{}, "", fmt.Errorf("error parsing rules file %s: %w", filePath, err)
	}
	if len(cfg.Categories) == 0 {
		return models.RulesConfig{}, "", fmt.Errorf("rules file %s defines no categories", filePath)
	}

	s.logger.Debug("Loaded rules",
		logging.F(logging.FieldFile, filePath),
		logging.F(logging.FieldCount, len(cfg.ExpenseRules)+len(cfg.IncomeRules)))
	return cfg, filePath, nil
}

// Save writes cfg to path as YAML, creating parent directories.
func (s *RuleStore) Save(path string, cfg models.RulesConfig) error {
	if err := fileutils.EnsureDirectoryExists(filepath.Dir(path), models.PermissionDirectory); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling rules: %w", err)
	}

	if err := fileutils.WriteFileAtomic(path, data, models.PermissionExportFile); err != nil {
		return fmt.Errorf("error writing rules file: %w", err)
	}

	s.logger.Info("Saved rules", logging.F(logging.FieldFile, path))
	return nil
}
