// Package container provides dependency injection for the txsort application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"
	"io"

	"fjacquet/txsort/internal/categorizer"
	"fjacquet/txsort/internal/config"
	"fjacquet/txsort/internal/export"
	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/normalizer"
	"fjacquet/txsort/internal/session"
	"fjacquet/txsort/internal/sessionstore"
	"fjacquet/txsort/internal/store"
	"fjacquet/txsort/internal/suggest"
)

// Container holds all application dependencies and provides methods to access them.
// It is immutable after creation; dependencies are reached through getters.
type Container struct {
	logger      logging.Logger
	config      *config.Config
	ruleStore   *store.RuleStore
	rules       *categorizer.RuleSet
	rulesSource string
	sessions    sessionstore.Store
	exporter    session.Exporter
	suggesters  []session.Suggester
	engine      *session.Engine

	closers []io.Closer
}

// NewContainer creates and wires all application dependencies.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	return newContainer(ctx, cfg, config.NewLogger(cfg))
}

func newContainer(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Container, error) {
	c := &Container{logger: logger, config: cfg}
	if err := c.wire(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) wire(ctx context.Context) error {
	cfg, logger := c.config, c.logger

	// Rules first: the taxonomy is needed by everything downstream
	c.ruleStore = store.NewRuleStore(cfg.Rules.File, logger)
	rulesConfig, source, err := c.ruleStore.Load()
	if err != nil {
		return err
	}
	c.rules, err = categorizer.NewRuleSet(rulesConfig)
	if err != nil {
		return fmt.Errorf("invalid rules in %s: %w", source, err)
	}
	c.rulesSource = source

	norm, err := normalizer.New(rune(cfg.CSV.Delimiter[0]), rulesConfig.Rewrites, logger)
	if err != nil {
		return fmt.Errorf("invalid rewrites in %s: %w", source, err)
	}

	switch cfg.Session.Backend {
	case config.BackendBolt:
		bs, err := sessionstore.OpenBoltStore(cfg.Session.BoltFile, logger)
		if err != nil {
			return err
		}
		c.sessions = bs
		c.closers = append(c.closers, bs)
	default:
		fs, err := sessionstore.NewFileStore(cfg.Session.Directory, logger)
		if err != nil {
			return err
		}
		c.sessions = fs
	}

	switch cfg.Export.Target {
	case config.TargetSheets:
		c.exporter, err = export.NewSheetsExporter(ctx, cfg.Export.Sheets.SpreadsheetID,
			cfg.Export.Sheets.Tab, cfg.Export.Sheets.CredentialsFile, logger)
		if err != nil {
			return err
		}
	default:
		c.exporter = export.NewCSVExporter(cfg.Export.CSV.Directory, logger)
	}

	if cfg.Suggest.Bayes.Enabled {
		c.suggesters = append(c.suggesters, suggest.NewBayesSuggester(cfg.Suggest.Bayes.MinExamples, logger))
	}
	if cfg.Suggest.Gemini.Enabled {
		gs, err := suggest.NewGeminiSuggester(ctx, cfg.Suggest.Gemini.APIKey, cfg.Suggest.Gemini.Model,
			cfg.GeminiTimeout(), logger)
		if err != nil {
			return err
		}
		c.suggesters = append(c.suggesters, gs)
		c.closers = append(c.closers, gs)
	}

	c.engine = session.NewEngine(c.sessions, norm, c.rules, c.exporter, logger,
		session.WithSuggesters(c.suggesters...),
		session.WithPromptTimeout(cfg.PromptTimeout()))

	logger.Debug("Container initialized",
		logging.F("rules_source", source),
		logging.F("session_backend", cfg.Session.Backend),
		logging.F(logging.FieldTarget, c.exporter.Name()),
		logging.F("suggesters", len(c.suggesters)))

	return nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetEngine returns the session engine.
func (c *Container) GetEngine() *session.Engine {
	return c.engine
}

// GetRuleStore returns the store the rules were loaded through.
func (c *Container) GetRuleStore() *store.RuleStore {
	return c.ruleStore
}

// GetRules returns the compiled rules and taxonomy.
func (c *Container) GetRules() *categorizer.RuleSet {
	return c.rules
}

// RulesSource is the path of the loaded rules file, or store.SourceBuiltin.
func (c *Container) RulesSource() string {
	return c.rulesSource
}

// GetExporter returns the configured export target.
func (c *Container) GetExporter() session.Exporter {
	return c.exporter
}

// Close releases the session database and suggester clients.
func (c *Container) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
