package container

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fjacquet/txsort/internal/config"
	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"
	"fjacquet/txsort/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, store.DefaultRulesYAML(), 0600))

	c := &config.Config{}
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.CSV.Delimiter = ","
	c.Session.Backend = config.BackendFile
	c.Session.Directory = filepath.Join(dir, "sessions")
	c.Session.BoltFile = filepath.Join(dir, "sessions.db")
	c.Rules.File = rules
	c.Export.Target = config.TargetCSV
	c.Export.CSV.Directory = filepath.Join(dir, "export")
	c.Suggest.Bayes.Enabled = true
	c.Suggest.Bayes.MinExamples = 3
	return c
}

func TestNewContainer(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*config.Config)
		expectError string
		suggesters  int
	}{
		{name: "file backend with bayes", suggesters: 1},
		{name: "bolt backend", modify: func(c *config.Config) { c.Session.Backend = config.BackendBolt }, suggesters: 1},
		{name: "no suggesters", modify: func(c *config.Config) { c.Suggest.Bayes.Enabled = false }},
		{
			name:        "missing rules file",
			modify:      func(c *config.Config) { c.Rules.File = filepath.Join(t.TempDir(), "absent.yaml") },
			expectError: "error resolving rules file",
		},
		{
			name: "sheets without credentials",
			modify: func(c *config.Config) {
				c.Export.Target = config.TargetSheets
				c.Export.Sheets.SpreadsheetID = "sheet-1"
				c.Export.Sheets.CredentialsFile = filepath.Join(t.TempDir(), "absent.json")
			},
			expectError: "service account",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if tt.modify != nil {
				tt.modify(cfg)
			}

			c, err := newContainer(context.Background(), cfg, logging.NewMockLogger())
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			defer func() { assert.NoError(t, c.Close()) }()

			assert.NotNil(t, c.GetEngine())
			assert.Same(t, cfg, c.GetConfig())
			assert.NotNil(t, c.GetLogger())
			assert.Equal(t, cfg.Rules.File, c.RulesSource())
			assert.Equal(t, "csv", c.GetExporter().Name())
			assert.Len(t, c.suggesters, tt.suggesters)
			assert.NotEmpty(t, c.GetRules().Taxonomy().Categories(models.PolarityExpense))
		})
	}
}

func TestNewContainer_NilConfig(t *testing.T) {
	_, err := NewContainer(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration cannot be nil")
}

func TestNewContainer_InvalidRules(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Rules.File, []byte(`
categories:
  - code: food
    label: Food
    polarity: expense
expense_rules:
  - pattern: "JUMBO"
    category: rent
`), 0600))

	_, err := newContainer(context.Background(), cfg, logging.NewMockLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rules")
}

func TestContainer_EngineRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Backend = config.BackendBolt
	c, err := newContainer(context.Background(), cfg, logging.NewMockLogger())
	require.NoError(t, err)

	upload := "Date,Account,Counterparty Account,Counterparty Name,Amount,Currency,Transaction Code,Description\n" +
		"2024-01-05,NL01,NL02,JUMBO Driebergen,-12.50,EUR,BA,pin\n"
	result, err := c.GetEngine().StartOrMerge(context.Background(), "alice", strings.NewReader(upload))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	require.NoError(t, c.Close())

	// The bolt file is released and the session is still there.
	reopened, err := newContainer(context.Background(), cfg, logging.NewMockLogger())
	require.NoError(t, err)
	defer reopened.Close()
	status, err := reopened.GetEngine().Status(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, status.IncomeCount+status.ExpensesCount+status.Remaining)
}
