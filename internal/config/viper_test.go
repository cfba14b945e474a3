package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearTestEnvVars(t)

	config, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
	assert.Equal(t, ",", config.CSV.Delimiter)
	assert.Equal(t, BackendFile, config.Session.Backend)
	assert.NotEmpty(t, config.Session.Directory)
	assert.Equal(t, 300, config.Prompt.TimeoutSeconds)
	assert.Equal(t, 5*time.Minute, config.PromptTimeout())
	assert.Equal(t, TargetCSV, config.Export.Target)
	assert.Equal(t, "Transacties", config.Export.Sheets.Tab)
	assert.True(t, config.Suggest.Bayes.Enabled)
	assert.Equal(t, 3, config.Suggest.Bayes.MinExamples)
	assert.False(t, config.Suggest.Gemini.Enabled)
	assert.Equal(t, "gemini-2.0-flash", config.Suggest.Gemini.Model)
	assert.Equal(t, 30*time.Second, config.GeminiTimeout())
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	clearTestEnvVars(t)

	testEnvVars := map[string]string{
		"TXSORT_LOG_LEVEL":              "debug",
		"TXSORT_LOG_FORMAT":             "json",
		"TXSORT_CSV_DELIMITER":          ";",
		"TXSORT_SESSION_BACKEND":        "bolt",
		"TXSORT_PROMPT_TIMEOUT_SECONDS": "60",
		"TXSORT_SUGGEST_GEMINI_ENABLED": "true",
		"GEMINI_API_KEY":                "test-api-key",
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	config, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, ";", config.CSV.Delimiter)
	assert.Equal(t, BackendBolt, config.Session.Backend)
	assert.Equal(t, 60, config.Prompt.TimeoutSeconds)
	assert.True(t, config.Suggest.Gemini.Enabled)
	assert.Equal(t, "test-api-key", config.Suggest.Gemini.APIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearTestEnvVars(t)

	path := writeConfig(t, `
log:
  level: "warn"
csv:
  delimiter: ";"
session:
  directory: "/var/lib/txsort"
rules:
  file: "rules.yaml"
export:
  target: "sheets"
  sheets:
    spreadsheet_id: "sheet-1"
    tab: "2025"
    credentials_file: "creds.json"
suggest:
  bayes:
    enabled: false
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", config.Log.Level)
	assert.Equal(t, ";", config.CSV.Delimiter)
	assert.Equal(t, "/var/lib/txsort", config.Session.Directory)
	assert.Equal(t, "rules.yaml", config.Rules.File)
	assert.Equal(t, TargetSheets, config.Export.Target)
	assert.Equal(t, "sheet-1", config.Export.Sheets.SpreadsheetID)
	assert.Equal(t, "2025", config.Export.Sheets.Tab)
	assert.False(t, config.Suggest.Bayes.Enabled)
}

func TestLoad_HierarchicalPrecedence(t *testing.T) {
	clearTestEnvVars(t)

	path := writeConfig(t, `
log:
  level: "warn"
csv:
  delimiter: "|"
`)
	t.Setenv("TXSORT_LOG_LEVEL", "error")

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "error", config.Log.Level) // env var wins
	assert.Equal(t, "|", config.CSV.Delimiter) // config file value
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearTestEnvVars(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name         string
		modifyConfig func(*Config)
		expectedErr  string
	}{
		{"invalid log level", func(c *Config) { c.Log.Level = "loud" }, "invalid log level"},
		{"invalid log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
		{"long delimiter", func(c *Config) { c.CSV.Delimiter = ";;" }, "single character"},
		{"unknown backend", func(c *Config) { c.Session.Backend = "redis" }, "invalid session backend"},
		{"negative timeout", func(c *Config) { c.Prompt.TimeoutSeconds = -1 }, "must not be negative"},
		{"unknown export target", func(c *Config) { c.Export.Target = "ftp" }, "invalid export target"},
		{"sheets without id", func(c *Config) {
			c.Export.Target = TargetSheets
			c.Export.Sheets.CredentialsFile = "creds.json"
		}, "spreadsheet_id"},
		{"gemini without key", func(c *Config) { c.Suggest.Gemini.Enabled = true }, "GEMINI_API_KEY"},
		{"no bayes examples", func(c *Config) { c.Suggest.Bayes.MinExamples = 0 }, "min_examples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.modifyConfig(config)

			err := validateConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}

	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, validateConfig(validConfig()))
	})
}

func TestLoadEnv(t *testing.T) {
	clearTestEnvVars(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_API_KEY=from-dotenv\n"), 0600))

	originalDir, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(originalDir) })
	require.NoError(t, os.Chdir(dir))

	loaded, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ".env", loaded)
	assert.Equal(t, "from-dotenv", os.Getenv("GEMINI_API_KEY"))
}

func TestNewLogger(t *testing.T) {
	config := validConfig()
	config.Log.Level = "DEBUG"
	assert.NotNil(t, NewLogger(config))
}

func validConfig() *Config {
	c := &Config{}
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.CSV.Delimiter = ","
	c.Session.Backend = BackendFile
	c.Session.Directory = "sessions"
	c.Export.Target = TargetCSV
	c.Export.CSV.Directory = "export"
	c.Suggest.Bayes.MinExamples = 1
	c.Suggest.Gemini.TimeoutSeconds = 30
	return c
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// clearTestEnvVars unsets every variable the tests may set, restoring them
// afterwards through t.Setenv.
func clearTestEnvVars(t *testing.T) {
	envVars := []string{
		"TXSORT_LOG_LEVEL",
		"TXSORT_LOG_FORMAT",
		"TXSORT_CSV_DELIMITER",
		"TXSORT_SESSION_DIRECTORY",
		"TXSORT_SESSION_BACKEND",
		"TXSORT_SESSION_BOLT_FILE",
		"TXSORT_RULES_FILE",
		"TXSORT_PROMPT_TIMEOUT_SECONDS",
		"TXSORT_EXPORT_TARGET",
		"TXSORT_SUGGEST_BAYES_ENABLED",
		"TXSORT_SUGGEST_GEMINI_ENABLED",
		"GEMINI_API_KEY",
	}

	for _, envVar := range envVars {
		t.Setenv(envVar, "")
		require.NoError(t, os.Unsetenv(envVar))
	}
}
