// Package config provides Viper-based hierarchical configuration management.
// Values are resolved from defaults, then an optional YAML file, then
// TXSORT_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fjacquet/txsort/internal/logging"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "TXSORT"

// Session backends
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// Export targets
const (
	TargetCSV    = "csv"
	TargetSheets = "sheets"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	CSV struct {
		Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	} `mapstructure:"csv" yaml:"csv"`

	Session struct {
		Directory string `mapstructure:"directory" yaml:"directory"`
		Backend   string `mapstructure:"backend" yaml:"backend"`
		BoltFile  string `mapstructure:"bolt_file" yaml:"bolt_file"`
	} `mapstructure:"session" yaml:"session"`

	Rules struct {
		File string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"rules" yaml:"rules"`

	Prompt struct {
		TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	} `mapstructure:"prompt" yaml:"prompt"`

	Export struct {
		Target string `mapstructure:"target" yaml:"target"`
		CSV    struct {
			Directory string `mapstructure:"directory" yaml:"directory"`
		} `mapstructure:"csv" yaml:"csv"`
		Sheets struct {
			SpreadsheetID   string `mapstructure:"spreadsheet_id" yaml:"spreadsheet_id"`
			Tab             string `mapstructure:"tab" yaml:"tab"`
			CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
		} `mapstructure:"sheets" yaml:"sheets"`
	} `mapstructure:"export" yaml:"export"`

	Suggest struct {
		Bayes struct {
			Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
			MinExamples int  `mapstructure:"min_examples" yaml:"min_examples"`
		} `mapstructure:"bayes" yaml:"bayes"`
		Gemini struct {
			Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
			Model          string `mapstructure:"model" yaml:"model"`
			TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
			APIKey         string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
		} `mapstructure:"gemini" yaml:"gemini"`
	} `mapstructure:"suggest" yaml:"suggest"`
}

// PromptTimeout returns the per-prompt timeout, zero meaning none.
func (c *Config) PromptTimeout() time.Duration {
	return time.Duration(c.Prompt.TimeoutSeconds) * time.Second
}

// GeminiTimeout returns the per-request timeout of the Gemini suggester.
func (c *Config) GeminiTimeout() time.Duration {
	return time.Duration(c.Suggest.Gemini.TimeoutSeconds) * time.Second
}

// InitializeConfig loads configuration from the default search path.
func InitializeConfig() (*Config, error) {
	return Load("")
}

// Load initializes Viper configuration with hierarchical loading. A non-empty
// path names the config file explicitly; otherwise config.yaml is searched
// in $HOME/.txsort, .txsort and the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.txsort")
		v.AddConfigPath(".txsort")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// 5. The API key is always read from the unprefixed variable
	if err := v.BindEnv("suggest.gemini.api_key", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind GEMINI_API_KEY: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	base := defaultBaseDir()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("csv.delimiter", ",")

	v.SetDefault("session.directory", filepath.Join(base, "sessions"))
	v.SetDefault("session.backend", BackendFile)
	v.SetDefault("session.bolt_file", filepath.Join(base, "sessions.db"))

	v.SetDefault("rules.file", "")

	v.SetDefault("prompt.timeout_seconds", 300)

	v.SetDefault("export.target", TargetCSV)
	v.SetDefault("export.csv.directory", filepath.Join(base, "export"))
	v.SetDefault("export.sheets.spreadsheet_id", "")
	v.SetDefault("export.sheets.tab", "Transacties")
	v.SetDefault("export.sheets.credentials_file", "")

	v.SetDefault("suggest.bayes.enabled", true)
	v.SetDefault("suggest.bayes.min_examples", 3)
	v.SetDefault("suggest.gemini.enabled", false)
	v.SetDefault("suggest.gemini.model", "gemini-2.0-flash")
	v.SetDefault("suggest.gemini.timeout_seconds", 30)
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".txsort"
	}
	return filepath.Join(home, ".txsort")
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if len(config.CSV.Delimiter) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.CSV.Delimiter)
	}

	switch config.Session.Backend {
	case BackendFile:
		if config.Session.Directory == "" {
			return fmt.Errorf("session.directory is required for the file backend")
		}
	case BackendBolt:
		if config.Session.BoltFile == "" {
			return fmt.Errorf("session.bolt_file is required for the bolt backend")
		}
	default:
		return fmt.Errorf("invalid session backend: %s (must be 'file' or 'bolt')", config.Session.Backend)
	}

	if config.Prompt.TimeoutSeconds < 0 {
		return fmt.Errorf("prompt.timeout_seconds must not be negative, got: %d", config.Prompt.TimeoutSeconds)
	}

	switch config.Export.Target {
	case TargetCSV:
		if config.Export.CSV.Directory == "" {
			return fmt.Errorf("export.csv.directory is required for the csv target")
		}
	case TargetSheets:
		if config.Export.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("export.sheets.spreadsheet_id is required for the sheets target")
		}
		if config.Export.Sheets.CredentialsFile == "" {
			return fmt.Errorf("export.sheets.credentials_file is required for the sheets target")
		}
	default:
		return fmt.Errorf("invalid export target: %s (must be 'csv' or 'sheets')", config.Export.Target)
	}

	if config.Suggest.Bayes.MinExamples < 1 {
		return fmt.Errorf("suggest.bayes.min_examples must be at least 1, got: %d", config.Suggest.Bayes.MinExamples)
	}

	if config.Suggest.Gemini.Enabled {
		if config.Suggest.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY required when gemini suggestions are enabled")
		}
		if config.Suggest.Gemini.TimeoutSeconds < 1 || config.Suggest.Gemini.TimeoutSeconds > 300 {
			return fmt.Errorf("suggest.gemini.timeout_seconds must be between 1 and 300, got: %d", config.Suggest.Gemini.TimeoutSeconds)
		}
	}

	return nil
}

// NewLogger builds the application logger from the log section.
func NewLogger(config *Config) logging.Logger {
	return logging.NewLogrusAdapter(strings.ToLower(config.Log.Level), strings.ToLower(config.Log.Format))
}

// LoadEnv loads a .env file from the working directory or its parent when
// one exists. Variables already set in the environment win.
func LoadEnv() (string, error) {
	for _, candidate := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return candidate, fmt.Errorf("error loading %s: %w", candidate, err)
		}
		return candidate, nil
	}
	return "", nil
}
