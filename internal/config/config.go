// Package config loads enough.yaml. Values come from built-in defaults,
// then the file, then ENOUGH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/enough-app/enough/internal/budget"
	"github.com/enough-app/enough/internal/importer"
	"github.com/enough-app/enough/internal/logging"
)

// FileName is the config file name.
const FileName = "enough.yaml"

// EnvPrefix prefixes environment overrides: ENOUGH_BUDGET_ENOUGH_NUMBER.
const EnvPrefix = "ENOUGH"

// Config represents the top-level enough.yaml configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Budget   BudgetConfig   `yaml:"budget"`
	Import   ImportConfig   `yaml:"import"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig locates the ledger.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BudgetConfig holds the yearly spending target.
type BudgetConfig struct {
	EnoughNumber  decimal.Decimal `yaml:"enough_number"` // yearly
	ReviewDay     string          `yaml:"review_day"`
	TopCategories int             `yaml:"top_categories"`
}

// ImportConfig controls bank file imports.
type ImportConfig struct {
	Inbox       string   `yaml:"inbox"`
	LogPath     string   `yaml:"log_path"`
	DateLayouts []string `yaml:"date_layouts"`
	AutoReview  bool     `yaml:"auto_review"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DataDir is where the ledger, inbox and import log live by default.
func DataDir() string {
	if dir := os.Getenv("ENOUGH_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".enough"
	}
	return filepath.Join(home, ".local", "share", "enough")
}

// DefaultPath returns ENOUGH_CONFIG, or enough.yaml in the user config dir.
func DefaultPath() string {
	if p := os.Getenv("ENOUGH_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(dir, "enough", FileName)
}

// Default returns a Config with defaults rooted at dataDir.
func Default(dataDir string) *Config {
	return &Config{
		Database: DatabaseConfig{Path: filepath.Join(dataDir, "enough.db")},
		Budget: BudgetConfig{
			EnoughNumber:  decimal.NewFromInt(85000),
			ReviewDay:     "sunday",
			TopCategories: 6,
		},
		Import: ImportConfig{
			Inbox:       filepath.Join(dataDir, "inbox"),
			LogPath:     filepath.Join(dataDir, "import-log.csv"),
			DateLayouts: append([]string(nil), importer.DefaultDateLayouts...),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("budget.enough_number", d.Budget.EnoughNumber.String())
	v.SetDefault("budget.review_day", d.Budget.ReviewDay)
	v.SetDefault("budget.top_categories", d.Budget.TopCategories)
	v.SetDefault("import.inbox", d.Import.Inbox)
	v.SetDefault("import.log_path", d.Import.LogPath)
	v.SetDefault("import.date_layouts", d.Import.DateLayouts)
	v.SetDefault("import.auto_review", d.Import.AutoReview)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the config at path. A missing file yields the defaults, still
// subject to environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default(DataDir()))

	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !notFound(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	enough, err := decimal.NewFromString(strings.TrimSpace(v.GetString("budget.enough_number")))
	if err != nil {
		return nil, fmt.Errorf("parsing budget.enough_number %q: %w", v.GetString("budget.enough_number"), err)
	}

	return &Config{
		Database: DatabaseConfig{Path: v.GetString("database.path")},
		Budget: BudgetConfig{
			EnoughNumber:  enough,
			ReviewDay:     v.GetString("budget.review_day"),
			TopCategories: v.GetInt("budget.top_categories"),
		},
		Import: ImportConfig{
			Inbox:       v.GetString("import.inbox"),
			LogPath:     v.GetString("import.log_path"),
			DateLayouts: v.GetStringSlice("import.date_layouts"),
			AutoReview:  v.GetBool("import.auto_review"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}, nil
}

func notFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &nf)
}

// Save writes a Config to a YAML file, creating its directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// MonthlyTarget is the enough number spread over twelve months.
func (c *Config) MonthlyTarget() decimal.Decimal {
	return budget.MonthlyTarget(c.Budget.EnoughNumber)
}

// LogOptions converts the log section for logging.Init.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{Level: c.Log.Level, Format: c.Log.Format}
}

// ImportOptions converts the import section for importer pipelines.
func (c *Config) ImportOptions() importer.Options {
	return importer.Options{
		DateLayouts: c.Import.DateLayouts,
		AutoReview:  c.Import.AutoReview,
	}
}
