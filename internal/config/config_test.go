package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every location default at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENOUGH_HOME", dir)
	for _, k := range []string{
		"ENOUGH_CONFIG", "ENOUGH_DATABASE_PATH", "ENOUGH_BUDGET_ENOUGH_NUMBER",
		"ENOUGH_BUDGET_REVIEW_DAY", "ENOUGH_LOG_LEVEL", "ENOUGH_IMPORT_AUTO_REVIEW",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func TestDefaults(t *testing.T) {
	cfg := Default("/data")

	assert.Equal(t, filepath.Join("/data", "enough.db"), cfg.Database.Path)
	assert.Equal(t, "85000", cfg.Budget.EnoughNumber.String())
	assert.Equal(t, "sunday", cfg.Budget.ReviewDay)
	assert.Equal(t, 6, cfg.Budget.TopCategories)
	assert.Equal(t, filepath.Join("/data", "inbox"), cfg.Import.Inbox)
	assert.NotEmpty(t, cfg.Import.DateLayouts)
	assert.False(t, cfg.Import.AutoReview)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestMonthlyTarget(t *testing.T) {
	cfg := Default("/data")
	assert.Equal(t, "7083.33", cfg.MonthlyTarget().StringFixed(2))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := isolate(t)
	cfg, err := Load(filepath.Join(dir, "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "enough.db"), cfg.Database.Path)
	assert.True(t, decimal.NewFromInt(85000).Equal(cfg.Budget.EnoughNumber))
}

func TestRoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Default(dir)
	cfg.Budget.EnoughNumber = decimal.RequireFromString("60000.50")
	cfg.Budget.ReviewDay = "friday"
	cfg.Import.AutoReview = true
	cfg.Import.DateLayouts = []string{"01/02/2006"}
	cfg.Log.Format = "json"

	path := filepath.Join(dir, "conf", FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "60000.5", got.Budget.EnoughNumber.String())
	assert.Equal(t, "friday", got.Budget.ReviewDay)
	assert.True(t, got.Import.AutoReview)
	assert.Equal(t, []string{"01/02/2006"}, got.Import.DateLayouts)
	assert.Equal(t, "json", got.Log.Format)
	assert.Equal(t, cfg.Database.Path, got.Database.Path)
}

func TestLoad_PartialFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("budget:\n  enough_number: 120000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "120000", cfg.Budget.EnoughNumber.String())
	assert.Equal(t, "sunday", cfg.Budget.ReviewDay)
	assert.Equal(t, 6, cfg.Budget.TopCategories)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	t.Setenv("ENOUGH_BUDGET_ENOUGH_NUMBER", "50000")
	t.Setenv("ENOUGH_DATABASE_PATH", "/tmp/other.db")

	cfg, err := Load(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, "50000", cfg.Budget.EnoughNumber.String())
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
}

func TestLoad_BadEnoughNumber(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("budget:\n  enough_number: lots\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget.enough_number")
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("budget: [unclosed\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestValidate(t *testing.T) {
	cfg := Default("/data")
	cfg.Database.Path = " "
	cfg.Budget.EnoughNumber = decimal.NewFromInt(-1)
	cfg.Budget.ReviewDay = "someday"
	cfg.Budget.TopCategories = 0
	cfg.Import.DateLayouts = []string{"2006-01-02", ""}
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	var invalid *InvalidError
	require.True(t, errors.As(err, &invalid))

	var keys []string
	for _, p := range invalid.Problems {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{
		"database.path",
		"budget.enough_number",
		"budget.review_day",
		"budget.top_categories",
		"import.date_layouts[1]",
		"log.level",
		"log.format",
	}, keys)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate_ZeroTargetAllowed(t *testing.T) {
	cfg := Default("/data")
	cfg.Budget.EnoughNumber = decimal.Zero
	assert.NoError(t, cfg.Validate())
}

func TestReviewWeekday(t *testing.T) {
	cfg := Default("/data")
	cfg.Budget.ReviewDay = " Monday "
	d, ok := cfg.ReviewWeekday()
	require.True(t, ok)
	assert.Equal(t, "Monday", d.String())
}

func TestImportOptions(t *testing.T) {
	cfg := Default("/data")
	cfg.Import.AutoReview = true
	opts := cfg.ImportOptions()
	assert.True(t, opts.AutoReview)
	assert.Equal(t, cfg.Import.DateLayouts, opts.DateLayouts)
}
