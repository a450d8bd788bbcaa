package config

import (
	"fmt"
	"strings"
	"time"
)

// Problem is one invalid setting.
type Problem struct {
	Key         string
	Description string
}

// InvalidError lists every problem found by Validate.
type InvalidError struct {
	Problems []Problem
}

func (e *InvalidError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = fmt.Sprintf("%s: %s", p.Key, p.Description)
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// ReviewWeekday returns the configured review day.
func (c *Config) ReviewWeekday() (time.Weekday, bool) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(c.Budget.ReviewDay))]
	return d, ok
}

// Validate reports settings that cannot work. A zero enough number is
// allowed and means no target.
func (c *Config) Validate() error {
	var problems []Problem
	add := func(key, format string, args ...any) {
		problems = append(problems, Problem{Key: key, Description: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Database.Path) == "" {
		add("database.path", "is required")
	}
	if c.Budget.EnoughNumber.IsNegative() {
		add("budget.enough_number", "must not be negative, got %s", c.Budget.EnoughNumber)
	}
	if _, ok := c.ReviewWeekday(); !ok {
		add("budget.review_day", "%q is not a weekday", c.Budget.ReviewDay)
	}
	if c.Budget.TopCategories < 1 {
		add("budget.top_categories", "must be at least 1, got %d", c.Budget.TopCategories)
	}
	for i, layout := range c.Import.DateLayouts {
		if strings.TrimSpace(layout) == "" {
			add(fmt.Sprintf("import.date_layouts[%d]", i), "is empty")
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		add("log.level", "unknown level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		add("log.format", "must be text or json, got %q", c.Log.Format)
	}

	if len(problems) > 0 {
		return &InvalidError{Problems: problems}
	}
	return nil
}
