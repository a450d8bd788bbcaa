package budget

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestProject_ReferenceFigures(t *testing.T) {
	p := Project(dec("4847"), dec("7083"), 15, 30)
	assert.True(t, p.HasTarget)
	assert.InDelta(t, 0.684, p.Progress, 0.001)
	assert.InDelta(t, 0.684, p.Ratio, 0.001)
	assert.Equal(t, "2236", p.Remaining.String())
	assert.Equal(t, "9694", p.Projected.String())
	assert.Equal(t, "-2611", p.Difference.String())
	assert.Equal(t, StatusOnTrack, p.Status)
}

func TestProject_DayOneIsSafe(t *testing.T) {
	p := Project(dec("120"), dec("7083"), 1, 31)
	assert.Equal(t, "3720", p.Projected.String())

	p = Project(dec("120"), dec("7083"), 0, 31)
	assert.Equal(t, "3720", p.Projected.String(), "day 0 treated as day 1")
}

func TestProject_ClampsProgressNotRatio(t *testing.T) {
	p := Project(dec("9000"), dec("6000"), 20, 30)
	assert.Equal(t, 1.0, p.Progress)
	assert.InDelta(t, 1.5, p.Ratio, 1e-9)
	assert.True(t, p.Remaining.IsZero())
	assert.Equal(t, StatusOver, p.Status)

	refund := Project(dec("-50"), dec("1000"), 5, 30)
	assert.Equal(t, 0.0, refund.Progress)
	assert.Equal(t, StatusOnTrack, refund.Status)
}

func TestProject_StatusBoundaries(t *testing.T) {
	tests := []struct {
		spending string
		want     Status
	}{
		{"0", StatusOnTrack},
		{"799.99", StatusOnTrack},
		{"800", StatusClose},
		{"999.99", StatusClose},
		{"1000", StatusOver},
		{"1000.01", StatusOver},
	}
	for _, tt := range tests {
		p := Project(dec(tt.spending), dec("1000"), 10, 30)
		assert.Equal(t, tt.want, p.Status, tt.spending)
	}
}

func TestProject_NoTarget(t *testing.T) {
	for _, target := range []string{"0", "-100"} {
		p := Project(dec("500"), dec(target), 10, 30)
		assert.False(t, p.HasTarget)
		assert.Equal(t, StatusNoTarget, p.Status)
		assert.Zero(t, p.Progress)
		assert.Zero(t, p.Ratio)
		assert.True(t, p.Remaining.IsZero())
		assert.True(t, p.Difference.IsZero())
		assert.Equal(t, "1500", p.Projected.String())
	}
}

func TestTargets(t *testing.T) {
	assert.True(t, MonthlyTarget(dec("85000")).Round(2).Equal(dec("7083.33")))
	assert.True(t, WeeklyTarget(dec("85000")).Round(2).Equal(dec("1634.62")))
	assert.True(t, MonthlyTarget(dec("84996")).Equal(dec("7083")))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 31, DaysIn(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 28, DaysIn(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 29, DaysIn(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 31, DaysIn(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)))
}

func TestForDate(t *testing.T) {
	p := ForDate(dec("310"), dec("1000"), time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "961", p.Projected.String())
	assert.Equal(t, StatusOnTrack, p.Status)
}
