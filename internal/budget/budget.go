// Package budget measures month-to-date spending against the monthly target
// derived from the yearly "enough" number.
package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status classifies how spending compares with the target.
type Status string

const (
	StatusOnTrack  Status = "on_track"
	StatusClose    Status = "close"
	StatusOver     Status = "over"
	StatusNoTarget Status = "no_target"
)

var (
	closeThreshold = decimal.RequireFromString("0.8")
	overThreshold  = decimal.NewFromInt(1)
	monthsPerYear  = decimal.NewFromInt(12)
	weeksPerYear   = decimal.NewFromInt(52)
)

// Projection is the budget position for one month.
type Projection struct {
	HasTarget bool
	Target    decimal.Decimal
	Spending  decimal.Decimal

	// Progress is Ratio clamped to [0, 1] for bounded indicators.
	Progress float64
	// Ratio is spending over target, unclamped.
	Ratio float64

	Remaining  decimal.Decimal // max(0, target - spending)
	Projected  decimal.Decimal // linear run-rate to month end
	Difference decimal.Decimal // target - projected; positive is under target
	Status     Status
}

// Project computes the budget position. A dayOfMonth below 1 counts as 1.
// A target of zero or less yields StatusNoTarget without dividing by it.
func Project(spending, target decimal.Decimal, dayOfMonth, daysInMonth int) Projection {
	if dayOfMonth < 1 {
		dayOfMonth = 1
	}
	p := Projection{
		Target:   target,
		Spending: spending,
		Projected: spending.
			Mul(decimal.NewFromInt(int64(daysInMonth))).
			Div(decimal.NewFromInt(int64(dayOfMonth))),
	}
	if !target.IsPositive() {
		p.Status = StatusNoTarget
		return p
	}

	ratio := spending.Div(target)
	p.HasTarget = true
	p.Ratio = ratio.InexactFloat64()
	p.Progress = min(max(p.Ratio, 0), 1)
	p.Remaining = decimal.Max(decimal.Zero, target.Sub(spending))
	p.Difference = target.Sub(p.Projected)

	switch {
	case ratio.LessThan(closeThreshold):
		p.Status = StatusOnTrack
	case ratio.LessThan(overThreshold):
		p.Status = StatusClose
	default:
		p.Status = StatusOver
	}
	return p
}

// ForDate projects spending to the end of ref's month.
func ForDate(spending, target decimal.Decimal, ref time.Time) Projection {
	return Project(spending, target, ref.Day(), DaysIn(ref))
}

// MonthlyTarget is the yearly enough number divided by 12.
func MonthlyTarget(yearly decimal.Decimal) decimal.Decimal {
	return yearly.Div(monthsPerYear)
}

// WeeklyTarget is the yearly enough number divided by 52.
func WeeklyTarget(yearly decimal.Decimal) decimal.Decimal {
	return yearly.Div(weeksPerYear)
}

// DaysIn returns the number of days in t's calendar month.
func DaysIn(t time.Time) int {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
