package report

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Direction says which way spending moved. Up means spending increased.
type Direction string

const (
	TrendUp      Direction = "up"
	TrendDown    Direction = "down"
	TrendNeutral Direction = "neutral"
)

// Trend is a month-over-month change in whole percent.
type Trend struct {
	Direction Direction
	Percent   int
}

func (t Trend) String() string {
	switch t.Direction {
	case TrendUp:
		return fmt.Sprintf("up %d%%", t.Percent)
	case TrendDown:
		return fmt.Sprintf("down %d%%", t.Percent)
	default:
		return "neutral"
	}
}

// deadBand is the relative change inside which a trend is Neutral.
var deadBand = decimal.RequireFromString("0.05")

var hundred = decimal.NewFromInt(100)

// ClassifyTrend compares current spending with previous. Changes within
// five percent either way, or a missing or non-positive previous value,
// are Neutral. Percent is truncated toward zero.
func ClassifyTrend(current decimal.Decimal, previous *decimal.Decimal) Trend {
	if previous == nil || !previous.IsPositive() {
		return Trend{Direction: TrendNeutral}
	}
	change := current.Sub(*previous).Div(*previous)
	switch {
	case change.GreaterThan(deadBand):
		return Trend{Direction: TrendUp, Percent: int(change.Mul(hundred).IntPart())}
	case change.LessThan(deadBand.Neg()):
		return Trend{Direction: TrendDown, Percent: int(change.Abs().Mul(hundred).IntPart())}
	default:
		return Trend{Direction: TrendNeutral}
	}
}
