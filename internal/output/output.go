// Package output renders CLI messages, money and budget status.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/enough-app/enough/internal/budget"
	"github.com/enough-app/enough/internal/report"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
)

// Printer writes formatted lines to w.
type Printer struct {
	w io.Writer
}

// New returns a Printer for w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Header prints a section title underlined to its width.
func (p *Printer) Header(text string) {
	green.Fprintf(p.w, "\n%s\n%s\n", text, strings.Repeat("=", len(text)))
}

// Success prints a success message
func (p *Printer) Success(format string, args ...any) {
	green.Fprintf(p.w, "  → %s\n", fmt.Sprintf(format, args...))
}

// Info prints an info message
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.w, "  → %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...any) {
	yellow.Fprintf(p.w, "  ⚠ %s\n", fmt.Sprintf(format, args...))
}

// Line prints a plain line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Status returns the colored label for a budget status.
func Status(s budget.Status) string {
	switch s {
	case budget.StatusOnTrack:
		return green.Sprint("on track")
	case budget.StatusClose:
		return yellow.Sprint("close to target")
	case budget.StatusOver:
		return red.Sprint("over target")
	default:
		return faint.Sprint("no target set")
	}
}

// Trend renders a spending trend with an arrow. Up is more spending.
func Trend(t report.Trend) string {
	switch t.Direction {
	case report.TrendUp:
		return red.Sprintf("↑ %d%%", t.Percent)
	case report.TrendDown:
		return green.Sprintf("↓ %d%%", t.Percent)
	default:
		return faint.Sprint("–")
	}
}

// Money formats d as dollars with thousands separators: -$1,234.50.
func Money(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// Percent formats a ratio as a whole percentage.
func Percent(ratio float64) string {
	return fmt.Sprintf("%.0f%%", ratio*100)
}
