package importer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"-4.50", "-4.5"},
		{"45.2", "45.2"},
		{"$1,234.00", "1234"},
		{"(12.00)", "-12"},
		{"($1,000.10)", "-1000.1"},
		{"+3", "3"},
		{"$-4.00", "-4"},
		{"-$4.00", "-4"},
		{"A$5.10", "5.1"},
		{" 7 ", "7"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}
}

func TestParseAmount_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"", errEmpty},
		{"   ", errEmpty},
		{"abc", errBadAmount},
		{"1.2.3", errBadAmount},
		{"1.234", errFractionCents},
		{"0.00", errZeroAmount},
		{"$0", errZeroAmount},
	}
	for _, tt := range tests {
		_, err := ParseAmount(tt.in)
		assert.True(t, errors.Is(err, tt.want), "%q: got %v", tt.in, err)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2025-01-03",
		"03/01/2025",
		"3/01/2025",
		"3/1/2025",
		"03/01/25",
		"03 Jan 2025",
		"3 Jan 2025",
		" 2025-01-03 ",
	} {
		got, err := ParseDate(in, nil)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
	}
}

func TestParseDate_Errors(t *testing.T) {
	_, err := ParseDate("", nil)
	assert.ErrorIs(t, err, errEmpty)

	_, err = ParseDate("01/13/2025", nil)
	assert.ErrorIs(t, err, errBadDate)

	_, err = ParseDate("yesterday", nil)
	assert.ErrorIs(t, err, errBadDate)
}

func TestParseDate_ConfiguredLayouts(t *testing.T) {
	got, err := ParseDate("01/13/2025", []string{"01/02/2006"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), got)

	// Configured layouts replace the defaults.
	_, err = ParseDate("2025-01-13", []string{"01/02/2006"})
	assert.Error(t, err)
}

func TestParseRow(t *testing.T) {
	p, err := ParseRow(RawRow{Line: 7, Date: "03/01/2025", Description: "  EFTPOS COLES 1234  ", Amount: "-45.20"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Row)
	assert.Equal(t, "EFTPOS COLES 1234", p.Description)
	assert.Equal(t, "-45.2", p.Amount.String())
	assert.Equal(t, 3, p.Date.Day())
}

func TestParseRow_Errors(t *testing.T) {
	tests := []struct {
		name  string
		raw   RawRow
		field string
	}{
		{"bad date", RawRow{Line: 2, Date: "soon", Description: "X", Amount: "-1"}, "date"},
		{"blank description", RawRow{Line: 3, Date: "2025-01-01", Description: " ", Amount: "-1"}, "description"},
		{"bad amount", RawRow{Line: 4, Date: "2025-01-01", Description: "X", Amount: "ten"}, "amount"},
		{"record error", RawRow{Line: 5, Err: errors.New("bad quote")}, ""},
	}
	for _, tt := range tests {
		_, err := ParseRow(tt.raw, nil)
		var rowErr RowParseError
		require.ErrorAs(t, err, &rowErr, tt.name)
		assert.Equal(t, tt.raw.Line, rowErr.Row, tt.name)
		assert.Equal(t, tt.field, rowErr.Field, tt.name)
	}
}

func TestRowParseError_Error(t *testing.T) {
	err := RowParseError{Row: 4, Field: "date", Value: "not-a-date", Err: errBadDate}
	assert.Equal(t, `row 4: date "not-a-date": unrecognised date`, err.Error())
	assert.ErrorIs(t, err, errBadDate)

	err = RowParseError{Row: 2, Field: "description", Err: errEmpty}
	assert.Equal(t, "row 2: description: empty", err.Error())
}
