package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVParser_Parse(t *testing.T) {
	f, err := os.Open("../../testdata/everyday.csv")
	require.NoError(t, err)
	defer f.Close()

	rows, err := NewCSVParser().Parse(f)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, RawRow{Line: 2, Date: "03/01/2025", Description: "EFTPOS COLES 1234 5678", Amount: "-45.20"}, rows[0])
	assert.Equal(t, "GITHUB *PRO SUBSCRIPTION", rows[1].Description)
	assert.Equal(t, 4, rows[2].Line)
	assert.Equal(t, "not-a-date", rows[2].Date)
}

func TestTSVParser_HeaderAliases(t *testing.T) {
	f, err := os.Open("../../testdata/savings.tsv")
	require.NoError(t, err)
	defer f.Close()

	rows, err := NewTSVParser().Parse(f)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "SALARY ACME PTY LTD", rows[0].Description)
	assert.Equal(t, "$3,500.00", rows[0].Amount)
	assert.Equal(t, "(23.10)", rows[1].Amount)
}

func TestCSVParser_Headerless(t *testing.T) {
	f, err := os.Open("../../testdata/headerless.csv")
	require.NoError(t, err)
	defer f.Close()

	rows, err := NewCSVParser().Parse(f)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, "NETFLIX.COM, MELBOURNE", rows[1].Description)
	assert.Equal(t, "-16.99", rows[1].Amount)
}

func TestCSVParser_ReorderedColumns(t *testing.T) {
	in := "Amount,Balance,Narrative,Date\n-4.00,100.00,GITHUB,2025-01-03\n"
	rows, err := NewCSVParser().Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, RawRow{Line: 2, Date: "2025-01-03", Description: "GITHUB", Amount: "-4.00"}, rows[0])
}

func TestCSVParser_ShortRecord(t *testing.T) {
	rows, err := NewCSVParser().Parse(strings.NewReader("Date,Description,Amount\n2025-01-03,ONLY TWO\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Amount)
}

func TestCSVParser_UnterminatedQuote(t *testing.T) {
	in := "Date,Description,Amount\n2025-01-03,GOOD,-1.00\n2025-01-04,\"UNTERMINATED,-2.00\n"
	rows, err := NewCSVParser().Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "-1.00", rows[0].Amount)

	// The quote swallows the rest of the line, leaving no amount.
	assert.Equal(t, "", rows[1].Amount)
	_, err = ParseRow(rows[1], nil)
	var rowErr RowParseError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, "amount", rowErr.Field)
}

func TestCSVParser_EmptyFile(t *testing.T) {
	rows, err := NewCSVParser().Parse(strings.NewReader("Date,Description,Amount\n"))
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestCSVParser_Format(t *testing.T) {
	assert.Equal(t, "csv", NewCSVParser().Format())
	assert.Equal(t, "tsv", NewTSVParser().Format())
}

func TestFileSource(t *testing.T) {
	src, err := DefaultRegistry().Open("../../testdata/everyday.csv")
	require.NoError(t, err)
	assert.Equal(t, "everyday.csv", src.Name())

	rows, err := src.Rows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestFileSource_Missing(t *testing.T) {
	src := FileSource{Path: filepath.Join(t.TempDir(), "gone.csv"), Parser: NewCSVParser()}
	_, err := src.Rows(context.Background())
	assert.True(t, errors.Is(err, ErrSourceUnreadable))
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(NewCSVParser())
	p := r.Get("csv")
	require.NotNil(t, p)
	assert.Equal(t, "csv", p.Format())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(NewCSVParser())
	assert.Panics(t, func() { r.Register(NewCSVParser()) })
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("CSV"))
	assert.NotNil(t, r.Get("Tsv"))
}

func TestRegistry_ForFile(t *testing.T) {
	r := DefaultRegistry()
	p, err := r.ForFile("export.TSV")
	require.NoError(t, err)
	assert.Equal(t, "tsv", p.Format())

	_, err = r.ForFile("statement.ofx")
	assert.Error(t, err)
}

func TestScan_FindsExports(t *testing.T) {
	inbox := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "bank.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "savings.tsv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "other.txt"), []byte("data"), 0o644))

	files, err := DefaultRegistry().Scan(inbox)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "bank.csv", files[0].Name)
	assert.Equal(t, "csv", files[0].Format)
	assert.Equal(t, int64(4), files[0].Size)
	assert.Equal(t, "tsv", files[1].Format)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	inbox := t.TempDir()
	processed := filepath.Join(inbox, "processed")
	require.NoError(t, os.MkdirAll(processed, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(inbox, "new.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(processed, "old.csv"), []byte("data"), 0o644))

	files, err := DefaultRegistry().Scan(inbox)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, "new.csv", files[0].Name)
}

func TestScan_MissingInbox(t *testing.T) {
	files, err := DefaultRegistry().Scan(filepath.Join(t.TempDir(), "inbox"))
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	inbox := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "bank.csv"), []byte("data"), 0o644))

	require.NoError(t, MarkProcessed(inbox, "bank.csv"))

	// Source gone.
	_, err := os.Stat(filepath.Join(inbox, "bank.csv"))
	assert.True(t, os.IsNotExist(err))

	// Destination exists.
	info, err := os.Stat(filepath.Join(inbox, "processed", "bank.csv"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestMarkProcessed_MissingFile(t *testing.T) {
	err := MarkProcessed(t.TempDir(), "nope.csv")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "moving nope.csv")
}
