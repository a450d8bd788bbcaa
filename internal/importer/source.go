package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrSourceUnreadable means the import source could not be read at all.
var ErrSourceUnreadable = errors.New("import source unreadable")

// RawRow is one record from a source, before any parsing.
type RawRow struct {
	Line        int // 1-based line in the source
	Date        string
	Description string
	Amount      string
	Err         error // set when the record itself was malformed
}

// Source yields raw rows for the pipeline.
type Source interface {
	Name() string
	Rows(ctx context.Context) ([]RawRow, error)
}

// Rows is an in-memory Source.
type Rows []RawRow

func (r Rows) Name() string { return "rows" }

func (r Rows) Rows(ctx context.Context) ([]RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// Header names recognised for each column, lower case.
var (
	dateHeaders        = []string{"date", "transaction date", "posted date", "posting date", "effective date"}
	descriptionHeaders = []string{"description", "narrative", "details", "transaction details", "memo", "payee"}
	amountHeaders      = []string{"amount", "value", "amount (aud)", "debit/credit"}
)

// columns maps the three fields onto record indexes.
type columns struct {
	date, description, amount int
}

// positional is used when a file has no recognisable header.
var positional = columns{date: 0, description: 1, amount: 2}

func indexOf(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

// detectHeader reports the column layout named by record, if it is a header.
func detectHeader(record []string) (columns, bool) {
	c := columns{
		date:        indexOf(record, dateHeaders),
		description: indexOf(record, descriptionHeaders),
		amount:      indexOf(record, amountHeaders),
	}
	if c.date < 0 || c.description < 0 || c.amount < 0 {
		return columns{}, false
	}
	return c, true
}

// DelimitedParser reads comma or tab separated exports with a
// date/description/amount layout.
type DelimitedParser struct {
	format string
	comma  rune
}

// Format returns the parser name.
func (p *DelimitedParser) Format() string { return p.format }

// Parse reads every record. A malformed record becomes a RawRow with Err
// set; only a failure to read the stream at all is returned as an error.
func (p *DelimitedParser) Parse(r io.Reader) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = p.comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var rows []RawRow
	cols := positional
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			rows = append(rows, RawRow{Line: perr.StartLine, Err: perr.Err})
			first = false
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrSourceUnreadable, p.format, err)
		}
		line, _ := cr.FieldPos(0)
		if first {
			first = false
			if c, ok := detectHeader(rec); ok {
				cols = c
				continue
			}
		}
		rows = append(rows, RawRow{
			Line:        line,
			Date:        field(rec, cols.date),
			Description: field(rec, cols.description),
			Amount:      field(rec, cols.amount),
		})
	}
	return rows, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

// FileSource reads a delimited export from disk.
type FileSource struct {
	Path   string
	Parser Parser
}

func (f FileSource) Name() string { return filepath.Base(f.Path) }

func (f FileSource) Rows(ctx context.Context) ([]RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	defer fh.Close()
	return f.Parser.Parse(fh)
}
