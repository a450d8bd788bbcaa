// Package importlog keeps an append-only CSV history of imports.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/enough-app/enough/internal/importer"
)

// Status is how an import ended.
type Status string

const (
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// Entry is one row in the import log.
type Entry struct {
	Timestamp  time.Time
	ImportID   string
	Source     string
	AccountID  string
	Status     Status
	Parsed     int
	Inserted   int
	Duplicates int
	Failed     int
	Message    string
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,import_id,source,account_id,status,parsed,inserted,duplicates,failed,message"

// FileName is the log's name inside the data directory.
const FileName = "import-log.csv"

const (
	numFields     = 10
	colTimestamp  = 0
	colImportID   = 1
	colSource     = 2
	colAccountID  = 3
	colStatus     = 4
	colParsed     = 5
	colInserted   = 6
	colDuplicates = 7
	colFailed     = 8
	colMessage    = 9
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colImportID] = e.ImportID
	row[colSource] = e.Source
	row[colAccountID] = e.AccountID
	row[colStatus] = string(e.Status)
	row[colParsed] = strconv.Itoa(e.Parsed)
	row[colInserted] = strconv.Itoa(e.Inserted)
	row[colDuplicates] = strconv.Itoa(e.Duplicates)
	row[colFailed] = strconv.Itoa(e.Failed)
	row[colMessage] = e.Message
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	counts := make([]int, 4)
	for i, col := range []int{colParsed, colInserted, colDuplicates, colFailed} {
		n, err := strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[col], err)
		}
		counts[i] = n
	}

	return Entry{
		Timestamp:  ts,
		ImportID:   record[colImportID],
		Source:     record[colSource],
		AccountID:  record[colAccountID],
		Status:     Status(record[colStatus]),
		Parsed:     counts[0],
		Inserted:   counts[1],
		Duplicates: counts[2],
		Failed:     counts[3],
		Message:    record[colMessage],
	}, nil
}

// FromEvent turns a terminal pipeline event into an entry. Events that do
// not end an import report false.
func FromEvent(ev importer.Event) (Entry, bool) {
	e := Entry{
		Timestamp: ev.At,
		ImportID:  ev.ImportID,
		Source:    ev.Source,
		AccountID: ev.AccountID.String(),
		Message:   ev.Message,
	}
	switch ev.To {
	case importer.StateComplete:
		e.Status = StatusComplete
		if r := ev.Result; r != nil {
			if r.Cancelled {
				e.Status = StatusCancelled
			}
			e.Parsed = r.Parsed
			e.Inserted = r.Inserted
			e.Duplicates = r.Duplicates
			e.Failed = r.ParseFailures + len(r.Failures)
		}
	case importer.StateError:
		e.Status = StatusError
	default:
		return Entry{}, false
	}
	return e, true
}

// Observer returns a pipeline observer that appends finished imports to
// the log at path. Write failures go to onErr, which may be nil.
func Observer(path string, onErr func(error)) importer.Observer {
	return func(ev importer.Event) {
		e, ok := FromEvent(ev)
		if !ok {
			return
		}
		if err := Append(path, []Entry{e}); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

// Append writes entries to path, creating the file and header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from path, oldest first.
// Returns an empty slice if the file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
