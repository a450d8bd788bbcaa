package importlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enough-app/enough/internal/importer"
	"github.com/enough-app/enough/internal/ledger/ledgertest"
	"github.com/enough-app/enough/internal/ledger/memory"
	"github.com/enough-app/enough/internal/logging"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:  testTime,
		ImportID:   "1a2b3c4d",
		Source:     "everyday.csv",
		AccountID:  uuid.NewString(),
		Status:     StatusComplete,
		Parsed:     3,
		Inserted:   2,
		Duplicates: 1,
		Message:    "2 imported, 1 duplicates",
	}
}

func TestAppend_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", FileName)
	require.NoError(t, Append(path, []Entry{testEntry()}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry().Source, entries[0].Source)
	assert.Equal(t, 2, entries[0].Inserted)
}

func TestAppend_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Append(path, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Status = StatusError
	e2.Message = "savings.tsv: import source contains no rows"
	require.NoError(t, Append(path, []Entry{e2}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, StatusComplete, entries[0].Status)
	assert.Equal(t, StatusError, entries[1].Status)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header), "header written once")
}

func TestRead_Missing(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(Header+"\nnot-a-time,a,b,c,d,1,1,1,1,m\n"), 0o644))
	_, err := Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestFromEvent(t *testing.T) {
	acct := uuid.New()
	_, ok := FromEvent(importer.Event{To: importer.StatePreview})
	assert.False(t, ok)

	e, ok := FromEvent(importer.Event{
		ImportID:  "abc",
		AccountID: acct,
		Source:    "x.csv",
		To:        importer.StateComplete,
		At:        testTime,
		Result: &importer.Result{
			Parsed: 4, ParseFailures: 1, Inserted: 2, Duplicates: 1,
			Failures: []importer.PersistenceError{{Row: 3}}, Cancelled: true,
		},
	})
	require.True(t, ok)
	assert.Equal(t, StatusCancelled, e.Status)
	assert.Equal(t, 2, e.Failed)
	assert.Equal(t, acct.String(), e.AccountID)

	e, ok = FromEvent(importer.Event{To: importer.StateError, Message: "boom"})
	require.True(t, ok)
	assert.Equal(t, StatusError, e.Status)
	assert.Equal(t, "boom", e.Message)
}

func TestObserver_RecordsPipelineRuns(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	defer s.Close()
	a := ledgertest.Account("Everyday", 0)
	require.NoError(t, s.CreateAccount(ctx, a))

	path := filepath.Join(t.TempDir(), FileName)
	var writeErrs []error
	opts := importer.Options{
		Logger:    logging.Discard(),
		Observers: []importer.Observer{Observer(path, func(err error) { writeErrs = append(writeErrs, err) })},
	}
	c := importer.NewCoordinator(s, opts)

	src := importer.Rows{
		{Line: 1, Date: "2025-01-03", Description: "COLES 1234", Amount: "-10"},
		{Line: 2, Date: "bad", Description: "X", Amount: "-1"},
	}
	_, err := c.Import(ctx, src, a.ID)
	require.NoError(t, err)
	_, err = c.Import(ctx, importer.Rows{}, a.ID)
	require.Error(t, err)

	assert.Empty(t, writeErrs)
	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, StatusComplete, entries[0].Status)
	assert.Equal(t, "rows", entries[0].Source)
	assert.Equal(t, 1, entries[0].Inserted)
	assert.Equal(t, 1, entries[0].Failed)
	assert.Equal(t, StatusError, entries[1].Status)
	assert.NotEqual(t, entries[0].ImportID, entries[1].ImportID)
}
