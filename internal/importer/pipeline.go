package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enough-app/enough/internal/dedup"
	"github.com/enough-app/enough/internal/id"
	"github.com/enough-app/enough/internal/ledger"
	"github.com/enough-app/enough/internal/logging"
	"github.com/enough-app/enough/internal/merchant"
	"github.com/enough-app/enough/internal/model"
)

// State is a pipeline stage.
type State string

const (
	StateReady     State = "ready"
	StateParsing   State = "parsing"
	StatePreview   State = "preview"
	StateImporting State = "importing"
	StateComplete  State = "complete"
	StateError     State = "error"
)

var (
	ErrInvalidTransition = errors.New("invalid import state transition")
	ErrEmptySource       = errors.New("import source contains no rows")
	ErrNoValidRows       = errors.New("no rows could be imported")
)

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateReady:     {StateParsing},
	StateParsing:   {StatePreview, StateError},
	StatePreview:   {StateImporting, StateReady},
	StateImporting: {StateComplete, StateError},
	StateError:     {StateReady},
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Event describes one state change.
type Event struct {
	ImportID  string
	AccountID uuid.UUID
	Source    string
	From      State
	To        State
	Message   string
	At        time.Time
	Preview   *Preview // set on entering Preview
	Result    *Result  // set on entering Complete
}

// Observer receives events in the order transitions happen. Observers run
// on the goroutine that caused the transition and must not call back into
// the pipeline.
type Observer func(Event)

// Preview is the parsed, unpersisted content of a source.
type Preview struct {
	Source       string
	Transactions []model.ParsedTransaction
	Count        int
	Total        decimal.Decimal // sum of absolute amounts
	Failures     []RowParseError
}

// PersistenceError is a parsed row the ledger refused.
type PersistenceError struct {
	Row         int
	Description string
	Err         error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.Description, e.Err)
}

func (e PersistenceError) Unwrap() error { return e.Err }

// Result summarises a finished import.
type Result struct {
	ImportID      string
	Source        string
	AccountID     uuid.UUID
	Parsed        int
	ParseFailures int
	Inserted      int
	Duplicates    int
	Matched       int // rows given a merchant
	Failures      []PersistenceError
	Cancelled     bool
	FinishedAt    time.Time
}

// Options tune a pipeline.
type Options struct {
	DateLayouts []string
	// AutoReview marks rows reviewed when their merchant supplies a category.
	AutoReview bool
	Now        func() time.Time
	Logger     *slog.Logger
	Observers  []Observer
}

// Snapshot is a point-in-time view of a pipeline.
type Snapshot struct {
	State   State
	Message string
	Preview *Preview
	Result  *Result
}

// Pipeline imports one source into one account.
type Pipeline struct {
	store   ledger.Store
	account uuid.UUID
	opts    Options

	mu        sync.Mutex
	importID  string
	source    string
	state     State
	message   string
	preview   *Preview
	result    *Result
	observers []Observer
}

// NewPipeline returns a pipeline in the Ready state.
func NewPipeline(store ledger.Store, accountID uuid.UUID, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Pipeline{
		store:     store,
		account:   accountID,
		opts:      opts,
		state:     StateReady,
		importID:  id.Short(id.New()),
		observers: append([]Observer(nil), opts.Observers...),
	}
}

// Subscribe registers an observer for later transitions.
func (p *Pipeline) Subscribe(o Observer) {
	p.mu.Lock()
	p.observers = append(p.observers, o)
	p.mu.Unlock()
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ImportID identifies this pipeline in logs and the import log.
func (p *Pipeline) ImportID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.importID
}

// Snapshot returns the current state with its preview, result and message.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{State: p.state, Message: p.message, Preview: p.preview, Result: p.result}
}

// transition moves to the next state and notifies observers outside the lock.
func (p *Pipeline) transition(to State, msg string, update func()) error {
	p.mu.Lock()
	from := p.state
	if !allowed(from, to) {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	p.state = to
	p.message = msg
	if update != nil {
		update()
	}
	ev := Event{
		ImportID:  p.importID,
		AccountID: p.account,
		Source:    p.source,
		From:      from,
		To:        to,
		Message:   msg,
		At:        p.opts.Now(),
	}
	if to == StatePreview {
		ev.Preview = p.preview
	}
	if to == StateComplete {
		ev.Result = p.result
	}
	observers := append([]Observer(nil), p.observers...)
	p.mu.Unlock()

	for _, o := range observers {
		o(ev)
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, err error) error {
	logging.FromContext(ctx).Warn("import failed", "err", err)
	if terr := p.transition(StateError, err.Error(), nil); terr != nil {
		return errors.Join(err, terr)
	}
	return err
}

func (p *Pipeline) context(ctx context.Context) context.Context {
	if p.opts.Logger != nil {
		ctx = logging.WithLogger(ctx, p.opts.Logger)
	}
	return logging.WithImportID(ctx, p.ImportID())
}

// Parse reads src into a preview. Bad rows are collected, not fatal. The
// pipeline ends in Preview, or in Error when nothing usable was read.
func (p *Pipeline) Parse(ctx context.Context, src Source) (*Preview, error) {
	ctx = p.context(ctx)
	if err := p.transition(StateParsing, "reading "+src.Name(), func() { p.source = src.Name() }); err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx)

	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, p.fail(ctx, fmt.Errorf("reading %s: %w", src.Name(), err))
	}
	if len(rows) == 0 {
		return nil, p.fail(ctx, fmt.Errorf("%s: %w", src.Name(), ErrEmptySource))
	}

	pv := &Preview{Source: src.Name(), Total: decimal.Zero}
	for _, raw := range rows {
		txn, err := ParseRow(raw, p.opts.DateLayouts)
		if err != nil {
			var rowErr RowParseError
			if errors.As(err, &rowErr) {
				pv.Failures = append(pv.Failures, rowErr)
			}
			log.Debug("row skipped", "row", raw.Line, "err", err)
			continue
		}
		pv.Transactions = append(pv.Transactions, txn)
		pv.Total = pv.Total.Add(txn.Amount.Abs())
	}
	pv.Count = len(pv.Transactions)
	log.Info("source parsed", "source", src.Name(), "rows", len(rows), "parsed", pv.Count, "failed", len(pv.Failures))

	if pv.Count == 0 {
		err := fmt.Errorf("%s: all %d rows failed to parse: %w", src.Name(), len(rows), ErrNoValidRows)
		p.mu.Lock()
		p.preview = pv
		p.mu.Unlock()
		return pv, p.fail(ctx, err)
	}

	msg := fmt.Sprintf("%d transactions ready", pv.Count)
	if err := p.transition(StatePreview, msg, func() { p.preview = pv }); err != nil {
		return nil, err
	}
	return pv, nil
}

// Cancel discards the preview and returns to Ready.
func (p *Pipeline) Cancel() error {
	return p.transition(StateReady, "import cancelled", func() {
		p.preview = nil
	})
}

// Retry leaves the Error state.
func (p *Pipeline) Retry() error {
	return p.transition(StateReady, "", func() {
		p.preview = nil
		p.result = nil
	})
}

// Confirm writes the previewed rows to the ledger in one batch.
//
// Rows already in the account, or repeated earlier in the same source, are
// counted as duplicates. If ctx is cancelled the import stops before the
// next row and commits what it already inserted.
func (p *Pipeline) Confirm(ctx context.Context) (*Result, error) {
	ctx = p.context(ctx)
	p.mu.Lock()
	pv := p.preview
	p.mu.Unlock()
	if err := p.transition(StateImporting, "importing", nil); err != nil {
		return nil, err
	}

	res, err := p.importRows(ctx, pv)
	if err != nil {
		return nil, p.fail(ctx, err)
	}

	msg := fmt.Sprintf("%d imported, %d duplicates", res.Inserted, res.Duplicates)
	if res.Cancelled {
		msg = fmt.Sprintf("cancelled after %d imported", res.Inserted)
	}
	if err := p.transition(StateComplete, msg, func() { p.result = res }); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("import complete",
		"inserted", res.Inserted, "duplicates", res.Duplicates, "failed", len(res.Failures), "cancelled", res.Cancelled)
	return res, nil
}

func (p *Pipeline) importRows(ctx context.Context, pv *Preview) (*Result, error) {
	log := logging.FromContext(ctx)
	// Store calls ignore cancellation; it is honoured between rows instead.
	sctx := context.WithoutCancel(ctx)

	tx, err := p.store.BeginImport(sctx)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.Account(sctx, p.account); err != nil {
		return nil, fmt.Errorf("account %s: %w", id.Short(p.account), err)
	}
	existing, err := tx.Transactions(sctx, ledger.Query{AccountID: &p.account})
	if err != nil {
		return nil, fmt.Errorf("loading existing transactions: %w", err)
	}
	merchants, err := tx.Merchants(sctx)
	if err != nil {
		return nil, fmt.Errorf("loading merchants: %w", err)
	}

	res := &Result{
		ImportID:      p.ImportID(),
		Source:        pv.Source,
		AccountID:     p.account,
		Parsed:        pv.Count,
		ParseFailures: len(pv.Failures),
	}
	idx := dedup.NewIndex(existing)
	now := p.opts.Now()

	for _, row := range pv.Transactions {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		if idx.ContainsParsed(row) {
			res.Duplicates++
			continue
		}

		t := model.Transaction{
			ID:             id.New(),
			AccountID:      p.account,
			Date:           row.Date,
			Amount:         row.Amount,
			RawDescription: row.Description,
			ImportedAt:     now,
		}
		if m, ok := merchant.Resolve(row.Description, merchants); ok {
			t.MerchantID = id.Ptr(m.ID)
			res.Matched++
			if m.DefaultCategoryID != nil {
				t.CategoryID = id.Ptr(*m.DefaultCategoryID)
				if p.opts.AutoReview {
					reviewed := now
					t.Reviewed = true
					t.ReviewedAt = &reviewed
				}
			}
		}

		if err := tx.Insert(sctx, t); err != nil {
			if errors.Is(err, ledger.ErrUnavailable) {
				return nil, fmt.Errorf("inserting row %d: %w", row.Row, err)
			}
			log.Warn("row rejected", "row", row.Row, "err", err)
			res.Failures = append(res.Failures, PersistenceError{Row: row.Row, Description: row.Description, Err: err})
			continue
		}
		idx.Add(t)
		res.Inserted++
	}

	if res.Inserted == 0 && len(res.Failures) > 0 && !res.Cancelled {
		return nil, fmt.Errorf("all %d new rows were rejected: %w", len(res.Failures), errors.Join(failureErrs(res.Failures)...))
	}

	done = true
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	res.FinishedAt = p.opts.Now()
	return res, nil
}

func failureErrs(fs []PersistenceError) []error {
	errs := make([]error, len(fs))
	for i, f := range fs {
		errs[i] = f
	}
	return errs
}
