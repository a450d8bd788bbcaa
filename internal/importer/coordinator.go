package importer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/enough-app/enough/internal/ledger"
)

// ErrImportInProgress is returned by Begin while another session is open.
var ErrImportInProgress = errors.New("an import is already in progress")

// Coordinator hands out at most one import session at a time.
type Coordinator struct {
	store ledger.Store
	opts  Options
	sem   *semaphore.Weighted
}

// NewCoordinator returns a Coordinator whose pipelines write to store.
func NewCoordinator(store ledger.Store, opts Options) *Coordinator {
	return &Coordinator{store: store, opts: opts, sem: semaphore.NewWeighted(1)}
}

// Session is a pipeline holding the coordinator's import slot.
// Close releases the slot; it is safe to call more than once.
type Session struct {
	*Pipeline
	once    sync.Once
	release func()
}

func (s *Session) Close() {
	s.once.Do(s.release)
}

// Begin opens a session without waiting.
func (c *Coordinator) Begin(accountID uuid.UUID) (*Session, error) {
	if !c.sem.TryAcquire(1) {
		return nil, ErrImportInProgress
	}
	return c.session(accountID), nil
}

// Wait opens a session once the running one closes, or fails with ctx.
func (c *Coordinator) Wait(ctx context.Context, accountID uuid.UUID) (*Session, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return c.session(accountID), nil
}

func (c *Coordinator) session(accountID uuid.UUID) *Session {
	return &Session{
		Pipeline: NewPipeline(c.store, accountID, c.opts),
		release:  func() { c.sem.Release(1) },
	}
}

// Import parses src and confirms it straight away.
func (c *Coordinator) Import(ctx context.Context, src Source, accountID uuid.UUID) (*Result, error) {
	s, err := c.Begin(accountID)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	if _, err := s.Parse(ctx, src); err != nil {
		return nil, err
	}
	return s.Confirm(ctx)
}
