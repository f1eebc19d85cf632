// Package services owns the application session: the in-memory record set
// and taxonomy, their optimistic persistence and the two-phase confirmation
// of destructive changes.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"contas/internal/backup"
	"contas/internal/cache"
	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/sheets"
)

const (
	persistTimeout  = 30 * time.Second
	reportCacheSize = 32
	reportCacheTTL  = 5 * time.Minute
)

// Publisher announces record changes to other processes. *amqp.Client
// satisfies it.
type Publisher interface {
	PublishPayableSync(ctx context.Context, id, version int64) error
	PublishPayableDelete(ctx context.Context, id int64) error
}

// Options wires a Session. Payables and Taxonomy are required; everything
// else has a usable zero value.
type Options struct {
	Payables  sheets.PayableStore
	Taxonomy  sheets.TaxonomyStore
	Legacy    backup.LegacyDir
	Publisher Publisher
	Company   core.Company
	Now       func() time.Time
	Logger    *log.Logger
}

// Session is the single owner of the record set and the taxonomy. Every
// mutation goes through its methods; persistence happens in the background
// and never rolls back memory.
type Session struct {
	payableStore  sheets.PayableStore
	taxonomyStore sheets.TaxonomyStore
	legacy        backup.LegacyDir
	publisher     Publisher
	company       core.Company
	now           func() time.Time
	log           *log.Logger

	mu       sync.Mutex
	payables []core.Payable
	tax      core.Taxonomy
	lastID   int64
	pending  map[string]*PendingChange
	reports  *cache.LRU[core.Report]

	inflight sync.WaitGroup
	failures atomic.Int64
}

// NewSession builds a session seeded with the default taxonomy and no
// records. Call Load to read the stores.
func NewSession(opts Options) (*Session, error) {
	if opts.Payables == nil || opts.Taxonomy == nil {
		return nil, errors.New("session needs a payable store and a taxonomy store")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Company.Name == "" {
		opts.Company = core.DefaultCompany
	}
	return &Session{
		payableStore:  opts.Payables,
		taxonomyStore: opts.Taxonomy,
		legacy:        opts.Legacy,
		publisher:     opts.Publisher,
		company:       opts.Company,
		now:           opts.Now,
		log:           opts.Logger.WithComponent(log.ComponentSession),
		tax:           core.DefaultTaxonomy(),
		pending:       make(map[string]*PendingChange),
		reports:       cache.NewLRU[core.Report](reportCacheSize, reportCacheTTL),
	}, nil
}

// Load reads both stores concurrently and replaces the session state.
// Legacy files are migrated into an empty primary store once and then
// removed. Read failures are logged; the session falls back to legacy data
// or defaults and keeps the legacy files in that case.
func (s *Session) Load(ctx context.Context) error {
	var (
		stored      []core.Payable
		storedTax   core.Taxonomy
		taxFound    bool
		payablesErr error
		taxErr      error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stored, payablesErr = s.payableStore.ListPayables(gctx)
		return nil
	})
	g.Go(func() error {
		storedTax, taxFound, taxErr = s.taxonomyStore.LoadTaxonomy(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.now()
	tax, saveTax := s.resolveTaxonomy(storedTax, taxFound, taxErr)
	records, fromLegacy := s.resolvePayables(stored, payablesErr, now)

	var (
		migrated   []core.Payable
		staleZeros bool
	)
	s.mu.Lock()
	s.tax = tax
	s.payables = records
	s.lastID = 0
	for _, p := range records {
		if p.ID > s.lastID {
			s.lastID = p.ID
		}
	}
	for i := range s.payables {
		if s.payables[i].ID != 0 {
			continue
		}
		s.payables[i].ID = s.nextIDLocked()
		if !fromLegacy && payablesErr == nil {
			migrated = append(migrated, s.payables[i])
			staleZeros = true
		}
	}
	if fromLegacy {
		migrated = append([]core.Payable(nil), s.payables...)
	}
	s.sortLocked()
	s.reports.Purge()
	s.mu.Unlock()

	if staleZeros {
		s.persistDelete(ctx, []int64{0})
	}

	if saveTax {
		s.persistTaxonomy(ctx, tax, func() {
			if err := s.legacy.ClearTaxonomy(); err != nil {
				s.log.WarnContext(ctx, "Failed to remove legacy taxonomy", log.FieldError, err)
			}
		})
	}
	if len(migrated) > 0 {
		s.persistUpsert(ctx, migrated, func() {
			if err := s.legacy.ClearAccounts(); err != nil {
				s.log.WarnContext(ctx, "Failed to remove legacy records", log.FieldError, err)
			}
		})
	}

	s.log.InfoContext(ctx, "Session loaded",
		log.FieldCount, len(records),
		"groups", len(tax),
		"migrated", len(migrated))
	return nil
}

func (s *Session) resolveTaxonomy(stored core.Taxonomy, found bool, loadErr error) (core.Taxonomy, bool) {
	if loadErr != nil {
		s.logPersistence(context.Background(), &core.PersistenceError{Op: "load taxonomy", Err: loadErr})
	}
	if found && loadErr == nil {
		return core.Merge(core.DefaultTaxonomy(), stored), false
	}

	legacy, legacyFound, err := s.legacy.Taxonomy()
	if err != nil {
		s.log.Warn("Ignoring unreadable legacy taxonomy", log.FieldError, err)
	}
	tax := core.DefaultTaxonomy()
	if legacyFound {
		tax = core.Merge(tax, legacy)
	}
	// Only write the taxonomy back when the store answered; a failing store
	// keeps the legacy file as the source of truth.
	return tax, loadErr == nil
}

// resolvePayables picks the record set to load. migrate is true when the
// records came from the legacy files and the primary store can take them.
func (s *Session) resolvePayables(stored []core.Payable, loadErr error, now time.Time) (records []core.Payable, migrate bool) {
	if loadErr != nil {
		s.logPersistence(context.Background(), &core.PersistenceError{Op: "list payables", Err: loadErr})
	}
	if loadErr == nil && len(stored) > 0 {
		return stored, false
	}

	legacy, err := s.legacy.Accounts(now)
	if err != nil {
		s.log.Warn("Ignoring unreadable legacy records", log.FieldError, err)
		return nil, false
	}
	return legacy, len(legacy) > 0 && loadErr == nil
}

// Company returns the identity written into backups and reports.
func (s *Session) Company() core.Company {
	return s.company
}

// Today is the current calendar day of the session clock.
func (s *Session) Today() core.Date {
	return core.Today(s.now())
}

// Taxonomy returns a copy of the current taxonomy.
func (s *Session) Taxonomy() core.Taxonomy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tax.Clone()
}

// Payables returns a copy of the record set sorted by due date.
func (s *Session) Payables() []core.Payable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Payable(nil), s.payables...)
}

// Flush waits for in-flight persistence writes.
func (s *Session) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PersistFailures counts background writes that failed since start.
func (s *Session) PersistFailures() int64 {
	return s.failures.Load()
}

// ReportCacheStats reports how often reports were served from memory.
func (s *Session) ReportCacheStats() cache.Stats {
	s.reports.Sweep()
	return s.reports.Stats()
}

// nextIDLocked hands out ids from the millisecond clock, strictly
// increasing even when the clock stalls.
func (s *Session) nextIDLocked() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Session) indexLocked(id int64) int {
	for i, p := range s.payables {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) sortLocked() {
	sort.SliceStable(s.payables, func(i, j int) bool {
		a, b := s.payables[i], s.payables[j]
		if a.DueDate != b.DueDate {
			return a.DueDate < b.DueDate
		}
		return a.ID < b.ID
	})
}

// changedLocked runs after every mutation of the record set.
func (s *Session) changedLocked() {
	s.sortLocked()
	s.reports.Purge()
}

// background runs fn detached from the caller's cancellation and tracks it
// for Flush.
func (s *Session) background(ctx context.Context, op string, fn func(context.Context) error) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if err := fn(bctx); err != nil {
			s.failures.Add(1)
			s.logPersistence(bctx, &core.PersistenceError{Op: op, Err: err})
		}
	}()
}

func (s *Session) logPersistence(ctx context.Context, err *core.PersistenceError) {
	log.NewStructuredLogger(s.log).LogPersistenceFailure(ctx, err)
}

// persistUpsert saves records and then announces them. after runs only when
// the save succeeded.
func (s *Session) persistUpsert(ctx context.Context, ps []core.Payable, after func()) {
	if len(ps) == 0 {
		return
	}
	s.background(ctx, "upsert payables", func(ctx context.Context) error {
		if err := s.payableStore.UpsertPayables(ctx, ps...); err != nil {
			return err
		}
		for _, p := range ps {
			s.publishSync(ctx, p)
		}
		if after != nil {
			after()
		}
		return nil
	})
}

func (s *Session) persistDelete(ctx context.Context, ids []int64) {
	if len(ids) == 0 {
		return
	}
	s.background(ctx, "delete payables", func(ctx context.Context) error {
		var errs []error
		for _, id := range ids {
			if err := s.payableStore.DeletePayable(ctx, id); err != nil {
				errs = append(errs, fmt.Errorf("delete %d: %w", id, err))
				continue
			}
			s.publishDelete(ctx, id)
		}
		return errors.Join(errs...)
	})
}

func (s *Session) persistTaxonomy(ctx context.Context, t core.Taxonomy, after func()) {
	s.background(ctx, "save taxonomy", func(ctx context.Context) error {
		if err := s.taxonomyStore.SaveTaxonomy(ctx, t); err != nil {
			return err
		}
		if after != nil {
			after()
		}
		return nil
	})
}

func (s *Session) publishSync(ctx context.Context, p core.Payable) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPayableSync(ctx, p.ID, p.UpdatedAt.UnixMilli()); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldPayableID, p.ID, log.FieldError, err)
	}
}

func (s *Session) publishDelete(ctx context.Context, id int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPayableDelete(ctx, id); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish delete message",
			log.FieldPayableID, id, log.FieldError, err)
	}
}
