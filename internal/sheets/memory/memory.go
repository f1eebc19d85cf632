package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"contas/internal/core"
	ports "contas/internal/sheets"
)

var _ ports.Store = (*Store)(nil)

// Store keeps payables and the taxonomy in process. Fail makes every call
// return an error, which tests use to exercise persistence failures.
type Store struct {
	mu       sync.Mutex
	payables map[int64]core.Payable
	taxonomy core.Taxonomy
	failErr  error
	writes   int
}

func New() *Store {
	return &Store{payables: map[int64]core.Payable{}}
}

// NewFromFiles seeds the taxonomy from base/seed_taxonomy.json when present.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(filepath.Join(base, "seed_taxonomy.json"))
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed taxonomy: %w", err)
	}
	tax, err := core.DecodeTaxonomy(data)
	if err != nil {
		return nil, fmt.Errorf("decode seed taxonomy: %w", err)
	}
	s.taxonomy = tax
	return s, nil
}

// Fail sets the error returned by every subsequent call; nil restores.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Writes counts successful mutations.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) ListPayables(_ context.Context) ([]core.Payable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	out := make([]core.Payable, 0, len(s.payables))
	for _, p := range s.payables {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpsertPayables(_ context.Context, ps ...core.Payable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for _, p := range ps {
		s.payables[p.ID] = p
	}
	s.writes++
	return nil
}

func (s *Store) DeletePayable(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	delete(s.payables, id)
	s.writes++
	return nil
}

func (s *Store) LoadTaxonomy(_ context.Context) (core.Taxonomy, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, false, s.failErr
	}
	if s.taxonomy == nil {
		return nil, false, nil
	}
	return s.taxonomy.Clone(), true, nil
}

func (s *Store) SaveTaxonomy(_ context.Context, t core.Taxonomy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.taxonomy = t.Clone()
	s.writes++
	return nil
}
