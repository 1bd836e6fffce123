package deadline

import (
	"sort"
	"sync"

	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// Store persists computed deadlines.  Records are immutable: Save only ever
// appends, and superseding is expressed by the new record's SupersedesID.
type Store interface {
	Save(d ComputedDeadline) error
	Get(id common.ID) (ComputedDeadline, error)
	// List returns all records ordered by due date, then computation time.
	List() ([]ComputedDeadline, error)
}

// MemoryStore is the in-process Store used by tests and the CLI.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[common.ID]ComputedDeadline
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[common.ID]ComputedDeadline)}
}

// Save implements Store.  Saving an existing ID is a conflict, never an
// update.
func (s *MemoryStore) Save(d ComputedDeadline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[d.ID]; ok {
		return errors.Newf(errors.ErrCodeConflict, "deadline %s already stored", d.ID)
	}
	s.byID[d.ID] = d
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(id common.ID) (ComputedDeadline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[id]
	if !ok {
		return ComputedDeadline{}, errors.Newf(errors.ErrCodeDeadlineNotFound, "deadline %s not found", id)
	}
	return d, nil
}

// List implements Store.
func (s *MemoryStore) List() ([]ComputedDeadline, error) {
	s.mu.RLock()
	out := make([]ComputedDeadline, 0, len(s.byID))
	for _, d := range s.byID {
		out = append(out, d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ComputedAt.Time().Before(out[j].ComputedAt.Time())
	})
	return out, nil
}
