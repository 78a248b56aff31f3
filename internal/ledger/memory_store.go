package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/veritrail/veritrail/internal/domain"
	"github.com/veritrail/veritrail/internal/errors"
)

// MemoryStore is the in-memory Store implementation. Entries are kept in
// insertion order; all reads return deep copies.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*domain.AuditEntry
	byID    map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (s *MemoryStore) Append(_ context.Context, entry *domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[entry.ID]; exists {
		return fmt.Errorf("%w: duplicate entry id %s", errors.ErrInvalidInput, entry.ID)
	}
	s.byID[entry.ID] = len(s.entries)
	s.entries = append(s.entries, entry.Clone())
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrEntryNotFound, id)
	}
	return s.entries[idx].Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, filter domain.EntryFilter, opts domain.QueryOptions) ([]*domain.AuditEntry, error) {
	// Clone while still holding the read lock; UpdateLifecycle mutates
	// stored entries in place, so handing out bare pointers would race.
	s.mu.RLock()
	matched := make([]*domain.AuditEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if !matches(e, filter) {
			continue
		}
		c := e.Clone()
		if opts.ExcludeChanges {
			c.Changes = nil
		}
		if opts.ExcludeMetadata {
			c.Metadata = nil
		}
		matched = append(matched, c)
	}
	s.mu.RUnlock()

	sortEntries(matched, opts)

	// offset/limit
	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

func (s *MemoryStore) UpdateLifecycle(_ context.Context, id string, update domain.LifecycleUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrEntryNotFound, id)
	}
	e := s.entries[idx]
	if update.Archived != nil {
		e.Archived = *update.Archived
	}
	if update.ArchivedAt != nil {
		t := *update.ArchivedAt
		e.ArchivedAt = &t
	}
	if update.Deleted != nil {
		e.Deleted = *update.Deleted
	}
	if update.DeletedAt != nil {
		t := *update.DeletedAt
		e.DeletedAt = &t
	}
	if update.Held != nil {
		e.Held = *update.Held
	}
	if update.HeldAt != nil {
		t := *update.HeldAt
		e.HeldAt = &t
	}
	if update.Exported != nil {
		e.Exported = *update.Exported
	}
	if update.ExportedAt != nil {
		t := *update.ExportedAt
		e.ExportedAt = &t
	}
	return nil
}

func (s *MemoryStore) Replace(_ context.Context, entry *domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[entry.ID]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrEntryNotFound, entry.ID)
	}
	s.entries[idx] = entry.Clone()
	return nil
}

func (s *MemoryStore) Count(_ context.Context, filter domain.EntryFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if matches(e, filter) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) StorageSize(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, e := range s.entries {
		b, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("failed to size entry %s: %w", e.ID, err)
		}
		total += int64(len(b))
	}
	return total, nil
}

func matches(e *domain.AuditEntry, f domain.EntryFilter) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.SubjectID != "" && e.SubjectID != f.SubjectID {
		return false
	}
	if f.Priority != "" && e.Priority != f.Priority {
		return false
	}
	if f.Archived != nil && e.Archived != *f.Archived {
		return false
	}
	if f.Deleted != nil && e.Deleted != *f.Deleted {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

func sortEntries(entries []*domain.AuditEntry, opts domain.QueryOptions) {
	less := func(a, b *domain.AuditEntry) bool {
		switch opts.SortBy {
		case domain.SortByPriority:
			return a.Priority.Rank() < b.Priority.Rank()
		case domain.SortByAction:
			return a.Action < b.Action
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if opts.SortDescending {
			return less(entries[j], entries[i])
		}
		return less(entries[i], entries[j])
	})
}
