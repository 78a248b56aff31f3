// Package ledger implements the append-only audit record store. It owns
// storage and retrieval only; priorities and digests are derived upstream by
// the integrity engine.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/veritrail/veritrail/internal/domain"
	"github.com/veritrail/veritrail/internal/errors"
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithMaxEntries caps the number of stored entries. Zero means unlimited.
func WithMaxEntries(n int) Option {
	return func(l *Ledger) { l.maxEntries = n }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// Ledger wraps a Store with capacity enforcement, query defaults, and
// on-demand statistics. Appends are serialized; reads run concurrently.
type Ledger struct {
	store      domain.Store
	maxEntries int
	logger     *slog.Logger

	mu sync.Mutex // serializes appends so readers never see a partial write
}

// New creates a Ledger over the given store.
func New(store domain.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stores a fully-formed entry. It fails with ErrCapacityExceeded when
// the configured maximum entry count is reached.
func (l *Ledger) Append(ctx context.Context, entry *domain.AuditEntry) (string, error) {
	if entry == nil || entry.ID == "" {
		return "", fmt.Errorf("%w: entry must have an id", errors.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxEntries > 0 {
		// Retention deletes free capacity, so only live entries count
		// against the cap.
		notDeleted := false
		live, err := l.store.Count(ctx, domain.EntryFilter{Deleted: &notDeleted})
		if err != nil {
			return "", fmt.Errorf("failed to check ledger capacity: %w", err)
		}
		if live >= l.maxEntries {
			return "", fmt.Errorf("%w: %d entries", errors.ErrCapacityExceeded, live)
		}
	}

	if err := l.store.Append(ctx, entry); err != nil {
		return "", fmt.Errorf("failed to append entry: %w", err)
	}

	l.logger.DebugContext(ctx, "audit entry appended",
		slog.String("entry_id", entry.ID),
		slog.String("action", string(entry.Action)),
		slog.String("priority", string(entry.Priority)))

	return entry.ID, nil
}

// Get returns one entry by id.
func (l *Ledger) Get(ctx context.Context, id string) (*domain.AuditEntry, error) {
	return l.store.Get(ctx, id)
}

// Query returns entries matching filter, shaped by opts. The default sort is
// creation time ascending.
func (l *Ledger) Query(ctx context.Context, filter domain.EntryFilter, opts domain.QueryOptions) ([]*domain.AuditEntry, error) {
	if opts.SortBy == "" {
		opts.SortBy = domain.SortByCreatedAt
	}
	return l.store.List(ctx, filter, opts)
}

// UpdateLifecycle applies a lifecycle-flag update. Only the retention manager
// should call this.
func (l *Ledger) UpdateLifecycle(ctx context.Context, id string, update domain.LifecycleUpdate) error {
	return l.store.UpdateLifecycle(ctx, id, update)
}

// Replace swaps an entry's stored representation for storage-layer transforms.
func (l *Ledger) Replace(ctx context.Context, entry *domain.AuditEntry) error {
	return l.store.Replace(ctx, entry)
}

// Len returns the number of stored entries.
func (l *Ledger) Len(ctx context.Context) (int, error) {
	return l.store.Len(ctx)
}

// StorageSize returns the approximate stored size in bytes.
func (l *Ledger) StorageSize(ctx context.Context) (int64, error) {
	return l.store.StorageSize(ctx)
}
