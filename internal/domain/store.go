package domain

import (
	"context"
	"time"
)

// EntryFilter selects entries for queries and retention scans. Zero values
// mean "no constraint". From is inclusive, To is exclusive.
type EntryFilter struct {
	UserID    string
	Action    Action
	SubjectID string
	Priority  Priority
	Archived  *bool
	Deleted   *bool
	From      time.Time
	To        time.Time
}

// SortField names the sortable entry columns.
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByPriority  SortField = "priority"
	SortByAction    SortField = "action"
)

// QueryOptions bound and shape a query's result set. The default sort is
// creation time ascending.
type QueryOptions struct {
	SortBy          SortField
	SortDescending  bool
	Offset          int
	Limit           int
	ExcludeChanges  bool
	ExcludeMetadata bool
}

// LifecycleUpdate is the narrow mutation surface the retention manager is
// allowed to apply. Nil pointers leave the corresponding flag untouched.
type LifecycleUpdate struct {
	Archived   *bool
	ArchivedAt *time.Time
	Deleted    *bool
	DeletedAt  *time.Time
	Held       *bool
	HeldAt     *time.Time
	Exported   *bool
	ExportedAt *time.Time
}

// Store is the pluggable backing store behind the ledger. Implementations
// must keep entries in insertion order and return defensive copies.
type Store interface {
	// Append persists a fully-formed entry.
	Append(ctx context.Context, entry *AuditEntry) error

	// Get returns the entry with the given id or ErrEntryNotFound.
	Get(ctx context.Context, id string) (*AuditEntry, error)

	// List returns entries matching the filter, shaped by opts.
	List(ctx context.Context, filter EntryFilter, opts QueryOptions) ([]*AuditEntry, error)

	// UpdateLifecycle applies a lifecycle-flag update without touching
	// protected content.
	UpdateLifecycle(ctx context.Context, id string, update LifecycleUpdate) error

	// Replace swaps an entry's stored representation. It exists for
	// storage-layer transforms (compression, encryption); callers are
	// responsible for keeping the logical content intact.
	Replace(ctx context.Context, entry *AuditEntry) error

	// Count returns the number of entries matching the filter without
	// materializing them.
	Count(ctx context.Context, filter EntryFilter) (int, error)

	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)

	// StorageSize returns the approximate stored size in bytes.
	StorageSize(ctx context.Context) (int64, error)
}
