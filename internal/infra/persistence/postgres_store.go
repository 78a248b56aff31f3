// Package persistence provides the durable Postgres implementation of the
// ledger's backing store.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritrail/veritrail/internal/domain"
	"github.com/veritrail/veritrail/internal/errors"
)

const entryColumns = `id, created_at, user_id, user_role, user_email, action, subject_id, reason,
	changes, metadata, priority, integrity_hash, chain_hash, hash_algorithm, sealed,
	payload, compressed, encrypted,
	archived, archived_at, deleted, deleted_at, held, held_at, exported, exported_at, expires_at`

// PostgresStore implements domain.Store over a pgx connection pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry *domain.AuditEntry) error {
	changes, metadata, size, err := encodeJSONColumns(entry)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_entries (` + entryColumns + `, size_bytes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)`
	_, err = s.db.Exec(ctx, query,
		entry.ID, entry.CreatedAt, entry.UserID, string(entry.UserRole), entry.UserEmail,
		string(entry.Action), entry.SubjectID, entry.Reason,
		changes, metadata, string(entry.Priority),
		entry.IntegrityHash, entry.ChainHash, entry.HashAlgorithm, entry.Sealed,
		entry.Payload, entry.Compressed, entry.Encrypted,
		entry.Archived, entry.ArchivedAt, entry.Deleted, entry.DeletedAt,
		entry.Held, entry.HeldAt, entry.Exported, entry.ExportedAt, entry.ExpiresAt,
		size)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.AuditEntry, error) {
	row := s.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM audit_entries WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", errors.ErrEntryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) List(ctx context.Context, filter domain.EntryFilter, opts domain.QueryOptions) ([]*domain.AuditEntry, error) {
	where, args := buildWhere(filter)

	orderCol := "created_at"
	switch opts.SortBy {
	case domain.SortByPriority:
		orderCol = "priority"
	case domain.SortByAction:
		orderCol = "action"
	}
	direction := "ASC"
	if opts.SortDescending {
		direction = "DESC"
	}

	query := `SELECT ` + entryColumns + ` FROM audit_entries` + where +
		fmt.Sprintf(` ORDER BY %s %s, created_at ASC`, orderCol, direction)
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuditEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if opts.ExcludeChanges {
			entry.Changes = nil
		}
		if opts.ExcludeMetadata {
			entry.Metadata = nil
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateLifecycle(ctx context.Context, id string, update domain.LifecycleUpdate) error {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 9)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if update.Archived != nil {
		add("archived", *update.Archived)
	}
	if update.ArchivedAt != nil {
		add("archived_at", *update.ArchivedAt)
	}
	if update.Deleted != nil {
		add("deleted", *update.Deleted)
	}
	if update.DeletedAt != nil {
		add("deleted_at", *update.DeletedAt)
	}
	if update.Held != nil {
		add("held", *update.Held)
	}
	if update.HeldAt != nil {
		add("held_at", *update.HeldAt)
	}
	if update.Exported != nil {
		add("exported", *update.Exported)
	}
	if update.ExportedAt != nil {
		add("exported_at", *update.ExportedAt)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE audit_entries SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update entry lifecycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", errors.ErrEntryNotFound, id)
	}
	return nil
}

func (s *PostgresStore) Replace(ctx context.Context, entry *domain.AuditEntry) error {
	changes, metadata, size, err := encodeJSONColumns(entry)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `UPDATE audit_entries SET
		changes = $2, metadata = $3, reason = $4, payload = $5,
		compressed = $6, encrypted = $7, size_bytes = $8
		WHERE id = $1`,
		entry.ID, changes, metadata, entry.Reason, entry.Payload,
		entry.Compressed, entry.Encrypted, size)
	if err != nil {
		return fmt.Errorf("failed to replace entry representation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", errors.ErrEntryNotFound, entry.ID)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context, filter domain.EntryFilter) (int, error) {
	where, args := buildWhere(filter)
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_entries`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) StorageSize(ctx context.Context) (int64, error) {
	var size int64
	if err := s.db.QueryRow(ctx, `SELECT COALESCE(SUM(size_bytes), 0) FROM audit_entries`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to measure storage size: %w", err)
	}
	return size, nil
}

func buildWhere(filter domain.EntryFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Action != "" {
		add("action = $%d", string(filter.Action))
	}
	if filter.SubjectID != "" {
		add("subject_id = $%d", filter.SubjectID)
	}
	if filter.Priority != "" {
		add("priority = $%d", string(filter.Priority))
	}
	if filter.Archived != nil {
		add("archived = $%d", *filter.Archived)
	}
	if filter.Deleted != nil {
		add("deleted = $%d", *filter.Deleted)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at < $%d", filter.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func encodeJSONColumns(entry *domain.AuditEntry) (changes, metadata []byte, size int64, err error) {
	changes, err = json.Marshal(entry.Changes)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to encode change set: %w", err)
	}
	metadata, err = json.Marshal(entry.Metadata)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to encode metadata: %w", err)
	}
	full, err := json.Marshal(entry)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to size entry: %w", err)
	}
	return changes, metadata, int64(len(full)), nil
}

func scanEntry(row pgx.Row) (*domain.AuditEntry, error) {
	var e domain.AuditEntry
	var role, action, priority string
	var changes, metadata []byte

	err := row.Scan(
		&e.ID, &e.CreatedAt, &e.UserID, &role, &e.UserEmail, &action, &e.SubjectID, &e.Reason,
		&changes, &metadata, &priority, &e.IntegrityHash, &e.ChainHash, &e.HashAlgorithm, &e.Sealed,
		&e.Payload, &e.Compressed, &e.Encrypted,
		&e.Archived, &e.ArchivedAt, &e.Deleted, &e.DeletedAt,
		&e.Held, &e.HeldAt, &e.Exported, &e.ExportedAt, &e.ExpiresAt)
	if err != nil {
		return nil, err
	}

	e.UserRole = domain.Role(role)
	e.Action = domain.Action(action)
	e.Priority = domain.Priority(priority)
	if err := json.Unmarshal(changes, &e.Changes); err != nil {
		return nil, fmt.Errorf("failed to decode change set: %w", err)
	}
	if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &e, nil
}
