// Package integrity wraps ledger writes in the entry-creation protocol:
// priority derivation, digest computation, hash chaining, optional storage
// transforms, and sealing. It also answers integrity questions about any
// stored entry.
package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/veritrail/veritrail/internal/domain"
	"github.com/veritrail/veritrail/internal/errors"
	"github.com/veritrail/veritrail/internal/ledger"
	"github.com/veritrail/veritrail/pkg/clock"
	"github.com/veritrail/veritrail/pkg/crypto"
)

// Config is the engine's protection surface.
type Config struct {
	HashAlgorithm               string
	EnableHashing               bool
	EnableChaining              bool
	EnableCompression           bool
	EnableEncryption            bool
	EnableTamperDetection       bool
	EnableTimestampVerification bool
	EnableAuditLogging          bool
	DefaultRetentionDays        int
	EncryptionKey               []byte
	SensitiveFields             map[string]bool
}

// DefaultConfig returns the default protection configuration.
func DefaultConfig() Config {
	return Config{
		HashAlgorithm:               crypto.AlgorithmSHA256,
		EnableHashing:               true,
		EnableChaining:              true,
		EnableTamperDetection:       true,
		EnableTimestampVerification: true,
		EnableAuditLogging:          true,
		DefaultRetentionDays:        730,
	}
}

// ActionLogEntry is one record of the engine-internal administration log,
// distinct from the audit ledger itself.
type ActionLogEntry struct {
	Action    string    `json:"action"`
	Result    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// Engine transforms proposed entries into protected, sealed records.
type Engine struct {
	ledger *ledger.Ledger
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger

	readOnly atomic.Bool

	// mu serializes entry creation so the previous chain digest is
	// unambiguous.
	mu          sync.Mutex
	chainLoaded bool
	lastChain   string
	lastCreated time.Time

	alertMu sync.Mutex
	alerts  []domain.TamperAlert

	actionMu  sync.Mutex
	actionLog []ActionLogEntry
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock injects a clock, used by tests for deterministic timestamps.
func WithClock(c clock.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an integrity engine over a ledger.
func NewEngine(l *ledger.Ledger, cfg Config, opts ...EngineOption) *Engine {
	if cfg.HashAlgorithm == "" {
		cfg.HashAlgorithm = crypto.AlgorithmSHA256
	}
	if cfg.DefaultRetentionDays <= 0 {
		cfg.DefaultRetentionDays = 730
	}
	e := &Engine{
		ledger: l,
		cfg:    cfg,
		clock:  clock.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateEntry runs the full entry-creation protocol and returns the sealed
// record. The returned entry is a copy: mutating it does not affect the
// stored record.
func (e *Engine) CreateEntry(ctx context.Context, req domain.EntryRequest) (*domain.AuditEntry, error) {
	if e.readOnly.Load() {
		e.recordAction("create", "failure")
		return nil, errors.ErrReadOnlyMode
	}
	if req.ActorID == "" || req.Action == "" {
		e.recordAction("create", "failure")
		return nil, fmt.Errorf("%w: actor id and action are required", errors.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.loadChainTail(ctx); err != nil {
		e.recordAction("create", "failure")
		return nil, err
	}

	now := e.clock.Now().UTC()
	// Creation timestamps are monotonic-checked: a clock stepping backwards
	// must not reorder the ledger.
	if !now.After(e.lastCreated) {
		now = e.lastCreated.Add(time.Nanosecond)
	}

	entry := &domain.AuditEntry{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UserID:    req.ActorID,
		UserRole:  req.ActorRole,
		UserEmail: req.ActorEmail,
		Action:    req.Action,
		SubjectID: req.SubjectID,
		Reason:    req.Reason,
		Changes:   append([]domain.FieldChange(nil), req.Changes...),
		Metadata:  req.Metadata,
		Priority:  domain.DerivePriority(req.Action, req.Changes, e.cfg.SensitiveFields),
		ExpiresAt: now.AddDate(0, 0, e.cfg.DefaultRetentionDays),
	}

	if e.cfg.EnableHashing {
		digest, err := ComputeDigest(entry, e.cfg.HashAlgorithm)
		if err != nil {
			e.recordAction("create", "failure")
			return nil, err
		}
		entry.IntegrityHash = digest
		entry.HashAlgorithm = e.cfg.HashAlgorithm

		if e.cfg.EnableChaining {
			prev := e.lastChain
			if prev == "" {
				prev = GenesisChainValue
			}
			chain, err := ComputeChainHash(digest, prev, e.cfg.HashAlgorithm)
			if err != nil {
				e.recordAction("create", "failure")
				return nil, err
			}
			entry.ChainHash = chain
		}
	}

	sealed := entry.Clone()
	sealed.Sealed = true

	if e.cfg.EnableCompression || e.cfg.EnableEncryption {
		if err := EncodePayload(sealed, e.cfg.EncryptionKey, e.cfg.EnableCompression, e.cfg.EnableEncryption); err != nil {
			e.recordAction("create", "failure")
			return nil, err
		}
	}

	if _, err := e.ledger.Append(ctx, sealed); err != nil {
		e.recordAction("create", "failure")
		return nil, err
	}

	e.lastCreated = now
	if entry.ChainHash != "" {
		e.lastChain = entry.ChainHash
	}

	e.recordAction("create", "success")
	e.logger.InfoContext(ctx, "audit entry sealed",
		slog.String("entry_id", entry.ID),
		slog.String("action", string(entry.Action)),
		slog.String("priority", string(entry.Priority)),
		slog.Bool("chained", entry.ChainHash != ""))

	result := entry.Clone()
	result.Sealed = true
	return result, nil
}

// loadChainTail initializes the chain cursor from the store tail, once.
// Callers must hold mu.
func (e *Engine) loadChainTail(ctx context.Context) error {
	if e.chainLoaded {
		return nil
	}
	entries, err := e.ledger.Query(ctx, domain.EntryFilter{}, domain.QueryOptions{
		SortBy:          domain.SortByCreatedAt,
		ExcludeChanges:  true,
		ExcludeMetadata: true,
	})
	if err != nil {
		return fmt.Errorf("failed to load chain tail: %w", err)
	}
	if len(entries) > 0 {
		tail := entries[len(entries)-1]
		e.lastChain = tail.ChainHash
		e.lastCreated = tail.CreatedAt
	}
	e.chainLoaded = true
	return nil
}

// EnableReadOnlyMode rejects all subsequent entry creation while leaving
// verification and reporting available, for forensic freezes.
func (e *Engine) EnableReadOnlyMode() {
	e.readOnly.Store(true)
	e.recordAction("enable_read_only", "success")
}

// DisableReadOnlyMode re-enables entry creation.
func (e *Engine) DisableReadOnlyMode() {
	e.readOnly.Store(false)
	e.recordAction("disable_read_only", "success")
}

// ReadOnly reports whether the engine is in read-only mode.
func (e *Engine) ReadOnly() bool {
	return e.readOnly.Load()
}

// TamperAlerts returns the recorded tamper events.
func (e *Engine) TamperAlerts() []domain.TamperAlert {
	e.alertMu.Lock()
	defer e.alertMu.Unlock()
	return append([]domain.TamperAlert(nil), e.alerts...)
}

// ClearTamperAlerts empties the alert list.
func (e *Engine) ClearTamperAlerts() {
	e.alertMu.Lock()
	defer e.alertMu.Unlock()
	e.alerts = nil
}

func (e *Engine) addAlert(a domain.TamperAlert) {
	e.alertMu.Lock()
	defer e.alertMu.Unlock()
	e.alerts = append(e.alerts, a)
}

// ActionLog returns the engine-internal administration log.
func (e *Engine) ActionLog() []ActionLogEntry {
	e.actionMu.Lock()
	defer e.actionMu.Unlock()
	return append([]ActionLogEntry(nil), e.actionLog...)
}

func (e *Engine) recordAction(action, result string) {
	if !e.cfg.EnableAuditLogging {
		return
	}
	e.actionMu.Lock()
	defer e.actionMu.Unlock()
	e.actionLog = append(e.actionLog, ActionLogEntry{
		Action:    action,
		Result:    result,
		Timestamp: e.clock.Now().UTC(),
	})
}
