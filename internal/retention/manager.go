// Package retention periodically and on demand enforces data-lifecycle
// policy over the audit ledger without weakening the integrity engine's
// guarantees: it only ever touches the lifecycle-flag subset of an entry.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/veritrail/veritrail/internal/domain"
	"github.com/veritrail/veritrail/internal/errors"
	"github.com/veritrail/veritrail/internal/ledger"
	"github.com/veritrail/veritrail/pkg/clock"
)

// Exporter delivers entries to an external archive. The manager decides that
// an export is due, not how it is stored.
type Exporter interface {
	Export(ctx context.Context, entry *domain.AuditEntry) error
}

// Notification is the payload handed to a Notifier when a policy's notify
// action fires.
type Notification struct {
	PolicyID   string
	PolicyName string
	Regulation string
	EntryID    string
	Message    string
}

// Notifier delivers retention notifications. Delivery mechanics (email,
// webhook) live outside this core.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock injects a clock for deterministic scheduling tests.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithExporter sets the archive exporter used by the export action.
func WithExporter(e Exporter) Option {
	return func(m *Manager) { m.exporter = e }
}

// WithNotifier sets the notification collaborator used by the notify action.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithEncryptionKey sets the AES-256 key used by the encrypt action.
func WithEncryptionKey(key []byte) Option {
	return func(m *Manager) { m.encryptionKey = key }
}

// WithCheckInterval sets how often the scheduler looks for due policies.
func WithCheckInterval(d time.Duration) Option {
	return func(m *Manager) { m.checkInterval = d }
}

// Manager owns retention policies, their scheduled execution, and violation
// tracking.
type Manager struct {
	ledger        *ledger.Ledger
	clock         clock.Clock
	logger        *slog.Logger
	validate      *validator.Validate
	exporter      Exporter
	notifier      Notifier
	encryptionKey []byte
	checkInterval time.Duration

	mu       sync.RWMutex
	policies map[string]*domain.RetentionPolicy

	// execMu guarantees policies never run concurrently with each other, so
	// lifecycle flags on shared entries are never interleaved.
	execMu  sync.Mutex
	history []domain.RetentionExecutionResult

	violationMu sync.Mutex
	violations  []domain.RetentionViolation

	schedMu   sync.Mutex
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewManager creates a retention manager over a ledger.
func NewManager(l *ledger.Ledger, opts ...Option) *Manager {
	m := &Manager{
		ledger:        l,
		clock:         clock.New(),
		logger:        slog.Default(),
		validate:      validator.New(),
		checkInterval: time.Minute,
		policies:      make(map[string]*domain.RetentionPolicy),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddPolicy validates and registers a policy. A missing id is assigned.
func (m *Manager) AddPolicy(policy *domain.RetentionPolicy) (string, error) {
	if policy == nil {
		return "", fmt.Errorf("%w: policy is nil", errors.ErrInvalidInput)
	}
	if err := m.validate.Struct(policy); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	if policy.Selector.Type == domain.SelectorCustom && policy.Selector.Predicate == nil {
		return "", fmt.Errorf("%w: custom selector requires a predicate", errors.ErrInvalidInput)
	}
	if policy.Selector.Type == domain.SelectorTime && policy.Selector.RetentionDays <= 0 {
		return "", fmt.Errorf("%w: time selector requires retention_days", errors.ErrInvalidInput)
	}
	if policy.Selector.Type == domain.SelectorCompliance && policy.Selector.Regulation == "" {
		return "", fmt.Errorf("%w: compliance selector requires a regulation", errors.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := policy.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	} else if _, exists := m.policies[stored.ID]; exists {
		return "", fmt.Errorf("%w: %s", errors.ErrDuplicatePolicy, stored.ID)
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = m.clock.Now().UTC()
	}
	m.policies[stored.ID] = stored
	return stored.ID, nil
}

// RemovePolicy unregisters a policy.
func (m *Manager) RemovePolicy(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.policies[id]; !ok {
		return fmt.Errorf("%w: %s", errors.ErrPolicyNotFound, id)
	}
	delete(m.policies, id)
	return nil
}

// GetPolicy returns a copy of a registered policy.
func (m *Manager) GetPolicy(id string) (*domain.RetentionPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrPolicyNotFound, id)
	}
	return p.Clone(), nil
}

// SetPolicyEnabled toggles a policy without re-registering it.
func (m *Manager) SetPolicyEnabled(id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[id]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrPolicyNotFound, id)
	}
	p.Enabled = enabled
	return nil
}

// ListPolicies returns all registered policies ordered by priority, highest
// first.
func (m *Manager) ListPolicies() []*domain.RetentionPolicy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.RetentionPolicy, 0, len(m.policies))
	for _, p := range m.policies {
		out = append(out, p.Clone())
	}
	sortPoliciesByPriority(out)
	return out
}

// History returns past execution results, oldest first.
func (m *Manager) History() []domain.RetentionExecutionResult {
	m.execMu.Lock()
	defer m.execMu.Unlock()
	return append([]domain.RetentionExecutionResult(nil), m.history...)
}

// ExecuteRetentionPolicy runs one policy now: selection, batched action
// application with partial-failure semantics, a wall-clock budget, and
// compliance classification.
func (m *Manager) ExecuteRetentionPolicy(ctx context.Context, policyID string) (*domain.RetentionExecutionResult, error) {
	m.mu.RLock()
	policy, ok := m.policies[policyID]
	var snapshot *domain.RetentionPolicy
	if ok {
		snapshot = policy.Clone()
	}
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrPolicyNotFound, policyID)
	}
	if !snapshot.Enabled {
		return nil, fmt.Errorf("%w: %s", errors.ErrPolicyDisabled, policyID)
	}

	m.execMu.Lock()
	defer m.execMu.Unlock()

	result, execErr := m.run(ctx, snapshot)

	m.mu.Lock()
	if p, still := m.policies[policyID]; still {
		p.ExecutionCount++
		if execErr == nil && (result == nil || result.ErroredEntries == 0) {
			p.SuccessCount++
		} else {
			p.FailureCount++
		}
		now := m.clock.Now().UTC()
		p.LastExecuted = &now
	}
	m.mu.Unlock()

	if execErr != nil {
		return nil, execErr
	}

	m.history = append(m.history, *result)
	return result, nil
}

// run does the actual batch processing. Selection is re-evaluated fresh on
// every run; there is no cached membership.
func (m *Manager) run(ctx context.Context, policy *domain.RetentionPolicy) (*domain.RetentionExecutionResult, error) {
	started := m.clock.Now().UTC()
	deadline := started.Add(policy.Schedule.MaxExecutionTime)

	sizeBefore, err := m.ledger.StorageSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to measure storage size: %w", err)
	}

	matched, err := m.selectEntries(ctx, &policy.Selector)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}

	result := &domain.RetentionExecutionResult{
		ID:                uuid.New().String(),
		PolicyID:          policy.ID,
		StartedAt:         started,
		TotalEntries:      len(matched),
		StorageSizeBefore: sizeBefore,
	}

	batchSize := policy.Schedule.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	processed := 0
	budgetExceeded := false
	for start := 0; start < len(matched) && !budgetExceeded; start += batchSize {
		end := min(start+batchSize, len(matched))
		for _, entry := range matched[start:end] {
			if m.clock.Now().After(deadline) {
				budgetExceeded = true
				break
			}
			m.applyActions(ctx, policy, entry, result)
			processed++
		}
	}

	if budgetExceeded {
		warning := fmt.Sprintf("execution budget exceeded: processed %d of %d entries, remainder deferred to the next run", processed, len(matched))
		result.Warnings = append(result.Warnings, warning)
		m.logger.WarnContext(ctx, "retention run stopped early",
			slog.String("policy_id", policy.ID),
			slog.Int("processed", processed),
			slog.Int("total", len(matched)))
	}

	sizeAfter, err := m.ledger.StorageSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to measure storage size: %w", err)
	}
	result.StorageSizeAfter = sizeAfter

	if policy.Selector.Regulation != "" {
		status := domain.ComplianceCompliant
		switch {
		case result.ErroredEntries > 0:
			status = domain.ComplianceNonCompliant
		case len(result.Warnings) > 0:
			status = domain.ComplianceWarning
		}
		result.ComplianceStatuses = append(result.ComplianceStatuses, domain.ComplianceStatus{
			Regulation: policy.Selector.Regulation,
			Status:     status,
		})
	}

	result.CompletedAt = m.clock.Now().UTC()

	m.logger.InfoContext(ctx, "retention policy executed",
		slog.String("policy_id", policy.ID),
		slog.String("policy_name", policy.Name),
		slog.Int("matched", result.TotalEntries),
		slog.Int("errored", result.ErroredEntries),
		slog.Int64("reclaimed_bytes", result.StorageSizeBefore-result.StorageSizeAfter))

	return result, nil
}

// applyActions applies the policy's action list, in declared order, to one
// entry. A failed action is recorded and processing continues: one bad entry
// never aborts the batch. ErroredEntries counts entries, not failed actions,
// so it stays comparable to TotalEntries.
func (m *Manager) applyActions(ctx context.Context, policy *domain.RetentionPolicy, entry *domain.AuditEntry, result *domain.RetentionExecutionResult) {
	errored := false
	for _, action := range policy.Actions {
		outcome, err := m.applyAction(ctx, policy, entry, action)
		if err != nil {
			errored = true
			result.Errors = append(result.Errors, domain.EntryError{
				EntryID: entry.ID,
				Action:  action,
				Message: err.Error(),
			})
			continue
		}
		switch outcome {
		case outcomeArchived:
			result.ArchivedEntries++
		case outcomeDeleted:
			result.DeletedEntries++
		case outcomeCompressed:
			result.CompressedEntries++
		case outcomeEncrypted:
			result.EncryptedEntries++
		case outcomeExported:
			result.ExportedEntries++
		case outcomeHeld:
			result.HeldEntries++
		case outcomeSkipped:
			result.SkippedEntries++
		}
	}
	if errored {
		result.ErroredEntries++
	}
}

func sortPoliciesByPriority(policies []*domain.RetentionPolicy) {
	sort.SliceStable(policies, func(i, j int) bool {
		return policies[i].Priority > policies[j].Priority
	})
}
