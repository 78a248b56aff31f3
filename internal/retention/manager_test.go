package retention_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritrail/veritrail/internal/domain"
	"github.com/veritrail/veritrail/internal/errors"
	"github.com/veritrail/veritrail/internal/integrity"
	"github.com/veritrail/veritrail/internal/ledger"
	"github.com/veritrail/veritrail/internal/retention"
	"github.com/veritrail/veritrail/pkg/clock"
)

var (
	testTime = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	testKey  = bytes.Repeat([]byte{0xCD}, 32)
)

func dailySchedule() domain.Schedule {
	return domain.Schedule{
		Frequency:        domain.FrequencyDaily,
		BatchSize:        100,
		MaxExecutionTime: time.Minute,
	}
}

func timePolicy(name string, days int, actions ...domain.RetentionAction) *domain.RetentionPolicy {
	return &domain.RetentionPolicy{
		Name:     name,
		Enabled:  true,
		Selector: domain.Selector{Type: domain.SelectorTime, RetentionDays: days},
		Actions:  actions,
		Schedule: dailySchedule(),
	}
}

func newTestManager(t *testing.T, opts ...retention.Option) (*retention.Manager, *ledger.Ledger, *clock.Fake) {
	t.Helper()
	l := ledger.New(ledger.NewMemoryStore())
	fake := clock.NewFake(testTime)
	opts = append([]retention.Option{retention.WithClock(fake)}, opts...)
	return retention.NewManager(l, opts...), l, fake
}

func appendEntryAt(t *testing.T, l *ledger.Ledger, id string, createdAt time.Time) {
	t.Helper()
	_, err := l.Append(context.Background(), &domain.AuditEntry{
		ID:        id,
		CreatedAt: createdAt,
		UserID:    "u1",
		Action:    domain.ActionProductUpdated,
		Priority:  domain.PriorityMedium,
	})
	require.NoError(t, err)
}

func TestManager_AddPolicy_Validation(t *testing.T) {
	m, _, _ := newTestManager(t)

	tests := []struct {
		name   string
		policy *domain.RetentionPolicy
	}{
		{"nil policy", nil},
		{"missing name", &domain.RetentionPolicy{
			Selector: domain.Selector{Type: domain.SelectorTime, RetentionDays: 30},
			Actions:  []domain.RetentionAction{domain.RetentionArchive},
			Schedule: dailySchedule(),
		}},
		{"no actions", &domain.RetentionPolicy{
			Name:     "p",
			Selector: domain.Selector{Type: domain.SelectorTime, RetentionDays: 30},
			Schedule: dailySchedule(),
		}},
		{"unknown action", &domain.RetentionPolicy{
			Name:     "p",
			Selector: domain.Selector{Type: domain.SelectorTime, RetentionDays: 30},
			Actions:  []domain.RetentionAction{"shred"},
			Schedule: dailySchedule(),
		}},
		{"missing schedule", &domain.RetentionPolicy{
			Name:     "p",
			Selector: domain.Selector{Type: domain.SelectorTime, RetentionDays: 30},
			Actions:  []domain.RetentionAction{domain.RetentionArchive},
		}},
		{"time selector without retention days", timePolicy("p", 0, domain.RetentionArchive)},
		{"custom selector without predicate", &domain.RetentionPolicy{
			Name:     "p",
			Selector: domain.Selector{Type: domain.SelectorCustom},
			Actions:  []domain.RetentionAction{domain.RetentionArchive},
			Schedule: dailySchedule(),
		}},
		{"compliance selector without regulation", &domain.RetentionPolicy{
			Name:     "p",
			Selector: domain.Selector{Type: domain.SelectorCompliance, MaxRetentionDays: 30},
			Actions:  []domain.RetentionAction{domain.RetentionArchive},
			Schedule: dailySchedule(),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.AddPolicy(tt.policy)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
		})
	}
}

func TestManager_PolicyLifecycle(t *testing.T) {
	m, _, _ := newTestManager(t)

	p := timePolicy("archive old", 30, domain.RetentionArchive)
	p.Priority = 1
	id, err := m.AddPolicy(p)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Duplicate explicit ids are rejected.
	dup := timePolicy("other", 30, domain.RetentionArchive)
	dup.ID = id
	_, err = m.AddPolicy(dup)
	assert.ErrorIs(t, err, errors.ErrDuplicatePolicy)

	got, err := m.GetPolicy(id)
	require.NoError(t, err)
	assert.Equal(t, "archive old", got.Name)
	assert.False(t, got.CreatedAt.IsZero())

	// The returned copy does not alias manager state.
	got.Name = "mutated"
	again, err := m.GetPolicy(id)
	require.NoError(t, err)
	assert.Equal(t, "archive old", again.Name)

	require.NoError(t, m.SetPolicyEnabled(id, false))
	got, err = m.GetPolicy(id)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	high := timePolicy("urgent purge", 30, domain.RetentionDelete)
	high.Priority = 10
	_, err = m.AddPolicy(high)
	require.NoError(t, err)

	policies := m.ListPolicies()
	require.Len(t, policies, 2)
	assert.Equal(t, "urgent purge", policies[0].Name)
	assert.Equal(t, "archive old", policies[1].Name)

	require.NoError(t, m.RemovePolicy(id))
	_, err = m.GetPolicy(id)
	assert.ErrorIs(t, err, errors.ErrPolicyNotFound)
	assert.ErrorIs(t, m.RemovePolicy(id), errors.ErrPolicyNotFound)
}

func TestManager_Execute_UnknownOrDisabledPolicy(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.ExecuteRetentionPolicy(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrPolicyNotFound)

	p := timePolicy("disabled", 30, domain.RetentionArchive)
	p.Enabled = false
	id, err := m.AddPolicy(p)
	require.NoError(t, err)

	_, err = m.ExecuteRetentionPolicy(ctx, id)
	assert.ErrorIs(t, err, errors.ErrPolicyDisabled)
}

func TestManager_TimeSelector_BoundaryInclusive(t *testing.T) {
	m, l, _ := newTestManager(t)
	ctx := context.Background()

	// Exactly 30 days old: eligible. One second younger: not yet.
	appendEntryAt(t, l, "at-boundary", testTime.AddDate(0, 0, -30))
	appendEntryAt(t, l, "just-inside", testTime.AddDate(0, 0, -30).Add(time.Second))

	id, err := m.AddPolicy(timePolicy("30 days", 30, domain.RetentionArchive))
	require.NoError(t, err)

	result, err := m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalEntries)
	assert.Equal(t, 1, result.ArchivedEntries)

	boundary, err := l.Get(ctx, "at-boundary")
	require.NoError(t, err)
	assert.True(t, boundary.Archived)

	inside, err := l.Get(ctx, "just-inside")
	require.NoError(t, err)
	assert.False(t, inside.Archived)
}

func TestManager_Execute_ArchivesOnlyEligibleEntries(t *testing.T) {
	m, l, _ := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		appendEntryAt(t, l, fmt.Sprintf("old-%d", i), testTime.AddDate(0, 0, -60).Add(time.Duration(i)*time.Minute))
	}
	appendEntryAt(t, l, "recent-0", testTime.AddDate(0, 0, -5))
	appendEntryAt(t, l, "recent-1", testTime.AddDate(0, 0, -1))

	id, err := m.AddPolicy(timePolicy("archive after 30d", 30, domain.RetentionArchive))
	require.NoError(t, err)

	result, err := m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalEntries)
	assert.Equal(t, 3, result.ArchivedEntries)
	assert.Zero(t, result.ErroredEntries)
	assert.Empty(t, result.Errors)

	for i := 0; i < 3; i++ {
		e, err := l.Get(ctx, fmt.Sprintf("old-%d", i))
		require.NoError(t, err)
		assert.True(t, e.Archived)
		require.NotNil(t, e.ArchivedAt)
	}
	for i := 0; i < 2; i++ {
		e, err := l.Get(ctx, fmt.Sprintf("recent-%d", i))
		require.NoError(t, err)
		assert.False(t, e.Archived)
		assert.Nil(t, e.ArchivedAt)
	}

	// Policy counters reflect the run.
	p, err := m.GetPolicy(id)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ExecutionCount)
	assert.Equal(t, 1, p.SuccessCount)
	assert.Zero(t, p.FailureCount)
	require.NotNil(t, p.LastExecuted)

	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, result.ID, history[0].ID)
}

func TestManager_LegalHoldBlocksArchiveAndDelete(t *testing.T) {
	m, l, _ := newTestManager(t)
	ctx := context.Background()

	appendEntryAt(t, l, "held", testTime.AddDate(0, 0, -60))
	appendEntryAt(t, l, "free", testTime.AddDate(0, 0, -60))

	holdID, err := m.AddPolicy(&domain.RetentionPolicy{
		Name:    "hold one entry",
		Enabled: true,
		Selector: domain.Selector{
			Type:      domain.SelectorCustom,
			Predicate: func(e *domain.AuditEntry) bool { return e.ID == "held" },
		},
		Actions:  []domain.RetentionAction{domain.RetentionHold},
		Schedule: dailySchedule(),
	})
	require.NoError(t, err)

	holdResult, err := m.ExecuteRetentionPolicy(ctx, holdID)
	require.NoError(t, err)
	assert.Equal(t, 1, holdResult.HeldEntries)

	purgeID, err := m.AddPolicy(timePolicy("purge", 30, domain.RetentionArchive, domain.RetentionDelete))
	require.NoError(t, err)

	result, err := m.ExecuteRetentionPolicy(ctx, purgeID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalEntries)
	assert.Equal(t, 1, result.ArchivedEntries)
	assert.Equal(t, 1, result.DeletedEntries)
	// The held entry skipped both actions.
	assert.Equal(t, 2, result.SkippedEntries)
	assert.Zero(t, result.ErroredEntries)

	held, err := l.Get(ctx, "held")
	require.NoError(t, err)
	assert.True(t, held.Held)
	assert.False(t, held.Archived)
	assert.False(t, held.Deleted)

	free, err := l.Get(ctx, "free")
	require.NoError(t, err)
	assert.True(t, free.Archived)
	assert.True(t, free.Deleted)
}

func TestManager_DeletedEntriesLeaveSelection(t *testing.T) {
	m, l, _ := newTestManager(t)
	ctx := context.Background()

	appendEntryAt(t, l, "e1", testTime.AddDate(0, 0, -60))

	id, err := m.AddPolicy(timePolicy("purge", 30, domain.RetentionDelete))
	require.NoError(t, err)

	result, err := m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedEntries)

	// Selection is re-evaluated fresh on every run; deleted entries are gone.
	result, err = m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, result.TotalEntries)
}

func TestManager_CompressAndEncryptActions(t *testing.T) {
	m, l, _ := newTestManager(t, retention.WithEncryptionKey(testKey))
	ctx := context.Background()

	_, err := l.Append(ctx, &domain.AuditEntry{
		ID:        "e1",
		CreatedAt: testTime.AddDate(0, 0, -60),
		UserID:    "u1",
		Action:    domain.ActionProductUpdated,
		Priority:  domain.PriorityMedium,
		Reason:    "bulk edit",
		Changes:   []domain.FieldChange{{Field: "price", OldValue: 10.0, NewValue: 12.5}},
	})
	require.NoError(t, err)

	id, err := m.AddPolicy(timePolicy("shrink", 30, domain.RetentionCompress, domain.RetentionEncrypt))
	require.NoError(t, err)

	result, err := m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CompressedEntries)
	assert.Equal(t, 1, result.EncryptedEntries)
	assert.Zero(t, result.ErroredEntries)

	stored, err := l.Get(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, stored.Compressed)
	assert.True(t, stored.Encrypted)
	assert.Nil(t, stored.Changes)

	// The logical content survives the transform intact.
	logical, err := integrity.DecodePayload(stored, testKey)
	require.NoError(t, err)
	assert.Equal(t, "bulk edit", logical.Reason)
	require.Len(t, logical.Changes, 1)
	assert.Equal(t, "price", logical.Changes[0].Field)

	// Re-running skips the already-transformed entry.
	result, err = m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SkippedEntries)
}

func TestManager_EncryptWithoutKeyFails(t *testing.T) {
	m, l, _ := newTestManager(t)
	ctx := context.Background()

	appendEntryAt(t, l, "e1", testTime.AddDate(0, 0, -60))

	id, err := m.AddPolicy(timePolicy("encrypt", 30, domain.RetentionEncrypt))
	require.NoError(t, err)

	result, err := m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ErroredEntries)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "e1", result.Errors[0].EntryID)
	assert.Equal(t, domain.RetentionEncrypt, result.Errors[0].Action)

	// A failed run counts against the policy.
	p, err := m.GetPolicy(id)
	require.NoError(t, err)
	assert.Equal(t, 1, p.FailureCount)
}

type recordingExporter struct {
	exported []string
	fail     bool
}

func (r *recordingExporter) Export(_ context.Context, entry *domain.AuditEntry) error {
	if r.fail {
		return fmt.Errorf("destination unavailable")
	}
	r.exported = append(r.exported, entry.ID)
	return nil
}

type recordingNotifier struct {
	notifications []retention.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n retention.Notification) error {
	r.notifications = append(r.notifications, n)
	return nil
}

func TestManager_ExportAction(t *testing.T) {
	exporter := &recordingExporter{}
	m, l, _ := newTestManager(t, retention.WithExporter(exporter))
	ctx := context.Background()

	appendEntryAt(t, l, "e1", testTime.AddDate(0, 0, -60))

	id, err := m.AddPolicy(timePolicy("export", 30, domain.RetentionExport))
	require.NoError(t, err)

	result, err := m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExportedEntries)
	assert.Equal(t, []string{"e1"}, exporter.exported)

	stored, err := l.Get(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, stored.Exported)
	require.NotNil(t, stored.ExportedAt)
}

func TestManager_ExportFailure_PartialFailureSemantics(t *testing.T) {
	exporter := &recordingExporter{fail: true}
	m, l, _ := newTestManager(t, retention.WithExporter(exporter))
	ctx := context.Background()

	appendEntryAt(t, l, "e1", testTime.AddDate(0, 0, -60))
	appendEntryAt(t, l, "e2", testTime.AddDate(0, 0, -60).Add(time.Minute))

	id, err := m.AddPolicy(timePolicy("export then archive", 30, domain.RetentionExport, domain.RetentionArchive))
	require.NoError(t, err)

	result, err := m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)

	// Exports fail, but the archive action still runs for every entry and the
	// batch is never aborted.
	assert.Equal(t, 2, result.ErroredEntries)
	assert.Equal(t, 2, result.ArchivedEntries)
	assert.Len(t, result.Errors, 2)
	assert.Zero(t, result.ExportedEntries)

	for _, entryID := range []string{"e1", "e2"} {
		e, err := l.Get(ctx, entryID)
		require.NoError(t, err)
		assert.True(t, e.Archived)
		assert.False(t, e.Exported)
	}
}

func TestManager_ErroredEntries_CountsEntriesNotActions(t *testing.T) {
	exporter := &recordingExporter{fail: true}
	m, l, _ := newTestManager(t, retention.WithExporter(exporter))
	ctx := context.Background()

	appendEntryAt(t, l, "e1", testTime.AddDate(0, 0, -60))

	// Both actions fail for the same entry: export against a dead
	// destination, encrypt without a configured key. The entry counts as
	// errored once even though two errors are recorded.
	id, err := m.AddPolicy(timePolicy("export and encrypt", 30, domain.RetentionExport, domain.RetentionEncrypt))
	require.NoError(t, err)

	result, err := m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalEntries)
	assert.Equal(t, 1, result.ErroredEntries)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, domain.RetentionExport, result.Errors[0].Action)
	assert.Equal(t, domain.RetentionEncrypt, result.Errors[1].Action)
}

func TestManager_NotifyAction(t *testing.T) {
	notifier := &recordingNotifier{}
	m, l, _ := newTestManager(t, retention.WithNotifier(notifier))
	ctx := context.Background()

	appendEntryAt(t, l, "e1", testTime.AddDate(0, 0, -60))

	p := timePolicy("notify only", 30, domain.RetentionNotify)
	p.Selector.Regulation = "gdpr"
	id, err := m.AddPolicy(p)
	require.NoError(t, err)

	_, err = m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)

	require.Len(t, notifier.notifications, 1)
	assert.Equal(t, id, notifier.notifications[0].PolicyID)
	assert.Equal(t, "e1", notifier.notifications[0].EntryID)
	assert.Equal(t, "gdpr", notifier.notifications[0].Regulation)
}

func TestManager_SizeSelector_ShedsOldestExcess(t *testing.T) {
	m, l, _ := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		appendEntryAt(t, l, fmt.Sprintf("e%d", i), testTime.Add(time.Duration(i)*time.Minute))
	}

	id, err := m.AddPolicy(&domain.RetentionPolicy{
		Name:     "cap at 3",
		Enabled:  true,
		Selector: domain.Selector{Type: domain.SelectorSize, MaxEntries: 3},
		Actions:  []domain.RetentionAction{domain.RetentionArchive},
		Schedule: dailySchedule(),
	})
	require.NoError(t, err)

	result, err := m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalEntries)
	assert.Equal(t, 2, result.ArchivedEntries)

	// The two oldest entries were shed.
	for i, wantArchived := range []bool{true, true, false, false, false} {
		e, err := l.Get(ctx, fmt.Sprintf("e%d", i))
		require.NoError(t, err)
		assert.Equal(t, wantArchived, e.Archived, "entry e%d", i)
	}
}

func TestManager_EventSelector_ActionsAndFieldConditions(t *testing.T) {
	m, l, _ := newTestManager(t)
	ctx := context.Background()

	_, err := l.Append(ctx, &domain.AuditEntry{
		ID:        "match",
		CreatedAt: testTime.Add(-time.Hour),
		UserID:    "u1",
		Action:    domain.ActionStateChanged,
		Priority:  domain.PriorityHigh,
		Changes:   []domain.FieldChange{{Field: "workflow_state", OldValue: "draft", NewValue: "retired"}},
	})
	require.NoError(t, err)
	_, err = l.Append(ctx, &domain.AuditEntry{
		ID:        "wrong-value",
		CreatedAt: testTime.Add(-time.Hour),
		UserID:    "u1",
		Action:    domain.ActionStateChanged,
		Priority:  domain.PriorityHigh,
		Changes:   []domain.FieldChange{{Field: "workflow_state", OldValue: "draft", NewValue: "live"}},
	})
	require.NoError(t, err)
	appendEntryAt(t, l, "wrong-action", testTime.Add(-time.Hour))

	id, err := m.AddPolicy(&domain.RetentionPolicy{
		Name:    "archive retired state changes",
		Enabled: true,
		Selector: domain.Selector{
			Type:            domain.SelectorEvent,
			Actions:         []domain.Action{domain.ActionStateChanged},
			FieldConditions: map[string]string{"workflow_state": "retired"},
		},
		Actions:  []domain.RetentionAction{domain.RetentionArchive},
		Schedule: dailySchedule(),
	})
	require.NoError(t, err)

	result, err := m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalEntries)

	e, err := l.Get(ctx, "match")
	require.NoError(t, err)
	assert.True(t, e.Archived)
}

func TestManager_ExecutionBudget_EarlyStopAndResume(t *testing.T) {
	m, l, fake := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		appendEntryAt(t, l, fmt.Sprintf("e%d", i), testTime.AddDate(0, 0, -60).Add(time.Duration(i)*time.Minute))
	}

	p := timePolicy("tight budget", 30, domain.RetentionArchive)
	p.Schedule.MaxExecutionTime = 5 * time.Minute
	id, err := m.AddPolicy(p)
	require.NoError(t, err)

	// Every clock read advances a minute, so the budget runs out mid-batch.
	fake.Step = time.Minute
	result, err := m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)

	assert.Less(t, result.ArchivedEntries, 5)
	assert.Positive(t, result.ArchivedEntries)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t,
		fmt.Sprintf("execution budget exceeded: processed %d of 5 entries, remainder deferred to the next run", result.ArchivedEntries),
		result.Warnings[0])

	// The next run picks up the remainder.
	fake.Step = 0
	fake.Set(testTime)
	result, err = m.ExecuteRetentionPolicy(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 5, result.TotalEntries)
	assert.Equal(t, 5, result.ArchivedEntries+result.SkippedEntries)

	for i := 0; i < 5; i++ {
		e, err := l.Get(ctx, fmt.Sprintf("e%d", i))
		require.NoError(t, err)
		assert.True(t, e.Archived, "entry e%d", i)
	}
}

func TestManager_ComplianceClassification(t *testing.T) {
	t.Run("compliant", func(t *testing.T) {
		m, l, _ := newTestManager(t)
		appendEntryAt(t, l, "e1", testTime.AddDate(0, 0, -60))

		p := timePolicy("gdpr archive", 30, domain.RetentionArchive)
		p.Selector.Regulation = "gdpr"
		id, err := m.AddPolicy(p)
		require.NoError(t, err)

		result, err := m.ExecuteRetentionPolicy(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, result.ComplianceStatuses, 1)
		assert.Equal(t, "gdpr", result.ComplianceStatuses[0].Regulation)
		assert.Equal(t, domain.ComplianceCompliant, result.ComplianceStatuses[0].Status)
	})

	t.Run("non compliant on errors", func(t *testing.T) {
		m, l, _ := newTestManager(t)
		appendEntryAt(t, l, "e1", testTime.AddDate(0, 0, -60))

		// Export without an exporter fails every entry.
		p := timePolicy("gdpr export", 30, domain.RetentionExport)
		p.Selector.Regulation = "gdpr"
		id, err := m.AddPolicy(p)
		require.NoError(t, err)

		result, err := m.ExecuteRetentionPolicy(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, result.ComplianceStatuses, 1)
		assert.Equal(t, domain.ComplianceNonCompliant, result.ComplianceStatuses[0].Status)
	})

	t.Run("warning on budget overrun", func(t *testing.T) {
		m, l, fake := newTestManager(t)
		for i := 0; i < 5; i++ {
			appendEntryAt(t, l, fmt.Sprintf("e%d", i), testTime.AddDate(0, 0, -60).Add(time.Duration(i)*time.Minute))
		}

		p := timePolicy("gdpr slow", 30, domain.RetentionArchive)
		p.Selector.Regulation = "gdpr"
		p.Schedule.MaxExecutionTime = 5 * time.Minute
		id, err := m.AddPolicy(p)
		require.NoError(t, err)

		fake.Step = time.Minute
		result, err := m.ExecuteRetentionPolicy(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, result.ComplianceStatuses, 1)
		assert.Equal(t, domain.ComplianceWarning, result.ComplianceStatuses[0].Status)
	})
}
