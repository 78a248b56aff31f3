package retention

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/veritrail/veritrail/internal/domain"
	"github.com/veritrail/veritrail/internal/errors"
)

// CheckRetentionViolations scans every enabled compliance policy against
// every ledger entry and flags compliance-window conflicts. Violations are
// listed for manual resolution and never auto-corrected.
func (m *Manager) CheckRetentionViolations(ctx context.Context) ([]domain.RetentionViolation, error) {
	entries, err := m.ledger.Query(ctx, domain.EntryFilter{}, domain.QueryOptions{
		SortBy:          domain.SortByCreatedAt,
		ExcludeChanges:  true,
		ExcludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for violation check: %w", err)
	}

	now := m.clock.Now().UTC()
	var found []domain.RetentionViolation

	for _, p := range m.ListPolicies() {
		if !p.Enabled || p.Selector.Type != domain.SelectorCompliance {
			continue
		}
		sel := p.Selector
		for _, e := range entries {
			if sel.MinRetentionDays > 0 {
				minEnd := e.CreatedAt.AddDate(0, 0, sel.MinRetentionDays)
				removedAt := e.DeletedAt
				if removedAt == nil {
					removedAt = e.ArchivedAt
				}
				if removedAt != nil && removedAt.Before(minEnd) {
					found = append(found, domain.RetentionViolation{
						ID:         uuid.New().String(),
						PolicyID:   p.ID,
						Regulation: sel.Regulation,
						EntryID:    e.ID,
						Type:       domain.ViolationRetentionTooShort,
						Severity:   domain.SeverityCritical,
						Detail: fmt.Sprintf("entry removed %s before the %d-day minimum window of %s elapsed",
							removedAt.Format("2006-01-02"), sel.MinRetentionDays, sel.Regulation),
						DetectedAt: now,
					})
				}
			}
			if sel.MaxRetentionDays > 0 && !e.Deleted {
				maxEnd := e.CreatedAt.AddDate(0, 0, sel.MaxRetentionDays)
				if now.After(maxEnd) {
					found = append(found, domain.RetentionViolation{
						ID:         uuid.New().String(),
						PolicyID:   p.ID,
						Regulation: sel.Regulation,
						EntryID:    e.ID,
						Type:       domain.ViolationRetentionTooLong,
						Severity:   domain.SeverityHigh,
						Detail: fmt.Sprintf("entry still live %d days past the maximum window of %s",
							int(now.Sub(maxEnd).Hours()/24), sel.Regulation),
						DetectedAt: now,
					})
				}
			}
		}
	}

	m.violationMu.Lock()
	m.violations = append(m.violations, found...)
	m.violationMu.Unlock()

	return found, nil
}

// Violations returns all recorded violations, resolved ones included.
func (m *Manager) Violations() []domain.RetentionViolation {
	m.violationMu.Lock()
	defer m.violationMu.Unlock()
	return append([]domain.RetentionViolation(nil), m.violations...)
}

// ResolveRetentionViolation marks a violation as manually resolved.
func (m *Manager) ResolveRetentionViolation(id, resolvedBy, note string) error {
	m.violationMu.Lock()
	defer m.violationMu.Unlock()
	for i := range m.violations {
		if m.violations[i].ID != id {
			continue
		}
		now := m.clock.Now().UTC()
		m.violations[i].Resolved = true
		m.violations[i].ResolvedBy = resolvedBy
		m.violations[i].ResolvedAt = &now
		m.violations[i].Note = note
		return nil
	}
	return fmt.Errorf("%w: %s", errors.ErrViolationNotFound, id)
}
