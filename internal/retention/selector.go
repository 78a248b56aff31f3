package retention

import (
	"context"
	"fmt"

	"github.com/veritrail/veritrail/internal/domain"
)

// selectEntries evaluates a policy selector against the ledger and returns
// the matching entries in creation order. Held and already-deleted entries
// are never candidates for further lifecycle work except hold release, so
// deleted entries are filtered here once.
func (m *Manager) selectEntries(ctx context.Context, sel *domain.Selector) ([]*domain.AuditEntry, error) {
	notDeleted := false
	entries, err := m.ledger.Query(ctx, domain.EntryFilter{Deleted: &notDeleted}, domain.QueryOptions{
		SortBy: domain.SortByCreatedAt,
	})
	if err != nil {
		return nil, err
	}

	now := m.clock.Now().UTC()

	switch sel.Type {
	case domain.SelectorTime:
		var out []*domain.AuditEntry
		for _, e := range entries {
			// An entry exactly at the boundary is included.
			if !e.CreatedAt.AddDate(0, 0, sel.RetentionDays).After(now) {
				out = append(out, e)
			}
		}
		return out, nil

	case domain.SelectorEvent:
		actionSet := make(map[domain.Action]bool, len(sel.Actions))
		for _, a := range sel.Actions {
			actionSet[a] = true
		}
		var out []*domain.AuditEntry
		for _, e := range entries {
			if len(actionSet) > 0 && !actionSet[e.Action] {
				continue
			}
			if !matchesFieldConditions(e, sel.FieldConditions) {
				continue
			}
			out = append(out, e)
		}
		return out, nil

	case domain.SelectorSize:
		return m.selectBySize(ctx, sel, entries)

	case domain.SelectorCompliance:
		var out []*domain.AuditEntry
		for _, e := range entries {
			if sel.MaxRetentionDays > 0 && !e.CreatedAt.AddDate(0, 0, sel.MaxRetentionDays).After(now) {
				out = append(out, e)
				continue
			}
			if sel.RequireEncryption && !e.Encrypted {
				out = append(out, e)
			}
		}
		return out, nil

	case domain.SelectorCustom:
		var out []*domain.AuditEntry
		for _, e := range entries {
			if sel.Predicate(e) {
				out = append(out, e)
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown selector type %q", sel.Type)
	}
}

// selectBySize picks the oldest entries beyond the configured cap. Caps
// compose: the tightest one wins.
func (m *Manager) selectBySize(ctx context.Context, sel *domain.Selector, entries []*domain.AuditEntry) ([]*domain.AuditEntry, error) {
	keep := len(entries)

	if sel.MaxEntries > 0 && sel.MaxEntries < keep {
		keep = sel.MaxEntries
	}
	if sel.MaxPercent > 0 {
		byPercent := int(float64(len(entries)) * sel.MaxPercent / 100.0)
		if byPercent < keep {
			keep = byPercent
		}
	}
	if sel.MaxBytes > 0 {
		size, err := m.ledger.StorageSize(ctx)
		if err != nil {
			return nil, err
		}
		if size > sel.MaxBytes && len(entries) > 0 {
			avg := size / int64(len(entries))
			if avg > 0 {
				byBytes := int(sel.MaxBytes / avg)
				if byBytes < keep {
					keep = byBytes
				}
			}
		}
	}

	excess := len(entries) - keep
	if excess <= 0 {
		return nil, nil
	}
	// Entries arrive in creation order; the oldest are shed first.
	return entries[:excess], nil
}

func matchesFieldConditions(e *domain.AuditEntry, conditions map[string]string) bool {
	if len(conditions) == 0 {
		return true
	}
	for field, want := range conditions {
		found := false
		for _, ch := range e.Changes {
			if ch.Field == field && fmt.Sprint(ch.NewValue) == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
