package retention

import (
	"context"
	"fmt"

	"github.com/veritrail/veritrail/internal/domain"
	"github.com/veritrail/veritrail/internal/integrity"
)

type actionOutcome int

const (
	outcomeNone actionOutcome = iota
	outcomeArchived
	outcomeDeleted
	outcomeCompressed
	outcomeEncrypted
	outcomeExported
	outcomeHeld
	outcomeSkipped
)

// applyAction applies one lifecycle action to one entry. It never touches
// protected content: lifecycle flags go through UpdateLifecycle, and storage
// transforms keep the logical content byte-identical under the digest.
func (m *Manager) applyAction(ctx context.Context, policy *domain.RetentionPolicy, entry *domain.AuditEntry, action domain.RetentionAction) (actionOutcome, error) {
	now := m.clock.Now().UTC()
	boolPtr := func(b bool) *bool { return &b }

	switch action {
	case domain.RetentionArchive:
		// Legal hold blocks archival.
		if entry.Held {
			return outcomeSkipped, nil
		}
		if entry.Archived {
			return outcomeSkipped, nil
		}
		err := m.ledger.UpdateLifecycle(ctx, entry.ID, domain.LifecycleUpdate{
			Archived:   boolPtr(true),
			ArchivedAt: &now,
		})
		if err != nil {
			return outcomeNone, err
		}
		entry.Archived = true
		entry.ArchivedAt = &now
		return outcomeArchived, nil

	case domain.RetentionDelete:
		// Legal hold blocks deletion regardless of otherwise-applicable rules.
		if entry.Held {
			return outcomeSkipped, nil
		}
		if entry.Deleted {
			return outcomeSkipped, nil
		}
		err := m.ledger.UpdateLifecycle(ctx, entry.ID, domain.LifecycleUpdate{
			Deleted:   boolPtr(true),
			DeletedAt: &now,
		})
		if err != nil {
			return outcomeNone, err
		}
		entry.Deleted = true
		entry.DeletedAt = &now
		return outcomeDeleted, nil

	case domain.RetentionCompress:
		if entry.Compressed {
			return outcomeSkipped, nil
		}
		return m.transform(ctx, entry, true, entry.Encrypted, outcomeCompressed)

	case domain.RetentionEncrypt:
		if entry.Encrypted {
			return outcomeSkipped, nil
		}
		if len(m.encryptionKey) == 0 {
			return outcomeNone, fmt.Errorf("encrypt action requires an encryption key")
		}
		return m.transform(ctx, entry, entry.Compressed, true, outcomeEncrypted)

	case domain.RetentionExport:
		if m.exporter == nil {
			return outcomeNone, fmt.Errorf("export action requires an exporter")
		}
		if err := m.exporter.Export(ctx, entry); err != nil {
			return outcomeNone, fmt.Errorf("export failed: %w", err)
		}
		err := m.ledger.UpdateLifecycle(ctx, entry.ID, domain.LifecycleUpdate{
			Exported:   boolPtr(true),
			ExportedAt: &now,
		})
		if err != nil {
			return outcomeNone, err
		}
		entry.Exported = true
		entry.ExportedAt = &now
		return outcomeExported, nil

	case domain.RetentionHold:
		if entry.Held {
			return outcomeSkipped, nil
		}
		err := m.ledger.UpdateLifecycle(ctx, entry.ID, domain.LifecycleUpdate{
			Held:   boolPtr(true),
			HeldAt: &now,
		})
		if err != nil {
			return outcomeNone, err
		}
		entry.Held = true
		entry.HeldAt = &now
		return outcomeHeld, nil

	case domain.RetentionNotify:
		if m.notifier == nil {
			return outcomeNone, fmt.Errorf("notify action requires a notifier")
		}
		err := m.notifier.Notify(ctx, Notification{
			PolicyID:   policy.ID,
			PolicyName: policy.Name,
			Regulation: policy.Selector.Regulation,
			EntryID:    entry.ID,
			Message:    fmt.Sprintf("retention policy %q matched entry %s", policy.Name, entry.ID),
		})
		if err != nil {
			return outcomeNone, fmt.Errorf("notify failed: %w", err)
		}
		return outcomeNone, nil

	default:
		return outcomeNone, fmt.Errorf("unknown retention action %q", action)
	}
}

// transform re-encodes an entry's stored payload with the requested
// compression/encryption and swaps the stored representation. The logical
// content under the integrity digest is unchanged.
func (m *Manager) transform(ctx context.Context, entry *domain.AuditEntry, compress, encrypt bool, outcome actionOutcome) (actionOutcome, error) {
	logical, err := integrity.DecodePayload(entry, m.encryptionKey)
	if err != nil {
		return outcomeNone, fmt.Errorf("cannot decode current payload: %w", err)
	}
	if err := integrity.EncodePayload(logical, m.encryptionKey, compress, encrypt); err != nil {
		return outcomeNone, err
	}
	if err := m.ledger.Replace(ctx, logical); err != nil {
		return outcomeNone, err
	}
	*entry = *logical
	return outcome, nil
}
