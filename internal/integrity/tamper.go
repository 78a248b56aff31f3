package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/google/uuid"

	"github.com/veritrail/veritrail/internal/domain"
)

// DetectTampering runs a forensic analysis of a candidate entry, heavier than
// plain verification: it classifies why the entry fails, diffs it against the
// stored record, and records an alert. Detection never mutates the ledger.
//
// When several anomalies co-occur the reported type follows a fixed
// precedence: hash mismatch, then chain break, then timestamp anomaly. A
// check that cannot run, such as the chain link of an entry the ledger does
// not hold, is reported on the result's Warnings rather than skipped.
func (e *Engine) DetectTampering(ctx context.Context, candidate *domain.AuditEntry) (*domain.TamperDetectionResult, error) {
	if candidate == nil {
		return nil, fmt.Errorf("candidate entry is nil")
	}

	now := e.clock.Now().UTC()
	result := &domain.TamperDetectionResult{
		EntryID:    candidate.ID,
		TamperType: domain.TamperNone,
		Severity:   domain.SeverityLow,
		DetectedAt: now,
	}
	if !e.cfg.EnableTamperDetection {
		return result, nil
	}

	hashBroken := false
	if candidate.IntegrityHash != "" {
		logical, err := DecodePayload(candidate, e.cfg.EncryptionKey)
		if err != nil {
			hashBroken = true
		} else if digest, err := ComputeDigest(logical, candidate.HashAlgorithm); err != nil || digest != candidate.IntegrityHash {
			hashBroken = true
		}
	}

	chainBroken := false
	if e.cfg.EnableChaining && candidate.ChainHash != "" {
		prev, err := e.previousChainOf(ctx, candidate.ID)
		if err != nil {
			// A candidate with no ledger position has no predecessor to
			// check against; say so instead of silently passing.
			result.Warnings = append(result.Warnings, fmt.Sprintf("chain unverifiable: %v", err))
		} else {
			expected, cerr := ComputeChainHash(candidate.IntegrityHash, prev, candidate.HashAlgorithm)
			chainBroken = cerr != nil || expected != candidate.ChainHash
		}
	}

	stampBroken := e.cfg.EnableTimestampVerification && candidate.CreatedAt.After(now)

	switch {
	case hashBroken:
		result.IsTampered = true
		result.TamperType = domain.TamperHashMismatch
		result.Severity = domain.SeverityCritical
		result.SuspiciousChanges = e.diffAgainstStored(ctx, candidate)
		result.Recommendations = append(result.Recommendations,
			"treat this entry's content as untrusted",
			"compare against the stored record and the surrounding chain")
	case chainBroken:
		result.IsTampered = true
		result.TamperType = domain.TamperChainBroken
		result.Severity = domain.SeverityHigh
		result.Recommendations = append(result.Recommendations,
			"verify the full chain to locate the first broken link")
	case stampBroken:
		result.IsTampered = true
		result.TamperType = domain.TamperTimestampAnomaly
		result.Severity = domain.SeverityHigh
		result.SuspiciousChanges = append(result.SuspiciousChanges, "created_at")
		result.Recommendations = append(result.Recommendations,
			"check for clock skew on the writing host")
	}

	if result.IsTampered {
		e.addAlert(domain.TamperAlert{
			ID:         uuid.New().String(),
			EntryID:    candidate.ID,
			TamperType: result.TamperType,
			Severity:   result.Severity,
			DetectedAt: now,
		})
		e.logger.WarnContext(ctx, "tamper detected",
			slog.String("entry_id", candidate.ID),
			slog.String("tamper_type", string(result.TamperType)),
			slog.String("severity", string(result.Severity)))
	}

	return result, nil
}

// previousChainOf returns the chain digest of the entry immediately before
// the given one, or the genesis value for the first entry.
func (e *Engine) previousChainOf(ctx context.Context, id string) (string, error) {
	entries, err := e.ledger.Query(ctx, domain.EntryFilter{}, domain.QueryOptions{
		SortBy:          domain.SortByCreatedAt,
		ExcludeChanges:  true,
		ExcludeMetadata: true,
	})
	if err != nil {
		return "", err
	}
	prev := GenesisChainValue
	for _, entry := range entries {
		if entry.ID == id {
			return prev, nil
		}
		if entry.ChainHash != "" {
			prev = entry.ChainHash
		}
	}
	return "", fmt.Errorf("entry %s not present in ledger", id)
}

// diffAgainstStored names the protected fields on which a candidate diverges
// from the stored record. Best effort: an unreadable stored record yields no
// field list.
func (e *Engine) diffAgainstStored(ctx context.Context, candidate *domain.AuditEntry) []string {
	stored, err := e.ledger.Get(ctx, candidate.ID)
	if err != nil {
		return nil
	}
	storedLogical, err := DecodePayload(stored, e.cfg.EncryptionKey)
	if err != nil {
		return nil
	}
	candLogical, err := DecodePayload(candidate, e.cfg.EncryptionKey)
	if err != nil {
		return nil
	}

	var fields []string
	if candLogical.UserID != storedLogical.UserID {
		fields = append(fields, "user_id")
	}
	if candLogical.UserRole != storedLogical.UserRole {
		fields = append(fields, "user_role")
	}
	if candLogical.UserEmail != storedLogical.UserEmail {
		fields = append(fields, "user_email")
	}
	if candLogical.Action != storedLogical.Action {
		fields = append(fields, "action")
	}
	if candLogical.SubjectID != storedLogical.SubjectID {
		fields = append(fields, "subject_id")
	}
	if candLogical.Reason != storedLogical.Reason {
		fields = append(fields, "reason")
	}
	if candLogical.Priority != storedLogical.Priority {
		fields = append(fields, "priority")
	}
	if !candLogical.CreatedAt.Equal(storedLogical.CreatedAt) {
		fields = append(fields, "created_at")
	}
	if !reflect.DeepEqual(candLogical.Changes, storedLogical.Changes) {
		fields = append(fields, "changes")
	}
	if !reflect.DeepEqual(candLogical.Metadata, storedLogical.Metadata) {
		fields = append(fields, "metadata")
	}
	return fields
}
