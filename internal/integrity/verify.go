package integrity

import (
	"context"
	"fmt"

	"github.com/veritrail/veritrail/internal/domain"
)

const (
	reasonNoHash        = "no integrity hash present"
	reasonHashMismatch  = "integrity hash mismatch - entry may have been tampered with"
	reasonFutureStamp   = "entry timestamp is in the future"
	reasonPayloadBroken = "stored payload cannot be decoded"
)

// VerifyEntryIntegrity recomputes one entry's digest from its current stored
// content and compares it against the stored digest. Findings are result
// values, not errors; only a missing entry fails.
func (e *Engine) VerifyEntryIntegrity(ctx context.Context, id string) (*domain.IntegrityVerificationResult, error) {
	entry, err := e.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result := e.verifyEntry(entry)
	return &result, nil
}

func (e *Engine) verifyEntry(entry *domain.AuditEntry) domain.IntegrityVerificationResult {
	now := e.clock.Now().UTC()
	result := domain.IntegrityVerificationResult{
		EntryID:    entry.ID,
		Valid:      true,
		VerifiedAt: now,
	}

	if entry.IntegrityHash == "" {
		result.Valid = false
		result.Reason = reasonNoHash
		return result
	}

	logical, err := DecodePayload(entry, e.cfg.EncryptionKey)
	if err != nil {
		result.Valid = false
		result.Reason = reasonPayloadBroken
		return result
	}

	digest, err := ComputeDigest(logical, entry.HashAlgorithm)
	if err != nil || digest != entry.IntegrityHash {
		result.Valid = false
		result.Reason = reasonHashMismatch
	}

	// The timestamp check is independent of the hash outcome.
	if e.cfg.EnableTimestampVerification && entry.CreatedAt.After(now) {
		result.Valid = false
		if result.Reason == "" {
			result.Reason = reasonFutureStamp
		}
	}

	return result
}

// VerifyAllEntriesIntegrity verifies every ledger entry in a single pass and
// returns aggregate counts, a qualitative summary, and remediation
// recommendations.
func (e *Engine) VerifyAllEntriesIntegrity(ctx context.Context) (*domain.IntegrityReport, error) {
	entries, err := e.ledger.Query(ctx, domain.EntryFilter{}, domain.QueryOptions{SortBy: domain.SortByCreatedAt})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for verification: %w", err)
	}

	report := &domain.IntegrityReport{
		TotalEntries: len(entries),
		VerifiedAt:   e.clock.Now().UTC(),
	}
	for _, entry := range entries {
		r := e.verifyEntry(entry)
		switch {
		case r.Valid:
			report.ValidEntries++
		case r.Reason == reasonNoHash:
			report.MissingHash++
			report.InvalidEntries++
			report.Failures = append(report.Failures, r)
		default:
			report.InvalidEntries++
			report.Failures = append(report.Failures, r)
		}
	}

	switch {
	case report.InvalidEntries == 0:
		report.OverallIntegrity = "intact"
	case report.InvalidEntries*20 <= report.TotalEntries:
		report.OverallIntegrity = "degraded"
		report.Recommendations = append(report.Recommendations,
			"investigate the failed entries and restore them from a trusted backup")
	default:
		report.OverallIntegrity = "compromised"
		report.Recommendations = append(report.Recommendations,
			"enable read-only mode and begin a forensic review",
			"restore the ledger from the last verified backup")
	}
	if report.MissingHash > 0 {
		report.Recommendations = append(report.Recommendations,
			"enable integrity hashing so new entries are protected")
	}

	return report, nil
}

// VerifyChain walks the whole hash chain and reports the first break. Every
// entry after a break also fails linkage, so the first index localizes the
// tamper point.
func (e *Engine) VerifyChain(ctx context.Context) (*domain.ChainVerificationResult, error) {
	entries, err := e.ledger.Query(ctx, domain.EntryFilter{}, domain.QueryOptions{SortBy: domain.SortByCreatedAt})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for chain verification: %w", err)
	}

	result := &domain.ChainVerificationResult{
		Intact:          true,
		EntriesChecked:  len(entries),
		FirstBreakIndex: -1,
		VerifiedAt:      e.clock.Now().UTC(),
	}

	prev := GenesisChainValue
	for i, entry := range entries {
		if entry.ChainHash == "" {
			continue
		}
		expected, err := ComputeChainHash(entry.IntegrityHash, prev, entry.HashAlgorithm)
		if err != nil || expected != entry.ChainHash {
			result.Intact = false
			result.FirstBreakIndex = i
			result.FirstBreakEntry = entry.ID
			break
		}
		prev = entry.ChainHash
	}

	return result, nil
}
