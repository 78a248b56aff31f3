package domain

import (
	"time"
)

// TamperType classifies why an entry fails forensic analysis.
type TamperType string

const (
	TamperNone             TamperType = "none"
	TamperHashMismatch     TamperType = "hash_mismatch"
	TamperTimestampAnomaly TamperType = "timestamp_anomaly"
	TamperChainBroken      TamperType = "chain_broken"
)

// TamperSeverity grades a tamper finding.
type TamperSeverity string

const (
	SeverityLow      TamperSeverity = "low"
	SeverityHigh     TamperSeverity = "high"
	SeverityCritical TamperSeverity = "critical"
)

// IntegrityVerificationResult is the outcome of verifying one entry. An
// invalid result is data, not an error: verification of many entries must
// proceed past individual failures.
type IntegrityVerificationResult struct {
	EntryID    string    `json:"entry_id"`
	Valid      bool      `json:"valid"`
	Reason     string    `json:"reason,omitempty"`
	VerifiedAt time.Time `json:"verified_at"`
}

// IntegrityReport aggregates verification across the whole ledger.
type IntegrityReport struct {
	TotalEntries     int                           `json:"total_entries"`
	ValidEntries     int                           `json:"valid_entries"`
	InvalidEntries   int                           `json:"invalid_entries"`
	MissingHash      int                           `json:"missing_hash"`
	OverallIntegrity string                        `json:"overall_integrity"`
	Recommendations  []string                      `json:"recommendations,omitempty"`
	Failures         []IntegrityVerificationResult `json:"failures,omitempty"`
	VerifiedAt       time.Time                     `json:"verified_at"`
}

// TamperDetectionResult classifies a single entry's current integrity.
type TamperDetectionResult struct {
	EntryID           string         `json:"entry_id"`
	IsTampered        bool           `json:"is_tampered"`
	TamperType        TamperType     `json:"tamper_type"`
	Severity          TamperSeverity `json:"severity"`
	SuspiciousChanges []string       `json:"suspicious_changes,omitempty"`
	Recommendations   []string       `json:"recommendations,omitempty"`
	// Warnings lists checks that could not be performed, such as a chain
	// link with no ledger position to verify against.
	Warnings   []string  `json:"warnings,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// TamperAlert is one recorded tamper event, kept for later reporting.
type TamperAlert struct {
	ID         string         `json:"id"`
	EntryID    string         `json:"entry_id"`
	TamperType TamperType     `json:"tamper_type"`
	Severity   TamperSeverity `json:"severity"`
	DetectedAt time.Time      `json:"detected_at"`
}

// ChainVerificationResult reports a full-chain walk.
type ChainVerificationResult struct {
	Intact          bool      `json:"intact"`
	EntriesChecked  int       `json:"entries_checked"`
	FirstBreakIndex int       `json:"first_break_index"` // -1 when intact
	FirstBreakEntry string    `json:"first_break_entry,omitempty"`
	VerifiedAt      time.Time `json:"verified_at"`
}

// ComplianceState is the per-regulation outcome of a retention run.
type ComplianceState string

const (
	ComplianceCompliant    ComplianceState = "compliant"
	ComplianceWarning      ComplianceState = "warning"
	ComplianceNonCompliant ComplianceState = "non_compliant"
)

// ComplianceStatus pairs a regulation with its classified state.
type ComplianceStatus struct {
	Regulation string          `json:"regulation"`
	Status     ComplianceState `json:"status"`
}

// EntryError records one failed action on one entry during a retention run.
type EntryError struct {
	EntryID string          `json:"entry_id"`
	Action  RetentionAction `json:"action"`
	Message string          `json:"message"`
}

// RetentionExecutionResult is one run's outcome.
type RetentionExecutionResult struct {
	ID          string    `json:"id"`
	PolicyID    string    `json:"policy_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	TotalEntries      int `json:"total_entries"`
	ArchivedEntries   int `json:"archived_entries"`
	DeletedEntries    int `json:"deleted_entries"`
	CompressedEntries int `json:"compressed_entries"`
	EncryptedEntries  int `json:"encrypted_entries"`
	ExportedEntries   int `json:"exported_entries"`
	HeldEntries       int `json:"held_entries"`
	SkippedEntries    int `json:"skipped_entries"`
	ErroredEntries    int `json:"errored_entries"`

	Errors   []EntryError `json:"errors,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`

	StorageSizeBefore int64 `json:"storage_size_before"`
	StorageSizeAfter  int64 `json:"storage_size_after"`

	ComplianceStatuses []ComplianceStatus `json:"compliance_statuses,omitempty"`
}

// ViolationType classifies a retention violation.
type ViolationType string

const (
	ViolationRetentionTooShort ViolationType = "retention_too_short"
	ViolationRetentionTooLong  ViolationType = "retention_too_long"
)

// RetentionViolation flags an entry whose lifecycle conflicts with a
// regulation's compliance window. Violations are resolved manually, never
// auto-corrected.
type RetentionViolation struct {
	ID         string         `json:"id"`
	PolicyID   string         `json:"policy_id"`
	Regulation string         `json:"regulation"`
	EntryID    string         `json:"entry_id"`
	Type       ViolationType  `json:"type"`
	Severity   TamperSeverity `json:"severity"`
	Detail     string         `json:"detail"`
	DetectedAt time.Time      `json:"detected_at"`

	Resolved   bool       `json:"resolved"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Note       string     `json:"note,omitempty"`
}

// LedgerStatistics are aggregate counts recomputed on demand.
type LedgerStatistics struct {
	TotalEntries int              `json:"total_entries"`
	ByAction     map[Action]int   `json:"by_action"`
	ByUser       map[string]int   `json:"by_user"`
	ByPriority   map[Priority]int `json:"by_priority"`
	TopUsers     []CountedKey     `json:"top_users"`
	TopActions   []CountedKey     `json:"top_actions"`
}

// CountedKey is one row of a top-N aggregate.
type CountedKey struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}
