package domain

import (
	"time"
)

// Role identifies the actor's role at the time the audited action happened.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEditor   Role = "editor"
	RoleReviewer Role = "reviewer"
	RoleViewer   Role = "viewer"
	RoleSystem   Role = "system"
)

// Action is the closed set of privileged operations the trail records.
type Action string

const (
	ActionProductCreated     Action = "product_created"
	ActionProductUpdated     Action = "product_updated"
	ActionProductDeleted     Action = "product_deleted"
	ActionStateChanged       Action = "state_changed"
	ActionReviewerAssigned   Action = "reviewer_assigned"
	ActionReviewerUnassigned Action = "reviewer_unassigned"
	ActionBulkOperation      Action = "bulk_operation"
	ActionPermissionGranted  Action = "permission_granted"
	ActionPermissionRevoked  Action = "permission_revoked"
	ActionRoleChanged        Action = "role_changed"
	ActionConfigChanged      Action = "config_changed"
	ActionDataExported       Action = "data_exported"
	ActionDataImported       Action = "data_imported"
)

// Priority classifies how sensitive an entry is for reporting and retention.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorityRank = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

// Rank returns a numeric ordering for priorities, higher means more severe.
func (p Priority) Rank() int {
	return priorityRank[p]
}

// FieldChange records a single field-level diff inside an entry's change set.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// AuditEntry is the atomic unit of the trail. Once sealed by the integrity
// engine, only the lifecycle block (archived/deleted/held/exported and the
// storage-transform flags) may change; every other field is protected by the
// integrity hash.
type AuditEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID    string `json:"user_id"`
	UserRole  Role   `json:"user_role"`
	UserEmail string `json:"user_email"`

	Action    Action        `json:"action"`
	SubjectID string        `json:"subject_id,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Changes   []FieldChange `json:"changes,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`

	Priority Priority `json:"priority"`

	IntegrityHash string `json:"integrity_hash,omitempty"`
	ChainHash     string `json:"chain_hash,omitempty"`
	HashAlgorithm string `json:"hash_algorithm,omitempty"`
	Sealed        bool   `json:"sealed"`

	// Payload holds the storage-transformed (compressed and/or encrypted)
	// serialization of changes/metadata/reason when a transform has been
	// applied. The integrity hash is always computed over the logical
	// pre-transform content.
	Payload    []byte `json:"payload,omitempty"`
	Compressed bool   `json:"compressed"`
	Encrypted  bool   `json:"encrypted"`

	// Lifecycle block, owned by the retention manager.
	Archived   bool       `json:"archived"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	Deleted    bool       `json:"deleted"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	Held       bool       `json:"held"`
	HeldAt     *time.Time `json:"held_at,omitempty"`
	Exported   bool       `json:"exported"`
	ExportedAt *time.Time `json:"exported_at,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// Clone returns a deep copy so stored entries never alias caller memory.
func (e *AuditEntry) Clone() *AuditEntry {
	c := *e
	if e.Changes != nil {
		c.Changes = make([]FieldChange, len(e.Changes))
		copy(c.Changes, e.Changes)
	}
	if e.Metadata != nil {
		c.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	if e.Payload != nil {
		c.Payload = append([]byte(nil), e.Payload...)
	}
	copyTime := func(t *time.Time) *time.Time {
		if t == nil {
			return nil
		}
		v := *t
		return &v
	}
	c.ArchivedAt = copyTime(e.ArchivedAt)
	c.DeletedAt = copyTime(e.DeletedAt)
	c.HeldAt = copyTime(e.HeldAt)
	c.ExportedAt = copyTime(e.ExportedAt)
	return &c
}

// EntryRequest carries the caller-supplied portion of a new entry. The
// integrity engine derives everything else.
type EntryRequest struct {
	ActorID    string        `json:"actor_id"`
	ActorRole  Role          `json:"actor_role"`
	ActorEmail string        `json:"actor_email"`
	Action     Action        `json:"action"`
	SubjectID  string        `json:"subject_id,omitempty"`
	Changes    []FieldChange `json:"changes,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// DefaultSensitiveFields are field names whose presence in a change set
// escalates entry priority to at least high.
var DefaultSensitiveFields = map[string]bool{
	"price":          true,
	"cost":           true,
	"status":         true,
	"workflow_state": true,
	"permissions":    true,
	"role":           true,
	"visibility":     true,
}

var basePriority = map[Action]Priority{
	ActionProductCreated:     PriorityMedium,
	ActionProductUpdated:     PriorityMedium,
	ActionProductDeleted:     PriorityCritical,
	ActionStateChanged:       PriorityHigh,
	ActionReviewerAssigned:   PriorityMedium,
	ActionReviewerUnassigned: PriorityMedium,
	ActionBulkOperation:      PriorityHigh,
	ActionPermissionGranted:  PriorityCritical,
	ActionPermissionRevoked:  PriorityCritical,
	ActionRoleChanged:        PriorityCritical,
	ActionConfigChanged:      PriorityHigh,
	ActionDataExported:       PriorityMedium,
	ActionDataImported:       PriorityHigh,
}

// DerivePriority is a pure function of the action type and sensitive-field
// membership of the change set. Deletions and permission/role changes are
// always critical; a change touching a sensitive field is at least high.
func DerivePriority(action Action, changes []FieldChange, sensitive map[string]bool) Priority {
	if sensitive == nil {
		sensitive = DefaultSensitiveFields
	}
	p, ok := basePriority[action]
	if !ok {
		p = PriorityLow
	}
	for _, ch := range changes {
		if sensitive[ch.Field] && p.Rank() < PriorityHigh.Rank() {
			p = PriorityHigh
		}
	}
	return p
}
