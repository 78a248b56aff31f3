package domain

import (
	"time"
)

// SelectorType discriminates how a retention policy picks entries.
type SelectorType string

const (
	SelectorTime       SelectorType = "time"
	SelectorEvent      SelectorType = "event"
	SelectorSize       SelectorType = "size"
	SelectorCompliance SelectorType = "compliance"
	SelectorCustom     SelectorType = "custom"
)

// RetentionAction is one lifecycle operation a policy applies to matched entries.
type RetentionAction string

const (
	RetentionArchive  RetentionAction = "archive"
	RetentionDelete   RetentionAction = "delete"
	RetentionCompress RetentionAction = "compress"
	RetentionEncrypt  RetentionAction = "encrypt"
	RetentionExport   RetentionAction = "export"
	RetentionHold     RetentionAction = "hold"
	RetentionNotify   RetentionAction = "notify"
)

// Frequency drives the calendar-aware scheduler.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencyYearly     Frequency = "yearly"
	FrequencyContinuous Frequency = "continuous"
)

// Selector carries per-type matching parameters. Only the fields for the
// declared Type are consulted.
type Selector struct {
	Type SelectorType `json:"type" validate:"required,oneof=time event size compliance custom"`

	// time
	RetentionDays int `json:"retention_days,omitempty" validate:"omitempty,gt=0"`

	// event
	Actions         []Action          `json:"actions,omitempty"`
	FieldConditions map[string]string `json:"field_conditions,omitempty"`

	// size
	MaxEntries int     `json:"max_entries,omitempty" validate:"omitempty,gt=0"`
	MaxBytes   int64   `json:"max_bytes,omitempty" validate:"omitempty,gt=0"`
	MaxPercent float64 `json:"max_percent,omitempty" validate:"omitempty,gt=0,lte=100"`

	// compliance
	Regulation        string `json:"regulation,omitempty"`
	MinRetentionDays  int    `json:"min_retention_days,omitempty" validate:"omitempty,gte=0"`
	MaxRetentionDays  int    `json:"max_retention_days,omitempty" validate:"omitempty,gt=0"`
	RequireEncryption bool   `json:"require_encryption,omitempty"`

	// custom
	Predicate func(*AuditEntry) bool `json:"-"`
}

// Schedule declares when and how a policy runs.
type Schedule struct {
	Frequency        Frequency     `json:"frequency" validate:"required,oneof=daily weekly monthly quarterly yearly continuous"`
	BatchSize        int           `json:"batch_size" validate:"required,gt=0"`
	MaxExecutionTime time.Duration `json:"max_execution_time" validate:"required,gt=0"`
}

// RetentionPolicy is a named, priority-ordered rule over the ledger.
type RetentionPolicy struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
	Priority    int    `json:"priority"`

	Selector Selector          `json:"selector" validate:"required"`
	Actions  []RetentionAction `json:"actions" validate:"required,min=1,dive,oneof=archive delete compress encrypt export hold notify"`
	Schedule Schedule          `json:"schedule" validate:"required"`

	CreatedAt      time.Time  `json:"created_at"`
	LastExecuted   *time.Time `json:"last_executed,omitempty"`
	ExecutionCount int        `json:"execution_count"`
	SuccessCount   int        `json:"success_count"`
	FailureCount   int        `json:"failure_count"`
}

// Clone returns a copy so callers cannot mutate manager-held policy state.
func (p *RetentionPolicy) Clone() *RetentionPolicy {
	c := *p
	if p.Actions != nil {
		c.Actions = append([]RetentionAction(nil), p.Actions...)
	}
	if p.Selector.Actions != nil {
		c.Selector.Actions = append([]Action(nil), p.Selector.Actions...)
	}
	if p.Selector.FieldConditions != nil {
		c.Selector.FieldConditions = make(map[string]string, len(p.Selector.FieldConditions))
		for k, v := range p.Selector.FieldConditions {
			c.Selector.FieldConditions[k] = v
		}
	}
	if p.LastExecuted != nil {
		t := *p.LastExecuted
		c.LastExecuted = &t
	}
	return &c
}
