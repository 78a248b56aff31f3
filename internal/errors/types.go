package errors

import "errors"

var (
	ErrEntryNotFound     = errors.New("audit entry not found")
	ErrPolicyNotFound    = errors.New("retention policy not found")
	ErrPolicyDisabled    = errors.New("retention policy is disabled")
	ErrViolationNotFound = errors.New("retention violation not found")
	ErrReadOnlyMode      = errors.New("audit trail is in read-only mode")
	ErrCapacityExceeded  = errors.New("ledger capacity exceeded")
	ErrInvalidInput      = errors.New("invalid input")
	ErrHashFailure       = errors.New("integrity hash computation failed")
	ErrDuplicatePolicy   = errors.New("retention policy already exists")
)
