package integrity

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/veritrail/veritrail/internal/domain"
	"github.com/veritrail/veritrail/internal/errors"
	"github.com/veritrail/veritrail/pkg/crypto"
)

// GenesisChainValue is the well-known value the first entry chains against.
const GenesisChainValue = "0000000000000000000000000000000000000000000000000000000000000000"

// canonicalContent builds the hashed portion of an entry as a map so the
// serialization is independent of struct field order: encoding/json emits
// map keys sorted.
func canonicalContent(e *domain.AuditEntry) map[string]any {
	changes := make([]map[string]any, len(e.Changes))
	for i, ch := range e.Changes {
		changes[i] = map[string]any{
			"field":     ch.Field,
			"old_value": ch.OldValue,
			"new_value": ch.NewValue,
		}
	}
	return map[string]any{
		"user_id":    e.UserID,
		"user_role":  string(e.UserRole),
		"user_email": e.UserEmail,
		"action":     string(e.Action),
		"subject_id": e.SubjectID,
		"reason":     e.Reason,
		"changes":    changes,
		"metadata":   e.Metadata,
		"priority":   string(e.Priority),
		"created_at": e.CreatedAt.UTC().UnixNano(),
	}
}

// ComputeDigest hashes an entry's canonical pre-transform content with the
// named algorithm and returns the hex digest.
func ComputeDigest(e *domain.AuditEntry, algorithm string) (string, error) {
	data, err := json.Marshal(canonicalContent(e))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrHashFailure, err)
	}
	h, err := crypto.NewHash(algorithm)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrHashFailure, err)
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeChainHash links an entry's digest to its predecessor's chain digest.
func ComputeChainHash(digest, prevChain, algorithm string) (string, error) {
	h, err := crypto.NewHash(algorithm)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrHashFailure, err)
	}
	h.Write([]byte(digest))
	h.Write([]byte(prevChain))
	return hex.EncodeToString(h.Sum(nil)), nil
}
