package integrity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/veritrail/veritrail/internal/domain"
	"github.com/veritrail/veritrail/pkg/crypto"
)

// payloadEnvelope is the serialized form of the entry fields that storage
// transforms move into the opaque payload blob.
type payloadEnvelope struct {
	Changes  []domain.FieldChange `json:"changes,omitempty"`
	Metadata map[string]string    `json:"metadata,omitempty"`
	Reason   string               `json:"reason,omitempty"`
}

// EncodePayload applies the requested storage transforms to an entry in
// place: changes, metadata and reason are serialized into Payload, optionally
// gzip-compressed and AES-256-GCM encrypted, in that order. The integrity
// digest is unaffected because hashing always operates on the pre-transform
// logical content.
func EncodePayload(e *domain.AuditEntry, key []byte, compress, encrypt bool) error {
	if !compress && !encrypt {
		return nil
	}
	if e.Compressed || e.Encrypted {
		return fmt.Errorf("entry %s already has a transformed payload", e.ID)
	}

	data, err := json.Marshal(payloadEnvelope{
		Changes:  e.Changes,
		Metadata: e.Metadata,
		Reason:   e.Reason,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize payload for entry %s: %w", e.ID, err)
	}

	if compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("failed to compress payload for entry %s: %w", e.ID, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to compress payload for entry %s: %w", e.ID, err)
		}
		data = buf.Bytes()
	}

	if encrypt {
		data, err = crypto.Encrypt(key, data)
		if err != nil {
			return fmt.Errorf("failed to encrypt payload for entry %s: %w", e.ID, err)
		}
	}

	e.Payload = data
	e.Compressed = compress
	e.Encrypted = encrypt
	e.Changes = nil
	e.Metadata = nil
	e.Reason = ""
	return nil
}

// DecodePayload reverses storage transforms and returns the logical entry.
// Entries without a transformed payload are returned as-is (as a copy).
func DecodePayload(e *domain.AuditEntry, key []byte) (*domain.AuditEntry, error) {
	out := e.Clone()
	if !e.Compressed && !e.Encrypted {
		return out, nil
	}

	data := append([]byte(nil), e.Payload...)
	var err error

	if e.Encrypted {
		data, err = crypto.Decrypt(key, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt payload for entry %s: %w", e.ID, err)
		}
	}

	if e.Compressed {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress payload for entry %s: %w", e.ID, err)
		}
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress payload for entry %s: %w", e.ID, err)
		}
		if err := zr.Close(); err != nil {
			return nil, fmt.Errorf("failed to decompress payload for entry %s: %w", e.ID, err)
		}
	}

	var env payloadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode payload for entry %s: %w", e.ID, err)
	}

	out.Changes = env.Changes
	out.Metadata = env.Metadata
	out.Reason = env.Reason
	out.Payload = nil
	out.Compressed = false
	out.Encrypted = false
	return out, nil
}
