package config

import (
	"encoding/hex"
	"time"
)

// AuditConfig holds the integrity engine's protection settings.
type AuditConfig struct {
	HashAlgorithm               string `mapstructure:"hash_algorithm" validate:"required,oneof=sha256 sha512"`
	EnableHashing               bool   `mapstructure:"enable_hashing"`
	EnableChaining              bool   `mapstructure:"enable_chaining"`
	EnableCompression           bool   `mapstructure:"enable_compression"`
	EnableEncryption            bool   `mapstructure:"enable_encryption"`
	EnableTamperDetection       bool   `mapstructure:"enable_tamper_detection"`
	EnableTimestampVerification bool   `mapstructure:"enable_timestamp_verification"`
	EnableAuditLogging          bool   `mapstructure:"enable_audit_logging"`
	DefaultRetentionDays        int    `mapstructure:"default_retention_days" validate:"required,gt=0"`
	MaxEntries                  int    `mapstructure:"max_entries" validate:"omitempty,gt=0"`
	ReadOnly                    bool   `mapstructure:"read_only"`
	EncryptionKey               string `mapstructure:"encryption_key" validate:"omitempty,aeskey"`
}

// Key decodes the hex-encoded encryption key. Validation guarantees the
// decode succeeds when the key is set.
func (c AuditConfig) Key() []byte {
	if c.EncryptionKey == "" {
		return nil
	}
	raw, _ := hex.DecodeString(c.EncryptionKey)
	return raw
}

// RetentionConfig holds the scheduler settings.
type RetentionConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval" validate:"omitempty,gt=0"`
}
