package config

import "time"

// StorageConfig selects and tunes the ledger's backing store.
type StorageConfig struct {
	Type     string         `mapstructure:"type" validate:"required,oneof=memory postgres"`
	Database DatabaseConfig `mapstructure:"database" validate:"required_if=Type postgres"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL        string             `mapstructure:"url" validate:"omitempty,url"`
	Migrate    bool               `mapstructure:"migrate"`
	Connection DBConnectionConfig `mapstructure:"connection"`
}

// DBConnectionConfig tunes the pgx connection pool.
type DBConnectionConfig struct {
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// ArchiveConfig configures the retention export destination.
type ArchiveConfig struct {
	Type      string `mapstructure:"type" validate:"omitempty,oneof=s3 filesystem"`
	Region    string `mapstructure:"region" validate:"required_if=Type s3"`
	S3Bucket  string `mapstructure:"s3_bucket" validate:"required_if=Type s3"`
	KeyPrefix string `mapstructure:"key_prefix"`
	Directory string `mapstructure:"directory" validate:"required_if=Type filesystem"`
}
