// Package veritrail assembles the tamper-evident audit trail from
// configuration: a ledger over a pluggable store, the integrity engine that
// seals entries, and the retention manager with its scheduler.
package veritrail

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/veritrail/veritrail/internal/domain"
	"github.com/veritrail/veritrail/internal/infra/archive"
	"github.com/veritrail/veritrail/internal/infra/config"
	"github.com/veritrail/veritrail/internal/infra/notify"
	"github.com/veritrail/veritrail/internal/infra/persistence"
	"github.com/veritrail/veritrail/internal/integrity"
	"github.com/veritrail/veritrail/internal/ledger"
	"github.com/veritrail/veritrail/internal/retention"
)

// Trail bundles the three subsystem components with a shared configuration.
type Trail struct {
	Ledger    *ledger.Ledger
	Engine    *integrity.Engine
	Retention *retention.Manager

	closeFn func()
}

// New builds a Trail from configuration. The retention scheduler is not
// started; call trail.Retention.Start when periodic enforcement is wanted.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Trail, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var store domain.Store
	closeFn := func() {}
	switch cfg.Storage.Type {
	case "postgres":
		if cfg.Storage.Database.Migrate {
			if err := persistence.Migrate(cfg.Storage.Database.URL); err != nil {
				return nil, err
			}
		}
		pool, err := persistence.NewConnectionPool(ctx, cfg.Storage.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect ledger store: %w", err)
		}
		closeFn = pool.Close
		store = persistence.NewPostgresStore(pool)
	default:
		store = ledger.NewMemoryStore()
	}

	ledgerOpts := []ledger.Option{ledger.WithLogger(logger)}
	if cfg.Audit.MaxEntries > 0 {
		ledgerOpts = append(ledgerOpts, ledger.WithMaxEntries(cfg.Audit.MaxEntries))
	}
	l := ledger.New(store, ledgerOpts...)

	engine := integrity.NewEngine(l, integrity.Config{
		HashAlgorithm:               cfg.Audit.HashAlgorithm,
		EnableHashing:               cfg.Audit.EnableHashing,
		EnableChaining:              cfg.Audit.EnableChaining,
		EnableCompression:           cfg.Audit.EnableCompression,
		EnableEncryption:            cfg.Audit.EnableEncryption,
		EnableTamperDetection:       cfg.Audit.EnableTamperDetection,
		EnableTimestampVerification: cfg.Audit.EnableTimestampVerification,
		EnableAuditLogging:          cfg.Audit.EnableAuditLogging,
		DefaultRetentionDays:        cfg.Audit.DefaultRetentionDays,
		EncryptionKey:               cfg.Audit.Key(),
	}, integrity.WithLogger(logger))
	if cfg.Audit.ReadOnly {
		engine.EnableReadOnlyMode()
	}

	exporter, err := buildExporter(ctx, cfg.Archive, logger)
	if err != nil {
		closeFn()
		return nil, err
	}

	retentionOpts := []retention.Option{
		retention.WithLogger(logger),
		retention.WithNotifier(notify.NewSlogNotifier(logger)),
		retention.WithEncryptionKey(cfg.Audit.Key()),
	}
	if exporter != nil {
		retentionOpts = append(retentionOpts, retention.WithExporter(exporter))
	}
	if cfg.Retention.CheckInterval > 0 {
		retentionOpts = append(retentionOpts, retention.WithCheckInterval(cfg.Retention.CheckInterval))
	}
	manager := retention.NewManager(l, retentionOpts...)

	return &Trail{
		Ledger:    l,
		Engine:    engine,
		Retention: manager,
		closeFn:   closeFn,
	}, nil
}

// Close stops the scheduler and releases the backing store.
func (t *Trail) Close(ctx context.Context) error {
	err := t.Retention.Stop(ctx)
	t.closeFn()
	return err
}

func buildExporter(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (retention.Exporter, error) {
	switch cfg.Type {
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return archive.NewS3Exporter(awsCfg, cfg.S3Bucket, cfg.KeyPrefix, logger), nil
	case "filesystem":
		return archive.NewFSExporter(cfg.Directory), nil
	default:
		return nil, nil
	}
}
