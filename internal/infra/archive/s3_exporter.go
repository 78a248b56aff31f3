// Package archive provides retention export destinations.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/veritrail/veritrail/internal/domain"
)

// S3Exporter writes exported entries to an S3 bucket as JSON objects keyed by
// creation date and entry id.
type S3Exporter struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	logger    *slog.Logger
}

// NewS3Exporter creates an exporter over an AWS config.
func NewS3Exporter(cfg aws.Config, bucket, keyPrefix string, logger *slog.Logger) *S3Exporter {
	return &S3Exporter{
		client:    s3.NewFromConfig(cfg),
		bucket:    bucket,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// Export uploads one entry.
func (e *S3Exporter) Export(ctx context.Context, entry *domain.AuditEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize entry %s for export: %w", entry.ID, err)
	}

	key := path.Join(e.keyPrefix, entry.CreatedAt.UTC().Format("2006/01/02"), entry.ID+".json")
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &e.bucket,
		Key:    &key,
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("failed to upload entry %s to s3: %w", entry.ID, err)
	}

	e.logger.DebugContext(ctx, "entry exported to s3",
		slog.String("entry_id", entry.ID),
		slog.String("bucket", e.bucket),
		slog.String("key", key))
	return nil
}
