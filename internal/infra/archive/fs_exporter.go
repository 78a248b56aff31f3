package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/veritrail/veritrail/internal/domain"
)

// FSExporter writes exported entries to a local directory, mirroring the S3
// layout. Useful for development and tests.
type FSExporter struct {
	dir string
}

// NewFSExporter creates an exporter rooted at dir.
func NewFSExporter(dir string) *FSExporter {
	return &FSExporter{dir: dir}
}

// Export writes one entry as a JSON file.
func (e *FSExporter) Export(_ context.Context, entry *domain.AuditEntry) error {
	body, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize entry %s for export: %w", entry.ID, err)
	}

	dir := filepath.Join(e.dir, entry.CreatedAt.UTC().Format("2006/01/02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	name := filepath.Join(dir, entry.ID+".json")
	if err := os.WriteFile(name, body, 0o644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
