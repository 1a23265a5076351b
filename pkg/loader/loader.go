// Package loader reads source exports into flat records for ingest.
//
// A FileLoader fetches raw bytes (local disk, S3); a RecordLoader wraps one
// and parses the bytes into records (csv, xlsx, jsonl).
package loader

import (
	"context"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

type FileType string

const (
	FileTypeCSV   FileType = "csv"
	FileTypeExcel FileType = "xlsx"
	FileTypeJSONL FileType = "jsonl"
)

// SourceFile is one export to be loaded. Path is a filesystem path or an
// object key depending on the FileLoader. Source names the export kind
// (e.g. philgeps_awards) and selects the column aliases applied to headers.
type SourceFile struct {
	ID     string
	Path   string
	Source string
	// Sheet restricts workbook parsing to one sheet. Empty reads every sheet.
	Sheet string
}

// FileLoader defines the interface for loading the raw contents of a file.
// Implementations may load files from disk, cloud storage, or other sources.
type FileLoader interface {
	GetFileBytes(ctx context.Context, file SourceFile) ([]byte, error)
}

// RecordLoader parses a file into records.
type RecordLoader interface {
	GetRecords(ctx context.Context, file SourceFile) ([]common.Record, error)
}

// CacheKey generates a unique cache key for a file based on its ID and path.
func CacheKey(file SourceFile) string {
	return file.ID + ":" + file.Path
}
