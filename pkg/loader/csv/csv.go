package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/loader"
)

// CSVRecordLoader loads CSV exports and parses them into records.
type CSVRecordLoader struct {
	loader loader.FileLoader
}

// NewCSVRecordLoader creates a new CSVRecordLoader with the given base loader.
func NewCSVRecordLoader(loader loader.FileLoader) *CSVRecordLoader {
	return &CSVRecordLoader{loader: loader}
}

// GetRecords retrieves the file and parses it with the first row as header.
func (l *CSVRecordLoader) GetRecords(ctx context.Context, file loader.SourceFile) ([]common.Record, error) {
	content, err := l.loader.GetFileBytes(ctx, file)
	if err != nil {
		return nil, err
	}
	return ParseCSV(content, file.Source)
}

// ParseCSV parses CSV content into records keyed by the normalized header of
// the first row. Rows that fail to parse are skipped.
func ParseCSV(content []byte, source string) ([]common.Record, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var header []string
	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		if header == nil {
			if isBlank(record) {
				continue
			}
			header = record
			continue
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, record)
	}

	if header == nil {
		return nil, fmt.Errorf("%w: CSV file is empty or contains no valid data", common.ErrMalformedInput)
	}
	return loader.RowsToRecords(header, rows, source), nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if len(bytes.TrimSpace([]byte(field))) > 0 {
			return false
		}
	}
	return true
}
