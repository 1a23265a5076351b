package excel

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/loader"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// ExcelRecordLoader loads xlsx workbooks (PhilGEPS and COA exports) and
// parses their sheets into records.
type ExcelRecordLoader struct {
	loader loader.FileLoader
}

// NewExcelRecordLoader creates a new ExcelRecordLoader with the given base loader.
func NewExcelRecordLoader(baseLoader loader.FileLoader) *ExcelRecordLoader {
	return &ExcelRecordLoader{loader: baseLoader}
}

// GetRecords retrieves the workbook and parses every sheet, or only
// file.Sheet when set.
func (l *ExcelRecordLoader) GetRecords(ctx context.Context, file loader.SourceFile) ([]common.Record, error) {
	content, err := l.loader.GetFileBytes(ctx, file)
	if err != nil {
		return nil, err
	}
	return ParseWorkbook(content, file.Sheet, file.Source)
}

// ExcelSheet represents a single parsed sheet of a workbook.
type ExcelSheet struct {
	Name    string
	Records []common.Record
}

// ParseWorkbook parses the sheets of an xlsx workbook into records.
func ParseWorkbook(content []byte, sheet string, source string) ([]common.Record, error) {
	sheets, err := ParseSheets(content, source)
	if err != nil {
		return nil, err
	}
	var records []common.Record
	found := sheet == ""
	for _, s := range sheets {
		if sheet != "" && !strings.EqualFold(s.Name, sheet) {
			continue
		}
		found = true
		records = append(records, s.Records...)
	}
	if !found {
		return nil, fmt.Errorf("%w: sheet %q not found", common.ErrMalformedInput, sheet)
	}
	return records, nil
}

// ParseSheets returns each sheet of the workbook as a separate record set.
// The header is the first row with at least two populated cells, so title
// rows above the table are skipped.
func ParseSheets(content []byte, source string) ([]ExcelSheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: opening xlsx: %w", common.ErrMalformedInput, err)
	}
	defer f.Close()

	var sheets []ExcelSheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			logger.Warn("[Loader] Skipping unreadable sheet", "sheet", name, "err", err)
			continue
		}
		start := headerRow(rows)
		if start < 0 {
			continue
		}
		sheets = append(sheets, ExcelSheet{
			Name:    name,
			Records: loader.RowsToRecords(rows[start], rows[start+1:], source),
		})
	}

	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no data found in xlsx", common.ErrMalformedInput)
	}
	return sheets, nil
}

func headerRow(rows [][]string) int {
	for i, row := range rows {
		populated := 0
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				populated++
			}
		}
		if populated >= 2 {
			return i
		}
	}
	return -1
}
