// Package tabular picks the record parser for a file by its extension.
package tabular

import (
	"context"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/loader"
	"github.com/kwenta-ph/kwenta/backend/pkg/loader/csv"
	"github.com/kwenta-ph/kwenta/backend/pkg/loader/excel"
	"github.com/kwenta-ph/kwenta/backend/pkg/loader/jsonl"
)

// RecordLoader dispatches to the csv, xlsx or jsonl parser.
type RecordLoader struct {
	base  loader.FileLoader
	csv   *csv.CSVRecordLoader
	excel *excel.ExcelRecordLoader
	jsonl *jsonl.JSONLRecordLoader
}

func NewRecordLoader(base loader.FileLoader) *RecordLoader {
	return &RecordLoader{
		base:  base,
		csv:   csv.NewCSVRecordLoader(base),
		excel: excel.NewExcelRecordLoader(base),
		jsonl: jsonl.NewJSONLRecordLoader(base),
	}
}

func (l *RecordLoader) GetRecords(ctx context.Context, file loader.SourceFile) ([]common.Record, error) {
	t, err := loader.FileTypeOf(file.Path)
	if err != nil {
		return nil, err
	}
	switch t {
	case loader.FileTypeCSV:
		return l.csv.GetRecords(ctx, file)
	case loader.FileTypeExcel:
		return l.excel.GetRecords(ctx, file)
	default:
		return l.jsonl.GetRecords(ctx, file)
	}
}

// Forget drops file from the base loader's cache, if it keeps one.
func (l *RecordLoader) Forget(file loader.SourceFile) {
	if f, ok := l.base.(interface{ Forget(loader.SourceFile) }); ok {
		f.Forget(file)
	}
}
