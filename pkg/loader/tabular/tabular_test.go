package tabular

import (
	"context"
	"errors"
	"testing"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/loader"
)

type mapLoader map[string][]byte

func (m mapLoader) GetFileBytes(ctx context.Context, file loader.SourceFile) ([]byte, error) {
	b, ok := m[file.Path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return b, nil
}

func TestRecordLoaderDispatchesByExtension(t *testing.T) {
	files := mapLoader{
		"psgc.csv":   []byte("psgc_code,name\n1,Cebu City\n2,Mandaue\n"),
		"psgc.jsonl": []byte(`{"psgc_code": "3", "name": "Lapu-Lapu"}` + "\n"),
	}
	l := NewRecordLoader(files)
	ctx := context.Background()

	fromCSV, err := l.GetRecords(ctx, loader.SourceFile{Path: "psgc.csv", Source: "psgc"})
	if err != nil || len(fromCSV) != 2 {
		t.Fatalf("csv: %v, %v", fromCSV, err)
	}
	fromJSONL, err := l.GetRecords(ctx, loader.SourceFile{Path: "psgc.jsonl", Source: "psgc"})
	if err != nil || len(fromJSONL) != 1 || fromJSONL[0].Text("name") != "Lapu-Lapu" {
		t.Fatalf("jsonl: %v, %v", fromJSONL, err)
	}
	if _, err := l.GetRecords(ctx, loader.SourceFile{Path: "scan.pdf"}); !errors.Is(err, common.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

type forgettingLoader struct {
	mapLoader
	forgotten []string
}

func (f *forgettingLoader) Forget(file loader.SourceFile) {
	f.forgotten = append(f.forgotten, file.Path)
}

func TestRecordLoaderForwardsForget(t *testing.T) {
	base := &forgettingLoader{mapLoader: mapLoader{}}
	NewRecordLoader(base).Forget(loader.SourceFile{Path: "awards.csv"})
	if len(base.forgotten) != 1 || base.forgotten[0] != "awards.csv" {
		t.Fatalf("forgotten = %v", base.forgotten)
	}

	// A base without a cache is left alone.
	NewRecordLoader(mapLoader{}).Forget(loader.SourceFile{Path: "awards.csv"})
}
