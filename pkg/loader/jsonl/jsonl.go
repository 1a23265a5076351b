package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/loader"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
)

// maxLine bounds a single jsonl line.
const maxLine = 4 << 20

// JSONLRecordLoader loads collector output written as one JSON object per line.
type JSONLRecordLoader struct {
	loader loader.FileLoader
}

func NewJSONLRecordLoader(base loader.FileLoader) *JSONLRecordLoader {
	return &JSONLRecordLoader{loader: base}
}

func (l *JSONLRecordLoader) GetRecords(ctx context.Context, file loader.SourceFile) ([]common.Record, error) {
	content, err := l.loader.GetFileBytes(ctx, file)
	if err != nil {
		return nil, err
	}
	return ParseJSONL(content, file.Source)
}

// ParseJSONL decodes one object per line. A file holding a single JSON array
// of objects is accepted too. Lines that are not objects are skipped and
// counted in a warning. Numbers are kept as json.Number.
func ParseJSONL(content []byte, source string) ([]common.Record, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty jsonl file", common.ErrMalformedInput)
	}
	if trimmed[0] == '[' {
		return parseArray(trimmed, source)
	}

	var records []common.Record
	skipped := 0
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		r, err := decode(line)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, loader.CanonicalRecord(r, source))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading jsonl: %w", common.ErrMalformedInput, err)
	}
	if skipped > 0 {
		logger.Warn("[Loader] Skipped malformed jsonl lines", "skipped", skipped, "records", len(records))
	}
	return records, nil
}

func decode(line []byte) (common.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var r map[string]any
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("not an object")
	}
	return common.Record(r), nil
}

func parseArray(content []byte, source string) ([]common.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding json array: %w", common.ErrMalformedInput, err)
	}
	records := make([]common.Record, 0, len(raw))
	for _, r := range raw {
		if r != nil {
			records = append(records, loader.CanonicalRecord(r, source))
		}
	}
	return records, nil
}
