package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/graph"
)

// IngestMessage asks the worker to load uploaded exports of one source.
type IngestMessage struct {
	CorrelationID string    `json:"correlation_id"`
	Source        string    `json:"source" validate:"required"`
	Files         []File    `json:"files" validate:"required,min=1,dive"`
	RequestedAt   time.Time `json:"requested_at"`
}

// File is one uploaded export, addressed by its object key.
type File struct {
	Key   string `json:"key" validate:"required"`
	Name  string `json:"name"`
	Sheet string `json:"sheet,omitempty"`
}

// DetectMessage asks the worker to recompute and persist red flags.
// Detectors restricts the run to the named detectors; empty runs all.
type DetectMessage struct {
	CorrelationID string    `json:"correlation_id"`
	Detectors     []string  `json:"detectors,omitempty"`
	RequestedAt   time.Time `json:"requested_at"`
}

func decodeIngest(body []byte) (IngestMessage, error) {
	var m IngestMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("%w: ingest message: %w", common.ErrMalformedInput, err)
	}
	if _, err := graph.ParseSource(m.Source); err != nil {
		return m, err
	}
	if len(m.Files) == 0 {
		return m, fmt.Errorf("%w: ingest message without files", common.ErrMalformedInput)
	}
	return m, nil
}

func decodeDetect(body []byte) (DetectMessage, error) {
	var m DetectMessage
	if len(body) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("%w: detect message: %w", common.ErrMalformedInput, err)
	}
	return m, nil
}
