package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"pairScope/internal/model"
)

// JSONLSink appends records to a JSONL file, one open per batch.
type JSONLSink struct {
	path string
	mu   sync.Mutex
}

func NewJSONLSink(path string) *JSONLSink {
	return &JSONLSink{path: path}
}

// PutLogBatch appends a batch of raw log records.
func (s *JSONLSink) PutLogBatch(_ context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	records := make([]interface{}, len(logs))
	for i := range logs {
		records[i] = logs[i]
	}
	return s.Append(records...)
}

// Append writes each record as one JSON line.
func (s *JSONLSink) Append(records ...interface{}) error {
	if len(records) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	return writeLines(file, records)
}

// entityLine is the dump format of one stored entity.
type entityLine struct {
	Kind string          `json:"kind"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// DumpJSONL writes every entity of the given kinds to w.
func DumpJSONL(ctx context.Context, s Store, kinds []string, w io.Writer) (int, error) {
	var records []interface{}
	for _, kind := range kinds {
		ids, err := s.List(ctx, kind)
		if err != nil {
			return 0, fmt.Errorf("list %s: %w", kind, err)
		}
		for _, id := range ids {
			data, ok, err := s.Load(ctx, kind, id)
			if err != nil {
				return 0, fmt.Errorf("load %s %s: %w", kind, id, err)
			}
			if !ok {
				continue
			}
			records = append(records, entityLine{Kind: kind, ID: id, Data: data})
		}
	}
	if err := writeLines(w, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func writeLines(w io.Writer, records []interface{}) error {
	writer := bufio.NewWriter(w)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
