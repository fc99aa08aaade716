// internal/history/store.go
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/klaxon/internal/protocol"
)

// Record is one received alert with its local arrival time.
type Record struct {
	Seq        int64          `json:"seq"`
	ReceivedAt time.Time      `json:"received_at"`
	Alert      protocol.Alert `json:"alert"`
}

// Store is a JSONL-backed append-only log of received alerts. Old records
// are dropped once the file grows past the retention cap. Pending
// confirmations are deliberately not persisted here; only what was seen.
type Store struct {
	path string
	keep int
	mu   sync.Mutex
}

// NewStore creates a Store writing to path, retaining at most keep records.
func NewStore(path string, keep int) *Store {
	return &Store{path: path, keep: keep}
}

// Append adds an alert to the log, compacting if the cap is exceeded.
func (s *Store) Append(alert protocol.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readAll()
	if err != nil {
		return err
	}

	var seq int64 = 1
	if len(records) > 0 {
		seq = records[len(records)-1].Seq + 1
	}
	records = append(records, Record{Seq: seq, ReceivedAt: time.Now().UTC(), Alert: alert})

	if s.keep > 0 && len(records) > s.keep {
		records = records[len(records)-s.keep:]
		return s.rewrite(records)
	}

	return s.appendLine(records[len(records)-1])
}

// Tail returns the last limit records, oldest first.
func (s *Store) Tail(limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readAll()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// readAll loads every record. Caller must hold the mutex.
func (s *Store) readAll() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal history record: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return records, nil
}

func (s *Store) appendLine(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write history record: %w", err)
	}
	return nil
}

// rewrite replaces the file with the given records via temp+rename.
func (s *Store) rewrite(records []Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	var buf []byte
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal history record: %w", err)
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename history: %w", err)
	}
	return nil
}
