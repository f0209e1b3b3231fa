package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driven"
)

// TrackingStore maintains the map of processed files and their
// checksums. The whole map is persisted as a single JSON blob so a
// build can tell new and modified files from already indexed ones
// across process restarts.
type TrackingStore struct {
	blob driven.BlobStore
	key  string

	mu      sync.RWMutex
	records map[string]domain.TrackingRecord
}

// NewTrackingStore creates a tracking store persisting under key in
// the given blob store.
func NewTrackingStore(blob driven.BlobStore, key string) *TrackingStore {
	return &TrackingStore{
		blob:    blob,
		key:     key,
		records: make(map[string]domain.TrackingRecord),
	}
}

// Load reads the tracking map from the blob store, replacing the
// in-memory state. A missing blob yields an empty map.
func (s *TrackingStore) Load(ctx context.Context) error {
	data, err := s.blob.Read(ctx, s.key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.mu.Lock()
			s.records = make(map[string]domain.TrackingRecord)
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read tracking blob: %w", err)
	}

	records := make(map[string]domain.TrackingRecord)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("decode tracking blob: %w", err)
		}
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

// Flush persists the current tracking map.
func (s *TrackingStore) Flush(ctx context.Context) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.records, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode tracking map: %w", err)
	}

	if err := s.blob.Write(ctx, s.key, data); err != nil {
		return fmt.Errorf("write tracking blob: %w", err)
	}
	return nil
}

// Records returns a copy of the tracking map.
func (s *TrackingStore) Records() map[string]domain.TrackingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.TrackingRecord, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

// Get returns the record for path, if tracked.
func (s *TrackingStore) Get(path string) (domain.TrackingRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[path]
	return rec, ok
}

// Mark records path as processed at the given checksum.
func (s *TrackingStore) Mark(path, checksum string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[path] = domain.TrackingRecord{Path: path, Checksum: checksum}
}

// Remove untracks path. Removing an untracked path is a no-op.
func (s *TrackingStore) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, path)
}

// Reset discards all records.
func (s *TrackingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]domain.TrackingRecord)
}

// Len returns the number of tracked paths.
func (s *TrackingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
