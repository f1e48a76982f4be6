package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"screenshot-tests/internal/storage"
	"sync"

	"github.com/go-logr/logr"
)

// FileName is the storage key of the metadata document.
const FileName = "metadata.json"

type DuplicateNameError struct {
	Name     string
	Explicit bool
}

func (e *DuplicateNameError) Error() string {
	if e.Explicit {
		return fmt.Sprintf("Can't create multiple screenshots with the same name: %s", e.Name)
	}
	return "Can't create multiple screenshots from the same test, or use SetName() to name each screenshot differently"
}

// Store collects the records of one test process and writes them to
// metadata.json. Records persisted by an earlier run are loaded lazily and
// kept unless a record of the same name is added again.
type Store struct {
	storage storage.Storage
	Log     logr.Logger

	mu      sync.Mutex
	loaded  bool
	records []Record
	added   map[string]struct{}
	dirty   bool
	flushed bool
}

func NewStore(s storage.Storage) *Store {
	return &Store{
		storage: s,
		Log:     logr.Discard(),
		added:   map[string]struct{}{},
	}
}

// Load reads the records persisted in s. A missing document is an empty list.
func Load(ctx context.Context, s storage.Storage) ([]Record, error) {
	data, err := s.Get(ctx, FileName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	records, err := Load(ctx, s.storage)
	if err != nil {
		return err
	}
	s.records = records
	s.loaded = true
	s.Log.V(1).Info("loaded metadata", "records", len(records))
	return nil
}

// Add appends a copy of r. Adding a name twice within one session fails with
// DuplicateNameError.
func (s *Store) Add(ctx context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	if _, ok := s.added[r.Name]; ok {
		return &DuplicateNameError{Name: r.Name, Explicit: r.ExplicitName}
	}
	s.added[r.Name] = struct{}{}
	r = r.clone()

	for i := range s.records {
		if s.records[i].Name == r.Name {
			s.Log.V(1).Info("superseding record from previous run", "name", r.Name)
			s.records[i] = r
			s.dirty = true
			return nil
		}
	}
	s.records = append(s.records, r)
	s.dirty = true
	return nil
}

// Records returns a deep copy of the current record list.
func (s *Store) Records(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	records := make([]Record, len(s.records))
	for i, r := range s.records {
		records[i] = r.clone()
	}
	return records, nil
}

// Flush writes every record as one JSON array. Flushing again without an
// intervening Add does nothing.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flushed && !s.dirty {
		return nil
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", FileName, err)
	}
	if _, err := s.storage.Put(ctx, FileName, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}

	s.flushed = true
	s.dirty = false
	s.Log.Info("flushed metadata", "records", len(s.records))
	return nil
}

// Reset forgets all in-memory state. The next access reloads from storage.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	s.records = nil
	s.added = map[string]struct{}{}
	s.dirty = false
	s.flushed = false
}
