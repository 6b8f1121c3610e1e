package store

import (
	"errors"
	"fmt"

	"github.com/pevans/issuewatch/issue"
)

// ErrDataCorruption is matched by errors.Is for any persisted record set that
// exists but cannot be decoded or fails validation.
var ErrDataCorruption = errors.New("persisted issue records are corrupt")

// CorruptionError describes why a persisted record set could not be loaded.
type CorruptionError struct {
	Source string
	Err    error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt issue records in %s: %v", e.Source, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// Is reports ErrDataCorruption as a match so callers need not know the
// concrete type.
func (e *CorruptionError) Is(target error) bool {
	return target == ErrDataCorruption
}

// Backend persists a complete record set. Save always receives the full,
// sorted collection and must replace the previous contents atomically.
type Backend interface {
	// Load returns the persisted records. A missing or empty source returns
	// no records and no error.
	Load() ([]issue.Record, error)
	Save(records []issue.Record) error
	// Describe names the backend location for logs and errors.
	Describe() string
}

// MergeResult reports what Merge did with a candidate record.
type MergeResult int

const (
	Inserted MergeResult = iota
	Updated
	Unchanged
)

func (r MergeResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("MergeResult(%d)", int(r))
	}
}

// Store holds the in-memory record set. It is loaded once, mutated through
// Merge, and written back wholesale by Save.
type Store struct {
	records []issue.Record
	index   map[issue.Key]int
}

// New returns an empty store.
func New() *Store {
	return &Store{index: make(map[issue.Key]int)}
}

// Load reads every record from the backend. Records that fail validation or
// share an identity with an earlier record make the whole source corrupt.
func Load(backend Backend) (*Store, error) {
	records, err := backend.Load()
	if err != nil {
		return nil, err
	}

	s := New()
	for i, record := range records {
		if err := record.Validate(); err != nil {
			return nil, &CorruptionError{
				Source: backend.Describe(),
				Err:    fmt.Errorf("record %d: %w", i, err),
			}
		}
		if _, exists := s.index[record.Key()]; exists {
			return nil, &CorruptionError{
				Source: backend.Describe(),
				Err:    fmt.Errorf("record %d: duplicate issue %s", i, record),
			}
		}
		s.insert(record)
	}

	issue.Sort(s.records)
	s.reindex()

	return s, nil
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns a sorted copy of the stored records.
func (s *Store) Records() []issue.Record {
	out := make([]issue.Record, len(s.records))
	copy(out, s.records)
	issue.Sort(out)
	return out
}

// Latest returns the chronologically greatest record. The boolean is false
// when the store is empty.
func (s *Store) Latest() (issue.Record, bool) {
	if len(s.records) == 0 {
		return issue.Record{}, false
	}

	latest := s.records[0]
	for _, record := range s.records[1:] {
		if issue.Compare(record, latest) > 0 {
			latest = record
		}
	}

	return latest, true
}

// Get returns the stored record with the given identity.
func (s *Store) Get(key issue.Key) (issue.Record, bool) {
	i, ok := s.index[key]
	if !ok {
		return issue.Record{}, false
	}
	return s.records[i], true
}

// Merge reconciles a candidate with the stored record of the same identity.
// An unknown identity is inserted; a known one is replaced when any other
// field differs.
func (s *Store) Merge(candidate issue.Record) MergeResult {
	i, exists := s.index[candidate.Key()]
	if !exists {
		s.insert(candidate)
		return Inserted
	}

	if s.records[i] == candidate {
		return Unchanged
	}

	s.records[i] = candidate
	return Updated
}

// Save sorts the records and writes the full set to the backend.
func (s *Store) Save(backend Backend) error {
	issue.Sort(s.records)
	s.reindex()

	if err := backend.Save(s.records); err != nil {
		return fmt.Errorf("failed to save issues to %s: %w", backend.Describe(), err)
	}

	return nil
}

func (s *Store) insert(record issue.Record) {
	s.index[record.Key()] = len(s.records)
	s.records = append(s.records, record)
}

func (s *Store) reindex() {
	clear(s.index)
	for i, record := range s.records {
		s.index[record.Key()] = i
	}
}
