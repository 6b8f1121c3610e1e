package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pevans/issuewatch/issue"
)

// FileBackend persists records as a JSON array in a single file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend for the JSON file at path. The file does
// not need to exist yet.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the location of the JSON file.
func (f *FileBackend) Path() string {
	return f.path
}

// Describe implements Backend.
func (f *FileBackend) Describe() string {
	return f.path
}

// Load reads the JSON array. A missing file or one holding only whitespace
// is the first-run state and yields no records.
func (f *FileBackend) Load() ([]issue.Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // First run -- not an error
		}
		return nil, fmt.Errorf("failed to read issues file: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	// The document must be exactly one array; null or a bare object would
	// otherwise decode to an empty store.
	if trimmed[0] != '[' {
		return nil, &CorruptionError{Source: f.path, Err: errors.New("issues file is not a JSON array")}
	}

	var records []issue.Record
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&records); err != nil {
		return nil, &CorruptionError{Source: f.path, Err: err}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, &CorruptionError{Source: f.path, Err: errors.New("unexpected data after issue list")}
	}

	return records, nil
}

// Save writes the records to a temporary file beside the destination, syncs
// it and renames it over the destination so a failed write never leaves a
// partial file behind.
func (f *FileBackend) Save(records []issue.Record) error {
	if records == nil {
		records = []issue.Record{}
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create issues directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary issues file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary issues file: %w", err)
	}

	// Ensure data is on disk before the rename makes it visible
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temporary issues file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary issues file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set issues file permissions: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace issues file: %w", err)
	}

	return nil
}

// CheckWritable verifies that the destination can be written before any
// scraping work is done. It creates the parent directory but leaves the file
// itself untouched.
func (f *FileBackend) CheckWritable() error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create issues directory %s: %w", dir, err)
	}

	if _, err := os.Stat(f.path); err == nil {
		file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_APPEND, 0)
		if err != nil {
			return fmt.Errorf("cannot write to issues file %s: %w", f.path, err)
		}
		return file.Close()
	}

	check, err := os.CreateTemp(dir, ".issuewatch-check-*")
	if err != nil {
		return fmt.Errorf("cannot write to issues directory %s: %w", dir, err)
	}
	name := check.Name()
	check.Close()
	return os.Remove(name)
}
