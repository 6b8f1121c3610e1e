package main

import (
	"fmt"
	"strings"

	"github.com/pevans/issuewatch/config"
	"github.com/pevans/issuewatch/store"
)

// openBackend opens the record backend of the given type at location and
// verifies that it can be written. The returned function releases it.
func openBackend(storageType, location string) (store.Backend, func() error, error) {
	switch strings.ToLower(storageType) {
	case "", config.StorageFile:
		backend := store.NewFileBackend(location)
		if err := backend.CheckWritable(); err != nil {
			return nil, nil, err
		}
		return backend, func() error { return nil }, nil
	case config.StorageSQLite:
		backend, err := store.NewSQLiteBackend(location)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open issues database: %w", err)
		}
		return backend, backend.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage type: %s", storageType)
	}
}
