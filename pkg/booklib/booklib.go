// Package booklib is the public entry point for opening a catalog. It picks
// the storage backend from the database file extension and keeps the
// backend implementations internal.
//
// Example:
//
//	store, err := booklib.Open("library.json")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package booklib

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/booklib/internal/jsonstore"
	"github.com/mesh-intelligence/booklib/internal/sqlite"
	"github.com/mesh-intelligence/booklib/pkg/types"
)

// extensions maps lower-case file extensions to backend kinds.
var extensions = map[string]string{
	".json":    types.BackendJSON,
	".db":      types.BackendSQLite,
	".sqlite":  types.BackendSQLite,
	".sqlite3": types.BackendSQLite,
}

// KindForPath returns the backend kind for path, matching the extension
// case-insensitively. Unknown extensions return *types.UnsupportedBackendError.
func KindForPath(path string) (string, error) {
	ext := filepath.Ext(path)
	kind, ok := extensions[strings.ToLower(ext)]
	if !ok {
		return "", &types.UnsupportedBackendError{Path: path, Ext: ext}
	}
	return kind, nil
}

// Select returns an unopened backend for path.
func Select(path string) (types.Backend, error) {
	kind, err := KindForPath(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case types.BackendJSON:
		return jsonstore.New(path), nil
	case types.BackendSQLite:
		return sqlite.NewBackend(path), nil
	default:
		return nil, &types.UnsupportedBackendError{Path: path, Ext: filepath.Ext(path)}
	}
}

// Open selects the backend for path and opens it. The caller must Close the
// returned backend.
func Open(path string) (types.Backend, error) {
	b, err := Select(path)
	if err != nil {
		return nil, err
	}
	if err := b.Open(); err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return b, nil
}
