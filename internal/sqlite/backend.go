// Package sqlite implements the SQLite storage backend for the catalog.
//
// Books live in a single books table keyed by an AUTOINCREMENT integer id,
// so deleted ids are never reissued. Tags and quotes are stored as JSON
// arrays in text columns. Every mutation runs in its own transaction.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	applog "github.com/mesh-intelligence/booklib/internal/log"
	"github.com/mesh-intelligence/booklib/pkg/types"
)

// Compile-time interface check.
var _ types.Backend = (*Backend)(nil)

// Backend implements types.Backend over a SQLite database file.
type Backend struct {
	mu     sync.RWMutex
	path   string
	db     *sql.DB
	logger *slog.Logger
}

// NewBackend returns an unopened backend for the database at path.
func NewBackend(path string) *Backend {
	return &Backend{
		path:   path,
		logger: applog.WithComponent("sqlite").With(slog.String("path", path)),
	}
}

// Kind returns types.BackendSQLite.
func (b *Backend) Kind() string { return types.BackendSQLite }

// Path returns the database path.
func (b *Backend) Path() string { return b.path }

// Open connects to the database, creating the file and schema if needed.
// A file that is not a SQLite database, or that holds a books table with a
// different shape, fails with *types.CorruptStoreError.
// Returns types.ErrAlreadyOpen if already open.
func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return types.ErrAlreadyOpen
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	existed := false
	if info, err := os.Stat(b.path); err == nil && info.Size() > 0 {
		existed = true
	}

	dsn, err := dsnFor(b.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", b.path, err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("opening %s: %w", b.path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		if existed {
			return &types.CorruptStoreError{Path: b.path, Err: err}
		}
		return fmt.Errorf("opening %s: %w", b.path, err)
	}

	var check string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&check); err != nil {
		db.Close()
		return &types.CorruptStoreError{Path: b.path, Err: err}
	}
	if !strings.EqualFold(check, "ok") {
		db.Close()
		return &types.CorruptStoreError{Path: b.path, Err: errors.New(check)}
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		var incompatible *incompatibleSchemaError
		if errors.As(err, &incompatible) {
			return &types.CorruptStoreError{Path: b.path, Err: err}
		}
		return fmt.Errorf("preparing schema in %s: %w", b.path, err)
	}

	b.db = db
	b.logger.Debug("store opened")
	return nil
}

// dsnFor builds a file: URI for path. The path is escaped so that '?', '#'
// and '%' in a file name cannot be read as URI syntax.
func dsnFor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // windows drive letter
	}
	u := url.URL{
		Scheme:   "file",
		Path:     p,
		RawQuery: "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
	}
	return u.String(), nil
}

// Close releases the connection. Idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	if err != nil {
		return fmt.Errorf("closing %s: %w", b.path, err)
	}
	b.logger.Debug("store closed")
	return nil
}

// Create inserts the book and returns it with the id SQLite assigned.
func (b *Backend) Create(book types.Book) (types.Book, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return types.Book{}, types.ErrStoreClosed
	}
	book = book.Normalize()
	if err := book.Validate(); err != nil {
		return types.Book{}, err
	}
	args, err := bookArgs(book)
	if err != nil {
		return types.Book{}, err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return types.Book{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"INSERT INTO books (title, author, year, genre, isbn, pages, tags, quotes, added_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		args...,
	)
	if err != nil {
		return types.Book{}, fmt.Errorf("inserting book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Book{}, fmt.Errorf("reading inserted id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.Book{}, fmt.Errorf("committing book: %w", err)
	}

	book.ID = id
	b.logger.Debug("book created", slog.Int64("id", id))
	return book, nil
}

// Get returns the book with the given id.
func (b *Backend) Get(id int64) (types.Book, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return types.Book{}, types.ErrStoreClosed
	}
	book, err := scanBook(b.db.QueryRow(selectBooks+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Book{}, &types.NotFoundError{ID: id}
	}
	if err != nil {
		return types.Book{}, fmt.Errorf("getting book %d: %w", id, err)
	}
	return book, nil
}

// List returns matching books ordered by id. The year predicate runs in SQL;
// the text predicates are applied by f.Match.
func (b *Backend) List(f types.Filter) ([]types.Book, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, types.ErrStoreClosed
	}

	query := selectBooks
	var args []any
	if f.Year != nil {
		query += " WHERE year = ?"
		args = append(args, *f.Year)
	}
	query += " ORDER BY id ASC"

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	defer rows.Close()

	matchAll := f.IsZero()
	out := make([]types.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		if matchAll || f.Match(book) {
			out = append(out, book)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	return out, nil
}

// Update applies p to the stored book inside one transaction.
func (b *Backend) Update(id int64, p types.BookPatch) (types.Book, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return types.Book{}, types.ErrStoreClosed
	}

	tx, err := b.db.Begin()
	if err != nil {
		return types.Book{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	cur, err := scanBook(tx.QueryRow(selectBooks+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Book{}, &types.NotFoundError{ID: id}
	}
	if err != nil {
		return types.Book{}, fmt.Errorf("getting book %d: %w", id, err)
	}
	updated, err := p.Apply(cur)
	if err != nil {
		return types.Book{}, err
	}
	args, err := bookArgs(updated)
	if err != nil {
		return types.Book{}, err
	}

	res, err := tx.Exec(
		"UPDATE books SET title = ?, author = ?, year = ?, genre = ?, isbn = ?, pages = ?, tags = ?, quotes = ?, added_at = ? WHERE id = ?",
		append(args, id)...,
	)
	if err != nil {
		return types.Book{}, fmt.Errorf("updating book %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return types.Book{}, fmt.Errorf("updating book %d: %w", id, err)
	} else if n == 0 {
		return types.Book{}, &types.NotFoundError{ID: id}
	}
	if err := tx.Commit(); err != nil {
		return types.Book{}, fmt.Errorf("committing book %d: %w", id, err)
	}

	b.logger.Debug("book updated", slog.Int64("id", id))
	return updated, nil
}

// Delete removes the book with the given id.
func (b *Backend) Delete(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return types.ErrStoreClosed
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting book %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting book %d: %w", id, err)
	}
	if n == 0 {
		return &types.NotFoundError{ID: id}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing deletion of book %d: %w", id, err)
	}

	b.logger.Debug("book deleted", slog.Int64("id", id))
	return nil
}
