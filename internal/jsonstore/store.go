package jsonstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/mesh-intelligence/booklib/internal/atomicfile"
	applog "github.com/mesh-intelligence/booklib/internal/log"
	"github.com/mesh-intelligence/booklib/pkg/types"
)

// Compile-time interface check.
var _ types.Backend = (*Store)(nil)

// Store is the JSON document backend. Construct with New, then Open.
type Store struct {
	mu     sync.RWMutex
	path   string
	open   bool
	books  map[int64]types.Book
	order  []int64 // ids in insertion order
	nextID int64

	logger *slog.Logger
	write  func(path string, data []byte) error
}

// New returns an unopened store for the document at path.
func New(path string) *Store {
	return &Store{
		path:   path,
		logger: applog.WithComponent("jsonstore").With(slog.String("path", path)),
		write:  atomicfile.WriteFile,
	}
}

// Kind returns types.BackendJSON.
func (s *Store) Kind() string { return types.BackendJSON }

// Path returns the document path.
func (s *Store) Path() string { return s.path }

// Open loads the document into memory. A missing file is an empty catalog;
// it is created by the first mutation. Unreadable content fails with a
// *types.CorruptStoreError.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return types.ErrAlreadyOpen
	}

	books, order, nextID, err := load(s.path)
	if err != nil {
		return err
	}
	s.books, s.order, s.nextID = books, order, nextID
	s.open = true
	s.logger.Debug("store opened", slog.Int("books", len(order)), slog.Int64("next_id", nextID))
	return nil
}

// Close drops the in-memory catalog. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	s.open = false
	s.books, s.order = nil, nil
	s.logger.Debug("store closed")
	return nil
}

// Create assigns the next id, rewrites the document and returns the stored
// book.
func (s *Store) Create(b types.Book) (types.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return types.Book{}, types.ErrStoreClosed
	}
	b = b.Normalize()
	if err := b.Validate(); err != nil {
		return types.Book{}, err
	}
	b.ID = s.nextID

	next := append(s.snapshot(), b)
	if err := s.persist(next, b.ID+1); err != nil {
		return types.Book{}, err
	}

	s.books[b.ID] = b
	s.order = append(s.order, b.ID)
	s.nextID = b.ID + 1
	s.logger.Debug("book created", slog.Int64("id", b.ID))
	return b.Clone(), nil
}

// Get returns the book with the given id from memory.
func (s *Store) Get(id int64) (types.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.open {
		return types.Book{}, types.ErrStoreClosed
	}
	b, ok := s.books[id]
	if !ok {
		return types.Book{}, &types.NotFoundError{ID: id}
	}
	return b.Clone(), nil
}

// List returns matching books in insertion order.
func (s *Store) List(f types.Filter) ([]types.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.open {
		return nil, types.ErrStoreClosed
	}
	matchAll := f.IsZero()
	out := make([]types.Book, 0, len(s.order))
	for _, id := range s.order {
		if b := s.books[id]; matchAll || f.Match(b) {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

// Update applies p to the book with the given id and rewrites the document.
func (s *Store) Update(id int64, p types.BookPatch) (types.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return types.Book{}, types.ErrStoreClosed
	}
	cur, ok := s.books[id]
	if !ok {
		return types.Book{}, &types.NotFoundError{ID: id}
	}
	updated, err := p.Apply(cur)
	if err != nil {
		return types.Book{}, err
	}

	next := s.snapshot()
	for i := range next {
		if next[i].ID == id {
			next[i] = updated
			break
		}
	}
	if err := s.persist(next, s.nextID); err != nil {
		return types.Book{}, err
	}

	s.books[id] = updated
	s.logger.Debug("book updated", slog.Int64("id", id))
	return updated.Clone(), nil
}

// Delete removes the book with the given id and rewrites the document. The
// id is never issued again.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return types.ErrStoreClosed
	}
	if _, ok := s.books[id]; !ok {
		return &types.NotFoundError{ID: id}
	}

	next := make([]types.Book, 0, len(s.order))
	order := make([]int64, 0, len(s.order))
	for _, oid := range s.order {
		if oid == id {
			continue
		}
		next = append(next, s.books[oid])
		order = append(order, oid)
	}
	if err := s.persist(next, s.nextID); err != nil {
		return err
	}

	delete(s.books, id)
	s.order = order
	s.logger.Debug("book deleted", slog.Int64("id", id))
	return nil
}

// snapshot returns the current books in insertion order. The caller must
// hold s.mu.
func (s *Store) snapshot() []types.Book {
	out := make([]types.Book, 0, len(s.order)+1)
	for _, id := range s.order {
		out = append(out, s.books[id])
	}
	return out
}

// persist serializes books and writes the whole document atomically.
func (s *Store) persist(books []types.Book, nextID int64) error {
	doc := documentJSON{
		Version: documentVersion,
		NextID:  nextID,
		Books:   make([]bookJSON, 0, len(books)),
	}
	for _, b := range books {
		doc.Books = append(doc.Books, toJSON(b))
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	data = append(data, '\n')
	if err := s.write(s.path, data); err != nil {
		s.logger.Error("write failed", slog.Any("err", err))
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

// load reads and checks the document at path.
func load(path string) (map[int64]types.Book, []int64, int64, error) {
	books := make(map[int64]types.Book)
	var order []int64

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return books, order, 1, nil
		}
		return nil, nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return books, order, 1, nil
	}

	corrupt := func(err error) (map[int64]types.Book, []int64, int64, error) {
		return nil, nil, 0, &types.CorruptStoreError{Path: path, Err: err}
	}

	if !json.Valid(data) {
		return corrupt(errors.New("invalid JSON"))
	}
	if err := validateDocument(data); err != nil {
		return corrupt(err)
	}

	var doc documentJSON
	legacy := data[0] == '['
	if legacy {
		if err := json.Unmarshal(data, &doc.Books); err != nil {
			return corrupt(err)
		}
	} else if err := json.Unmarshal(data, &doc); err != nil {
		return corrupt(err)
	}

	var maxID int64
	pending := make([]int, 0)
	decoded := make([]types.Book, len(doc.Books))
	for i, rec := range doc.Books {
		b, err := fromJSON(rec)
		if err != nil {
			return corrupt(fmt.Errorf("record %d: %w", i, err))
		}
		if err := b.Validate(); err != nil {
			return corrupt(fmt.Errorf("record %d: %w", i, err))
		}
		id, ok := parseID(rec.ID)
		switch {
		case ok && id > 0:
			if _, dup := books[id]; dup {
				return corrupt(fmt.Errorf("duplicate id %d", id))
			}
			b.ID = id
			books[id] = b
			maxID = max(maxID, id)
		case !ok && legacy:
			pending = append(pending, i)
		default:
			return corrupt(fmt.Errorf("record %d: invalid id %s", i, string(rec.ID)))
		}
		decoded[i] = b
	}

	// Legacy records without an integer id are numbered after the highest
	// integer id, in file order.
	for _, i := range pending {
		maxID++
		decoded[i].ID = maxID
		books[maxID] = decoded[i]
	}
	for _, b := range decoded {
		order = append(order, b.ID)
	}

	nextID := max(maxID+1, doc.NextID, 1)
	return books, order, nextID, nil
}
