package types

// Store provides uniform CRUD operations over the catalog. Both the JSON and
// the SQLite backends implement it; callers depend only on this interface.
type Store interface {
	// Create validates b, assigns a new unique ID and persists the record.
	// Any ID set on b is ignored. Returns the stored book.
	Create(b Book) (Book, error)

	// Get returns the book with the given ID, or a *NotFoundError.
	Get(id int64) (Book, error)

	// List returns the books matching f in insertion order. An empty
	// catalog yields an empty slice, never an error.
	List(f Filter) ([]Book, error)

	// Update applies p to the book with the given ID and returns the
	// result. Returns a *NotFoundError if the ID is absent.
	Update(id int64, p BookPatch) (Book, error)

	// Delete removes the book with the given ID. Returns a *NotFoundError
	// if the ID is absent, including on a repeated delete.
	Delete(id int64) error

	// Close releases the underlying file or database handle. Idempotent.
	Close() error
}

// Backend is a Store bound to a path that is opened explicitly. A Backend
// returned by the selector is constructed but not yet open.
type Backend interface {
	Store

	// Open loads or creates the underlying store. Returns ErrAlreadyOpen
	// if called twice without Close, and a *CorruptStoreError when the
	// existing content cannot be read.
	Open() error

	// Kind returns BackendJSON or BackendSQLite.
	Kind() string

	// Path returns the database path the backend was built for.
	Path() string
}

// Supported backend kinds.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)
