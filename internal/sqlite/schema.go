package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
)

// schemaVersion is stored in PRAGMA user_version for new databases.
const schemaVersion = 1

const createBooks = `CREATE TABLE IF NOT EXISTS books (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    author TEXT NOT NULL,
    year INTEGER,
    genre TEXT,
    isbn TEXT,
    pages INTEGER,
    tags TEXT NOT NULL DEFAULT '[]',
    quotes TEXT NOT NULL DEFAULT '[]',
    added_at TEXT NOT NULL
);`

// Indexes for the common list filters.
const (
	idxBooksTitle  = `CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);`
	idxBooksAuthor = `CREATE INDEX IF NOT EXISTS idx_books_author ON books(author);`
	idxBooksYear   = `CREATE INDEX IF NOT EXISTS idx_books_year ON books(year);`
)

var indexDDL = []string{
	idxBooksTitle,
	idxBooksAuthor,
	idxBooksYear,
}

// bookColumns lists the columns an existing books table must carry.
var bookColumns = []string{
	"id", "title", "author", "year", "genre", "isbn", "pages", "tags", "quotes", "added_at",
}

// incompatibleSchemaError reports a books table this package cannot use.
type incompatibleSchemaError struct {
	problems []string
}

func (e *incompatibleSchemaError) Error() string {
	return "incompatible books table: " + strings.Join(e.problems, "; ")
}

// columnInfo is one row of pragma_table_info.
type columnInfo struct {
	typ     string
	notNull bool
	pk      int
}

// checkColumns compares an existing books table against the shape this
// package writes. id must be the INTEGER PRIMARY KEY rowid alias, and title
// and author must be NOT NULL.
func checkColumns(cols map[string]columnInfo) error {
	var problems, missing []string
	for _, c := range bookColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		problems = append(problems, "missing columns: "+strings.Join(missing, ", "))
	}

	pkCols := 0
	for _, ci := range cols {
		if ci.pk > 0 {
			pkCols++
		}
	}
	if id, ok := cols["id"]; ok && (!strings.EqualFold(id.typ, "INTEGER") || id.pk != 1 || pkCols != 1) {
		problems = append(problems, fmt.Sprintf("id is %q, not an INTEGER PRIMARY KEY", id.typ))
	}
	for _, c := range []string{"title", "author"} {
		if ci, ok := cols[c]; ok && !ci.notNull {
			problems = append(problems, c+" allows NULL")
		}
	}

	if len(problems) > 0 {
		return &incompatibleSchemaError{problems: problems}
	}
	return nil
}

// ensureSchema creates the books table and indexes when absent. An existing
// table of a different shape yields *incompatibleSchemaError.
func ensureSchema(db *sql.DB) error {
	cols, err := tableColumns(db, "books")
	if err != nil {
		return err
	}
	if len(cols) > 0 {
		if err := checkColumns(cols); err != nil {
			return err
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(createBooks); err != nil {
		return fmt.Errorf("creating books table: %w", err)
	}
	for _, ddl := range indexDDL {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	if len(cols) == 0 {
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("setting schema version: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}
	return nil
}

// tableColumns describes the columns of table, keyed by lower-case name.
// The map is empty when the table does not exist.
func tableColumns(db *sql.DB, table string) (map[string]columnInfo, error) {
	rows, err := db.Query(`SELECT name, type, "notnull", pk FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("reading table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]columnInfo)
	for rows.Next() {
		var (
			name string
			ci   columnInfo
		)
		if err := rows.Scan(&name, &ci.typ, &ci.notNull, &ci.pk); err != nil {
			return nil, fmt.Errorf("scanning table info: %w", err)
		}
		cols[strings.ToLower(name)] = ci
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading table info: %w", err)
	}
	return cols, nil
}
