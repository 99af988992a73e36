// Package migrate copies a catalog from the JSON backend into the SQLite
// backend.
//
// Records are copied one at a time in source order, each in its own
// destination transaction. The destination assigns fresh ids; every other
// field is preserved. A failure stops the run and reports how many records
// were already committed. Running twice into the same destination copies the
// records twice; MigrateFiles can refuse a non-empty destination with
// Options.RequireEmpty.
package migrate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	applog "github.com/mesh-intelligence/booklib/internal/log"
	"github.com/mesh-intelligence/booklib/pkg/booklib"
	"github.com/mesh-intelligence/booklib/pkg/types"
)

// Source yields the records to migrate.
type Source interface {
	List(f types.Filter) ([]types.Book, error)
}

// Destination accepts migrated records.
type Destination interface {
	Create(b types.Book) (types.Book, error)
}

// Options controls MigrateFiles.
type Options struct {
	// RequireEmpty refuses to write into a destination that already holds
	// records.
	RequireEmpty bool
}

// Report summarizes a migration run.
type Report struct {
	RunID       string
	Source      string
	Destination string
	Total       int
	Migrated    int
	// IDMap maps source ids to the ids the destination assigned.
	IDMap    map[int64]int64
	Started  time.Time
	Finished time.Time
}

// Duration returns the wall time of the run.
func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Migrate copies every record of src into dst. On the first failed insert it
// returns the partial report and a *types.MigrationError.
func Migrate(src Source, dst Destination) (Report, error) {
	rep := Report{
		RunID:   newRunID(),
		IDMap:   make(map[int64]int64),
		Started: time.Now().UTC(),
	}
	logger := applog.WithComponent("migrate").With(slog.String("run_id", rep.RunID))

	books, err := src.List(types.Filter{})
	if err != nil {
		rep.Finished = time.Now().UTC()
		return rep, &types.MigrationError{Err: fmt.Errorf("reading source: %w", err)}
	}
	rep.Total = len(books)
	logger.Info("migration started", slog.Int("total", rep.Total))

	for _, b := range books {
		srcID := b.ID
		rec := b.Clone()
		rec.ID = 0

		created, err := dst.Create(rec)
		if err != nil {
			rep.Finished = time.Now().UTC()
			logger.Error("migration stopped",
				slog.Int64("source_id", srcID),
				slog.Int("migrated", rep.Migrated),
				slog.Any("err", err))
			return rep, &types.MigrationError{
				Migrated: rep.Migrated,
				Total:    rep.Total,
				Failed:   srcID,
				Err:      err,
			}
		}
		rep.IDMap[srcID] = created.ID
		rep.Migrated++
		logger.Debug("record migrated", slog.Int64("source_id", srcID), slog.Int64("dest_id", created.ID))
	}

	rep.Finished = time.Now().UTC()
	logger.Info("migration finished",
		slog.Int("migrated", rep.Migrated),
		slog.Duration("took", rep.Duration()))
	return rep, nil
}

// MigrateFiles opens srcPath as a JSON catalog and dstPath as a SQLite
// catalog, migrates, and closes both. A path whose extension selects the
// wrong backend fails with types.ErrUnsupportedBackend before anything is
// opened.
func MigrateFiles(srcPath, dstPath string, opts Options) (rep Report, err error) {
	src, err := selectKind(srcPath, types.BackendJSON)
	if err != nil {
		return Report{}, err
	}
	dst, err := selectKind(dstPath, types.BackendSQLite)
	if err != nil {
		return Report{}, err
	}

	if err := src.Open(); err != nil {
		return Report{}, fmt.Errorf("opening source %s: %w", srcPath, err)
	}
	defer func() {
		if cerr := closeWrap(src, "source"); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := dst.Open(); err != nil {
		return Report{}, fmt.Errorf("opening destination %s: %w", dstPath, err)
	}
	defer func() {
		if cerr := closeWrap(dst, "destination"); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if opts.RequireEmpty {
		existing, err := dst.List(types.Filter{})
		if err != nil {
			return Report{}, fmt.Errorf("checking destination %s: %w", dstPath, err)
		}
		if len(existing) > 0 {
			return Report{}, fmt.Errorf("%w: %s holds %d records", types.ErrDestinationNotEmpty, dstPath, len(existing))
		}
	}

	rep, err = Migrate(src, dst)
	rep.Source, rep.Destination = srcPath, dstPath
	return rep, err
}

// selectKind returns the unopened backend for path and checks it is of the
// wanted kind.
func selectKind(path, want string) (types.Backend, error) {
	kind, err := booklib.KindForPath(path)
	if err != nil {
		return nil, err
	}
	if kind != want {
		return nil, fmt.Errorf("%w: %s is a %s store, want %s", types.ErrUnsupportedBackend, path, kind, want)
	}
	return booklib.Select(path)
}

func closeWrap(b types.Backend, role string) error {
	if err := b.Close(); err != nil {
		return fmt.Errorf("closing %s %s: %w", role, b.Path(), err)
	}
	return nil
}

// newRunID returns a time-ordered identifier for a migration run.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
