package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/booklib/pkg/booklib"
	"github.com/mesh-intelligence/booklib/pkg/types"
)

// cliEnv is an isolated config directory and catalog path.
type cliEnv struct {
	t         *testing.T
	configDir string
	db        string
}

func newEnv(t *testing.T, dbName string) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BOOKLIB_DB", "")
	t.Setenv("BOOKLIB_CONFIG_DIR", "")
	t.Setenv("BOOKLIB_LOG_LEVEL", "")
	t.Setenv("BOOKLIB_LOG_FORMAT", "")
	t.Setenv("BOOKLIB_LOG_FILE", "")
	return &cliEnv{
		t:         t,
		configDir: filepath.Join(dir, "config"),
		db:        filepath.Join(dir, dbName),
	}
}

func (e *cliEnv) run(args ...string) (int, string, string) {
	e.t.Helper()
	var out, errb bytes.Buffer
	full := append([]string{"--config-dir", e.configDir, "--db", e.db}, args...)
	code := run(full, &out, &errb)
	return code, out.String(), errb.String()
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	code, out, errOut := e.run(args...)
	require.Equal(e.t, exitSuccess, code, "args %v: %s", args, errOut)
	return out
}

func (e *cliEnv) book(id string) types.Book {
	e.t.Helper()
	var b types.Book
	require.NoError(e.t, json.Unmarshal([]byte(e.mustRun("--json", "show", id)), &b))
	return b
}

func TestBookCommandsBothBackends(t *testing.T) {
	for _, name := range []string{"library.json", "library.db"} {
		t.Run(name, func(t *testing.T) {
			env := newEnv(t, name)

			out := env.mustRun("add", "-t", "Dune", "-a", "Frank Herbert", "--year", "1965", "--tags", "sf,classic,SF")
			assert.Equal(t, "Added book 1: Dune (Frank Herbert)\n", out)
			env.mustRun("add", "-t", "Emma", "-a", "Jane Austen", "--year", "1815", "--genre", "novel")

			b := env.book("1")
			assert.Equal(t, "Dune", b.Title)
			require.NotNil(t, b.Year)
			assert.Equal(t, 1965, *b.Year)
			assert.Equal(t, []string{"sf", "classic"}, b.Tags)

			out = env.mustRun("list")
			assert.Contains(t, out, "Dune")
			assert.Contains(t, out, "Emma")
			assert.Contains(t, out, "Total: 2 book(s)")

			var books []types.Book
			require.NoError(t, json.Unmarshal([]byte(env.mustRun("--json", "list", "--author", "austen")), &books))
			require.Len(t, books, 1)
			assert.Equal(t, "Emma", books[0].Title)

			books = nil
			require.NoError(t, json.Unmarshal([]byte(env.mustRun("--json", "list", "--by", "year", "--desc", "--limit", "1")), &books))
			require.Len(t, books, 1)
			assert.Equal(t, "Dune", books[0].Title)

			env.mustRun("update", "2", "--pages", "474", "--genre", "")
			b = env.book("2")
			require.NotNil(t, b.Pages)
			assert.Equal(t, 474, *b.Pages)
			assert.Nil(t, b.Genre)
			assert.Equal(t, "Jane Austen", b.Author)

			assert.Equal(t, "Removed book 1\n", env.mustRun("remove", "1"))
			code, _, errOut := env.run("show", "1")
			assert.Equal(t, exitUserError, code)
			assert.Contains(t, errOut, "not found")

			out = env.mustRun("show", "2")
			assert.Contains(t, out, "Title:   Emma")
			assert.Contains(t, out, "Pages:   474")
		})
	}
}

func TestExitCodes(t *testing.T) {
	env := newEnv(t, "library.json")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown command", []string{"frobnicate"}, exitUserError},
		{"unknown flag", []string{"list", "--nope"}, exitUserError},
		{"missing title", []string{"add", "-a", "Someone"}, exitUserError},
		{"bad id", []string{"show", "abc"}, exitUserError},
		{"missing id", []string{"show", "42"}, exitUserError},
		{"empty update", []string{"update", "1"}, exitUserError},
		{"negative limit", []string{"list", "--limit", "-1"}, exitUserError},
		{"version", []string{"version"}, exitSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := env.run(tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestUnsupportedExtension(t *testing.T) {
	env := newEnv(t, "library.txt")
	code, _, errOut := env.run("list")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "unsupported backend")
}

func TestCorruptCatalogIsSystemError(t *testing.T) {
	env := newEnv(t, "library.json")
	require.NoError(t, os.WriteFile(env.db, []byte("{not json"), 0o644))

	code, _, errOut := env.run("list")
	assert.Equal(t, exitSysError, code)
	assert.Contains(t, errOut, "corrupt store")
}

func TestDuplicateAdd(t *testing.T) {
	env := newEnv(t, "library.json")
	env.mustRun("add", "-t", "Dune", "-a", "Frank Herbert", "--year", "1965")

	code, _, errOut := env.run("add", "-t", "dune", "-a", "frank herbert", "--year", "1965")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "--allow-duplicate")

	env.mustRun("add", "-t", "dune", "-a", "frank herbert", "--year", "1965", "--allow-duplicate")
	var books []types.Book
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("--json", "list")), &books))
	assert.Len(t, books, 2)
}

func TestQuoteCommands(t *testing.T) {
	env := newEnv(t, "library.db")
	env.mustRun("add", "-t", "Dune", "-a", "Frank Herbert")

	assert.Equal(t, "Added quote 1 to book 1\n", env.mustRun("add-quote", "1", "Fear is the mind-killer."))
	env.mustRun("add-quote", "1", "The spice must flow.")

	code, _, _ := env.run("add-quote", "1", "  fear is the   MIND-KILLER. ")
	assert.Equal(t, exitUserError, code)

	code, _, _ = env.run("del-quote", "1", "3")
	assert.Equal(t, exitUserError, code)

	assert.Equal(t, "Removed quote: Fear is the mind-killer.\n", env.mustRun("del-quote", "1", "1"))
	assert.Equal(t, []string{"The spice must flow."}, env.book("1").Quotes)
}

func TestCSVRoundTrip(t *testing.T) {
	env := newEnv(t, "library.json")
	env.mustRun("add", "-t", "Dune", "-a", "Frank Herbert", "--tags", "sf")
	env.mustRun("add-quote", "1", "Fear is the mind-killer.")
	env.mustRun("add", "-t", "Emma", "-a", "Jane Austen")

	csvPath := filepath.Join(t.TempDir(), "books.csv")
	assert.Equal(t, "Exported 2 book(s) to "+csvPath+"\n", env.mustRun("export-csv", csvPath))

	other := newEnv(t, "other.db")
	out := other.mustRun("import-csv", csvPath)
	assert.Equal(t, "Imported 2, updated 0, skipped 0 duplicate(s)\n", out)
	assert.Equal(t, []string{"Fear is the mind-killer."}, other.book("1").Quotes)

	code, _, _ := other.run("import-csv", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Equal(t, exitUserError, code)
}

func TestMigrateCommand(t *testing.T) {
	env := newEnv(t, "library.json")
	env.mustRun("add", "-t", "Dune", "-a", "Frank Herbert")
	env.mustRun("add", "-t", "Emma", "-a", "Jane Austen")
	env.mustRun("remove", "1")

	dst := filepath.Join(t.TempDir(), "library.db")
	out := env.mustRun("migrate-sqlite", "--dst", dst)
	assert.Equal(t, "Migrated 1 of 1 book(s) from "+env.db+" to "+dst+"\n", out)

	store, err := booklib.Open(dst)
	require.NoError(t, err)
	books, err := store.List(types.Filter{})
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, books, 1)
	assert.Equal(t, "Emma", books[0].Title)
	assert.Equal(t, int64(1), books[0].ID)

	code, _, errOut := env.run("migrate-sqlite", "--dst", dst)
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "not empty")

	env.mustRun("migrate-sqlite", "--dst", dst, "--allow-nonempty")

	code, _, _ = env.run("migrate-sqlite", "--src", dst, "--dst", dst)
	assert.Equal(t, exitUserError, code)
}

func TestInitWritesConfig(t *testing.T) {
	env := newEnv(t, "library.db")

	out := env.mustRun("init")
	configPath := filepath.Join(env.configDir, "config.yaml")
	assert.Contains(t, out, "Wrote "+configPath)
	assert.Contains(t, out, "sqlite backend")
	assert.FileExists(t, env.db)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# booklib configuration\n"))
	assert.Contains(t, string(data), "db: "+env.db)

	out = env.mustRun("init")
	assert.NotContains(t, out, "Wrote")
}

func TestConfigSelectsDatabase(t *testing.T) {
	env := newEnv(t, "unused.json")
	db := filepath.Join(t.TempDir(), "from-config.json")
	require.NoError(t, os.MkdirAll(env.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, "config.yaml"), []byte("db: "+db+"\n"), 0o644))

	var out, errb bytes.Buffer
	code := run([]string{"--config-dir", env.configDir, "add", "-t", "Dune", "-a", "Frank Herbert"}, &out, &errb)
	require.Equal(t, exitSuccess, code, errb.String())
	assert.FileExists(t, db)
	assert.NoFileExists(t, env.db)
}

func TestVersion(t *testing.T) {
	var out, errb bytes.Buffer
	code := run([]string{"version"}, &out, &errb)
	assert.Equal(t, exitSuccess, code)
	assert.Equal(t, "booklib v"+booklib.Version+"\nmodule: "+modulePath+"\n", out.String())
}

func TestExitCodeMapping(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(&types.NotFoundError{ID: 1}))
	assert.Equal(t, exitUserError, exitCode(userErrorf("bad")))
	assert.Equal(t, exitSysError, exitCode(&types.CorruptStoreError{Path: "x"}))
	assert.Equal(t, exitSysError, exitCode(os.ErrPermission))
}

func TestExportCSVReplacesTarget(t *testing.T) {
	env := newEnv(t, "library.json")
	env.mustRun("add", "-t", "Dune", "-a", "Frank Herbert")

	outDir := t.TempDir()
	csvPath := filepath.Join(outDir, "books.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(strings.Repeat("stale,row\n", 100)), 0o644))

	env.mustRun("export-csv", csvPath)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	assert.Contains(t, string(data), "Dune")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left beside the export")
}

func TestExportCSVFailureKeepsTarget(t *testing.T) {
	env := newEnv(t, "library.json")
	env.mustRun("add", "-t", "Dune", "-a", "Frank Herbert")

	// A directory at the target path makes the final rename fail.
	target := filepath.Join(t.TempDir(), "books.csv")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "keep"), 0o755))

	code, _, errOut := env.run("export-csv", target)
	assert.Equal(t, exitSysError, code)
	assert.Contains(t, errOut, "export csv")

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file removed after failure")
}

func TestRootRegistersCommands(t *testing.T) {
	root, _ := newRoot()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{
		"init", "add", "list", "show", "update", "remove", "add-quote", "del-quote",
		"export-csv", "import-csv", "migrate-sqlite", "version",
	} {
		assert.Contains(t, names, want)
	}
}

func TestListOrder(t *testing.T) {
	env := newEnv(t, "library.db")
	env.mustRun("add", "-t", "Zazie", "-a", "Queneau")
	env.mustRun("add", "-t", "Amerika", "-a", "Kafka")

	listTitles := func(args ...string) []string {
		var books []types.Book
		require.NoError(t, json.Unmarshal([]byte(env.mustRun(append([]string{"--json", "list"}, args...)...)), &books))
		titles := make([]string, len(books))
		for i, b := range books {
			titles[i] = b.Title
		}
		return titles
	}

	assert.Equal(t, []string{"Zazie", "Amerika"}, listTitles(), "insertion order by default")
	assert.Equal(t, []string{"Amerika", "Zazie"}, listTitles("--by", "title"))
}
