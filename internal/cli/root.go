// Package cli implements the booklib command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	applog "github.com/mesh-intelligence/booklib/internal/log"
	"github.com/mesh-intelligence/booklib/internal/paths"
	"github.com/mesh-intelligence/booklib/pkg/booklib"
	"github.com/mesh-intelligence/booklib/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	db        string
	jsonMode  bool
	logLevel  string
}

// app carries the state shared by one command invocation.
type app struct {
	flags     rootFlags
	cfg       *viper.Viper
	configDir string
	started   bool // set once argument parsing succeeded
}

// newRoot creates the top-level "booklib" command with global flags and
// all subcommands registered, and the state they share.
func newRoot() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:     "booklib",
		Short:   "A personal library catalog",
		Long:    "booklib keeps a catalog of books in a JSON file or a SQLite database.\nThe backend is chosen by the database file extension.",
		Version: booklib.Version,
		// Errors are reported by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.started = true
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.db, "db", "", "catalog path; .json selects the JSON backend, .db/.sqlite/.sqlite3 selects SQLite")
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newUpdateCmd(a),
		newRemoveCmd(a),
		newAddQuoteCmd(a),
		newDelQuoteCmd(a),
		newExportCSVCmd(a),
		newImportCSVCmd(a),
		newMigrateCmd(a),
	)
	return root, a
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	root, a := newRoot()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer applog.Close()

	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "booklib:", err)
	if !a.started {
		// Unknown commands, bad flags and wrong argument counts.
		return exitUserError
	}
	return exitCode(err)
}

// setup resolves the config directory, loads config.yaml and initializes
// logging.
func (a *app) setup(cmd *cobra.Command) error {
	dir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	a.configDir, a.cfg = dir, cfg

	level := a.flags.logLevel
	if level == "" {
		level = cfg.GetString(cfgKeyLogLevel)
	}
	applog.Init(applog.Options{
		Level:  level,
		Format: cfg.GetString(cfgKeyLogFormat),
		File:   cfg.GetString(cfgKeyLogFile),
		Writer: cmd.ErrOrStderr(),
	})
	return nil
}

// dbPath returns the catalog path: --db > config db > BOOKLIB_DB > default.
func (a *app) dbPath() (string, error) {
	configValue := ""
	if a.cfg != nil {
		configValue = a.cfg.GetString(cfgKeyDB)
	}
	p, err := paths.ResolveDBPath(a.flags.db, configValue)
	if err != nil {
		return "", fmt.Errorf("resolve database path: %w", err)
	}
	return p, nil
}

// openStore opens the catalog backend. The caller must defer Close.
func (a *app) openStore() (types.Backend, error) {
	p, err := a.dbPath()
	if err != nil {
		return nil, err
	}
	return booklib.Open(p)
}

// userError marks command-line mistakes such as malformed arguments.
type userError struct{ msg string }

func (e *userError) Error() string { return e.msg }

func userErrorf(format string, args ...any) error {
	return &userError{msg: fmt.Sprintf(format, args...)}
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	var ue *userError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue),
		errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrUnsupportedBackend),
		errors.Is(err, types.ErrDuplicate),
		errors.Is(err, types.ErrQuoteIndex),
		errors.Is(err, types.ErrDestinationNotEmpty):
		return exitUserError
	default:
		return exitSysError
	}
}
