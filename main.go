package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-catalog/internal/config"
	"library-catalog/internal/logger"
	"library-catalog/library"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{
		in:          bufio.NewReader(os.Stdin),
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	root := newRootCmd(a)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		a.close()
		os.Exit(1)
	}
	a.close()
}

// app carries what every command needs once the root pre-run has opened
// the library.
type app struct {
	cfg *config.Config
	log *logger.Logger
	mgr *library.LibraryManager

	in          *bufio.Reader
	interactive bool
}

type rootFlags struct {
	envFile  string
	backend  string
	dbPath   string
	driver   string
	logLevel string
}

func newRootCmd(a *app) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "library",
		Short:         "Browse the catalog, borrow and return books",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file with LIBRARY_* settings")
	pf.StringVar(&flags.backend, "backend", "", "storage backend: sqlite, redis or memory")
	pf.StringVar(&flags.dbPath, "db", "", "sqlite database path")
	pf.StringVar(&flags.driver, "sqlite-driver", "", "sqlite driver: sqlite3 (cgo) or sqlite (pure Go)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(commands(a)...)
	root.AddCommand(newShellCmd(a))
	return root
}

// open loads configuration, applies flag overrides and opens the library.
func (a *app) open(cmd *cobra.Command, flags rootFlags) error {
	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return err
	}
	pf := cmd.Flags()
	if pf.Changed("backend") {
		cfg.Storage.Backend = flags.backend
	}
	if pf.Changed("db") {
		cfg.Storage.DBPath = flags.dbPath
	}
	if pf.Changed("sqlite-driver") {
		cfg.Storage.SQLiteDriver = flags.driver
	}
	if pf.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger.NewConsoleLogger("library-cli", cfg.LogLevel)
	ctx := a.log.WithContext(cmd.Context())

	mgr, err := library.Open(ctx, cfg, a.log)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	a.mgr = mgr

	seeded, err := mgr.Catalog().EnsureDefaults(ctx)
	if err != nil {
		return err
	}
	if seeded {
		a.log.Info().Msg("default catalog seeded")
	}
	return nil
}

func (a *app) close() {
	if a.mgr == nil {
		return
	}
	if err := a.mgr.Close(); err != nil {
		a.log.Error().Err(err).Msg("close library")
	}
	a.mgr = nil
}

// session returns the logged-in user or a friendly error.
func (a *app) session(ctx context.Context) (library.Session, error) {
	s, err := a.mgr.Current(ctx)
	if errors.Is(err, library.ErrNotFound) {
		return library.Session{}, errors.New("not logged in; run 'library login' first")
	}
	return s, err
}

// prompt reads one trimmed line.
func (a *app) prompt(w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads a password with masking when stdin is a terminal and
// falls back to a plain line otherwise.
func (a *app) readPassword(w io.Writer, label string) (string, error) {
	if !a.interactive {
		return a.prompt(w, label)
	}
	fmt.Fprint(w, label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
