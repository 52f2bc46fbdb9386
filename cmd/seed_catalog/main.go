// Command seed_catalog replaces the stored catalog with books from a JSON
// file, or with the built-in default catalog when no file is given.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"library-catalog/internal/config"
	"library-catalog/internal/logger"
	"library-catalog/library"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	envFile string
	file    string
	fresh   bool
	reset   bool
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "seed_catalog",
		Short:         "Load a book catalog into the library store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with LIBRARY_* settings")
	f.StringVarP(&opts.file, "file", "f", "", "JSON array of books (default: built-in catalog)")
	f.BoolVar(&opts.fresh, "fresh", false, "remove the sqlite database files before seeding")
	f.BoolVar(&opts.reset, "reset", false, "also delete users, borrows and the session")
	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.NewLogger("seed-catalog", cfg.LogLevel)

	if opts.fresh && cfg.Storage.Backend == config.BackendSQLite {
		fmt.Fprintln(out, "Cleaning up existing database files...")
		db := cfg.Storage.DBPath
		for _, file := range []string{db, db + "-shm", db + "-wal"} {
			if err := os.Remove(filepath.Clean(file)); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(out, "Warning: could not remove %s: %v\n", file, err)
			}
		}
	}

	books, source, err := loadBooks(opts.file)
	if err != nil {
		return err
	}

	mgr, err := library.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if opts.reset {
		if err := mgr.Reset(ctx); err != nil {
			return err
		}
	}
	if err := mgr.Catalog().Seed(ctx, books); err != nil {
		return err
	}

	total := 0
	for _, b := range books {
		total += b.Copies
	}
	fmt.Fprintf(out, "Seeded %d books (%d copies) from %s.\n", len(books), total, source)
	return nil
}

func loadBooks(path string) ([]library.Book, string, error) {
	if path == "" {
		books, err := library.DefaultBooks()
		return books, "the built-in catalog", err
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	books, err := library.ReadBooks(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return books, path, nil
}
