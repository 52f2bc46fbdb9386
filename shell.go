package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session running the same commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runShell(cmd)
		},
	}
}

func (a *app) runShell(parent *cobra.Command) error {
	out := parent.OutOrStdout()
	ctx := parent.Context()

	fmt.Fprintln(out, titleStyle.Render("Welcome to the Library Catalog!"))
	if s, err := a.mgr.Current(ctx); err == nil {
		fmt.Fprintf(out, "Logged in as %s.\n", s.DisplayName)
	}
	fmt.Fprintln(out, helpStyle.Render("Type 'help' for commands, 'exit' to quit."))

	for {
		line, err := a.prompt(out, "\n> ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}

		args, err := splitArgs(line)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case "shell":
			fmt.Fprintln(out, "Already in the shell.")
			continue
		}

		// A fresh tree per line keeps flag state from leaking between
		// commands and skips the root's open hook.
		root := &cobra.Command{Use: "library", SilenceUsage: true, SilenceErrors: true}
		root.AddCommand(commands(a)...)
		root.SetArgs(args)
		root.SetOut(out)
		root.SetErr(out)
		if err := root.ExecuteContext(ctx); err != nil {
			fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
		}
	}
}

// splitArgs splits a shell line on whitespace, keeping double-quoted
// sections together.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		hasTok  bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			hasTok = true
		case (r == ' ' || r == '\t') && !inQuote:
			if hasTok {
				args = append(args, cur.String())
				cur.Reset()
				hasTok = false
			}
		default:
			cur.WriteRune(r)
			hasTok = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if hasTok {
		args = append(args, cur.String())
	}
	return args, nil
}
