package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/internal/config"
	"library-catalog/library"
)

// commands builds a fresh set of subcommands bound to a. The shell calls it
// once per line so flag values never leak between invocations.
func commands(a *app) []*cobra.Command {
	return []*cobra.Command{
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newBooksCmd(a),
		newShowCmd(a),
		newCategoriesCmd(a),
		newGenresCmd(a),
		newBorrowCmd(a),
		newReturnCmd(a),
		newBorrowsCmd(a),
		newHistoryCmd(a),
		newDashboardCmd(a),
		newReadCmd(a),
		newDownloadCmd(a),
		newEditBookCmd(a),
		newStatusCmd(a),
		newResetCmd(a),
	}
}

func parseBookID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid book id %q", s)
	}
	return id, nil
}

const dateLayout = "02 Jan 2006"

func rupiah(n int64) string {
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return "Rp " + b.String()
}

// ------------------ Accounts ------------------

func newRegisterCmd(a *app) *cobra.Command {
	var username, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			var err error
			if username == "" {
				if username, err = a.prompt(out, "Username: "); err != nil {
					return err
				}
			}
			password, err := a.readPassword(out, "Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			u, err := a.mgr.Register(cmd.Context(), username, name, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("Registered %s. You can now log in.", u.Username)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (defaults to the username)")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			var err error
			if username == "" {
				if username, err = a.prompt(out, "Username: "); err != nil {
					return err
				}
			}
			password, err := a.readPassword(out, "Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			s, err := a.mgr.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, okStyle.Render("Welcome, "+s.DisplayName+"!"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.mgr.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s), member since %s\n", s.DisplayName, s.Username, s.JoinDate.Format(dateLayout))
			return nil
		},
	}
}

// ------------------ Catalog ------------------

func newBooksCmd(a *app) *cobra.Command {
	var genre, search, category string
	var recommended, trending bool
	var random int
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			catalog := a.mgr.Catalog()

			var (
				books []library.Book
				err   error
			)
			switch {
			case category != "":
				books, err = catalog.BooksInCategory(ctx, category)
			case recommended:
				books, err = catalog.Recommended(ctx)
			case trending:
				books, err = catalog.Trending(ctx)
			case random > 0:
				books, err = catalog.Random(ctx, random)
			default:
				books, err = catalog.Search(ctx, search, genre)
			}
			if err != nil {
				return err
			}
			return printBooks(cmd, a, books)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&genre, "genre", "g", "", "exact genre filter")
	f.StringVarP(&search, "search", "s", "", "search title, author, description or genre")
	f.StringVarP(&category, "category", "c", "", "category id (see 'categories')")
	f.BoolVar(&recommended, "recommended", false, "only recommended books")
	f.BoolVar(&trending, "trending", false, "only trending books")
	f.IntVar(&random, "random", 0, "pick N random books")
	return cmd
}

func printBooks(cmd *cobra.Command, a *app, books []library.Book) error {
	out := cmd.OutOrStdout()
	if len(books) == 0 {
		fmt.Fprintln(out, "No books found.")
		return nil
	}
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%-5s %-38s %-22s %-10s %s", "ID", "Title", "Author", "Genre", "Avail")))
	for _, b := range books {
		avail, err := a.mgr.Catalog().AvailableCopies(cmd.Context(), b.ID)
		if err != nil {
			return err
		}
		line := library.PrettyBook(b, avail)
		if avail == 0 {
			line = helpStyle.Render(line)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show book details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, found, err := a.mgr.Catalog().FindBook(ctx, id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("book %d not found", id)
			}
			avail, err := a.mgr.Catalog().AvailableCopies(ctx, id)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), boxStyle.Render(describeBook(b, avail)))
			return nil
		},
	}
}

// describeBook renders every known field of b; empty ones are skipped.
func describeBook(b library.Book, avail int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\nby %s\n\n", titleStyle.Render(b.Title), b.Author)
	fmt.Fprintf(&sb, "Genre:      %s\n", b.Genre)
	fmt.Fprintf(&sb, "Available:  %d of %d\n", avail, b.Copies)

	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%-11s %s\n", label+":", value)
		}
	}
	num := func(label string, n int) {
		if n > 0 {
			line(label, strconv.Itoa(n))
		}
	}
	num("Year", b.Year)
	num("Pages", b.Pages)
	line("Publisher", b.Publisher)
	line("Published", b.PublicationDate)
	line("Edition", b.Edition)
	line("Language", b.Language)
	line("ISBN", b.ISBN)
	if b.MaxBorrowDays > 0 {
		line("Loan", fmt.Sprintf("up to %d days", b.MaxBorrowDays))
	}
	line("Cover", b.Image)
	line("PDF", b.PDFURL)
	if b.Description != "" {
		fmt.Fprintf(&sb, "\n%s", b.Description)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List browsing categories with book counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			counts, err := a.mgr.Catalog().CategoryCounts(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range library.Categories() {
				fmt.Fprintf(out, "%-14s %-22s %d books\n", c.ID, c.Name, counts[c.ID])
			}
			return nil
		},
	}
}

func newGenresCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "genres",
		Short: "List genres accepted by 'books --genre'",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, g := range library.Genres() {
				fmt.Fprintln(cmd.OutOrStdout(), g)
			}
		},
	}
}

func newEditBookCmd(a *app) *cobra.Command {
	var patch library.BookPatch
	cmd := &cobra.Command{
		Use:   "edit-book <book-id>",
		Short: "Change a book's cover image or PDF link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			if patch.Image == "" && patch.PDFURL == "" {
				return errors.New("nothing to change; pass --image and/or --pdf")
			}
			b, err := a.mgr.Catalog().UpdateBook(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Updated %q.", b.Title)))
			return nil
		},
	}
	cmd.Flags().StringVar(&patch.Image, "image", "", "cover image URL")
	cmd.Flags().StringVar(&patch.PDFURL, "pdf", "", "PDF URL")
	return cmd
}

// ------------------ Circulation ------------------

func newBorrowCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "borrow <book-id>",
		Short: "Borrow a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			if limit := a.cfg.App.MaxBorrowDays; days < 1 || days > limit {
				return fmt.Errorf("days must be between 1 and %d", limit)
			}
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}
			rec, err := a.mgr.Borrow(ctx, s.Username, id, days)
			if err != nil {
				return err
			}
			b, _, err := a.mgr.Catalog().FindBook(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Borrowed %q until %s.", b.Title, rec.DueDate.Format(dateLayout))))
			fmt.Fprintln(cmd.OutOrStdout(), helpStyle.Render("Borrow id: "+rec.ID))
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 7, "loan length in days")
	return cmd
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <borrow-id>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}
			rec, err := a.mgr.Ledger().Record(ctx, args[0])
			if err != nil {
				return err
			}
			if rec.Username != s.Username {
				return fmt.Errorf("borrow %s belongs to another user", rec.ID)
			}
			res, err := a.mgr.ReturnBook(ctx, rec.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.LateDays == 0 {
				fmt.Fprintln(out, okStyle.Render("Returned on time. Thank you!"))
				return nil
			}
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("Returned %d day(s) late. Penalty: %s", res.LateDays, rupiah(res.PenaltyAmount))))
			return nil
		},
	}
}

func newBorrowsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "borrows",
		Short: "List books you currently hold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}
			recs, err := a.mgr.Ledger().ActiveBorrows(ctx, s.Username)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "You have no borrowed books.")
				return nil
			}
			now := a.mgr.Ledger().Now()
			for _, r := range recs {
				left := library.DaysLeft(r, now)
				status := okStyle.Render(fmt.Sprintf("%d day(s) left", left))
				if now.After(r.DueDate) {
					status = errorStyle.Render("overdue")
				}
				fmt.Fprintf(out, "%s  %-38s due %s  %s\n", r.ID, a.bookTitle(cmd, r.BookID), r.DueDate.Format(dateLayout), status)
			}
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List returned books, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}
			recs, err := a.mgr.Ledger().History(ctx, s.Username)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No returned books yet.")
				return nil
			}
			for _, r := range recs {
				c := r.Closure
				line := fmt.Sprintf("%-38s borrowed %s  returned %s", a.bookTitle(cmd, r.BookID), r.BorrowDate.Format(dateLayout), c.ReturnDate.Format(dateLayout))
				if c.LateDays > 0 {
					line += warnStyle.Render(fmt.Sprintf("  late %dd, %s", c.LateDays, rupiah(c.PenaltyAmount)))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func (a *app) bookTitle(cmd *cobra.Command, id int64) string {
	b, found, err := a.mgr.Catalog().FindBook(cmd.Context(), id)
	if err != nil || !found {
		return fmt.Sprintf("book #%d", id)
	}
	return b.Title
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show your lending summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}
			d, err := a.mgr.Dashboard(ctx, s.Username)
			if err != nil {
				return err
			}
			var sb strings.Builder
			fmt.Fprintf(&sb, "%s\n", titleStyle.Render(d.DisplayName))
			fmt.Fprintf(&sb, "Member since:    %s\n", d.JoinDate.Format(dateLayout))
			fmt.Fprintf(&sb, "Borrowed now:    %d\n", d.ActiveBorrows)
			fmt.Fprintf(&sb, "Returned:        %d\n", d.ReturnedBorrows)
			fmt.Fprintf(&sb, "Lifetime total:  %d\n", d.TotalBorrows)
			fmt.Fprintf(&sb, "Remaining quota: %d\n", d.RemainingQuota)
			fmt.Fprintf(&sb, "Late days:       %d\n", d.TotalLateDays)
			fmt.Fprintf(&sb, "Penalties:       %s", rupiah(d.TotalPenalty))
			fmt.Fprintln(cmd.OutOrStdout(), boxStyle.Render(sb.String()))
			return nil
		},
	}
}

// ------------------ Reading ------------------

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <book-id>",
		Short: "Show the PDF link of a book you hold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}
			info, err := a.mgr.ReadBook(ctx, s.Username, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(info.Book.Title))
			fmt.Fprintf(out, "Loan: %d day(s), ", info.BorrowDays)
			if info.Overdue {
				fmt.Fprintln(out, errorStyle.Render("overdue"))
			} else {
				fmt.Fprintf(out, "%d day(s) left\n", info.DaysLeft)
			}
			fmt.Fprintln(out, info.PDFURL)
			return nil
		},
	}
}

func newDownloadCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <book-id>",
		Short: "Download the PDF of a book you hold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := a.session(ctx)
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("book-%d.pdf", id)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			n, err := a.mgr.DownloadPDF(ctx, s.Username, id, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(output)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Saved %s (%d KB).", output, n/1024)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default book-<id>.pdf)")
	return cmd
}

// ------------------ Maintenance ------------------

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the storage backend and the keys it holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := a.mgr.StoredKeys(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			st := a.cfg.Storage
			switch st.Backend {
			case config.BackendSQLite:
				fmt.Fprintf(out, "Backend: sqlite (%s, %s)\n", st.SQLiteDriver, st.DBPath)
			case config.BackendRedis:
				fmt.Fprintf(out, "Backend: redis (%s, db %d, prefix %q)\n", st.RedisAddr, st.RedisDB, st.RedisPrefix)
			default:
				fmt.Fprintf(out, "Backend: %s\n", st.Backend)
			}
			if len(keys) == 0 {
				fmt.Fprintln(out, helpStyle.Render("No keys stored."))
				return nil
			}
			for _, k := range keys {
				fmt.Fprintln(out, "  "+k)
			}
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all users, books, borrows and the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !yes {
				answer, err := a.prompt(out, warnStyle.Render("This deletes ALL library data. Type 'yes' to continue: "))
				if err != nil {
					return err
				}
				if answer != "yes" {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}
			ctx := cmd.Context()
			if err := a.mgr.Reset(ctx); err != nil {
				return err
			}
			if _, err := a.mgr.Catalog().EnsureDefaults(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, okStyle.Render("Library reset; default catalog restored."))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
