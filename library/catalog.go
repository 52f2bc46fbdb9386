package library

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"dario.cat/mergo"

	"library-catalog/internal/logger"
)

// Catalog answers book and availability questions. It never writes borrow
// records; availability is derived from the ledger's collection.
type Catalog struct {
	mu    *sync.Mutex
	store Store
	log   *logger.Logger
}

// NewCatalog returns a Catalog over store. LibraryManager replaces the
// write lock with the one it shares between all writers.
func NewCatalog(store Store, log *logger.Logger) *Catalog {
	return &Catalog{mu: &sync.Mutex{}, store: store, log: log}
}

// Books returns the full catalog in id order.
func (c *Catalog) Books(ctx context.Context) ([]Book, error) {
	books, err := loadBooks(ctx, c.store)
	if err != nil {
		return nil, err
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

// FindBook looks a book up by id. A missing book is reported through the
// boolean, not as an error.
func (c *Catalog) FindBook(ctx context.Context, id int64) (Book, bool, error) {
	books, err := loadBooks(ctx, c.store)
	if err != nil {
		return Book{}, false, err
	}
	b, ok := findBook(books, id)
	return b, ok, nil
}

// AvailableCopies is the book's copy count minus its active borrows, never
// below zero. Unknown books have no copies.
func (c *Catalog) AvailableCopies(ctx context.Context, id int64) (int, error) {
	books, err := loadBooks(ctx, c.store)
	if err != nil {
		return 0, err
	}
	borrows, err := loadBorrows(ctx, c.store)
	if err != nil {
		return 0, err
	}
	b, ok := findBook(books, id)
	if !ok {
		return 0, nil
	}
	return availableCopies(b, borrows), nil
}

// UpdateBook merges the non-empty fields of patch into the stored book.
// Last write wins.
func (c *Catalog) UpdateBook(ctx context.Context, id int64, patch BookPatch) (Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	books, err := loadBooks(ctx, c.store)
	if err != nil {
		return Book{}, err
	}
	idx := -1
	for i := range books {
		if books[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Book{}, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}

	if err := mergo.Merge(&books[idx], Book{Image: patch.Image, PDFURL: patch.PDFURL}, mergo.WithOverride); err != nil {
		return Book{}, fmt.Errorf("merge book %d: %w", id, err)
	}
	if err := c.store.Save(ctx, KeyBooks, books); err != nil {
		return Book{}, err
	}

	c.log.Info().Int64("book_id", id).Msg("book metadata updated")
	return books[idx], nil
}

// Search filters by exact genre (when non-empty) and then by a
// case-insensitive substring of title, author, description or genre.
func (c *Catalog) Search(ctx context.Context, query, genre string) ([]Book, error) {
	books, err := c.Books(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))

	var out []Book
	for _, b := range books {
		if genre != "" && b.Genre != genre {
			continue
		}
		if q != "" && !matchesQuery(b, q) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func matchesQuery(b Book, q string) bool {
	for _, field := range []string{b.Title, b.Author, b.Description, b.Genre} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// BooksInCategory returns books whose genre contains any of the category's
// keywords.
func (c *Catalog) BooksInCategory(ctx context.Context, categoryID string) ([]Book, error) {
	cat, ok := FindCategory(categoryID)
	if !ok {
		return nil, fmt.Errorf("category %q: %w", categoryID, ErrNotFound)
	}
	books, err := c.Books(ctx)
	if err != nil {
		return nil, err
	}
	var out []Book
	for _, b := range books {
		if cat.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

// CategoryCounts maps each category id to the number of matching books.
func (c *Catalog) CategoryCounts(ctx context.Context) (map[string]int, error) {
	books, err := c.Books(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(categories))
	for _, cat := range categories {
		for _, b := range books {
			if cat.Matches(b) {
				counts[cat.ID]++
			}
		}
	}
	return counts, nil
}

// Recommended returns books flagged as recommended.
func (c *Catalog) Recommended(ctx context.Context) ([]Book, error) {
	return c.filter(ctx, func(b Book) bool { return b.IsRecommended })
}

// Trending returns books flagged as trending.
func (c *Catalog) Trending(ctx context.Context) ([]Book, error) {
	return c.filter(ctx, func(b Book) bool { return b.IsTrending })
}

func (c *Catalog) filter(ctx context.Context, keep func(Book) bool) ([]Book, error) {
	books, err := c.Books(ctx)
	if err != nil {
		return nil, err
	}
	var out []Book
	for _, b := range books {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Random returns up to n books in random order, without repeats.
func (c *Catalog) Random(ctx context.Context, n int) ([]Book, error) {
	books, err := c.Books(ctx)
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(books), func(i, j int) { books[i], books[j] = books[j], books[i] })
	return books[:max(0, min(n, len(books)))], nil
}

// Seed replaces the catalog with books.
func (c *Catalog) Seed(ctx context.Context, books []Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seed(ctx, books)
}

func (c *Catalog) seed(ctx context.Context, books []Book) error {
	if err := c.store.Save(ctx, KeyBooks, books); err != nil {
		return err
	}
	c.log.Info().Int("books", len(books)).Msg("catalog seeded")
	return nil
}

// EnsureDefaults seeds the embedded default catalog when no catalog has been
// stored yet. It reports whether it seeded.
func (c *Catalog) EnsureDefaults(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var existing []Book
	found, err := c.store.Load(ctx, KeyBooks, &existing)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	books, err := DefaultBooks()
	if err != nil {
		return false, err
	}
	return true, c.seed(ctx, books)
}

// ---------------------------------------------------------------------------
// Collection helpers shared with the ledger
// ---------------------------------------------------------------------------

func loadBooks(ctx context.Context, s Store) ([]Book, error) {
	books := []Book{}
	if _, err := s.Load(ctx, KeyBooks, &books); err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	return books, nil
}

func loadBorrows(ctx context.Context, s Store) ([]BorrowRecord, error) {
	borrows := []BorrowRecord{}
	if _, err := s.Load(ctx, KeyBorrows, &borrows); err != nil {
		return nil, fmt.Errorf("load borrows: %w", err)
	}
	return borrows, nil
}

func loadUsers(ctx context.Context, s Store) ([]User, error) {
	users := []User{}
	if _, err := s.Load(ctx, KeyUsers, &users); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

func findBook(books []Book, id int64) (Book, bool) {
	for _, b := range books {
		if b.ID == id {
			return b, true
		}
	}
	return Book{}, false
}

func activeForBook(borrows []BorrowRecord, bookID int64) int {
	n := 0
	for _, r := range borrows {
		if r.BookID == bookID && r.IsActive() {
			n++
		}
	}
	return n
}

func availableCopies(b Book, borrows []BorrowRecord) int {
	n := b.Copies - activeForBook(borrows, b.ID)
	if n < 0 {
		return 0
	}
	return n
}
