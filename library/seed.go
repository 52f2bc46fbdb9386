package library

import (
	_ "embed"
	"fmt"
	"io"
)

//go:embed seed/books.json
var defaultBooksJSON []byte

// DefaultBooks decodes the embedded starter catalog.
func DefaultBooks() ([]Book, error) {
	var books []Book
	if err := decode(defaultBooksJSON, &books); err != nil {
		return nil, fmt.Errorf("decode default catalog: %w", err)
	}
	return books, nil
}

// ReadBooks decodes a JSON array of books from r, rejecting duplicate ids
// and negative copy counts.
func ReadBooks(r io.Reader) ([]Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var books []Book
	if err := decode(data, &books); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[int64]bool, len(books))
	for _, b := range books {
		if seen[b.ID] {
			return nil, fmt.Errorf("duplicate book id %d", b.ID)
		}
		if b.Copies < 0 {
			return nil, fmt.Errorf("book %d: negative copy count", b.ID)
		}
		seen[b.ID] = true
	}
	return books, nil
}
