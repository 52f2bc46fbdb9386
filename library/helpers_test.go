package library

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"library-catalog/internal/logger"
)

var epoch = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("br-%03d", s.n)
}

func tempDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedBooks(t *testing.T, s Store, books ...Book) {
	t.Helper()
	require.NoError(t, s.Save(context.Background(), KeyBooks, books))
}

func seedUsers(t *testing.T, s Store, names ...string) {
	t.Helper()
	users := make([]User, 0, len(names))
	for _, n := range names {
		users = append(users, User{Username: n, DisplayName: n, JoinDate: epoch})
	}
	require.NoError(t, s.Save(context.Background(), KeyUsers, users))
}

func storedBorrows(t *testing.T, s Store) []BorrowRecord {
	t.Helper()
	recs, err := loadBorrows(context.Background(), s)
	require.NoError(t, err)
	return recs
}

func storedUser(t *testing.T, s Store, name string) User {
	t.Helper()
	users, err := loadUsers(context.Background(), s)
	require.NoError(t, err)
	for _, u := range users {
		if u.Username == name {
			return u
		}
	}
	t.Fatalf("user %s not stored", name)
	return User{}
}

func newTestLedger(t *testing.T, books ...Book) (*Ledger, *MemoryStore, *fakeClock) {
	t.Helper()
	store := NewMemoryStore()
	seedBooks(t, store, books...)
	clock := newFakeClock()
	l := NewLedger(store, logger.Nop(), WithClock(clock.Now), WithIDGenerator(&seqIDs{}))
	return l, store, clock
}
