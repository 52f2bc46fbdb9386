package library

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-catalog/internal/logger"
)

func TestBorrowRejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		setup  func(t *testing.T, l *Ledger)
		user   string
		bookID int64
		days   int
		reason error
	}{
		{name: "zero duration", user: "u", bookID: 1, days: 0, reason: ErrInvalidDuration},
		{name: "negative duration", user: "u", bookID: 1, days: -3, reason: ErrInvalidDuration},
		{name: "unknown book", user: "u", bookID: 99, days: 7, reason: ErrBookNotFound},
		{name: "unknown book wins over bad duration", user: "u", bookID: 99, days: 0, reason: ErrBookNotFound},
		{
			name: "no copies",
			setup: func(t *testing.T, l *Ledger) {
				_, err := l.Borrow(ctx, "other", 2, 7)
				require.NoError(t, err)
			},
			user: "u", bookID: 2, days: 7, reason: ErrNoCopiesAvailable,
		},
		{
			name: "duplicate",
			setup: func(t *testing.T, l *Ledger) {
				_, err := l.Borrow(ctx, "u", 1, 7)
				require.NoError(t, err)
			},
			user: "u", bookID: 1, days: 3, reason: ErrAlreadyBorrowed,
		},
		{
			name: "quota",
			setup: func(t *testing.T, l *Ledger) {
				for id := int64(3); id <= 7; id++ {
					_, err := l.Borrow(ctx, "u", id, 7)
					require.NoError(t, err)
				}
			},
			user: "u", bookID: 1, days: 7, reason: ErrQuotaReached,
		},
		{
			name: "copies are checked before quota",
			setup: func(t *testing.T, l *Ledger) {
				_, err := l.Borrow(ctx, "other", 2, 7)
				require.NoError(t, err)
				for id := int64(3); id <= 7; id++ {
					_, err := l.Borrow(ctx, "u", id, 7)
					require.NoError(t, err)
				}
			},
			user: "u", bookID: 2, days: 7, reason: ErrNoCopiesAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books := []Book{{ID: 1, Title: "Multi", Copies: 3}, {ID: 2, Title: "Single", Copies: 1}}
			for id := int64(3); id <= 7; id++ {
				books = append(books, Book{ID: id, Title: fmt.Sprintf("Book %d", id), Copies: 1})
			}
			l, store, _ := newTestLedger(t, books...)
			if tt.setup != nil {
				tt.setup(t, l)
			}
			before := storedBorrows(t, store)

			_, err := l.Borrow(ctx, tt.user, tt.bookID, tt.days)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tt.reason)
			assert.Equal(t, tt.reason.Error(), err.Error())
			assert.Equal(t, before, storedBorrows(t, store), "failed borrow must not mutate the ledger")
		})
	}
}

func TestBorrowSetsDueDateAndCounters(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger(t, Book{ID: 1, Copies: 2})
	seedUsers(t, store, "alice")

	rec, err := l.Borrow(ctx, "alice", 1, 5)
	require.NoError(t, err)

	assert.Equal(t, "br-001", rec.ID)
	assert.True(t, rec.IsActive())
	assert.True(t, rec.BorrowDate.Equal(epoch))
	assert.True(t, rec.DueDate.Equal(epoch.Add(5*24*time.Hour)))
	assert.Equal(t, 1, storedUser(t, store, "alice").TotalBorrows)

	stored, err := l.Record(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, stored.ID)
	assert.Nil(t, stored.Closure)
}

func TestBorrowWithoutRegisteredUser(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger(t, Book{ID: 1, Copies: 1})

	_, err := l.Borrow(ctx, "ghost", 1, 7)
	require.NoError(t, err)

	users, err := loadUsers(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSharedCopiesScenario(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t, Book{ID: 1, Title: "Shared", Copies: 2})
	catalog := NewCatalog(l.store, l.log)
	available := func() int {
		n, err := catalog.AvailableCopies(ctx, 1)
		require.NoError(t, err)
		return n
	}

	aliceRec, err := l.Borrow(ctx, "alice", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, available())

	_, err = l.Borrow(ctx, "bob", 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, available())

	_, err = l.Borrow(ctx, "carol", 1, 7)
	assert.ErrorIs(t, err, ErrNoCopiesAvailable)
	assert.EqualError(t, err, "no copies available")

	_, err = l.ReturnBook(ctx, aliceRec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, available())

	_, err = l.Borrow(ctx, "carol", 1, 7)
	require.NoError(t, err)
}

func TestQuotaFreedByReturn(t *testing.T) {
	ctx := context.Background()
	var books []Book
	for id := int64(1); id <= 6; id++ {
		books = append(books, Book{ID: id, Copies: 1})
	}
	l, _, _ := newTestLedger(t, books...)

	var first BorrowRecord
	for id := int64(1); id <= 5; id++ {
		rec, err := l.Borrow(ctx, "dave", id, 7)
		require.NoError(t, err)
		if id == 1 {
			first = rec
		}
	}
	count, err := l.ActiveBorrowCount(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	_, err = l.Borrow(ctx, "dave", 6, 7)
	assert.ErrorIs(t, err, ErrQuotaReached)

	_, err = l.ReturnBook(ctx, first.ID)
	require.NoError(t, err)

	_, err = l.Borrow(ctx, "dave", 6, 7)
	require.NoError(t, err)
}

func TestReturnPenalties(t *testing.T) {
	tests := []struct {
		name      string
		after     time.Duration
		wantLate  int
		wantFine  int64
		wantTotal int64
	}{
		{name: "early", after: 2 * 24 * time.Hour},
		{name: "on due date", after: 7 * 24 * time.Hour},
		{name: "one hour late", after: 7*24*time.Hour + time.Hour, wantLate: 1, wantFine: 2000},
		{name: "three days late", after: 10 * 24 * time.Hour, wantLate: 3, wantFine: 6000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l, store, clock := newTestLedger(t, Book{ID: 1, Copies: 1})
			seedUsers(t, store, "u")

			rec, err := l.Borrow(ctx, "u", 1, 7)
			require.NoError(t, err)
			clock.Advance(tt.after)

			res, err := l.ReturnBook(ctx, rec.ID)
			require.NoError(t, err)

			assert.Equal(t, tt.wantLate, res.LateDays)
			assert.Equal(t, tt.wantFine, res.PenaltyAmount)
			require.NotNil(t, res.Record.Closure)
			assert.True(t, res.Record.Closure.ReturnDate.Equal(epoch.Add(tt.after)))

			u := storedUser(t, store, "u")
			assert.Equal(t, tt.wantFine, u.TotalPenalty)
			assert.Equal(t, tt.wantLate, u.TotalLateDays)
			assert.Equal(t, 1, u.TotalBorrows)
		})
	}
}

func TestReturnUnknownID(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger(t, Book{ID: 1, Copies: 1})
	_, err := l.Borrow(ctx, "u", 1, 7)
	require.NoError(t, err)
	before := storedBorrows(t, store)

	_, err = l.ReturnBook(ctx, "missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, before, storedBorrows(t, store))
}

func TestReturnTwice(t *testing.T) {
	ctx := context.Background()
	l, store, clock := newTestLedger(t, Book{ID: 1, Copies: 1})
	seedUsers(t, store, "u")

	rec, err := l.Borrow(ctx, "u", 1, 1)
	require.NoError(t, err)
	clock.Advance(3 * 24 * time.Hour)
	first, err := l.ReturnBook(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, first.LateDays)

	clock.Advance(5 * 24 * time.Hour)
	_, err = l.ReturnBook(ctx, rec.ID)

	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrAlreadyReturned)
	stored, err := l.Record(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Record.Closure.LateDays, stored.Closure.LateDays)
	assert.True(t, first.Record.Closure.ReturnDate.Equal(stored.Closure.ReturnDate))
	assert.Equal(t, int64(4000), storedUser(t, store, "u").TotalPenalty)
}

func TestConcurrentBorrowsNeverOverAllocate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedBooks(t, store, Book{ID: 1, Copies: 3})
	l := NewLedger(store, logger.Nop())

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := l.Borrow(ctx, fmt.Sprintf("user-%d", i), 1, 7); err == nil {
				ok.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrNoCopiesAvailable)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(3), ok.Load())
	recs := storedBorrows(t, store)
	assert.Len(t, recs, 3)
	ids := map[string]bool{}
	for _, r := range recs {
		ids[r.ID] = true
	}
	assert.Len(t, ids, 3, "ids must be unique")
}

func TestActiveBorrowsAndHistory(t *testing.T) {
	ctx := context.Background()
	l, _, clock := newTestLedger(t, Book{ID: 1, Copies: 1}, Book{ID: 2, Copies: 1}, Book{ID: 3, Copies: 1})

	r1, err := l.Borrow(ctx, "u", 1, 7)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	r2, err := l.Borrow(ctx, "u", 2, 2)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	r3, err := l.Borrow(ctx, "u", 3, 7)
	require.NoError(t, err)
	_, err = l.Borrow(ctx, "other", 1, 7)
	require.Error(t, err)

	_, err = l.ReturnBook(ctx, r1.ID)
	require.NoError(t, err)
	_, err = l.ReturnBook(ctx, r3.ID)
	require.NoError(t, err)

	active, err := l.ActiveBorrows(ctx, "u")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, r2.ID, active[0].ID)

	history, err := l.History(ctx, "u")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, r3.ID, history[0].ID, "most recent borrow first")
	assert.Equal(t, r1.ID, history[1].ID)

	rec, found, err := l.ActiveRecord(ctx, "u", 2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, r2.ID, rec.ID)

	_, found, err = l.ActiveRecord(ctx, "u", 1)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLateDays(t *testing.T) {
	due := epoch
	tests := []struct {
		name     string
		returned time.Time
		want     int
	}{
		{"before due", due.Add(-36 * time.Hour), 0},
		{"exactly due", due, 0},
		{"one nanosecond late", due.Add(time.Nanosecond), 1},
		{"exactly one day", due.Add(24 * time.Hour), 1},
		{"just over two days", due.Add(48*time.Hour + time.Minute), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LateDays(due, tt.returned))
		})
	}
}

func TestDaysLeft(t *testing.T) {
	rec := BorrowRecord{BorrowDate: epoch, DueDate: epoch.Add(7 * 24 * time.Hour)}

	assert.Equal(t, 7, DaysLeft(rec, epoch))
	assert.Equal(t, 7, DaysLeft(rec, epoch.Add(time.Hour)))
	assert.Equal(t, 1, DaysLeft(rec, rec.DueDate.Add(-time.Minute)))
	assert.Equal(t, 0, DaysLeft(rec, rec.DueDate))
	assert.Equal(t, 0, DaysLeft(rec, rec.DueDate.Add(time.Hour)))
	assert.Equal(t, -2, DaysLeft(rec, rec.DueDate.Add(49*time.Hour)))
}

func TestLedgerOptions(t *testing.T) {
	ctx := context.Background()
	l, _, clock := newTestLedger(t, Book{ID: 1, Copies: 1}, Book{ID: 2, Copies: 1})
	WithQuota(1)(l)
	WithPenaltyPerDay(500)(l)

	rec, err := l.Borrow(ctx, "u", 1, 1)
	require.NoError(t, err)
	_, err = l.Borrow(ctx, "u", 2, 1)
	assert.ErrorIs(t, err, ErrQuotaReached)

	clock.Advance(3 * 24 * time.Hour)
	res, err := l.ReturnBook(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.PenaltyAmount)
}
