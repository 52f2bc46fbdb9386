package library

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"library-catalog/internal/logger"
)

// Default lending rules.
const (
	DefaultBorrowQuota         = 5
	DefaultPenaltyPerDay int64 = 2000
)

const day = 24 * time.Hour

// Ledger owns borrow records and the per-user lending aggregates.
//
// Every mutating call is a whole-collection load-mutate-save cycle. The
// write lock serializes those cycles inside one process; it does not protect
// against a second process writing the same store.
type Ledger struct {
	mu *sync.Mutex

	store         Store
	now           func() time.Time
	ids           IDGenerator
	quota         int
	penaltyPerDay int64
	log           *logger.Logger
}

// LedgerOption customises a Ledger.
type LedgerOption func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(g IDGenerator) LedgerOption {
	return func(l *Ledger) { l.ids = g }
}

// WithWriteLock makes the ledger share mu with the other writers of the
// same store. Borrow and return also rewrite the users collection, so the
// lock has to cover account writes as well.
func WithWriteLock(mu *sync.Mutex) LedgerOption {
	return func(l *Ledger) { l.mu = mu }
}

// WithQuota overrides the maximum number of active borrows per user.
func WithQuota(n int) LedgerOption {
	return func(l *Ledger) { l.quota = n }
}

// WithPenaltyPerDay overrides the late fee per day.
func WithPenaltyPerDay(amount int64) LedgerOption {
	return func(l *Ledger) { l.penaltyPerDay = amount }
}

// NewLedger returns a Ledger with the default quota and penalty rate.
func NewLedger(store Store, log *logger.Logger, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		mu:            &sync.Mutex{},
		store:         store,
		now:           time.Now,
		ids:           UUIDGenerator{},
		quota:         DefaultBorrowQuota,
		penaltyPerDay: DefaultPenaltyPerDay,
		log:           log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Quota is the configured maximum of simultaneously active borrows.
func (l *Ledger) Quota() int { return l.quota }

// Now is the ledger's clock.
func (l *Ledger) Now() time.Time { return l.now() }

// Borrow lends one copy of bookID to username for durationDays days.
//
// Checks run in this order and the first failure wins; a failed borrow
// leaves the store untouched:
//   - the book exists
//   - the duration is positive
//   - at least one copy is available
//   - the user is under quota
//   - the user does not already hold this book
func (l *Ledger) Borrow(ctx context.Context, username string, bookID int64, durationDays int) (BorrowRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.log.WithField("username", username)

	books, err := loadBooks(ctx, l.store)
	if err != nil {
		return BorrowRecord{}, err
	}
	borrows, err := loadBorrows(ctx, l.store)
	if err != nil {
		return BorrowRecord{}, err
	}

	if err := l.checkBorrow(books, borrows, username, bookID, durationDays); err != nil {
		log.Debug().Int64("book_id", bookID).Str("reason", err.Error()).Msg("borrow rejected")
		return BorrowRecord{}, err
	}

	borrowDate := l.now()
	rec := BorrowRecord{
		ID:         l.ids.Generate(),
		Username:   username,
		BookID:     bookID,
		BorrowDate: borrowDate,
		DueDate:    borrowDate.Add(time.Duration(durationDays) * day),
	}
	borrows = append(borrows, rec)
	if err := l.store.Save(ctx, KeyBorrows, borrows); err != nil {
		return BorrowRecord{}, fmt.Errorf("save borrows: %w", err)
	}

	if err := l.updateUser(ctx, username, func(u *User) { u.TotalBorrows++ }); err != nil {
		return rec, err
	}

	log.Info().Str("borrow_id", rec.ID).Int64("book_id", bookID).Time("due", rec.DueDate).Msg("borrow accepted")
	return rec, nil
}

func (l *Ledger) checkBorrow(books []Book, borrows []BorrowRecord, username string, bookID int64, durationDays int) error {
	book, ok := findBook(books, bookID)
	if !ok {
		return invalid(ErrBookNotFound)
	}
	if durationDays <= 0 {
		return invalid(ErrInvalidDuration)
	}
	if availableCopies(book, borrows) <= 0 {
		return invalid(ErrNoCopiesAvailable)
	}
	if activeForUser(borrows, username) >= l.quota {
		return invalid(ErrQuotaReached)
	}
	for _, r := range borrows {
		if r.Username == username && r.BookID == bookID && r.IsActive() {
			return invalid(ErrAlreadyBorrowed)
		}
	}
	return nil
}

// ReturnBook closes the record with id borrowID and charges any late fee.
// An unknown id yields ErrNotFound; a record that is already closed yields
// ErrAlreadyReturned. Neither case mutates anything.
func (l *Ledger) ReturnBook(ctx context.Context, borrowID string) (ReturnResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	borrows, err := loadBorrows(ctx, l.store)
	if err != nil {
		return ReturnResult{}, err
	}

	idx := -1
	for i := range borrows {
		if borrows[i].ID == borrowID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ReturnResult{}, fmt.Errorf("borrow %s: %w", borrowID, ErrNotFound)
	}
	rec := &borrows[idx]
	if !rec.IsActive() {
		return ReturnResult{}, invalid(ErrAlreadyReturned)
	}

	returnDate := l.now()
	lateDays := LateDays(rec.DueDate, returnDate)
	penalty := l.Penalty(lateDays)
	rec.Closure = &Closure{
		ReturnDate:    returnDate,
		LateDays:      lateDays,
		PenaltyAmount: penalty,
	}
	if err := l.store.Save(ctx, KeyBorrows, borrows); err != nil {
		return ReturnResult{}, fmt.Errorf("save borrows: %w", err)
	}

	if lateDays > 0 {
		err := l.updateUser(ctx, rec.Username, func(u *User) {
			u.TotalPenalty += penalty
			u.TotalLateDays += lateDays
		})
		if err != nil {
			return ReturnResult{}, err
		}
	}

	l.log.Info().
		Str("borrow_id", rec.ID).
		Str("username", rec.Username).
		Int("late_days", lateDays).
		Int64("penalty", penalty).
		Msg("book returned")

	return ReturnResult{Record: *rec, LateDays: lateDays, PenaltyAmount: penalty}, nil
}

// updateUser applies fn to the stored user, if there is one. Borrowing does
// not require a registered user, so a missing user is not an error.
func (l *Ledger) updateUser(ctx context.Context, username string, fn func(*User)) error {
	users, err := loadUsers(ctx, l.store)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Username == username {
			fn(&users[i])
			if err := l.store.Save(ctx, KeyUsers, users); err != nil {
				return fmt.Errorf("save users: %w", err)
			}
			return nil
		}
	}
	return nil
}

// ActiveBorrowCount is the number of records username still holds.
func (l *Ledger) ActiveBorrowCount(ctx context.Context, username string) (int, error) {
	borrows, err := loadBorrows(ctx, l.store)
	if err != nil {
		return 0, err
	}
	return activeForUser(borrows, username), nil
}

// ActiveBorrows returns username's open records, earliest due first.
func (l *Ledger) ActiveBorrows(ctx context.Context, username string) ([]BorrowRecord, error) {
	borrows, err := loadBorrows(ctx, l.store)
	if err != nil {
		return nil, err
	}
	var out []BorrowRecord
	for _, r := range borrows {
		if r.Username == username && r.IsActive() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

// History returns username's closed records, most recently borrowed first.
func (l *Ledger) History(ctx context.Context, username string) ([]BorrowRecord, error) {
	borrows, err := loadBorrows(ctx, l.store)
	if err != nil {
		return nil, err
	}
	var out []BorrowRecord
	for _, r := range borrows {
		if r.Username == username && !r.IsActive() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BorrowDate.After(out[j].BorrowDate) })
	return out, nil
}

// Record fetches a single record by id.
func (l *Ledger) Record(ctx context.Context, borrowID string) (BorrowRecord, error) {
	borrows, err := loadBorrows(ctx, l.store)
	if err != nil {
		return BorrowRecord{}, err
	}
	for _, r := range borrows {
		if r.ID == borrowID {
			return r, nil
		}
	}
	return BorrowRecord{}, fmt.Errorf("borrow %s: %w", borrowID, ErrNotFound)
}

// ActiveRecord returns username's open record for bookID.
func (l *Ledger) ActiveRecord(ctx context.Context, username string, bookID int64) (BorrowRecord, bool, error) {
	borrows, err := loadBorrows(ctx, l.store)
	if err != nil {
		return BorrowRecord{}, false, err
	}
	for _, r := range borrows {
		if r.Username == username && r.BookID == bookID && r.IsActive() {
			return r, true, nil
		}
	}
	return BorrowRecord{}, false, nil
}

// Penalty is the fee for lateDays days.
func (l *Ledger) Penalty(lateDays int) int64 {
	return int64(lateDays) * l.penaltyPerDay
}

// LateDays counts started days between due and returned; zero when the
// book came back on or before the due instant.
func LateDays(due, returned time.Time) int {
	return max(0, ceilDays(returned.Sub(due)))
}

// DaysLeft is the number of started days until the record is due; zero or
// negative once it is overdue.
func DaysLeft(r BorrowRecord, now time.Time) int {
	return ceilDays(r.DueDate.Sub(now))
}

// ceilDays rounds d up to whole days. Integer division truncates toward
// zero, which already is the ceiling for negative values.
func ceilDays(d time.Duration) int {
	n := d / day
	if d%day > 0 {
		n++
	}
	return int(n)
}

func activeForUser(borrows []BorrowRecord, username string) int {
	n := 0
	for _, r := range borrows {
		if r.Username == username && r.IsActive() {
			n++
		}
	}
	return n
}
