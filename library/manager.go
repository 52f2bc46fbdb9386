package library

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"library-catalog/internal/logger"
)

// FallbackPDFURL is served for books seeded without a PDF link.
const FallbackPDFURL = "https://sherlock-holm.es/stories/pdf/letter/1-sided/advs.pdf"

// LibraryManager is a thin façade over the catalog, ledger and accounts,
// keeping CLI code simple.
type LibraryManager struct {
	mu         *sync.Mutex
	store      Store
	catalog    *Catalog
	ledger     *Ledger
	accounts   *Accounts
	downloader *Downloader
	log        *logger.Logger
}

// Options configure a LibraryManager. Zero values pick the defaults, except
// PenaltyPerDay where nil means the default and a pointer to 0 means no fee.
type Options struct {
	Hasher          PasswordHasher
	Quota           int
	PenaltyPerDay   *int64
	Clock           func() time.Time
	IDs             IDGenerator
	DownloadTimeout time.Duration
	Logger          *logger.Logger
}

// NewLibraryManager wires every component over store. The manager owns the
// store from here on; Close releases it.
func NewLibraryManager(store Store, opts Options) *LibraryManager {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	mu := &sync.Mutex{}
	ledgerOpts := []LedgerOption{WithClock(clock), WithWriteLock(mu)}
	if opts.Quota > 0 {
		ledgerOpts = append(ledgerOpts, WithQuota(opts.Quota))
	}
	if opts.PenaltyPerDay != nil {
		ledgerOpts = append(ledgerOpts, WithPenaltyPerDay(*opts.PenaltyPerDay))
	}
	if opts.IDs != nil {
		ledgerOpts = append(ledgerOpts, WithIDGenerator(opts.IDs))
	}
	timeout := opts.DownloadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Catalog, accounts and ledger all rewrite whole collections, and the
	// ledger touches users too, so they share one write lock.
	catalog := NewCatalog(store, log.WithField("component", "catalog"))
	catalog.mu = mu
	accounts := NewAccounts(store, opts.Hasher, clock, log.WithField("component", "accounts"))
	accounts.mu = mu

	return &LibraryManager{
		mu:         mu,
		store:      store,
		catalog:    catalog,
		ledger:     NewLedger(store, log.WithField("component", "ledger"), ledgerOpts...),
		accounts:   accounts,
		downloader: NewDownloader(timeout),
		log:        log,
	}
}

// Close closes the underlying store.
func (lm *LibraryManager) Close() error { return lm.store.Close() }

func (lm *LibraryManager) Catalog() *Catalog   { return lm.catalog }
func (lm *LibraryManager) Ledger() *Ledger     { return lm.ledger }
func (lm *LibraryManager) Accounts() *Accounts { return lm.accounts }

// ------------------ Account helpers ------------------

func (lm *LibraryManager) Register(ctx context.Context, username, displayName, password string) (User, error) {
	return lm.accounts.Register(ctx, username, displayName, password)
}

func (lm *LibraryManager) Login(ctx context.Context, username, password string) (Session, error) {
	return lm.accounts.Login(ctx, username, password)
}

func (lm *LibraryManager) Logout(ctx context.Context) error { return lm.accounts.Logout(ctx) }

func (lm *LibraryManager) Current(ctx context.Context) (Session, error) {
	return lm.accounts.Current(ctx)
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) Borrow(ctx context.Context, username string, bookID int64, days int) (BorrowRecord, error) {
	return lm.ledger.Borrow(ctx, username, bookID, days)
}

func (lm *LibraryManager) ReturnBook(ctx context.Context, borrowID string) (ReturnResult, error) {
	return lm.ledger.ReturnBook(ctx, borrowID)
}

// Dashboard summarises a user's lending state.
func (lm *LibraryManager) Dashboard(ctx context.Context, username string) (Dashboard, error) {
	u, err := lm.accounts.User(ctx, username)
	if err != nil {
		return Dashboard{}, err
	}
	active, err := lm.ledger.ActiveBorrows(ctx, username)
	if err != nil {
		return Dashboard{}, err
	}
	history, err := lm.ledger.History(ctx, username)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Username:        u.Username,
		DisplayName:     u.DisplayName,
		JoinDate:        u.JoinDate,
		ActiveBorrows:   len(active),
		ReturnedBorrows: len(history),
		TotalBorrows:    u.TotalBorrows,
		RemainingQuota:  max(0, lm.ledger.Quota()-len(active)),
		TotalPenalty:    u.TotalPenalty,
		TotalLateDays:   u.TotalLateDays,
	}, nil
}

// ------------------ Reading ------------------

// ReadBook grants reading access to a book the user currently holds.
func (lm *LibraryManager) ReadBook(ctx context.Context, username string, bookID int64) (ReadingInfo, error) {
	book, found, err := lm.catalog.FindBook(ctx, bookID)
	if err != nil {
		return ReadingInfo{}, err
	}
	if !found {
		return ReadingInfo{}, fmt.Errorf("book %d: %w", bookID, ErrNotFound)
	}
	rec, ok, err := lm.ledger.ActiveRecord(ctx, username, bookID)
	if err != nil {
		return ReadingInfo{}, err
	}
	if !ok {
		return ReadingInfo{}, invalid(ErrNotBorrowed)
	}

	url := book.PDFURL
	if url == "" {
		url = FallbackPDFURL
	}
	now := lm.ledger.Now()
	left := DaysLeft(rec, now)
	return ReadingInfo{
		Book:       book,
		Record:     rec,
		PDFURL:     url,
		BorrowDays: ceilDays(rec.Duration()),
		DaysLeft:   left,
		Overdue:    now.After(rec.DueDate),
	}, nil
}

// DownloadPDF streams the PDF of a held book into w.
func (lm *LibraryManager) DownloadPDF(ctx context.Context, username string, bookID int64, w io.Writer) (int64, error) {
	info, err := lm.ReadBook(ctx, username, bookID)
	if err != nil {
		return 0, err
	}
	n, err := lm.downloader.Fetch(ctx, info.PDFURL, w)
	if err != nil {
		lm.log.Error().Err(err).Int64("book_id", bookID).Msg("pdf download failed")
		return n, err
	}
	lm.log.Info().Int64("book_id", bookID).Int64("bytes", n).Msg("pdf downloaded")
	return n, nil
}

// ------------------ Maintenance ------------------

// Reset wipes users, books, borrows and the session.
func (lm *LibraryManager) Reset(ctx context.Context) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	for _, key := range AllKeys {
		if err := lm.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("reset %s: %w", key, err)
		}
	}
	lm.log.Warn().Msg("library data reset")
	return nil
}

// StoredKeys lists the keys currently present in the backing store.
func (lm *LibraryManager) StoredKeys(ctx context.Context) ([]string, error) {
	kl, ok := lm.store.(KeyLister)
	if !ok {
		return nil, fmt.Errorf("store %T cannot list keys", lm.store)
	}
	return kl.Keys(ctx)
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b Book, available int) string {
	return fmt.Sprintf("%-5d %-38s %-22s %-10s %d/%d", b.ID, truncate(b.Title, 38), truncate(b.Author, 22), b.Genre, available, b.Copies)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
