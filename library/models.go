package library

import "time"

// Book is a catalog entry. Only ID and Copies take part in lending rules;
// the rest is display metadata.
type Book struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Copies      int    `json:"copies"`
	Genre       string `json:"genre"`

	Image           string `json:"image,omitempty"`
	PDFURL          string `json:"pdfUrl,omitempty"`
	Pages           int    `json:"pages,omitempty"`
	Year            int    `json:"year,omitempty"`
	ISBN            string `json:"isbn,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	PublicationDate string `json:"publicationDate,omitempty"`
	Edition         string `json:"edition,omitempty"`
	Language        string `json:"language,omitempty"`
	// MaxBorrowDays is the loan period the catalog advertises for the book.
	// The CLI still caps borrows at the configured maximum.
	MaxBorrowDays   int    `json:"maxBorrowDays,omitempty"`
	Popularity      int    `json:"popularity,omitempty"`
	IsTrending      bool   `json:"isTrending,omitempty"`
	IsRecommended   bool   `json:"isRecommended,omitempty"`
}

// BookPatch carries metadata edits. Empty fields leave the stored value
// untouched.
type BookPatch struct {
	Image  string `json:"image,omitempty"`
	PDFURL string `json:"pdfUrl,omitempty"`
}

// User is a registered account together with its lending aggregates.
type User struct {
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"passwordHash"`
	JoinDate     time.Time `json:"joinDate"`

	TotalBorrows  int   `json:"totalBorrows"`
	TotalPenalty  int64 `json:"totalPenalty"`
	TotalLateDays int   `json:"totalLateDays"`
}

// Session is the public profile kept in the current-session slot.
type Session struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	JoinDate    time.Time `json:"joinDate"`
}

// BorrowRecord is one loan of one copy. It is active until Closure is set;
// once closed it never becomes active again.
type BorrowRecord struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	BookID     int64     `json:"bookId"`
	BorrowDate time.Time `json:"borrowDate"`
	DueDate    time.Time `json:"dueDate"`

	Closure *Closure `json:"closure,omitempty"`
}

// Closure holds the fields that exist only on a returned record.
type Closure struct {
	ReturnDate    time.Time `json:"returnDate"`
	LateDays      int       `json:"lateDays"`
	PenaltyAmount int64     `json:"penaltyAmount"`
}

// IsActive reports whether the copy is still out.
func (r BorrowRecord) IsActive() bool { return r.Closure == nil }

// Duration is the loan length the record was created with.
func (r BorrowRecord) Duration() time.Duration { return r.DueDate.Sub(r.BorrowDate) }

// ReturnResult is what a successful return reports back to the caller.
type ReturnResult struct {
	Record        BorrowRecord
	LateDays      int
	PenaltyAmount int64
}

// Dashboard summarises a user's account.
type Dashboard struct {
	Username        string
	DisplayName     string
	JoinDate        time.Time
	ActiveBorrows   int
	ReturnedBorrows int
	TotalBorrows    int
	RemainingQuota  int
	TotalPenalty    int64
	TotalLateDays   int
}

// ReadingInfo is what the reader view needs for an actively borrowed book.
type ReadingInfo struct {
	Book       Book
	Record     BorrowRecord
	PDFURL     string
	BorrowDays int
	DaysLeft   int
	Overdue    bool
}

// Category groups genres by keyword for browsing.
type Category struct {
	ID       string
	Name     string
	Keywords []string
}
