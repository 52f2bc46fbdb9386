package library

import (
	"strconv"
	"unicode/utf16"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher turns passwords into opaque stored hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptHasher is the default hasher.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ChecksumHasher reproduces the 31-multiplier string checksum used by the
// browser build of the catalog, so accounts exported from it can still log
// in. It is NOT a password hash: it is unsalted, fast and trivially
// reversible by brute force. Use it only for demo data.
type ChecksumHasher struct{}

func (ChecksumHasher) Hash(password string) (string, error) {
	return checksum(password), nil
}

func (ChecksumHasher) Verify(hash, password string) bool {
	return hash == checksum(password)
}

// checksum walks UTF-16 code units with wrapping 32-bit arithmetic.
func checksum(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	return strconv.FormatInt(int64(h), 10)
}
