package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"library-catalog/internal/logger"
)

func newTestAccounts(t *testing.T) (*Accounts, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	clock := newFakeClock()
	return NewAccounts(store, BcryptHasher{Cost: bcrypt.MinCost}, clock.Now, logger.Nop()), store
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccounts(t)

	u, err := a.Register(ctx, "  alice ", "", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice", u.DisplayName)
	assert.True(t, u.JoinDate.Equal(epoch))
	assert.NotEqual(t, "secret1", u.PasswordHash)

	tests := []struct {
		name     string
		username string
		password string
		reason   error
	}{
		{"empty username", "   ", "secret1", ErrEmptyUsername},
		{"taken", "alice", "secret1", ErrUsernameTaken},
		{"short password", "bob", "12345", ErrPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Register(ctx, tt.username, "", tt.password)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tt.reason)
		})
	}
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccounts(t)
	_, err := a.Register(ctx, "alice", "Alice L.", "secret1")
	require.NoError(t, err)

	_, err = a.Current(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = a.Login(ctx, "alice", "wrong-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := a.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", sess.DisplayName)

	cur, err := a.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", cur.Username)

	require.NoError(t, a.Logout(ctx))
	require.NoError(t, a.Logout(ctx))
	_, err = a.Current(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserLookup(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccounts(t)
	_, err := a.Register(ctx, "alice", "", "secret1")
	require.NoError(t, err)

	u, err := a.User(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, u.TotalBorrows)

	_, err = a.User(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChecksumHasher(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"abc", "96354"},
		{"hello", "99162322"},
		// Wraps around 32 bits.
		{"library2024", "-610745285"},
	}
	h := ChecksumHasher{}
	for _, tt := range tests {
		got, err := h.Hash(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "checksum(%q)", tt.in)
		assert.True(t, h.Verify(got, tt.in))
	}
	assert.False(t, h.Verify("96354", "abd"))
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.True(t, h.Verify(hash, "secret1"))
	assert.False(t, h.Verify(hash, "secret2"))
	assert.False(t, h.Verify("not-a-hash", "secret1"))
}
