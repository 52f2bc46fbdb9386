package library

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"library-catalog/internal/logger"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// Accounts manages registered users and the single session slot.
type Accounts struct {
	mu     *sync.Mutex
	store  Store
	hasher PasswordHasher
	now    func() time.Time
	log    *logger.Logger
}

func NewAccounts(store Store, hasher PasswordHasher, now func() time.Time, log *logger.Logger) *Accounts {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if now == nil {
		now = time.Now
	}
	return &Accounts{mu: &sync.Mutex{}, store: store, hasher: hasher, now: now, log: log}
}

// Register creates a user. An empty display name falls back to the username.
func (a *Accounts) Register(ctx context.Context, username, displayName, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, invalid(ErrEmptyUsername)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	users, err := loadUsers(ctx, a.store)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return User{}, invalid(ErrUsernameTaken)
		}
	}
	if len(password) < MinPasswordLength {
		return User{}, invalid(ErrPasswordTooShort)
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}
	u := User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		JoinDate:     a.now(),
	}
	users = append(users, u)
	if err := a.store.Save(ctx, KeyUsers, users); err != nil {
		return User{}, fmt.Errorf("save users: %w", err)
	}

	a.log.Info().Str("username", username).Msg("user registered")
	return u, nil
}

// Login checks credentials and stores the session.
func (a *Accounts) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	users, err := loadUsers(ctx, a.store)
	if err != nil {
		return Session{}, err
	}
	for _, u := range users {
		if u.Username != username {
			continue
		}
		if !a.hasher.Verify(u.PasswordHash, password) {
			break
		}
		s := Session{Username: u.Username, DisplayName: u.DisplayName, JoinDate: u.JoinDate}
		if err := a.store.Save(ctx, KeySession, s); err != nil {
			return Session{}, fmt.Errorf("save session: %w", err)
		}
		a.log.Info().Str("username", username).Msg("logged in")
		return s, nil
	}
	a.log.Debug().Str("username", username).Msg("login rejected")
	return Session{}, invalid(ErrInvalidCredentials)
}

// Logout clears the session slot. Logging out twice is not an error.
func (a *Accounts) Logout(ctx context.Context) error {
	if err := a.store.Delete(ctx, KeySession); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Current returns the logged-in profile, or ErrNotFound.
func (a *Accounts) Current(ctx context.Context) (Session, error) {
	var s Session
	found, err := a.store.Load(ctx, KeySession, &s)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !found || s.Username == "" {
		return Session{}, fmt.Errorf("session: %w", ErrNotFound)
	}
	return s, nil
}

// User looks up a registered user by name.
func (a *Accounts) User(ctx context.Context, username string) (User, error) {
	users, err := loadUsers(ctx, a.store)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user %s: %w", username, ErrNotFound)
}
