// Package account stores the user accounts that own comparison history.
package account

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrUsernameTaken is returned when creating a user whose username already exists.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidUser is returned when a user is missing required fields.
	ErrInvalidUser = errors.New("invalid user")
)

// User is an account known to the service. Sign-up and login live outside
// this service; users arrive through seeding or provisioning.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// NormalizeUsername trims surrounding whitespace. Usernames are compared
// exactly otherwise.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// Repository stores user accounts.
type Repository interface {
	// Create stores a new user. Returns ErrUsernameTaken on conflict.
	Create(ctx context.Context, u User) error

	// UsernameExists reports whether username is already registered.
	UsernameExists(ctx context.Context, username string) (bool, error)
}

func validateUser(u User) error {
	if u.ID == "" || NormalizeUsername(u.Username) == "" {
		return ErrInvalidUser
	}
	return nil
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]User
	byUsername map[string]string
}

// NewInMemoryRepository creates a new in-memory account repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:       make(map[string]User),
		byUsername: make(map[string]string),
	}
}

// Create implements Repository.
func (r *InMemoryRepository) Create(ctx context.Context, u User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	u.Username = NormalizeUsername(u.Username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[u.Username]; taken {
		return ErrUsernameTaken
	}
	if _, exists := r.byID[u.ID]; exists {
		return errors.Join(ErrInvalidUser, errors.New("duplicate id"))
	}
	r.byID[u.ID] = u
	r.byUsername[u.Username] = u.ID
	return nil
}

// UsernameExists implements Repository.
func (r *InMemoryRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byUsername[NormalizeUsername(username)]
	return ok, nil
}
