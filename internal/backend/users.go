package backend

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/medassist-ai/internal/medical"
	"golang.org/x/crypto/bcrypt"
)

// User is a registered account. PasswordHash is a bcrypt digest of the
// client-side MD5 hex the assistant sends.
type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	BasicInfo    medical.BasicInfo
	CreatedAt    time.Time
}

// UserRepository stores accounts keyed by username.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// NewUser validates the registration fields and hashes the password.
func NewUser(username, clientHash string, info medical.BasicInfo) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 64 {
		return nil, fmt.Errorf("%w: username must be 1-64 characters", ErrInvalidInput)
	}
	if !isMD5Hex(clientHash) {
		return nil, fmt.Errorf("%w: password must be an md5 hex digest", ErrInvalidInput)
	}
	if info.Age < 0 || info.Age > 150 {
		return nil, fmt.Errorf("%w: age out of range", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.ToLower(clientHash)), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("backend: hash password: %w", err)
	}
	return &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		BasicInfo:    info,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// CheckPassword compares the client-side MD5 hex against the stored hash.
func (u *User) CheckPassword(clientHash string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(strings.ToLower(clientHash))) == nil
}

func isMD5Hex(s string) bool {
	if len(s) != 32 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// InMemoryUserRepository keeps accounts for the lifetime of the process.
type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{users: make(map[string]*User)}
}

func (r *InMemoryUserRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(user.Username)
	if _, ok := r.users[key]; ok {
		return ErrUserExists
	}
	cp := *user
	r.users[key] = &cp
	return nil
}

func (r *InMemoryUserRepository) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}
