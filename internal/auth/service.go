package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayusman/handvol/internal/log"
	"github.com/ayusman/handvol/internal/store"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// DemoAccounts are created on first start so the dashboard can be used
// out of the box.
var DemoAccounts = map[string]string{
	"siri":  "password123",
	"admin": "admin123",
}

// UserStore is the subset of the user repository the service needs.
type UserStore interface {
	GetByUsername(username string) (*store.User, error)
	Ensure(u *store.User) (bool, error)
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service logs users in and verifies their tokens.
type Service struct {
	users  UserStore
	hasher Hasher
	tokens *Tokens
}

// NewService wires a Service. cost is the bcrypt cost for new hashes.
func NewService(users UserStore, secret string, ttl time.Duration, cost int) *Service {
	return &Service{
		users:  users,
		hasher: NewHasher(cost),
		tokens: NewTokens(secret, ttl),
	}
}

// Seed creates each account that does not exist yet.
func (s *Service) Seed(accounts map[string]string) error {
	for name, password := range accounts {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", name, err)
		}
		added, err := s.users.Ensure(&store.User{Username: name, PasswordHash: hash})
		if err != nil {
			return fmt.Errorf("seed user %s: %w", name, err)
		}
		if added {
			log.Info(log.Fields{"username": name}, "seeded user")
		}
	}
	return nil
}

// Login checks the credentials and issues a session token. Surrounding
// whitespace in the username is ignored.
func (s *Service) Login(username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetByUsername(username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Sign(u.Username)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Username: u.Username, ExpiresAt: exp}, nil
}

// Verify returns the claims of a valid token.
func (s *Service) Verify(token string) (*Claims, error) {
	return s.tokens.Parse(token)
}
