// Package auth verifies local operator accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidUser        = errors.New("invalid user")
	ErrNotAuthenticated   = errors.New("no user is logged in")
	ErrForbidden          = errors.New("only an admin can create accounts")
)

const minPasswordLength = 6

// Service logs users in and keeps the current session of the desktop app.
type Service struct {
	users  *store.UserStore
	logger *zap.Logger
	cost   int

	decoyOnce sync.Once
	decoy     []byte

	createMu sync.Mutex

	mu      sync.RWMutex
	current *models.User
}

// NewService wires the auth service.
func NewService(users *store.UserStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, logger: logger, cost: bcrypt.DefaultCost}
}

// Login checks the password against the stored hash and makes the user current.
func (s *Service) Login(username, password string) (*models.User, error) {
	user, ok := s.byUsername(username)
	if !ok {
		// Spend the same time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(s.decoyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("failed login", zap.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}

	s.mu.Lock()
	s.current = &user
	s.mu.Unlock()
	s.logger.Info("user logged in", zap.String("username", user.Username))
	out := user
	return &out, nil
}

// Logout clears the current session.
func (s *Service) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// CurrentUser returns the logged-in user.
func (s *Service) CurrentUser() (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNotAuthenticated
	}
	out := *s.current
	return &out, nil
}

// CreateUser stores a new account with a bcrypt hash of password.
func (s *Service) CreateUser(ctx context.Context, username, password, role string) (models.User, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return models.User{}, fmt.Errorf("%w: username is required", ErrInvalidUser)
	case len(password) < minPasswordLength:
		return models.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, minPasswordLength)
	}
	if role == "" {
		role = models.RoleOperator
	}
	if role != models.RoleAdmin && role != models.RoleOperator {
		return models.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidUser, role)
	}
	if _, exists := s.byUsername(username); exists {
		return models.User{}, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.users.Create(ctx, models.User{Username: username, PasswordHash: string(hash), Role: role})
}

// CreateUserAs creates an account on behalf of the current session, which
// must belong to an admin. The first account of an empty install needs no
// session and is always an admin.
func (s *Service) CreateUserAs(ctx context.Context, username, password, role string) (models.User, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	if s.users.Len() == 0 {
		user, err := s.CreateUser(ctx, username, password, models.RoleAdmin)
		if err == nil || store.IsPersistError(err) {
			s.logger.Info("first account created", zap.String("username", user.Username))
		}
		return user, err
	}
	current, err := s.CurrentUser()
	if err != nil {
		return models.User{}, err
	}
	if current.Role != models.RoleAdmin {
		s.logger.Warn("account creation refused", zap.String("by", current.Username))
		return models.User{}, ErrForbidden
	}
	return s.CreateUser(ctx, username, password, role)
}

// Users lists accounts.
func (s *Service) Users() []models.User {
	return s.users.List()
}

// EnsureDefaultAdmin creates the first admin when no account exists and a
// password is configured. It reports whether an account was created.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, username, password string) (bool, error) {
	if s.users.Len() > 0 || password == "" {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, username, password, models.RoleAdmin); err != nil {
		return false, err
	}
	s.logger.Info("default admin account created", zap.String("username", username))
	return true, nil
}

func (s *Service) decoyHash() []byte {
	s.decoyOnce.Do(func() {
		s.decoy, _ = bcrypt.GenerateFromPassword([]byte("decoy-password"), s.cost)
	})
	return s.decoy
}

func (s *Service) byUsername(username string) (models.User, bool) {
	username = strings.TrimSpace(username)
	return s.users.Find(func(u models.User) bool { return strings.EqualFold(u.Username, username) })
}
