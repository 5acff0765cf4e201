// Package auth signs the photographer in with email and password and guards
// the write API with short-lived tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"portfolio/internal/models"
	"portfolio/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
)

type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertUser(ctx context.Context, email, passwordHash string) (*models.User, error)
}

type Service struct {
	repo     UserRepository
	secret   []byte
	validity time.Duration
}

func NewService(repo UserRepository, secret string, validity time.Duration) *Service {
	return &Service{repo: repo, secret: []byte(secret), validity: validity}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnsureAdmin creates the admin account or resets its password.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	const op = "auth.EnsureAdmin"

	if email == "" || password == "" {
		return fmt.Errorf("%s: admin email and password are required", op)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.repo.UpsertUser(ctx, normalizeEmail(email), string(hash)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SignIn returns a bearer token for valid credentials.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *models.User, error) {
	const op = "auth.SignIn"

	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := GenerateToken(user.ID, user.Email, s.secret, s.validity)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, user, nil
}

func (s *Service) Verify(token string) (*Claims, error) {
	return ParseToken(token, s.secret)
}
