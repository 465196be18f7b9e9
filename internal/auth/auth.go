// Package auth is the identity provider: accounts, password checks and
// bearer tokens. The rest of the system only sees the user ID it yields.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"slotswapper-backend/internal/apperr"
	"slotswapper-backend/internal/model"
	"slotswapper-backend/internal/store"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt input limit
	maxNameLength     = 100
)

// Service registers and authenticates users.
type Service struct {
	store    store.Store
	tokens   *Tokens
	logger   *zap.Logger
	hashCost int
}

// NewService creates an identity service.
func NewService(s store.Store, tokens *Tokens, logger *zap.Logger) *Service {
	return &Service{
		store:    s,
		tokens:   tokens,
		logger:   logger.Named("auth"),
		hashCost: bcrypt.DefaultCost,
	}
}

// Session is what signup and login hand back to the client.
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        *model.User `json:"user"`
}

// Signup creates an account and logs it in.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, apperr.Validation("name must be between 1 and %d characters", maxNameLength)
	}
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return nil, apperr.Validation("password must be between %d and %d characters", minPasswordLength, maxPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Name: name, Email: email, PasswordHash: string(hash)}
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.UserByEmail(email)
		switch {
		case err == nil:
			return apperr.Validation("Email already registered")
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		return tx.CreateUser(user)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Validation("Email already registered")
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return s.session(user)
}

// Login checks credentials and returns a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)

	var user *model.User
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.UserByEmail(email)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized("Incorrect email or password")
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("Incorrect email or password")
	}
	return s.session(user)
}

// Me returns the account behind userID.
func (s *Service) Me(ctx context.Context, userID int64) (*model.User, error) {
	var user *model.User
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.UserByID(userID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized("could not validate credentials")
	}
	return user, err
}

// Authenticate resolves a bearer token to a user ID.
func (s *Service) Authenticate(token string) (int64, error) {
	return s.tokens.Parse(token)
}

func (s *Service) session(user *model.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: token, TokenType: "bearer", User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
