package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"chat-client/internal/api"
	"chat-client/internal/database"
)

var (
	ErrNoCredential      = errors.New("no stored credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("credential has expired")
)

// Authenticator is the subset of the REST client used for accounts.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Signup(ctx context.Context, name, email, password string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

type Service struct {
	api   Authenticator
	creds *database.Credentials
	now   func() time.Time
}

func NewService(authenticator Authenticator, creds *database.Credentials) *Service {
	return &Service{
		api:   authenticator,
		creds: creds,
		now:   time.Now,
	}
}

// Restore loads the persisted credential. A malformed or expired credential
// is cleared from storage together with the avatar slot.
func (s *Service) Restore(ctx context.Context) (*Session, error) {
	token, err := s.creds.Token(ctx)
	if errors.Is(err, database.ErrSlotEmpty) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	session := Decode(token)
	if session == nil {
		return nil, s.discard(ctx, ErrInvalidCredential)
	}
	if !IsValid(session, s.now()) {
		return nil, s.discard(ctx, ErrExpiredCredential)
	}
	return session, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("missing required fields")
	}

	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	session := Decode(resp.Token)
	if session == nil {
		return nil, ErrInvalidCredential
	}
	if !IsValid(session, s.now()) {
		return nil, ErrExpiredCredential
	}
	if session.Username == "" {
		session.Username = resp.Username
	}

	if err := s.creds.SaveToken(ctx, resp.Token); err != nil {
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}
	return session, nil
}

func (s *Service) Signup(ctx context.Context, name, email, password string) error {
	if err := validateSignup(name, email, password); err != nil {
		return err
	}
	return s.api.Signup(ctx, strings.TrimSpace(name), email, password)
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if !isValidEmail(email) {
		return fmt.Errorf("invalid email format")
	}
	return s.api.RequestPasswordReset(ctx, email)
}

func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" || newPassword == "" {
		return fmt.Errorf("missing required fields")
	}
	return s.api.ResetPassword(ctx, resetToken, newPassword)
}

// Logout clears both persisted slots.
func (s *Service) Logout(ctx context.Context) error {
	return s.creds.Clear(ctx)
}

func (s *Service) discard(ctx context.Context, reason error) error {
	if err := s.creds.Clear(ctx); err != nil {
		return fmt.Errorf("%w (clearing storage: %v)", reason, err)
	}
	return reason
}

func validateSignup(name, email, password string) error {
	if strings.TrimSpace(name) == "" || email == "" || password == "" {
		return fmt.Errorf("missing required fields")
	}

	if !isValidEmail(email) {
		return fmt.Errorf("invalid email format")
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	return nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
