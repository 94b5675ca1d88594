package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chrisBrookes93/events-management/internal/apperror"
	"github.com/chrisBrookes93/events-management/internal/auth"
	"github.com/chrisBrookes93/events-management/internal/model"
	"github.com/chrisBrookes93/events-management/internal/repository"
)

// MinPasswordLength is deliberately modest; length is the only rule we
// enforce server-side.
const MinPasswordLength = 8

// AccountService handles registration and credential checks. Session
// issuance (the JWT cookie) is the handler's job — this layer knows
// nothing about HTTP.
type AccountService struct {
	repo      repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(repo repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *AccountService {
	return &AccountService{
		repo:      repo,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a new active, non-staff account.
// A duplicate email surfaces as apperror.ErrConflict.
func (s *AccountService) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email address is required")
	}
	if !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "email address is not valid")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		IsStaff:      false,
		IsActive:     true,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Authenticate verifies an email/password pair and returns the account.
//
// Every failure mode — unknown email, wrong password, deactivated
// account — returns the same Forbidden message, so the login form can't
// be used to probe which addresses are registered.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Forbidden("invalid email or password")
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		return nil, apperror.Forbidden("invalid email or password")
	}

	if !user.IsActive {
		return nil, apperror.Forbidden("invalid email or password")
	}

	return user, nil
}

// GetUser returns the account for an authenticated user ID.
func (s *AccountService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// normalizeEmail lower-cases the domain part only; the local part of an
// email address is case-sensitive per RFC 5321, even if almost no
// provider treats it that way.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}
