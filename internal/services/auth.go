package services

import (
	"context"
	"errors"
	"strings"

	"github.com/unbrain/admin-apiserver/internal/auth"
	"github.com/unbrain/admin-apiserver/internal/store"
	"github.com/unbrain/admin-apiserver/types"
)

// AuthService handles credential verification and token issuance.
type AuthService struct {
	users  *store.UserRepository
	tokens *auth.TokenService
}

func NewAuthService(users *store.UserRepository, tokens *auth.TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password both return ErrInvalidCredentials; a deactivated account with
// correct identity returns ErrAccountDeactivated.
func (s *AuthService) Login(ctx context.Context, email, password string) (types.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", ErrInvalidCredentials
		}
		return types.User{}, "", err
	}

	if !user.IsActive {
		return types.User{}, "", ErrAccountDeactivated
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return types.User{}, "", ErrInvalidCredentials
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		return types.User{}, "", err
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return types.User{}, "", err
	}

	return user, token, nil
}

// Profile returns the caller's own account.
func (s *AuthService) Profile(ctx context.Context, userID int) (types.User, error) {
	return s.users.GetByID(ctx, userID)
}
