package services

import (
	"context"
	"errors"
	"strings"

	"github.com/unbrain/admin-apiserver/internal/auth"
	"github.com/unbrain/admin-apiserver/internal/store"
	"github.com/unbrain/admin-apiserver/types"
)

// AccountService manages admin and moderator accounts. Super admin rows are
// invisible to every operation here. Each mutation runs its existence check
// and write inside one transaction.
type AccountService struct {
	users *store.UserRepository
}

func NewAccountService(users *store.UserRepository) *AccountService {
	return &AccountService{users: users}
}

// CreateAccount creates a moderator or admin account. Only a super_admin
// actor may create admins. Duplicate emails (case-insensitive) return
// store.ErrConflict.
func (s *AccountService) CreateAccount(ctx context.Context, actor types.User, email, password, role string) (types.User, error) {
	if role == "" {
		role = types.RoleModerator
	}
	if !types.IsAssignableRole(role) {
		return types.User{}, ErrInvalidRole
	}
	if role == types.RoleAdmin && actor.Role != types.RoleSuperAdmin {
		return types.User{}, ErrForbidden
	}

	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := auth.HashPassword(password)
	if err != nil {
		return types.User{}, err
	}

	createdBy := actor.ID
	var created types.User
	err = s.users.WithTx(ctx, func(txRepo *store.UserRepository) error {
		if _, err := txRepo.GetByEmail(ctx, email); err == nil {
			return store.ErrConflict
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		created, err = txRepo.Create(ctx, types.User{
			Email:        email,
			PasswordHash: hash,
			Role:         role,
			IsActive:     true,
			CreatedBy:    &createdBy,
		})
		return err
	})
	if err != nil {
		return types.User{}, err
	}
	return created, nil
}

// ListAccounts returns a page of admin/moderator accounts, newest first,
// plus the total count. roleFilter is ignored unless it names an assignable
// role.
func (s *AccountService) ListAccounts(ctx context.Context, roleFilter string, page, pageSize int) ([]types.User, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	if !types.IsAssignableRole(roleFilter) {
		roleFilter = ""
	}
	offset := (page - 1) * pageSize
	return s.users.List(ctx, roleFilter, offset, pageSize)
}

// GetAccount returns one account by id. Super admin rows yield ErrNotFound.
func (s *AccountService) GetAccount(ctx context.Context, id int) (types.User, error) {
	return s.users.GetVisible(ctx, id)
}

// UpdateAccount applies a sparse patch to an account. Targets that are
// super_admin (or absent) return ErrNotFound. Touching an admin account, or
// promoting to admin, requires a super_admin actor.
func (s *AccountService) UpdateAccount(ctx context.Context, actor types.User, id int, patch store.UserPatch) (types.User, error) {
	if patch.IsEmpty() {
		return types.User{}, ErrEmptyPatch
	}
	if patch.Role != nil && !types.IsAssignableRole(*patch.Role) {
		return types.User{}, ErrInvalidRole
	}

	var updated types.User
	err := s.users.WithTx(ctx, func(txRepo *store.UserRepository) error {
		target, err := txRepo.GetVisible(ctx, id)
		if err != nil {
			return err
		}

		if target.Role == types.RoleAdmin && actor.Role != types.RoleSuperAdmin {
			return ErrForbidden
		}
		if patch.Role != nil && *patch.Role == types.RoleAdmin && actor.Role != types.RoleSuperAdmin {
			return ErrForbidden
		}

		if patch.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*patch.Email))
			patch.Email = &email
			if existing, err := txRepo.GetByEmail(ctx, email); err == nil {
				if existing.ID != target.ID {
					return store.ErrConflict
				}
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		updated, err = txRepo.Update(ctx, id, patch)
		return err
	})
	if err != nil {
		return types.User{}, err
	}
	return updated, nil
}
