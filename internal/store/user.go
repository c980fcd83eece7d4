package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unbrain/admin-apiserver/internal/db"
	"github.com/unbrain/admin-apiserver/types"
)

// UserPatch is a sparse update to an account. Nil fields are left untouched.
type UserPatch struct {
	Email    *string
	IsActive *bool
	Role     *string
}

// IsEmpty reports whether the patch carries no fields.
func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.IsActive == nil && p.Role == nil
}

// UserRepository handles persistence for users. Queries are written in the
// primary dialect; the adapter rewrites them for the active backend.
type UserRepository struct {
	database *db.Database
	q        db.Querier
}

func NewUserRepository(database *db.Database) *UserRepository {
	return &UserRepository{database: database, q: database}
}

// WithTx runs fn with a repository bound to one transaction, committing on
// success and rolling back on error. Mutations that must pair an existence
// check with a write go through here.
func (r *UserRepository) WithTx(ctx context.Context, fn func(txRepo *UserRepository) error) error {
	return r.database.WithTx(ctx, func(tx *db.Tx) error {
		return fn(&UserRepository{database: r.database, q: tx})
	})
}

const userColumns = `id, email, role, is_active, password_hash, created_by, created_at, updated_at, last_login`

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	var createdBy sql.NullInt64
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Role,
		&user.IsActive,
		&user.PasswordHash,
		&createdBy,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if createdBy.Valid {
		id := int(createdBy.Int64)
		user.CreatedBy = &id
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return user, nil
}

// GetByID returns a user regardless of role or active status.
func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.q.QueryRowContext(ctx, query, id))
}

// GetByEmail looks a user up by case-insensitive email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = LOWER($1)`
	return scanUser(r.q.QueryRowContext(ctx, query, strings.ToLower(email)))
}

// GetVisible returns a user by id, hiding super_admin rows from the admin
// API surface. The creator's email is joined in.
func (r *UserRepository) GetVisible(ctx context.Context, id int) (types.User, error) {
	query := `
		SELECT u.id, u.email, u.role, u.is_active, u.password_hash, u.created_by,
			u.created_at, u.updated_at, u.last_login, creator.email
		FROM users u
		LEFT JOIN users creator ON u.created_by = creator.id
		WHERE u.id = $1 AND u.role != $2`

	var user types.User
	var createdBy sql.NullInt64
	var lastLogin sql.NullTime
	var creatorEmail sql.NullString
	err := r.q.QueryRowContext(ctx, query, id, types.RoleSuperAdmin).Scan(
		&user.ID,
		&user.Email,
		&user.Role,
		&user.IsActive,
		&user.PasswordHash,
		&createdBy,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLogin,
		&creatorEmail,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if createdBy.Valid {
		cid := int(createdBy.Int64)
		user.CreatedBy = &cid
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	if creatorEmail.Valid {
		user.CreatedByEmail = &creatorEmail.String
	}
	return user, nil
}

// List returns admin and moderator accounts, newest first, with the total
// count for pagination. Super admin rows are never included. roleFilter may
// be empty or one of the assignable roles.
func (r *UserRepository) List(ctx context.Context, roleFilter string, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	countQuery := `SELECT COUNT(*) FROM users WHERE role != $1`
	countArgs := []any{types.RoleSuperAdmin}
	if roleFilter != "" {
		countQuery += ` AND role = $2`
		countArgs = append(countArgs, roleFilter)
	}
	var total int
	if err := r.q.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `
		SELECT u.id, u.email, u.role, u.is_active, u.created_by,
			u.created_at, u.updated_at, u.last_login, creator.email
		FROM users u
		LEFT JOIN users creator ON u.created_by = creator.id
		WHERE u.role != $1`
	args := []any{types.RoleSuperAdmin}
	if roleFilter != "" {
		listQuery += ` AND u.role = $2`
		args = append(args, roleFilter)
	}
	listQuery += fmt.Sprintf(" ORDER BY u.created_at DESC, u.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]types.User, 0, limit)
	for rows.Next() {
		var user types.User
		var createdBy sql.NullInt64
		var lastLogin sql.NullTime
		var creatorEmail sql.NullString
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Role,
			&user.IsActive,
			&createdBy,
			&user.CreatedAt,
			&user.UpdatedAt,
			&lastLogin,
			&creatorEmail,
		); err != nil {
			return nil, 0, err
		}
		if createdBy.Valid {
			cid := int(createdBy.Int64)
			user.CreatedBy = &cid
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			user.LastLogin = &t
		}
		if creatorEmail.Valid {
			user.CreatedByEmail = &creatorEmail.String
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Create inserts a user and returns the stored row. The email must already
// be normalized by the caller; a storage-level uniqueness violation maps to
// ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (email, password_hash, role, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	id, err := r.q.InsertReturningID(
		ctx,
		query,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		nullableInt(user.CreatedBy),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if r.database.IsUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	user.ID = id
	return user, nil
}

// Update applies a sparse patch plus an updated_at refresh and returns the
// stored row. Returns ErrNotFound when the row is absent.
func (r *UserRepository) Update(ctx context.Context, id int, patch UserPatch) (types.User, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	param := 1

	if patch.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", param))
		args = append(args, strings.ToLower(*patch.Email))
		param++
	}
	if patch.IsActive != nil {
		sets = append(sets, fmt.Sprintf("is_active = $%d", param))
		args = append(args, *patch.IsActive)
		param++
	}
	if patch.Role != nil {
		sets = append(sets, fmt.Sprintf("role = $%d", param))
		args = append(args, *patch.Role)
		param++
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", param))
	args = append(args, time.Now())
	param++

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), param)
	args = append(args, id)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		if r.database.IsUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// TouchLastLogin stamps a successful authentication.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id int) error {
	const query = `UPDATE users SET last_login = NOW() WHERE id = $1`
	_, err := r.q.ExecContext(ctx, query, id)
	return err
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
