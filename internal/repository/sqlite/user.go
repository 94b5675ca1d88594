package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/chrisBrookes93/events-management/internal/apperror"
	"github.com/chrisBrookes93/events-management/internal/model"
	"github.com/chrisBrookes93/events-management/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new account. The email carries a UNIQUE constraint;
// a duplicate is reported as apperror.Conflict so the registration flow
// can show "already registered" rather than a 500.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.JoinedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, is_staff, is_active, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.IsStaff,
		user.IsActive,
		user.JoinedAt,
	)
	if err != nil {
		// modernc.org/sqlite reports constraint violations as plain errors;
		// matching the message is the practical way to tell a duplicate
		// email apart from a real failure without importing driver internals.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	return nil
}

// GetUserByID retrieves an account by its internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `id = ?`, id)
}

// GetUserByEmail retrieves an account by its email (the login key).
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, where string, key string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, is_staff, is_active, joined_at
		 FROM users WHERE `+where,
		key,
	).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.IsStaff,
		&u.IsActive,
		&u.JoinedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", key, err)
	}

	return &u, nil
}
