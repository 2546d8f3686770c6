package database_service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, username, password_hash, status, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUser inserts a user. Duplicate email or username yields ErrConflict.
func (db *DB) CreateUser(ctx context.Context, actor string, u User) (User, error) {
	if u.Status == "" {
		u.Status = UserPending
	}
	var out User
	err := db.inTx(ctx, actor, func(tx pgx.Tx) error {
		var err error
		out, err = scanUser(tx.QueryRow(ctx, `
            INSERT INTO users (email, username, password_hash, status)
            VALUES ($1, $2, $3, $4)
            RETURNING `+userColumns,
			u.Email, u.Username, u.PasswordHash, u.Status))
		return err
	})
	return out, err
}

// GetUser finds a user by id; (nil, nil) when absent.
func (db *DB) GetUser(ctx context.Context, id string) (*User, error) {
	return getUser(ctx, db, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetUserByEmail matches the email case-insensitively; (nil, nil) when absent.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return getUser(ctx, db, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func getUser(ctx context.Context, db *DB, sql string, arg any) (*User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(mapErr(err), ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// UpdateUserStatus sets the status of a user; ErrNotFound when absent.
func (db *DB) UpdateUserStatus(ctx context.Context, actor string, id string, status UserStatus) (User, error) {
	var out User
	err := db.inTx(ctx, actor, func(tx pgx.Tx) error {
		var err error
		out, err = scanUser(tx.QueryRow(ctx, `
            UPDATE users SET status = $2
            WHERE id = $1
            RETURNING `+userColumns, id, status))
		return err
	})
	return out, err
}
