package database_service

import (
	"context"
	"strconv"
	"time"
)

// Simple filters matching the admin screens without overengineering
type UserFilter struct {
	// Optional
	StatusEquals  *UserStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// FindUsers returns users filtered by basic fields, oldest first so the
// approval queue is worked in registration order.
func (db *DB) FindUsers(ctx context.Context, f UserFilter, limit int, offset int) ([]User, error) {
	// Build WHERE clause in a very explicit way
	where := "WHERE 1=1"
	args := []any{}

	if f.StatusEquals != nil {
		args = append(args, *f.StatusEquals)
		where += " AND status = $" + strconv.Itoa(len(args))
	}
	if f.CreatedAfter != nil {
		args = append(args, *f.CreatedAfter)
		where += " AND created_at >= $" + strconv.Itoa(len(args))
	}
	if f.CreatedBefore != nil {
		args = append(args, *f.CreatedBefore)
		where += " AND created_at <= $" + strconv.Itoa(len(args))
	}

	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	sql := "SELECT " + userColumns + " FROM users " + where + " ORDER BY created_at ASC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
