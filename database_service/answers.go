package database_service

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// SaveAnswers upserts a user's answers. A submitted answer replaces the
// previous value for the same question as a whole.
func (db *DB) SaveAnswers(ctx context.Context, actor string, userID string, answers []Answer) ([]Answer, error) {
	out := make([]Answer, 0, len(answers))
	err := db.inTx(ctx, actor, func(tx pgx.Tx) error {
		for _, a := range answers {
			var saved Answer
			if err := tx.QueryRow(ctx, `
                INSERT INTO answers (user_id, question_id, value)
                VALUES ($1, $2, $3)
                ON CONFLICT (user_id, question_id)
                DO UPDATE SET value = EXCLUDED.value, updated_at = now()
                RETURNING user_id, question_id, value, updated_at
            `, userID, a.QuestionID, a.Value).Scan(&saved.UserID, &saved.QuestionID, &saved.Value, &saved.UpdatedAt); err != nil {
				return err
			}
			out = append(out, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAnswers returns the stored answers of a user.
func (db *DB) ListAnswers(ctx context.Context, userID string) ([]Answer, error) {
	rows, err := db.pool.Query(ctx, `
        SELECT user_id, question_id, value, updated_at
        FROM answers WHERE user_id = $1
        ORDER BY question_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Answer{}
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.UserID, &a.QuestionID, &a.Value, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
