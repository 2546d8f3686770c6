package database_service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const imageColumns = `id, document_id, image_type, style, prompt, url, public_id, width, height, created_at`

func scanImage(row pgx.Row) (AppImage, error) {
	var im AppImage
	err := row.Scan(&im.ID, &im.DocumentID, &im.Type, &im.Style, &im.Prompt, &im.URL,
		&im.PublicID, &im.Width, &im.Height, &im.CreatedAt)
	return im, err
}

func (db *DB) CreateAppImage(ctx context.Context, actor string, im AppImage) (AppImage, error) {
	var out AppImage
	err := db.inTx(ctx, actor, func(tx pgx.Tx) error {
		var err error
		out, err = scanImage(tx.QueryRow(ctx, `
            INSERT INTO app_images (document_id, image_type, style, prompt, url, public_id, width, height)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
            RETURNING `+imageColumns,
			im.DocumentID, im.Type, im.Style, im.Prompt, im.URL, im.PublicID, im.Width, im.Height))
		return err
	})
	return out, err
}

// GetAppImage returns the image with id; (nil, nil) when absent.
func (db *DB) GetAppImage(ctx context.Context, id string) (*AppImage, error) {
	im, err := scanImage(db.pool.QueryRow(ctx, `SELECT `+imageColumns+` FROM app_images WHERE id = $1`, id))
	if err != nil {
		if errors.Is(mapErr(err), ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &im, nil
}

func (db *DB) ListAppImages(ctx context.Context, documentID string) ([]AppImage, error) {
	rows, err := db.pool.Query(ctx, `
        SELECT `+imageColumns+` FROM app_images
        WHERE document_id = $1
        ORDER BY created_at DESC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []AppImage{}
	for rows.Next() {
		im, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, im)
	}
	return out, rows.Err()
}

func (db *DB) DeleteAppImage(ctx context.Context, actor string, id string) error {
	return db.inTx(ctx, actor, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM app_images WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// RecordUsage appends one accounting row. It runs outside any caller
// transaction so a failure here cannot roll back the accounted operation.
func (db *DB) RecordUsage(ctx context.Context, u APIUsage) error {
	_, err := db.pool.Exec(ctx, `
        INSERT INTO api_usage (user_id, document_id, operation, model, input_tokens, output_tokens, images, cost_usd)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.UserID, u.DocumentID, u.Operation, u.Model, u.InputTokens, u.OutputTokens, u.Images, u.CostUSD)
	return mapErr(err)
}
