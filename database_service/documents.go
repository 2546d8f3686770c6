package database_service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const documentColumns = `id, user_id, app_name, privacy_policy, terms_of_service, status, delete_requested_at, created_at, updated_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.UserID, &d.AppName, &d.PrivacyPolicy, &d.TermsOfService,
		&d.Status, &d.DeleteRequestedAt, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (db *DB) getDocument(ctx context.Context, sql string, args ...any) (*Document, error) {
	d, err := scanDocument(db.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(mapErr(err), ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (db *DB) listDocuments(ctx context.Context, sql string, args ...any) ([]Document, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateDocument stores a generated document. Both texts are inserted in
// the same statement.
func (db *DB) CreateDocument(ctx context.Context, actor string, d Document) (Document, error) {
	if d.Status == "" {
		d.Status = DocumentDraft
	}
	var out Document
	err := db.inTx(ctx, actor, func(tx pgx.Tx) error {
		var err error
		out, err = scanDocument(tx.QueryRow(ctx, `
            INSERT INTO documents (user_id, app_name, privacy_policy, terms_of_service, status)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING `+documentColumns,
			d.UserID, d.AppName, d.PrivacyPolicy, d.TermsOfService, d.Status))
		return err
	})
	return out, err
}

// GetDocument returns the document with id; (nil, nil) when absent.
func (db *DB) GetDocument(ctx context.Context, id string) (*Document, error) {
	return db.getDocument(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
}

// ListDocumentsByOwner returns a user's documents, newest first.
func (db *DB) ListDocumentsByOwner(ctx context.Context, userID string) ([]Document, error) {
	return db.listDocuments(ctx, `
        SELECT `+documentColumns+` FROM documents
        WHERE user_id = $1
        ORDER BY created_at DESC`, userID)
}

// FindDocumentByOwnerAndApp returns the first document a user generated for
// appName. App names are not unique, so the oldest match wins.
func (db *DB) FindDocumentByOwnerAndApp(ctx context.Context, userID string, appName string) (*Document, error) {
	return db.getDocument(ctx, `
        SELECT `+documentColumns+` FROM documents
        WHERE user_id = $1 AND app_name = $2
        ORDER BY created_at ASC
        LIMIT 1`, userID, appName)
}

// FindPublishedDocument is the public lookup by the owner's username and the
// app name. Only PUBLISHED documents are returned.
func (db *DB) FindPublishedDocument(ctx context.Context, username string, appName string) (*Document, error) {
	return db.getDocument(ctx, `
        SELECT d.id, d.user_id, d.app_name, d.privacy_policy, d.terms_of_service, d.status,
               d.delete_requested_at, d.created_at, d.updated_at
        FROM documents d
        JOIN users u ON u.id = d.user_id
        WHERE lower(u.username) = lower($1) AND d.app_name = $2 AND d.status = $3
        ORDER BY d.created_at ASC
        LIMIT 1`, username, appName, DocumentPublished)
}

// UpdateDocumentStatus moves a document to status; ErrNotFound when absent.
func (db *DB) UpdateDocumentStatus(ctx context.Context, actor string, id string, status DocumentStatus) (Document, error) {
	return db.updateDocument(ctx, actor, `
        UPDATE documents SET status = $2
        WHERE id = $1
        RETURNING `+documentColumns, id, status)
}

// UpdateDocumentText replaces the non-nil text fields. The status guard makes
// the write a no-op (ErrNotFound) if the document left DRAFT meanwhile.
func (db *DB) UpdateDocumentText(ctx context.Context, actor string, id string, privacyPolicy, termsOfService *string) (Document, error) {
	return db.updateDocument(ctx, actor, `
        UPDATE documents
        SET privacy_policy   = COALESCE($2, privacy_policy),
            terms_of_service = COALESCE($3, terms_of_service)
        WHERE id = $1 AND status = $4
        RETURNING `+documentColumns, id, privacyPolicy, termsOfService, DocumentDraft)
}

// SetDeleteRequested records (at != nil) or clears (at == nil) a deletion request.
func (db *DB) SetDeleteRequested(ctx context.Context, actor string, id string, at *time.Time) (Document, error) {
	return db.updateDocument(ctx, actor, `
        UPDATE documents SET delete_requested_at = $2
        WHERE id = $1
        RETURNING `+documentColumns, id, at)
}

func (db *DB) updateDocument(ctx context.Context, actor string, sql string, args ...any) (Document, error) {
	var out Document
	err := db.inTx(ctx, actor, func(tx pgx.Tx) error {
		var err error
		out, err = scanDocument(tx.QueryRow(ctx, sql, args...))
		return err
	})
	return out, err
}

// DeleteDocument removes a document; its images go with it (ON DELETE CASCADE).
func (db *DB) DeleteDocument(ctx context.Context, actor string, id string) error {
	return db.inTx(ctx, actor, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
