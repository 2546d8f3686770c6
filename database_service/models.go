package database_service

import (
	"time"
)

// UserStatus gates login: only APPROVED and ADMIN users may sign in.
type UserStatus string

const (
	UserPending  UserStatus = "PENDING"
	UserApproved UserStatus = "APPROVED"
	UserRejected UserStatus = "REJECTED"
	UserAdmin    UserStatus = "ADMIN"
)

// CanLogin reports whether a user with this status may authenticate.
func (s UserStatus) CanLogin() bool {
	return s == UserApproved || s == UserAdmin
}

// DocumentStatus is the lifecycle state of a generated document pair.
type DocumentStatus string

const (
	DocumentDraft     DocumentStatus = "DRAFT"
	DocumentApproved  DocumentStatus = "APPROVED"
	DocumentPublished DocumentStatus = "PUBLISHED"
)

// ImageType is the kind of marketing asset generated for a document.
type ImageType string

const (
	ImageAppIcon         ImageType = "APP_ICON"
	ImageFeatureGraphic  ImageType = "FEATURE_GRAPHIC"
	ImageStoreScreenshot ImageType = "STORE_SCREENSHOT"
)

// User is a projection of the `users` table.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Answer mirrors the `answers` table; one row per user and question.
type Answer struct {
	UserID     string    `json:"user_id"`
	QuestionID string    `json:"question_id"`
	Value      string    `json:"value"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Document mirrors the `documents` table. PrivacyPolicy and TermsOfService
// are written together; the generator never stores one without the other.
type Document struct {
	ID                string         `json:"id"`
	UserID            string         `json:"user_id"`
	AppName           string         `json:"app_name"`
	PrivacyPolicy     *string        `json:"privacy_policy,omitempty"`
	TermsOfService    *string        `json:"terms_of_service,omitempty"`
	Status            DocumentStatus `json:"status"`
	DeleteRequestedAt *time.Time     `json:"delete_requested_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// AppImage mirrors the `app_images` table.
type AppImage struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Type       ImageType `json:"image_type"`
	Style      string    `json:"style"`
	Prompt     *string   `json:"prompt,omitempty"`
	URL        string    `json:"url"`
	PublicID   string    `json:"public_id"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CreatedAt  time.Time `json:"created_at"`
}

// APIUsage is one accounted call to a paid generation API.
type APIUsage struct {
	ID           string    `json:"id"`
	UserID       *string   `json:"user_id,omitempty"`
	DocumentID   *string   `json:"document_id,omitempty"`
	Operation    string    `json:"operation"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Images       int       `json:"images"`
	CostUSD      float64   `json:"cost_usd"`
	CreatedAt    time.Time `json:"created_at"`
}

// AppEvent is emitted by triggers via LISTEN/NOTIFY on channel `app_events`.
// Only a subset of fields may be present depending on the table/action.
type AppEvent struct {
	Table    string    `json:"table"`
	Action   string    `json:"action"`
	RowID    string    `json:"row_id"`
	UserID   *string   `json:"user_id,omitempty"`
	Status   *string   `json:"status,omitempty"`
	Username *string   `json:"username,omitempty"`
	Email    *string   `json:"email,omitempty"`
	AppName  *string   `json:"app_name,omitempty"`
	At       time.Time `json:"at"`
}
