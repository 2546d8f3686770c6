// Package auth registers and signs in users, and resolves the caller of a
// request from its bearer token.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"policygen/main_backend/apperr"
	ds "policygen/main_backend/database_service"
)

type Store interface {
	CreateUser(ctx context.Context, actor string, u ds.User) (ds.User, error)
	GetUser(ctx context.Context, id string) (*ds.User, error)
	GetUserByEmail(ctx context.Context, email string) (*ds.User, error)
	UpdateUserStatus(ctx context.Context, actor string, id string, status ds.UserStatus) (ds.User, error)
	FindUsers(ctx context.Context, f ds.UserFilter, limit int, offset int) ([]ds.User, error)
}

// Payload is what a successful login returns.
type Payload struct {
	Token     string
	ExpiresAt time.Time
	User      ds.User
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

const minPasswordLen = 8

type Service struct {
	store  Store
	tokens *Tokens
	log    zerolog.Logger
}

func NewService(store Store, tokens *Tokens, log zerolog.Logger) *Service {
	return &Service{store: store, tokens: tokens, log: log.With().Str("component", "auth").Logger()}
}

func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register creates a PENDING account. An admin has to approve it before
// the user can log in.
func (s *Service) Register(ctx context.Context, email, username, password string) (ds.User, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ds.User{}, apperr.Validation("invalid email address")
	}
	if !usernamePattern.MatchString(username) {
		return ds.User{}, apperr.Validation("username must be 3 to 32 letters, digits, dots, dashes or underscores")
	}
	if len(password) < minPasswordLen {
		return ds.User{}, apperr.Validation("password must be at least 8 characters")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return ds.User{}, apperr.Internal(err)
	}
	u, err := s.store.CreateUser(ctx, "register:"+email, ds.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Status:       ds.UserPending,
	})
	if err != nil {
		if errors.Is(err, ds.ErrConflict) {
			return ds.User{}, apperr.Conflict("email or username is already registered")
		}
		return ds.User{}, apperr.Internal(err)
	}
	s.log.Info().Str("user", u.ID).Str("username", u.Username).Msg("user registered, pending approval")
	return u, nil
}

// Login checks the password and the account status. Only APPROVED and
// ADMIN users get a token.
func (s *Service) Login(ctx context.Context, email, password string) (Payload, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return Payload{}, apperr.Internal(err)
	}
	if u == nil || !checkPassword(u.PasswordHash, password) {
		return Payload{}, apperr.Unauthenticated("invalid email or password")
	}
	switch u.Status {
	case ds.UserPending:
		return Payload{}, apperr.Forbidden("account is pending approval")
	case ds.UserRejected:
		return Payload{}, apperr.Forbidden("account has been rejected")
	}
	if !u.Status.CanLogin() {
		return Payload{}, apperr.Forbidden("")
	}

	token, exp, err := s.tokens.Issue(*u)
	if err != nil {
		return Payload{}, apperr.Internal(err)
	}
	return Payload{Token: token, ExpiresAt: exp, User: *u}, nil
}

// Authenticate resolves a bearer token to the caller. The user is re-read so
// a revoked account stops working before its token expires.
func (s *Service) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperr.Unauthenticated("invalid or expired token")
	}
	u, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil || !u.Status.CanLogin() {
		return nil, apperr.Unauthenticated("account is not active")
	}
	return &Identity{UserID: u.ID, Username: u.Username, Email: u.Email, Status: u.Status}, nil
}

func (s *Service) Me(ctx context.Context) (*ds.User, error) {
	id := FromContext(ctx)
	if id == nil {
		return nil, nil
	}
	u, err := s.store.GetUser(ctx, id.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

func (s *Service) Approve(ctx context.Context, userID string) (ds.User, error) {
	return s.setStatus(ctx, userID, ds.UserApproved)
}

func (s *Service) Reject(ctx context.Context, userID string) (ds.User, error) {
	return s.setStatus(ctx, userID, ds.UserRejected)
}

func (s *Service) setStatus(ctx context.Context, userID string, status ds.UserStatus) (ds.User, error) {
	admin, err := RequireAdmin(ctx)
	if err != nil {
		return ds.User{}, err
	}
	target, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return ds.User{}, apperr.Internal(err)
	}
	if target == nil {
		return ds.User{}, apperr.NotFound("user not found")
	}
	if target.Status == ds.UserAdmin {
		return ds.User{}, apperr.StateViolation("admin accounts cannot be approved or rejected")
	}

	u, err := s.store.UpdateUserStatus(ctx, "admin:"+admin.UserID, userID, status)
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return ds.User{}, apperr.NotFound("user not found")
		}
		return ds.User{}, apperr.Internal(err)
	}
	s.log.Info().Str("user", u.ID).Str("status", string(status)).Str("by", admin.UserID).Msg("user status changed")
	return u, nil
}

func (s *Service) PendingUsers(ctx context.Context) ([]ds.User, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	pending := ds.UserPending
	users, err := s.store.FindUsers(ctx, ds.UserFilter{StatusEquals: &pending}, 500, 0)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// AllUsers lists every account, optionally limited to those registered
// within [createdAfter, createdBefore].
func (s *Service) AllUsers(ctx context.Context, createdAfter, createdBefore *time.Time) ([]ds.User, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if createdAfter != nil && createdBefore != nil && createdAfter.After(*createdBefore) {
		return nil, apperr.Validation("createdAfter must not be later than createdBefore")
	}
	users, err := s.store.FindUsers(ctx, ds.UserFilter{CreatedAfter: createdAfter, CreatedBefore: createdBefore}, 1000, 0)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// EnsureAdmin seeds the configured admin account. An existing account with
// that email is promoted; its password is left alone.
func (s *Service) EnsureAdmin(ctx context.Context, email, username, password string) error {
	if email == "" {
		return nil
	}
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u != nil {
		if u.Status != ds.UserAdmin {
			if _, err := s.store.UpdateUserStatus(ctx, "seed", u.ID, ds.UserAdmin); err != nil {
				return err
			}
			s.log.Info().Str("user", u.ID).Msg("existing user promoted to admin")
		}
		return nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	created, err := s.store.CreateUser(ctx, "seed", ds.User{Email: email, Username: username, PasswordHash: hash, Status: ds.UserAdmin})
	if err != nil {
		return err
	}
	s.log.Info().Str("user", created.ID).Str("email", email).Msg("admin user created")
	return nil
}
