package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policygen/main_backend/apperr"
	ds "policygen/main_backend/database_service"
	"policygen/main_backend/memstore"
)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return NewService(store, NewTokens("test-secret", time.Hour), zerolog.Nop()), store
}

func adminCtx(t *testing.T, s *Service) context.Context {
	t.Helper()
	require.NoError(t, s.EnsureAdmin(context.Background(), "admin@example.com", "admin", "admin-password"))
	p, err := s.Login(context.Background(), "admin@example.com", "admin-password")
	require.NoError(t, err)
	id, err := s.Authenticate(context.Background(), p.Token)
	require.NoError(t, err)
	require.True(t, id.IsAdmin())
	return WithIdentity(context.Background(), id)
}

func TestTokens(t *testing.T) {
	tok := NewTokens("secret", time.Minute)
	u := ds.User{ID: "u1", Status: ds.UserApproved}

	s, exp, err := tok.Issue(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	claims, err := tok.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.False(t, claims.Admin)

	_, err = NewTokens("other", time.Minute).Parse(s)
	assert.Error(t, err, "wrong secret")

	tok.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tok.Parse(s)
	assert.Error(t, err, "expired")
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	cases := []struct{ email, username, password string }{
		{"not-an-email", "alice", "password1"},
		{"alice@example.com", "a", "password1"},
		{"alice@example.com", "alice smith", "password1"},
		{"alice@example.com", "alice", "short"},
	}
	for _, c := range cases {
		_, err := s.Register(ctx, c.email, c.username, c.password)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), c)
	}

	u, err := s.Register(ctx, "alice@example.com", "alice", "password1")
	require.NoError(t, err)
	assert.Equal(t, ds.UserPending, u.Status)
	assert.NotEqual(t, "password1", u.PasswordHash)

	_, err = s.Register(ctx, "ALICE@example.com", "alice2", "password1")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	_, err = s.Register(ctx, "alice2@example.com", "Alice", "password1")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestLoginDependsOnStatus(t *testing.T) {
	s, _ := newService(t)
	admin := adminCtx(t, s)
	ctx := context.Background()

	_, err := s.Register(ctx, "p@example.com", "pending", "password1")
	require.NoError(t, err)
	rejected, err := s.Register(ctx, "r@example.com", "rejected", "password1")
	require.NoError(t, err)
	approved, err := s.Register(ctx, "a@example.com", "approved", "password1")
	require.NoError(t, err)

	_, err = s.Reject(admin, rejected.ID)
	require.NoError(t, err)
	_, err = s.Approve(admin, approved.ID)
	require.NoError(t, err)

	_, err = s.Login(ctx, "p@example.com", "password1")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = s.Login(ctx, "r@example.com", "password1")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = s.Login(ctx, "a@example.com", "wrong-password")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	_, err = s.Login(ctx, "nobody@example.com", "password1")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	p, err := s.Login(ctx, "a@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, p.Token)
	assert.Equal(t, approved.ID, p.User.ID)

	_, err = s.Authenticate(ctx, p.Token)
	require.NoError(t, err)

	// rejecting later revokes the outstanding token
	_, err = s.Reject(admin, approved.ID)
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, p.Token)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestAdminOnlyOperations(t *testing.T) {
	s, _ := newService(t)
	admin := adminCtx(t, s)
	ctx := context.Background()

	u, err := s.Register(ctx, "u@example.com", "user", "password1")
	require.NoError(t, err)

	_, err = s.Approve(ctx, u.ID)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	userCtx := WithIdentity(ctx, &Identity{UserID: u.ID, Status: ds.UserApproved})
	_, err = s.Approve(userCtx, u.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = s.PendingUsers(userCtx)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = s.AllUsers(userCtx, nil, nil)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	pending, err := s.PendingUsers(admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, u.ID, pending[0].ID)

	all, err := s.AllUsers(admin, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	hourAgo, inAnHour := time.Now().Add(-time.Hour), time.Now().Add(time.Hour)
	all, err = s.AllUsers(admin, &hourAgo, &inAnHour)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	all, err = s.AllUsers(admin, &inAnHour, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
	all, err = s.AllUsers(admin, nil, &hourAgo)
	require.NoError(t, err)
	assert.Empty(t, all)
	_, err = s.AllUsers(admin, &inAnHour, &hourAgo)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = s.Approve(admin, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	me := FromContext(admin)
	_, err = s.Reject(admin, me.UserID)
	assert.Equal(t, apperr.KindStateViolation, apperr.KindOf(err))
}

func TestEnsureAdminPromotesExisting(t *testing.T) {
	s, store := newService(t)
	ctx := context.Background()
	u, err := s.Register(ctx, "boss@example.com", "boss", "password1")
	require.NoError(t, err)

	require.NoError(t, s.EnsureAdmin(ctx, "boss@example.com", "ignored", "ignored-pass"))
	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.UserAdmin, got.Status)

	require.NoError(t, s.EnsureAdmin(ctx, "", "", ""), "no admin configured")
}

func TestGate(t *testing.T) {
	s, _ := newService(t)
	adminCtx(t, s)
	p, err := s.Login(context.Background(), "admin@example.com", "admin-password")
	require.NoError(t, err)

	e := echo.New()
	e.Use(Gate(s))
	e.GET("/who", func(c echo.Context) error {
		id := FromContext(c.Request().Context())
		if id == nil {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, id.Username)
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := do("")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	rec = do("Bearer " + p.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())

	for _, h := range []string{"Bearer garbage", "Basic abc", "Bearer "} {
		rec = do(h)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, h)
		var body struct {
			Errors []struct {
				Message    string            `json:"message"`
				Extensions map[string]string `json:"extensions"`
			} `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "UNAUTHENTICATED", body.Errors[0].Extensions["code"])
	}
}
