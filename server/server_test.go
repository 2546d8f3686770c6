package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policygen/main_backend/auth"
	ds "policygen/main_backend/database_service"
	"policygen/main_backend/documents"
	"policygen/main_backend/graph"
	"policygen/main_backend/images"
	"policygen/main_backend/memstore"
	"policygen/main_backend/questionnaire"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newServer(t *testing.T, health Pinger, logs *bytes.Buffer) (*memstore.Store, http.Handler) {
	t.Helper()
	log := zerolog.New(logs)
	store := memstore.New()
	catalog, err := questionnaire.Default()
	require.NoError(t, err)

	authSvc := auth.NewService(store, auth.NewTokens("server-test", time.Hour), log)
	docs := documents.NewManager(store, log)
	schema, err := graph.NewSchema(graph.Services{
		Auth:      authSvc,
		Catalog:   catalog,
		Answers:   store,
		Generator: documents.NewGenerator(store, nil, catalog, log),
		Documents: docs,
		Images:    images.NewOrchestrator(store, nil, nil, images.RetryConfig{}, log),
	}, log)
	require.NoError(t, err)

	return store, New(Deps{Schema: schema, Auth: authSvc, Documents: docs, Health: health, Log: log, LogLevel: "off"})
}

func serve(h http.Handler, method, target string, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	var logs bytes.Buffer
	_, h := newServer(t, pinger{}, &logs)
	rec := serve(h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	_, h = newServer(t, pinger{err: errors.New("connection refused")}, &logs)
	rec = serve(h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	var logs bytes.Buffer
	_, h := newServer(t, pinger{}, &logs)
	rec := serve(h, http.MethodOptions, "/graphql", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestPublicDocument(t *testing.T) {
	var logs bytes.Buffer
	store, h := newServer(t, pinger{}, &logs)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, "test", ds.User{Email: "alice@example.com", Username: "alice", PasswordHash: "x", Status: ds.UserApproved})
	require.NoError(t, err)
	privacy, terms := "# Privacy", "# Terms"
	d, err := store.CreateDocument(ctx, u.ID, ds.Document{UserID: u.ID, AppName: "Acme", PrivacyPolicy: &privacy, TermsOfService: &terms})
	require.NoError(t, err)

	rec := serve(h, http.MethodGet, "/public/alice/Acme", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "drafts are not public")

	_, err = store.UpdateDocumentStatus(ctx, u.ID, d.ID, ds.DocumentPublished)
	require.NoError(t, err)

	rec = serve(h, http.MethodGet, "/public/alice/Acme", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body publicDocumentBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Acme", body.AppName)
	assert.Equal(t, "# Privacy", body.PrivacyPolicy)
	assert.Equal(t, "# Terms", body.TermsOfService)

	rec = serve(h, http.MethodGet, "/public/alice/Acme/terms-of-service", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# Terms", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")

	rec = serve(h, http.MethodGet, "/public/alice/Acme/cookies", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGraphQLRouteIsGated(t *testing.T) {
	var logs bytes.Buffer
	_, h := newServer(t, pinger{}, &logs)

	headers := map[string]string{"Content-Type": "application/json"}
	rec := serve(h, http.MethodPost, "/graphql", `{"query":"{ questions { id } }"}`, headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"app_type"`)

	headers["Authorization"] = "Bearer expired.or.forged"
	rec = serve(h, http.MethodPost, "/graphql", `{"query":"{ questions { id } }"}`, headers)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestLog(t *testing.T) {
	var logs bytes.Buffer
	_, h := newServer(t, pinger{}, &logs)
	serve(h, http.MethodGet, "/public/nobody/none", "", nil)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &line))
	assert.Equal(t, "request", line["message"])
	assert.Equal(t, "/public/nobody/none", line["path"])
	assert.EqualValues(t, http.StatusNotFound, line["status"])
	assert.Equal(t, "warn", line["level"])
}
