// Package server assembles the HTTP surface: the GraphQL endpoint, public
// document pages and a health check.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/rs/zerolog"

	"policygen/main_backend/apperr"
	"policygen/main_backend/auth"
	"policygen/main_backend/documents"
	"policygen/main_backend/graph"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Schema    graphql.Schema
	Auth      *auth.Service
	Documents *documents.Manager
	Health    Pinger
	Log       zerolog.Logger
	// LogLevel is applied to echo's own logger.
	LogLevel string
}

func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	SetLevel(e, d.LogLevel)

	e.Use(middleware.Recover())
	e.Use(RequestLog(d.Log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))

	e.POST("/graphql", graph.Handler(d.Schema), auth.Gate(d.Auth))
	e.GET("/healthz", healthz(d.Health))
	e.GET("/public/:username/:appName", publicDocument(d.Documents))
	e.GET("/public/:username/:appName/:kind", publicText(d.Documents))
	return e
}

// RequestLog writes one line per request once the response status is known.
func RequestLog(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			begin := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			ev := logger.Info()
			switch {
			case status >= 500:
				ev = logger.Error().Err(err)
			case status >= 400:
				ev = logger.Warn()
			}
			ev.Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("took", time.Since(begin)).
				Msg("request")
			return nil
		}
	}
}

// SetLevel sets echo's logger level; unknown levels fall back to warn.
func SetLevel(e *echo.Echo, level string) {
	switch strings.ToLower(level) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "info":
		e.Logger.SetLevel(log.INFO)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	case "off":
		e.Logger.SetLevel(log.OFF)
	case "", "warn":
		e.Logger.SetLevel(log.WARN)
	default:
		e.Logger.SetLevel(log.WARN)
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", level)
	}
}

func healthz(p Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			c.Logger().Warnf("health check failed: %v", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

type publicDocumentBody struct {
	Username       string    `json:"username"`
	AppName        string    `json:"app_name"`
	PrivacyPolicy  string    `json:"privacy_policy"`
	TermsOfService string    `json:"terms_of_service"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func jsonError(c echo.Context, err error) error {
	e := apperr.Public(err)
	if e.Kind == apperr.KindInternal {
		c.Logger().Error(err)
	}
	return c.JSON(e.Kind.HTTPStatus(), map[string]string{"error": apperr.Message(err)})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func publicDocument(m *documents.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		d, err := m.Public(c.Request().Context(), c.Param("username"), c.Param("appName"))
		if err != nil {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusOK, publicDocumentBody{
			Username:       c.Param("username"),
			AppName:        d.AppName,
			PrivacyPolicy:  deref(d.PrivacyPolicy),
			TermsOfService: deref(d.TermsOfService),
			UpdatedAt:      d.UpdatedAt,
		})
	}
}

// publicText serves one text of a published document as markdown, for
// linking from app store listings.
func publicText(m *documents.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		d, err := m.Public(c.Request().Context(), c.Param("username"), c.Param("appName"))
		if err != nil {
			return jsonError(c, err)
		}
		var text string
		switch c.Param("kind") {
		case "privacy-policy":
			text = deref(d.PrivacyPolicy)
		case "terms-of-service":
			text = deref(d.TermsOfService)
		default:
			return jsonError(c, apperr.NotFound(""))
		}
		return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(text))
	}
}
