package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"policygen/main_backend/apperr"
)

// Gate resolves "Authorization: Bearer <token>". A missing header leaves the
// request anonymous and resolvers decide. A malformed, invalid or expired
// token is rejected with 401 before any handler runs.
func Gate(s *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authz := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
			if authz == "" {
				return next(c)
			}
			token, ok := cutBearer(authz)
			if !ok {
				return reject(c, apperr.Unauthenticated("authorization header must be a bearer token"))
			}

			id, err := s.Authenticate(c.Request().Context(), token)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindInternal {
					c.Logger().Error(err)
				}
				return reject(c, apperr.Public(err))
			}
			req := c.Request()
			c.SetRequest(req.WithContext(WithIdentity(req.Context(), id)))
			return next(c)
		}
	}
}

func cutBearer(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

// reject answers in the GraphQL error shape so clients handle gate failures
// like resolver errors.
func reject(c echo.Context, e *apperr.Error) error {
	return c.JSON(e.Kind.HTTPStatus(), map[string]interface{}{
		"errors": []map[string]interface{}{
			{"message": apperr.Message(e), "extensions": e.Extensions()},
		},
	})
}
