package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("resolver: %w", NotFound("document not found or access denied"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", StateViolation("only DRAFT documents can be edited"))
	assert.True(t, errors.Is(err, StateViolation("")))
	assert.False(t, errors.Is(err, NotFound("")))
}

func TestMessage(t *testing.T) {
	t.Run("internal errors are hidden", func(t *testing.T) {
		assert.Equal(t, "unexpected error", Message(errors.New("pq: password authentication failed")))
	})
	t.Run("upstream errors keep the remote text", func(t *testing.T) {
		err := Upstream("failed to generate privacy policy", errors.New("gemini: quota exceeded"))
		assert.Equal(t, "failed to generate privacy policy: gemini: quota exceeded", Message(err))
	})
	t.Run("validation errors are verbatim", func(t *testing.T) {
		assert.Equal(t, "invalid email address", Message(Validation("invalid email address")))
	})
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindStateViolation:  http.StatusConflict,
		KindConflict:        http.StatusConflict,
		KindUpstream:        http.StatusBadGateway,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), kind)
	}
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, map[string]interface{}{"code": "FORBIDDEN"}, Forbidden("").Extensions())
}
