package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_StatusCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		err    *AppError
		status int
	}{
		{"validation", NewValidationError("bad"), fiber.StatusUnprocessableEntity},
		{"unauthenticated", NewUnauthenticatedError("who"), fiber.StatusUnauthorized},
		{"forbidden", NewForbiddenError("no"), fiber.StatusForbidden},
		{"not found", NewNotFoundError("gone"), fiber.StatusNotFound},
		{"internal", NewInternalError(errors.New("db down")), fiber.StatusInternalServerError},
		{"unknown kind", &AppError{Kind: "SOMETHING"}, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode())
		})
	}
}

func TestAsAppError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("context: %w", NewForbiddenError("not yours"))
	assert.Equal(t, KindForbidden, AsAppError(wrapped).Kind)

	plain := AsAppError(errors.New("boom"))
	assert.Equal(t, KindInternal, plain.Kind)
	assert.Equal(t, "Internal server error", plain.Message)

	assert.Equal(t, KindNotFound, AsAppError(fiber.ErrNotFound).Kind)
	assert.Equal(t, KindValidation, AsAppError(fiber.ErrBadRequest).Kind)

	tooLarge := AsAppError(fiber.ErrRequestEntityTooLarge)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, tooLarge.StatusCode())

	limited := AsAppError(fiber.ErrTooManyRequests)
	assert.Equal(t, CodeRateLimited, limited.Code)
	assert.Equal(t, fiber.StatusTooManyRequests, limited.StatusCode())
}

func TestNewErrorResponse(t *testing.T) {
	t.Parallel()

	verr := NewValidationError("Validation failed.",
		FieldError{Field: "title", Message: "Title must be between 5 and 100 characters"},
		FieldError{Field: "content", Message: "Content is required"},
	)
	resp := NewErrorResponse(verr, true)
	assert.False(t, resp.Success)
	assert.Equal(t, 422, resp.Error.StatusCode)
	assert.Len(t, resp.Error.ValidationErrors, 2)
	assert.Empty(t, resp.Error.Stack)

	internal := NewInternalError(errors.New("db down"))
	withStack := NewErrorResponse(internal, true)
	assert.Contains(t, withStack.Error.Stack, "db down")

	withoutStack := NewErrorResponse(internal, false)
	assert.Empty(t, withoutStack.Error.Stack)
	assert.Equal(t, "Internal server error", withoutStack.Error.Message)
}

func TestRespondWithError_StackFollowsProductionSetting(t *testing.T) {
	defer SetProduction(false)

	app := fiber.New(fiber.Config{ErrorHandler: RespondWithError})
	app.Get("/", func(c *fiber.Ctx) error {
		return NewInternalError(errors.New("db down"))
	})

	stackOf := func() string {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusInternalServerError, body.Error.StatusCode)
		return body.Error.Stack
	}

	SetProduction(false)
	assert.Contains(t, stackOf(), "db down")

	SetProduction(true)
	assert.Empty(t, stackOf())
}
