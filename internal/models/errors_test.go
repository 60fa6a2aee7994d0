package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_IsAndUnwrap(t *testing.T) {
	t.Parallel()
	sentinel := NewValidationError("content must not be empty")
	wrapped := fmt.Errorf("submit post: %w", NewValidationError("content must not be empty"))

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, NewValidationError("other")))

	cause := errors.New("dial tcp")
	internal := NewInternalError(cause)
	assert.ErrorIs(t, internal, cause)
	assert.Equal(t, "Internal server error: dial tcp", internal.Error())
}

func TestStatusFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err      error
		expected int
	}{
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewNotFoundError("post", 7), fiber.StatusNotFound},
		{NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{NewConflictError("done"), fiber.StatusConflict},
		{&AppError{Code: CodeConfirmationRequired}, fiber.StatusConflict},
		{fmt.Errorf("x: %w", NewBackendRejectedError("nope")), fiber.StatusBadGateway},
		{fmt.Errorf("x: %w", codedError{}), fiber.StatusBadGateway},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, StatusFor(tt.err), tt.err.Error())
	}
}

func TestRespondWithError(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusBadRequest, NewValidationError("Invalid post ID"))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Invalid post ID", out.Error)
	assert.Equal(t, CodeValidation, out.Code)
}

type codedError struct{}

func (codedError) Error() string     { return "upstream down" }
func (codedError) ErrorCode() string { return CodeBackendUnavailable }
