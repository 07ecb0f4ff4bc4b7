package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Question  string `json:"question" validate:"required"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{SessionId: "s", Question: "q"}))

	err := ValidateRequest(sampleRequest{SessionId: "s"})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, fiber.StatusBadRequest, httpErr.Code)
	assert.Contains(t, httpErr.Message, "question is required")
}

func decode(t *testing.T, resp *http.Response) BaseResponse[any] {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out BaseResponse[any]
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/http", func(c *fiber.Ctx) error {
		return NewHTTPError(fiber.StatusNotFound, "article not found", errors.New("inner"))
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "bad body")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errors.New("provider down")
	})
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.JSON(SuccessResponse("fine", fiber.Map{"a": 1}))
	})

	tests := []struct {
		path    string
		code    int
		message string
		success bool
	}{
		{"/http", fiber.StatusNotFound, "article not found", false},
		{"/fiber", fiber.StatusBadRequest, "bad body", false},
		{"/plain", fiber.StatusInternalServerError, "provider down", false},
		{"/ok", fiber.StatusOK, "fine", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			body := decode(t, resp)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, tt.success, body.Success)
		})
	}
}

func TestNewJwtMiddleware(t *testing.T) {
	app := fiber.New()
	app.Post("/guarded", NewJwtMiddleware("s3cret"), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("subject").(string))
	})

	sign := func(secret string, method jwt.SigningMethod) string {
		token, err := jwt.NewWithClaims(method, jwt.MapClaims{
			"sub": "seed-cli",
			"exp": time.Now().Add(time.Minute).Unix(),
		}).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"not bearer", "Token abc", fiber.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign("other", jwt.SigningMethodHS256), fiber.StatusUnauthorized},
		{"wrong method", "Bearer " + sign("s3cret", jwt.SigningMethodHS512), fiber.StatusUnauthorized},
		{"valid", "Bearer " + sign("s3cret", jwt.SigningMethodHS256), fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}
