package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticValidator struct{}

func (staticValidator) ValidateToken(token string) (jwt.MapClaims, error) {
	if token != "good" {
		return nil, errors.New("invalid token")
	}
	return jwt.MapClaims{"user_id": "u1", "email": "a@example.com"}, nil
}

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/", append(handlers, func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		return c.SendString("ok " + uid)
	})...)
	return app
}

func get(t *testing.T, app *fiber.App, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestAuthRequired(t *testing.T) {
	app := newApp(AuthRequired(staticValidator{}, zap.NewNop().Sugar()))

	code, _ := get(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, body := get(t, app, "Token good")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, body, "Bearer")
	code, _ = get(t, app, "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, body = get(t, app, "Bearer good")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok u1", body)
}

func TestOptional(t *testing.T) {
	app := newApp(Optional(false, AuthRequired(staticValidator{}, zap.NewNop().Sugar())))
	code, _ := get(t, app, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestRateLimit_Local(t *testing.T) {
	app := newApp(RateLimit(NewLocalLimiter(2, time.Hour), ByIP, zap.NewNop().Sugar()))

	for i := 0; i < 2; i++ {
		code, _ := get(t, app, "")
		assert.Equal(t, http.StatusOK, code)
	}
	code, body := get(t, app, "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, body, "Too many requests")
}

func TestMetrics(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/product/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })

	before := testutil.ToFloat64(httpReqTotal.WithLabelValues("/product/:id", "GET", "404"))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/product/abc", strings.NewReader("")), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, before+1, testutil.ToFloat64(httpReqTotal.WithLabelValues("/product/:id", "GET", "404")))
}

func TestRequestContext(t *testing.T) {
	app := fiber.New()
	app.Get("/", RequestContext(time.Minute), func(c *fiber.Ctx) error {
		deadline, ok := c.UserContext().Deadline()
		if !ok || time.Until(deadline) > time.Minute {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
