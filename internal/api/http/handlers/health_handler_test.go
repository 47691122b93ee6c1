package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/returnsdesk/oem-returns/pkg/util/errorutil"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newHealthApp(deps map[string]Pinger) *fiber.App {
	h := NewHealthHandler("oem-returns", "1.0.0", deps)
	app := fiber.New()
	app.Get("/live", h.Live)
	app.Get("/ready", h.Ready)
	return app
}

func TestLive(t *testing.T) {
	app := newHealthApp(nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/live", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "oem-returns", body["service"])
}

func TestReadyAllDependenciesUp(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	app := newHealthApp(map[string]Pinger{"postgres": ok, "redis": ok})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ready", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Dependencies)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewHealthHandler("oem-returns", "1.0.0", map[string]Pinger{
		"postgres": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		"redis":    pingFunc(func(context.Context) error { return nil }),
	})
	app := fiber.New()

	var handlerErr error
	app.Get("/ready", func(c *fiber.Ctx) error {
		handlerErr = h.Ready(c)
		return nil
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ready", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, handlerErr, &domainErr)
	assert.Equal(t, fiber.StatusServiceUnavailable, domainErr.HTTPStatus)
	assert.Equal(t, "connection refused", domainErr.Details["postgres"])
	assert.Equal(t, "ok", domainErr.Details["redis"])
}
