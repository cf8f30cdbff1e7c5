package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/Integraciones-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/Integraciones-api/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testCompanyID = "00000000-0000-0000-0000-000000000002"
)

// tokenForRole firma un token de la empresa de pruebas con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Sign(testJWTSecret, "integraciones-api-test",
		pkgjwt.Principal{UserID: testUserID, CompanyID: testCompanyID, Role: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

// guardedApp expone POST /bulk con el mismo encadenamiento que el router de facturas.
func guardedApp(roles ...string) *fiber.App {
	app := fiber.New()
	app.Post("/bulk", apphttp.AuthMiddleware(testJWTSecret), apphttp.RequireRole(roles...), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":    apphttp.GetUserID(c),
			"company_id": apphttp.GetCompanyID(c),
			"role":       apphttp.GetRole(c),
		})
	})
	return app
}

func call(t *testing.T, app *fiber.App, auth string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/bulk", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestAuthMiddleware_CargaPrincipal(t *testing.T) {
	status, body := call(t, guardedApp(apphttp.RoleAdmin, apphttp.RoleSeller), tokenForRole(t, apphttp.RoleSeller))
	require.Equal(t, http.StatusOK, status)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, testUserID, got["user_id"])
	assert.Equal(t, testCompanyID, got["company_id"])
	assert.Equal(t, apphttp.RoleSeller, got["role"])
}

func TestAuthMiddleware_Rechazos(t *testing.T) {
	sinRol, err := pkgjwt.Sign(testJWTSecret, "x", pkgjwt.Principal{UserID: testUserID, CompanyID: testCompanyID}, time.Hour)
	require.NoError(t, err)
	expirado, err := pkgjwt.Sign(testJWTSecret, "x", pkgjwt.Principal{UserID: testUserID, CompanyID: testCompanyID, Role: "admin"}, -time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name   string
		auth   string
		status int
		code   string
	}{
		{"sin header", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"esquema distinto", "Basic abc", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"malformado", "Bearer token.invalido.aqui", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"expirado", "Bearer " + expirado, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"sin rol", "Bearer " + sinRol, http.StatusUnauthorized, "MISSING_ROLE"},
		{"bodeguero en ruta de facturas", tokenForRole(t, apphttp.RoleWarehouse), http.StatusForbidden, "FORBIDDEN"},
	}
	app := guardedApp(apphttp.RoleAdmin, apphttp.RoleSeller)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, app, tc.auth)
			assert.Equal(t, tc.status, status)
			assert.Contains(t, body, tc.code)
		})
	}
}
