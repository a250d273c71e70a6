package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitookmyjob/internal/config"
	"aitookmyjob/internal/models"
	"aitookmyjob/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:            "0",
		Env:             "test",
		AdminToken:      "test-admin-token",
		AuthSecret:      "test-auth-secret-for-handler-tests",
		SessionTTLHours: 1,
		DataDir:         "unused",
		DefaultCountry:  "global",
		DefaultLang:     "en",
		AllowDevOTP:     true,
	}
}

// newTestApp wires a server on a throwaway file store. The metrics
// middleware is left out so repeated app construction does not collide on
// the global Prometheus registry.
func newTestApp(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv := NewServerWithDeps(testConfig(), st, nil)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	srv.SetupRoutes(app)
	return srv, app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, mutate ...func(*http.Request)) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func sessionCookieValue(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookie {
			return cookie.Value
		}
	}
	t.Fatal("session cookie not set")
	return ""
}

func withSession(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}
}

func withAdminToken(req *http.Request) {
	req.Header.Set("Authorization", "Bearer test-admin-token")
}

func registerUser(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	resp := doJSON(t, app, fiber.MethodPost, "/api/auth/register", fiber.Map{
		"email":    email,
		"password": "Str0ngPass!",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return sessionCookieValue(t, resp)
}

// verifyPhone walks the OTP flow using the dev code exposed outside
// production.
func verifyPhone(t *testing.T, app *fiber.App, token, phone string) {
	t.Helper()
	resp := doJSON(t, app, fiber.MethodPost, "/api/auth/phone/request-otp", fiber.Map{"phone": phone}, withSession(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var challenge struct {
		DevCode string `json:"devCode"`
	}
	decode(t, resp, &challenge)
	require.Len(t, challenge.DevCode, 6)

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/phone/verify", fiber.Map{"phone": phone, "code": challenge.DevCode}, withSession(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	_, app := newTestApp(t)
	resp := doJSON(t, app, fiber.MethodGet, "/health", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body struct {
		OK      bool   `json:"ok"`
		Service string `json:"service"`
	}
	decode(t, resp, &body)
	assert.True(t, body.OK)
	assert.Equal(t, "aitookmyjob", body.Service)
}

func TestAuthScenario(t *testing.T) {
	_, app := newTestApp(t)

	token := registerUser(t, app, "scenario@example.com")

	resp := doJSON(t, app, fiber.MethodGet, "/api/auth/me", nil, withSession(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var profile struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
		PhoneVerified bool `json:"phoneVerified"`
	}
	decode(t, resp, &profile)
	assert.Equal(t, "scenario@example.com", profile.User.Email)
	assert.False(t, profile.PhoneVerified)

	// Bearer fallback works too.
	resp = doJSON(t, app, fiber.MethodGet, "/api/auth/me", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/login", fiber.Map{
		"email":    "scenario@example.com",
		"password": "Str0ngPass!",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/login", fiber.Map{
		"email":    "scenario@example.com",
		"password": "wrong",
	})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/logout", nil, withSession(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodGet, "/api/auth/me", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestPhoneVerificationFlow(t *testing.T) {
	_, app := newTestApp(t)
	token := registerUser(t, app, "phone@example.com")
	verifyPhone(t, app, token, "+15551230001")

	resp := doJSON(t, app, fiber.MethodGet, "/api/auth/me", nil, withSession(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var profile struct {
		PhoneVerified bool `json:"phoneVerified"`
	}
	decode(t, resp, &profile)
	assert.True(t, profile.PhoneVerified)
}

func TestDeleteAccountRequiresConfirmation(t *testing.T) {
	_, app := newTestApp(t)
	token := registerUser(t, app, "gone@example.com")

	resp := doJSON(t, app, fiber.MethodDelete, "/api/auth/me", fiber.Map{"confirm": "yes"}, withSession(token))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, fiber.MethodDelete, "/api/auth/me", fiber.Map{"confirm": "DELETE"}, withSession(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The session subject no longer exists.
	resp = doJSON(t, app, fiber.MethodGet, "/api/auth/me", nil, withSession(token))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestMetaAndLocale(t *testing.T) {
	_, app := newTestApp(t)

	resp := doJSON(t, app, fiber.MethodGet, "/api/meta", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var meta struct {
		Countries []models.Country `json:"countries"`
		Languages []string         `json:"languages"`
	}
	decode(t, resp, &meta)
	assert.NotEmpty(t, meta.Countries)
	assert.Contains(t, meta.Languages, "en")

	resp = doJSON(t, app, fiber.MethodGet, "/api/locale?country=DE", nil, func(req *http.Request) {
		req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var locale struct {
		Country  string `json:"country"`
		Language string `json:"language"`
	}
	decode(t, resp, &locale)
	assert.Equal(t, "de", locale.Country)
	assert.Equal(t, "fr", locale.Language)
}
