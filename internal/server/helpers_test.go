package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedhub/internal/config"
	"feedhub/internal/middleware"
	"feedhub/internal/models"
	"feedhub/internal/notifications"
	"feedhub/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:3000"

type testEnv struct {
	srv    *Server
	app    *fiber.App
	images *testutil.MemoryImageStore
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:           "0",
		Env:            "test",
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		IdleTimeout:    5 * time.Second,
		AllowedOrigins: testOrigin,
		DBDriver:       "sqlite",
		JWTSecret:      "test-secret-that-is-long-enough-for-hs256",
		JWTIssuer:      "feedhub-api",
		JWTAudience:    "feedhub-client",
		ImageStorage:   "local",
		ImageDir:       t.TempDir(),
		MaxUploadBytes: 1 << 20,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, testConfig(t))
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	images := testutil.NewMemoryImageStore()
	srv, err := NewServerWithDeps(cfg, testutil.NewTestDB(t), nil, images)
	require.NoError(t, err)
	app := srv.NewApp()
	t.Cleanup(func() {
		notifications.Init(nil)
		models.SetProduction(false)
		middleware.EnforceRateLimits(false)
		_ = app.Shutdown()
	})
	return &testEnv{srv: srv, app: app, images: images}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var body map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func jsonRequest(t *testing.T, method, path, token string, payload any) *http.Request {
	t.Helper()
	var r io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "picture.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

// signupAndLogin registers an account and returns its token and ID.
func (e *testEnv) signupAndLogin(t *testing.T, email, name string) (string, uint) {
	t.Helper()
	resp, _ := e.do(t, jsonRequest(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": email, "password": "Secret123", "name": name,
	}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := e.do(t, jsonRequest(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": "Secret123",
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["token"].(string), uint(body["userId"].(float64))
}

func (e *testEnv) createPost(t *testing.T, token, title string) map[string]any {
	t.Helper()
	resp, body := e.do(t, multipartRequest(t, http.MethodPost, "/feed/post", token, map[string]string{
		"title": title, "content": "Some content for the post",
	}, testutil.PNGBytes(t, 4, 4)))
	require.Equal(t, http.StatusCreated, resp.StatusCode, fmt.Sprint(body))
	return body["post"].(map[string]any)
}

func errorBody(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	require.Equal(t, false, body["success"])
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error object: %v", body)
	return e
}
