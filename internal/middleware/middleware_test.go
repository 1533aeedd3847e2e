package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmops/internal/middleware"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// =====================
// レスポンス確認用
// =====================

type mwErrorResponse struct {
	Error string `json:"error"`
}

type mwOKResponse struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// =====================
// helper
// =====================

func mustMakeJWT(t *testing.T, secret string, sub interface{}, role string, signingMethod jwt.SigningMethod) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"iat":  1,
		"exp":  9999999999,
	}
	token := jwt.NewWithClaims(signingMethod, claims)

	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func runRequest(t *testing.T, e *echo.Echo, method string, path string, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeMWError(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var r mwErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r
}

// 認証済みユーザーをそのまま返すハンドラ
func whoami(c echo.Context) error {
	uid, _ := c.Get(middleware.CtxUserIDKey).(int64)
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	return c.JSON(http.StatusOK, mwOKResponse{UserID: uid, Role: role})
}

func newProtected() *echo.Echo {
	e := echo.New()
	auth := middleware.AuthJWT(testSecret)
	e.GET("/protected", whoami, auth)
	e.DELETE("/admin-only", whoami, auth, middleware.RoleGuard(middleware.RoleAdmin))
	e.POST("/writers", whoami, auth, middleware.RoleGuard(middleware.RoleAdmin, middleware.RoleManager))
	return e
}

// =====================
// AuthJWT
// =====================

func TestMiddleware_AuthJWT_Unauthorized(t *testing.T) {
	e := newProtected()

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"bad scheme", "Token abc.def.ghi"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer abc.def.ghi"},
		{"wrong secret", "Bearer " + mustMakeJWT(t, "other-secret", 1, "ADMIN", jwt.SigningMethodHS256)},
		{"wrong algorithm", "Bearer " + mustMakeJWT(t, testSecret, 1, "ADMIN", jwt.SigningMethodHS384)},
		{"unknown role", "Bearer " + mustMakeJWT(t, testSecret, 1, "OWNER", jwt.SigningMethodHS256)},
		{"zero sub", "Bearer " + mustMakeJWT(t, testSecret, 0, "ADMIN", jwt.SigningMethodHS256)},
		{"non numeric sub", "Bearer " + mustMakeJWT(t, testSecret, "abc", "ADMIN", jwt.SigningMethodHS256)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := runRequest(t, e, http.MethodGet, "/protected", tc.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", decodeMWError(t, rec).Error)
		})
	}
}

func TestMiddleware_AuthJWT_Expired(t *testing.T) {
	e := newProtected()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 1, "role": "STAFF", "exp": 1})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+s)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_AuthJWT_OK(t *testing.T) {
	e := newProtected()

	for _, sub := range []interface{}{int64(42), "42"} {
		rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+mustMakeJWT(t, testSecret, sub, "STAFF", jwt.SigningMethodHS256))
		require.Equal(t, http.StatusOK, rec.Code)

		var body mwOKResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, int64(42), body.UserID)
		assert.Equal(t, "STAFF", body.Role)
	}
}

// =====================
// RoleGuard
// =====================

func TestMiddleware_RoleGuard(t *testing.T) {
	e := newProtected()

	cases := []struct {
		role   string
		method string
		path   string
		want   int
	}{
		{"ADMIN", http.MethodDelete, "/admin-only", http.StatusOK},
		{"MANAGER", http.MethodDelete, "/admin-only", http.StatusForbidden},
		{"STAFF", http.MethodDelete, "/admin-only", http.StatusForbidden},
		{"MANAGER", http.MethodPost, "/writers", http.StatusOK},
		{"STAFF", http.MethodPost, "/writers", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.role+" "+tc.path, func(t *testing.T) {
			rec := runRequest(t, e, tc.method, tc.path, "Bearer "+mustMakeJWT(t, testSecret, 7, tc.role, jwt.SigningMethodHS256))
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusForbidden {
				assert.Equal(t, "forbidden", decodeMWError(t, rec).Error)
			}
		})
	}
}

// AuthJWTを通っていなければ401
func TestMiddleware_RoleGuard_NoRole(t *testing.T) {
	e := echo.New()
	e.GET("/x", whoami, middleware.RoleGuard(middleware.RoleAdmin))

	rec := runRequest(t, e, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =====================
// RequestLogger
// =====================

func TestMiddleware_RequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	e := echo.New()
	e.Use(middleware.RequestLogger(log))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/missing", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "nope") })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, float64(http.StatusNoContent), entry["status"])
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	buf.Reset()
	rec = runRequest(t, e, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	entry = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.NotEmpty(t, entry["request_id"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
