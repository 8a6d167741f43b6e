package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/terraproof/service/internal/response"
)

const secret = "relay-secret"

func echoClient(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(ClientID(r.Context())))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireTokenDisabledWithoutSecret(t *testing.T) {
	h := RequireToken("")(http.HandlerFunc(echoClient))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/upload", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestRequireTokenAcceptsIssuedToken(t *testing.T) {
	token, err := IssueToken(secret, "web-frontend", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	RequireToken(secret)(http.HandlerFunc(echoClient)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "web-frontend", rec.Body.String())
}

func TestRequireTokenRejects(t *testing.T) {
	expired, err := IssueToken(secret, "web", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := IssueToken("other-secret", "web", time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic dXNlcjpwYXNz",
		"expired":        "Bearer " + expired,
		"wrong key":      "Bearer " + wrongKey,
		"no subject":     "Bearer " + noSubject,
		"garbage":        "Bearer not-a-jwt",
	}
	h := RequireToken(secret)(http.HandlerFunc(echoClient))
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code, name)
		require.Equal(t, response.CodeUnauthorized, decodeError(t, rec).Code, name)
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, log.New(io.Discard))
	defer rl.Stop()
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, call("10.0.0.1:1000").Code)
	require.Equal(t, http.StatusOK, call("10.0.0.1:1001").Code)

	rec := call("10.0.0.1:1002")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Burst"))
	require.Equal(t, response.CodeRateLimited, decodeError(t, rec).Code)

	require.Equal(t, http.StatusOK, call("10.0.0.2:1000").Code, "other clients keep their own budget")
}

func TestRateLimiterKeysBySubject(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, log.New(io.Discard))
	defer rl.Stop()
	token, err := IssueToken(secret, "cli", time.Hour)
	require.NoError(t, err)

	h := RequireToken(secret)(rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		req.RemoteAddr = addr
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, call("10.0.0.1:1"))
	require.Equal(t, http.StatusTooManyRequests, call("10.0.0.9:1"), "same subject from another address")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)

	h := chiMiddleware.RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	out := buf.String()
	require.Contains(t, out, "WARN")
	require.Contains(t, out, "path=/health")
	require.Contains(t, out, "status=418")
	require.Contains(t, out, "request_id=")
}
