package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gethired/job-board/internal/middleware"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestInternalSecretMiddleware(t *testing.T) {
	h := middleware.InternalSecretMiddleware("s3cret", ok)

	for _, tc := range []struct {
		header string
		status int
	}{
		{"s3cret", http.StatusOK},
		{"wrong", http.StatusUnauthorized},
		{"", http.StatusUnauthorized},
		{"s3cret ", http.StatusUnauthorized},
	} {
		req := httptest.NewRequest(http.MethodGet, "/digest", nil)
		if tc.header != "" {
			req.Header.Set(middleware.InternalSecretHeader, tc.header)
		}
		rec := httptest.NewRecorder()
		h(rec, req)
		assert.Equal(t, tc.status, rec.Code, tc.header)
		if tc.status == http.StatusUnauthorized {
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
		}
	}
}

func TestInternalSecretMiddlewareEmptySecretRejects(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/digest", nil)
	rec := httptest.NewRecorder()
	middleware.InternalSecretMiddleware("", ok)(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func signedRequest(t *testing.T, store *sessions.CookieStore, key []byte, claims middleware.UserJWT) *http.Request {
	t.Helper()
	tk, err := middleware.SignUserJWT(claims, key)
	require.NoError(t, err)
	seed := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	sess, err := store.Get(seed, middleware.SessionName)
	require.NoError(t, err)
	sess.Values["jwt"] = tk
	require.NoError(t, sess.Save(seed, rec))

	req := httptest.NewRequest(http.MethodPost, "/payments/checkout", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestUserFromJWT(t *testing.T) {
	key := []byte("jwt-key")
	store := sessions.NewCookieStore([]byte("session-key-0123456789abcdef0123"))

	req := signedRequest(t, store, key, middleware.UserJWT{
		UserID: "u1",
		Email:  "ada@example.com",
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
	})
	claims, err := middleware.GetUserFromJWT(req, store, key)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)

	rec := httptest.NewRecorder()
	middleware.UserAuthenticatedMiddleware(store, key, ok)(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err = middleware.GetUserFromJWT(req, store, []byte("other-key"))
	assert.Error(t, err)

	expired := signedRequest(t, store, key, middleware.UserJWT{
		UserID:         "u1",
		Email:          "ada@example.com",
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Hour).Unix()},
	})
	rec = httptest.NewRecorder()
	middleware.UserAuthenticatedMiddleware(store, key, ok)(rec, expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	middleware.UserAuthenticatedMiddleware(store, key, ok)(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPSMiddlewareRedirects(t *testing.T) {
	h := middleware.HTTPSMiddleware(http.HandlerFunc(ok), "prod")
	req := httptest.NewRequest(http.MethodGet, "http://gethired.test/digest?x=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://gethired.test/digest?x=1", rec.Header().Get("Location"))

	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
