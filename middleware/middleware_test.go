package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserIDFromContext(r.Context())
		if err == nil {
			w.Header().Set("X-User", id)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func request(t *testing.T, h http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateAndAuthorize(t *testing.T) {
	h := Authenticate(testSecret)(Authorize(RoleOrganizer)(okHandler()))

	organizer, err := NewToken(testSecret, "org-1", RoleOrganizer)
	require.NoError(t, err)
	reporter, err := NewToken(testSecret, "rep-1", RoleReporter)
	require.NoError(t, err)
	admin, err := NewToken(testSecret, "root", RoleAdmin)
	require.NoError(t, err)
	forged, err := NewToken([]byte("other"), "org-1", RoleOrganizer)
	require.NoError(t, err)

	rec := request(t, h, organizer)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "org-1", rec.Header().Get("X-User"))

	assert.Equal(t, http.StatusForbidden, request(t, h, reporter).Code)
	assert.Equal(t, http.StatusNoContent, request(t, h, admin).Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, forged).Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, "not-a-jwt").Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }
	h := rl.Middleware(okHandler())

	assert.Equal(t, http.StatusNoContent, request(t, h, "").Code)
	assert.Equal(t, http.StatusNoContent, request(t, h, "").Code)
	rec := request(t, h, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	current = current.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, request(t, h, "").Code)
}

func TestRateLimiter_SweepsIdleVisitorsPeriodically(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	current := start
	rl.now = func() time.Time { return current }

	rl.allow("a")
	assert.Equal(t, start, rl.lastSweep)

	current = start.Add(10*time.Minute + 30*time.Second)
	rl.allow("b")
	assert.NotContains(t, rl.limiters, "a")
	swept := current

	// Внутри интервала карта не просматривается.
	current = swept.Add(30 * time.Second)
	rl.allow("c")
	assert.Equal(t, swept, rl.lastSweep)
	assert.Len(t, rl.limiters, 2)

	current = swept.Add(10*time.Minute + 20*time.Second)
	rl.allow("d")
	assert.Equal(t, current, rl.lastSweep)
	assert.NotContains(t, rl.limiters, "b")
	assert.Contains(t, rl.limiters, "c")
	assert.Contains(t, rl.limiters, "d")
}

func TestRateLimiter_KeysByUser(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := Authenticate(testSecret)(rl.Middleware(okHandler()))

	alice, err := NewToken(testSecret, "alice", RoleReporter)
	require.NoError(t, err)
	bob, err := NewToken(testSecret, "bob", RoleReporter)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, request(t, h, alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, request(t, h, alice).Code)
	assert.Equal(t, http.StatusNoContent, request(t, h, bob).Code)
}
