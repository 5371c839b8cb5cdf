package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronkov/authcore/internal/rate"
)

func cookieByName(t *testing.T, cookies []*http.Cookie, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	t.Fatalf("cookie %s not found", name)
	return nil
}

func TestRequireSession_FreshToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.knownUser(t, "alice", "correct horse")

	cookies := env.loginCookies(t, "alice", "correct horse")

	rec := env.doJSON(http.MethodGet, "/v1/verify", "", cookies)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), user.ID.String())
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	// A fresh access token issues no replacement cookies.
	assert.Empty(t, rec.Result().Cookies())
}

func TestRequireSession_RenewsNearExpiry(t *testing.T) {
	env := newTestEnv(t)
	env.knownUser(t, "alice", "correct horse")

	cookies := env.loginCookies(t, "alice", "correct horse")

	// Age the access token into the renewal window.
	env.clock.Advance(57 * time.Minute)

	rec := env.doJSON(http.MethodGet, "/v1/verify", "", cookies)

	require.Equal(t, http.StatusOK, rec.Code)

	renewed := rec.Result().Cookies()
	require.Len(t, renewed, 2)
	oldAccess := cookieByName(t, cookies, accessTokenCookie)
	newAccess := cookieByName(t, renewed, accessTokenCookie)
	assert.NotEqual(t, oldAccess.Value, newAccess.Value)

	// The renewed cookies work; the superseded refresh token does not.
	rec = env.doJSON(http.MethodGet, "/v1/verify", "", renewed)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(http.MethodGet, "/v1/verify", "",
		[]*http.Cookie{cookieByName(t, cookies, refreshTokenCookie)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSession_MissingAccessUsesRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.knownUser(t, "alice", "correct horse")

	cookies := env.loginCookies(t, "alice", "correct horse")

	rec := env.doJSON(http.MethodGet, "/v1/verify", "",
		[]*http.Cookie{cookieByName(t, cookies, refreshTokenCookie)})

	require.Equal(t, http.StatusOK, rec.Code)
	// The renewal behind the gate issued a fresh pair.
	assert.Len(t, rec.Result().Cookies(), 2)
}

func TestRequireSession_RefreshOnlyPathThrottled(t *testing.T) {
	env := newTestEnv(t)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	env.server.limiter = rate.New(client, rate.Config{MaxRenewAttempts: 1, RenewCooldown: time.Minute})

	env.knownUser(t, "alice", "correct horse")
	cookies := env.loginCookies(t, "alice", "correct horse")
	refreshOnly := []*http.Cookie{cookieByName(t, cookies, refreshTokenCookie)}

	rec := env.doJSON(http.MethodGet, "/v1/verify", "", refreshOnly)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(http.MethodGet, "/v1/verify", "", refreshOnly)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Requests carrying a live access token bypass the renewal window.
	rec = env.doJSON(http.MethodGet, "/v1/verify", "", cookies)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireSession_NoCookies(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(http.MethodGet, "/v1/verify", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSession_TamperedToken(t *testing.T) {
	env := newTestEnv(t)
	env.knownUser(t, "alice", "correct horse")

	cookies := env.loginCookies(t, "alice", "correct horse")
	access := cookieByName(t, cookies, accessTokenCookie)
	access.Value += "tampered"

	rec := env.doJSON(http.MethodGet, "/v1/verify", "", cookies)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSession_AfterLogout(t *testing.T) {
	env := newTestEnv(t)
	env.knownUser(t, "alice", "correct horse")

	cookies := env.loginCookies(t, "alice", "correct horse")

	rec := env.doJSON(http.MethodPost, "/v1/logout", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	// The access token still verifies cryptographically until it expires, so
	// age it out and force the gate through the revoked refresh record.
	env.clock.Advance(2 * time.Hour)

	rec = env.doJSON(http.MethodGet, "/v1/verify", "", cookies)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
