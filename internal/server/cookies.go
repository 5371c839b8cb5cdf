package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avoronkov/authcore/internal/model"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// readTokenCookie returns the cookie value or empty when absent. A missing
// cookie is a normal state, not an error.
func readTokenCookie(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) newTokenCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.config.HTTP.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}

// setTokenCookies writes the pair with lifetimes matching the token TTLs.
func (s *Server) setTokenCookies(c echo.Context, pair model.TokenPair) {
	c.SetCookie(s.newTokenCookie(accessTokenCookie, pair.Access, int(s.config.Auth.AccessTokenTTL.Seconds())))
	c.SetCookie(s.newTokenCookie(refreshTokenCookie, pair.Refresh, int(s.config.Auth.RefreshTokenTTL.Seconds())))
}

func (s *Server) clearTokenCookies(c echo.Context) {
	c.SetCookie(s.newTokenCookie(accessTokenCookie, "", -1))
	c.SetCookie(s.newTokenCookie(refreshTokenCookie, "", -1))
}
