package server

import (
	"github.com/labstack/echo/v4"
)

const identityContextKey = "identity"

// requireSession is the protected-route gate. It extracts the token cookies,
// lets the session service decide, writes renewed cookies when a renewal
// happened, and stashes the identity for the handler.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		access := readTokenCookie(c, accessTokenCookie)
		refresh := readTokenCookie(c, refreshTokenCookie)

		// Refresh-driven renewals are the replayable surface, so they go
		// through the limiter before any store round-trip.
		if access == "" {
			if err := s.limiter.CheckRenewal(c.Request().Context(), c.RealIP()); err != nil {
				return s.httpError(c, err)
			}
		}

		identity, renewed, err := s.sessions.VerifyAndMaybeRenew(c.Request().Context(), access, refresh)
		if err != nil {
			s.clearTokenCookies(c)
			return s.httpError(c, err)
		}

		if renewed != nil {
			s.setTokenCookies(c, *renewed)
		}

		c.Set(identityContextKey, identity)
		c.SetRequest(c.Request().WithContext(
			s.identities.SetIdentityToContext(c.Request().Context(), identity)))

		return next(c)
	}
}
