package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avoronkov/authcore/internal/model"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return badRequest(c, "username, email and password are required")
	}

	user, err := s.auth.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return s.httpError(c, err)
	}

	c.Response().Header().Set(echo.HeaderLocation, c.Request().URL.Path+"/"+user.ID.String())

	return c.JSON(http.StatusCreated, userResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "username and password are required")
	}

	ctx := c.Request().Context()
	ip := c.RealIP()

	if err := s.limiter.CheckLogin(ctx, req.Username, ip); err != nil {
		return s.httpError(c, err)
	}

	presentedAccess := readTokenCookie(c, accessTokenCookie)

	pair, err := s.auth.Login(ctx, req.Username, req.Password, presentedAccess)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) || errors.Is(err, model.ErrUserNotFound) {
			if lerr := s.limiter.RecordFailure(ctx, req.Username, ip); lerr != nil {
				s.logger.Error("HTTP server: failed to record login failure", "error", lerr.Error())
			}
		}
		return s.httpError(c, err)
	}

	if err := s.limiter.Reset(ctx, req.Username, ip); err != nil {
		s.logger.Error("HTTP server: failed to reset login counters", "error", err.Error())
	}

	s.setTokenCookies(c, pair)

	return c.JSON(http.StatusOK, map[string]string{"message": "logged in"})
}

func (s *Server) handleLogout(c echo.Context) error {
	access := readTokenCookie(c, accessTokenCookie)
	refresh := readTokenCookie(c, refreshTokenCookie)

	if err := s.sessions.Logout(c.Request().Context(), access, refresh); err != nil {
		return s.httpError(c, err)
	}

	s.clearTokenCookies(c)

	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}
