package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avoronkov/authcore/internal/model"
)

type errorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// httpError translates service errors into HTTP responses. Store outages map
// to 401 so an attacker cannot distinguish a downed store from a revoked
// session, and unknown errors never leak their text.
func (s *Server) httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: true, Message: "unauthorized"})
	case errors.Is(err, model.ErrUnavailable):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: true, Message: "unauthorized"})
	case errors.Is(err, model.ErrAlreadyAuthenticated):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: true, Message: "already authenticated"})
	case errors.Is(err, model.ErrMissingTokens):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: true, Message: "missing tokens"})
	case errors.Is(err, model.ErrTokenCreationFailed):
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: true, Message: "token creation failed"})
	case errors.Is(err, model.ErrUserExists):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: true, Message: "user already exists"})
	case errors.Is(err, model.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: true, Message: "user not found"})
	case errors.Is(err, model.ErrInvalidCredentials):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: true, Message: "invalid credentials"})
	case errors.Is(err, model.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: true, Message: "too many attempts"})
	default:
		s.logger.Error("HTTP server: unhandled error", "error", err.Error())
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: true, Message: "internal error"})
	}
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: true, Message: message})
}
