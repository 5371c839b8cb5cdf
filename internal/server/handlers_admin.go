package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avoronkov/authcore/internal/model"
)

func (s *Server) handleVerify(c echo.Context) error {
	identity, ok := c.Get(identityContextKey).(model.Identity)
	if !ok {
		return s.httpError(c, model.ErrUnauthorized)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"id":       identity.ID.String(),
		"username": identity.Username,
	})
}

func (s *Server) handleListUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	users, err := s.auth.ListUsers(c.Request().Context(), page, limit)
	if err != nil {
		return s.httpError(c, err)
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse{
			ID:       u.ID.String(),
			Username: u.Username,
			Email:    u.Email,
		})
	}

	return c.JSON(http.StatusOK, resp)
}
