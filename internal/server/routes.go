package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints, no auth.
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/v1")

	v1.POST("/register", s.handleRegister)
	v1.POST("/login", s.handleLogin)
	v1.POST("/logout", s.handleLogout)

	// Protected routes sit behind the session gate.
	v1.GET("/verify", s.handleVerify, s.requireSession)
	v1.GET("/admin/users", s.handleListUsers, s.requireSession)
}
