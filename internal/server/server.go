package server

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/avoronkov/authcore/internal/config"
	"github.com/avoronkov/authcore/internal/httpctx"
	"github.com/avoronkov/authcore/internal/logger"
	"github.com/avoronkov/authcore/internal/rate"
	"github.com/avoronkov/authcore/internal/service"
)

// postgresPinger is a minimal interface for database health checks.
type postgresPinger interface {
	Ping(ctx context.Context) error
}

// redisPinger is a minimal interface for Redis health checks.
type redisPinger interface {
	Ping(ctx context.Context) *goredis.StatusCmd
}

type Server struct {
	echo       *echo.Echo
	config     *config.Config
	auth       *service.Auth
	sessions   *service.Session
	limiter    *rate.Limiter
	identities *httpctx.Manager
	db         postgresPinger
	redis      redisPinger
	logger     *logger.Logger
	startTime  time.Time
}

// NewServer wires the HTTP surface. limiter and redis may be nil when no
// Redis backend is configured; health and login degrade gracefully.
func NewServer(
	cfg *config.Config,
	auth *service.Auth,
	sessions *service.Session,
	limiter *rate.Limiter,
	db postgresPinger,
	redis redisPinger,
	log *logger.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:       e,
		config:     cfg,
		auth:       auth,
		sessions:   sessions,
		limiter:    limiter,
		identities: httpctx.NewManager(),
		db:         db,
		redis:      redis,
		logger:     log,
		startTime:  time.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Start serves HTTP on the configured port, over TLS when certificate paths
// are set.
func (s *Server) Start() error {
	addr := ":" + s.config.HTTP.Port

	var lst Listener = NewPlainListener()
	if s.config.HTTP.TLSCertFile != "" && s.config.HTTP.TLSKeyFile != "" {
		lst = NewTLSListener(s.config.HTTP.TLSCertFile, s.config.HTTP.TLSKeyFile)
	}

	l, err := lst.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.echo.Listener = l

	s.logger.Info("HTTP server: listening", "addr", addr)
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
