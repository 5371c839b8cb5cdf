package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/avoronkov/authcore/internal/config"
	"github.com/avoronkov/authcore/internal/logger"
	"github.com/avoronkov/authcore/internal/password"
	"github.com/avoronkov/authcore/internal/rate"
	"github.com/avoronkov/authcore/internal/repository/postgres"
	"github.com/avoronkov/authcore/internal/server"
	"github.com/avoronkov/authcore/internal/service"
	"github.com/avoronkov/authcore/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	credentialRepo := postgres.NewCredentialRepository(db)

	codec := token.NewJWT(cfg.Auth.AccessTokenSecret, cfg.Auth.RefreshTokenSecret)

	sessionService := service.NewSession(codec, credentialRepo, service.SessionPolicy{
		AccessTTL:        cfg.Auth.AccessTokenTTL,
		RefreshTTL:       cfg.Auth.RefreshTokenTTL,
		RenewalThreshold: cfg.Auth.RenewalThreshold,
		StoreTimeout:     cfg.Auth.StoreTimeout,
	}, logger.WithComponent("session"))

	hasher := password.NewHasher(password.DefaultParams)
	authService := service.NewAuth(userRepo, sessionService, hasher, logger.WithComponent("auth"))

	var redisClient *goredis.Client
	var limiter *rate.Limiter
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		defer redisClient.Close()

		limiter = rate.New(redisClient, rate.Config{
			MaxLoginAttempts: cfg.Redis.MaxLoginAttempts,
			LoginCooldown:    cfg.Redis.LoginCooldown,
			MaxRenewAttempts: cfg.Redis.MaxRenewAttempts,
			RenewCooldown:    cfg.Redis.RenewCooldown,
		})
	}

	// A typed-nil redis client must not reach the health checks.
	var srv *server.Server
	if redisClient != nil {
		srv = server.NewServer(cfg, authService, sessionService, limiter, db, redisClient, logger.WithComponent("http"))
	} else {
		srv = server.NewServer(cfg, authService, sessionService, limiter, db, nil, logger.WithComponent("http"))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
