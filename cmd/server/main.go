// @title Talking chat server
// @version 1.0
// @description Session-managed REST API and realtime relay for one-to-one chat.
// @BasePath /
// @securityDefinitions.apikey TokenAuth
// @in header
// @name x-token
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/talking/chat-server/internal/api"
	"github.com/talking/chat-server/internal/api/ws"
	"github.com/talking/chat-server/internal/core/ports"
	"github.com/talking/chat-server/internal/core/service"
	"github.com/talking/chat-server/internal/infrastructure/config"
	"github.com/talking/chat-server/internal/infrastructure/db/mongo"
	"github.com/talking/chat-server/internal/infrastructure/db/redis"
	"github.com/talking/chat-server/internal/infrastructure/http/handlers"
	"github.com/talking/chat-server/internal/infrastructure/queue"
	"github.com/talking/chat-server/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "chat-server",
	})

	issuer, err := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}()
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")

	health := map[string]handlers.PingFunc{"mongodb": handlers.MongoPing(db)}

	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		health["redis"] = handlers.RedisPing(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	}

	var sessions ports.SessionRepository
	switch cfg.Session.Backend {
	case "redis":
		sessions = redis.NewSessionStore(rdb, cfg.TokenTTL)
	default:
		sessions = mongo.NewSessionRepository(db)
	}

	users := mongo.NewUserRepository(db)
	messages := mongo.NewMessageRepository(db)

	authSvc := service.NewAuthService(users, sessions, issuer,
		service.AuthOptions{AutoVerify: cfg.Users.AutoVerify}, logger.Component("auth"))
	userSvc := service.NewUserService(users, messages)
	presence := service.NewPresenceService(users, logger.Component("presence"))

	// Workers outlive the signal context so queued messages are written
	// during shutdown.
	workerCtx, cancelWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWorkers()
	dispatcher := queue.NewDispatcher(cfg.Relay.PersistWorkers, messages, logger.Component("persist"))
	dispatcher.Start(workerCtx)

	hub := ws.NewHub(logger.Component("hub"))
	relay := service.NewRelayService(dispatcher, hub, logger.Component("relay"))
	gateway := ws.NewGateway(issuer, sessions, presence, relay, hub, ws.Options{
		RequireLiveSession: cfg.Gateway.RequireLiveSession,
		AllowedOrigins:     cfg.Gateway.AllowedOrigins,
		MaxMessageSize:     cfg.Gateway.MaxMessageSize,
		RateBurst:          cfg.Gateway.RateBurst,
		RateInterval:       cfg.Gateway.RateInterval,
		SendQueue:          cfg.Gateway.SendQueue,
	}, logger.Component("gateway"))

	router := api.NewRouter(api.RouterDeps{
		Auth:     authSvc,
		Users:    userSvc,
		Realtime: gateway,
		Health:   health,
		Log:      logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return workerCtx },
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("chat server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	return shutdown(srv, hub, dispatcher, log)
}

// shutdown stops accepting requests, closes every realtime connection so
// presence settles, and then drains the persistence queue.
func shutdown(srv *http.Server, hub *ws.Hub, dispatcher *queue.Dispatcher, log zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := hub.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("hub shutdown: %w", err))
	}
	dispatcher.Drain()

	log.Info().Msg("chat server stopped")
	return errors.Join(errs...)
}
