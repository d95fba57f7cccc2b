// @title           SIE API
// @version         1.0.0
// @description     Account management and WhatsApp instance gateway.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Type "Bearer" followed by a space and the session token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/sieapi/gateway/docs"
	"github.com/sieapi/gateway/internal/api"
	"github.com/sieapi/gateway/internal/core/ports"
	"github.com/sieapi/gateway/internal/core/service"
	"github.com/sieapi/gateway/internal/infrastructure/config"
	mongodb "github.com/sieapi/gateway/internal/infrastructure/db/mongo"
	redisdb "github.com/sieapi/gateway/internal/infrastructure/db/redis"
	"github.com/sieapi/gateway/internal/infrastructure/http/handlers"
	"github.com/sieapi/gateway/internal/infrastructure/mail"
	"github.com/sieapi/gateway/internal/infrastructure/messaging"
	"github.com/sieapi/gateway/internal/infrastructure/queue"
	"github.com/sieapi/gateway/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger level comes from the config, so fall back to defaults here.
		log := logger.Init(logger.Options{Service: "sie-api"})
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "sie-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		KeyPrefix:   cfg.Redis.KeyPrefix,
		ResetWindow: cfg.Redis.ResetThrottle,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	userRepo := mongodb.NewUserRepository(db)
	instanceRepo := mongodb.NewInstanceRepository(db)
	if err := mongodb.EnsureIndexes(ctx, userRepo, instanceRepo); err != nil {
		return err
	}

	// --- Outbound integrations ---
	var mailer ports.Mailer
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPMailer(mail.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		log.Warn().Msg("SMTP_HOST not set, emails are only logged")
		mailer = mail.NewLogMailer(logger.Component("mail"))
	}
	dispatcher := queue.NewMailDispatcher(0, mailer, logger.Component("mail"))
	dispatcher.Start()

	remote := messaging.NewClient(messaging.Config{BaseURL: cfg.Messaging.URL, Timeout: cfg.Messaging.Timeout})
	throttle := rdb.ResetThrottle()

	// --- Services ---
	tokens := service.NewTokenService(cfg.JWTSecret, 0)
	authService := service.NewAuthService(userRepo, tokens, dispatcher, throttle, cfg.PublicBaseURL, logger.Component("auth"))
	userService := service.NewUserService(userRepo, instanceRepo, logger.Component("users"))
	instanceService := service.NewInstanceService(instanceRepo, remote, logger.Component("instances"))

	created, err := userService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Name, cfg.Admin.Password)
	if err != nil {
		return err
	}
	if created {
		log.Info().Str("email", cfg.Admin.Email).Msg("bootstrap admin created")
	}

	e := api.NewRouter(api.Deps{
		Auth:      authService,
		Users:     userService,
		Instances: instanceService,
		Probes: map[string]handlers.Pinger{
			"mongodb": handlers.PingFunc(func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }),
			"redis":   handlers.PingFunc(rdb.Ping),
		},
		Log: logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("pending reset emails dropped")
	}
	return nil
}
