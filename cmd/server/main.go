package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/storefront-auth/internal/config"
	"github.com/iliyamo/storefront-auth/internal/database"
	"github.com/iliyamo/storefront-auth/internal/handler"
	"github.com/iliyamo/storefront-auth/internal/metrics"
	"github.com/iliyamo/storefront-auth/internal/middleware"
	"github.com/iliyamo/storefront-auth/internal/queue"
	"github.com/iliyamo/storefront-auth/internal/repository"
	"github.com/iliyamo/storefront-auth/internal/router"
	"github.com/iliyamo/storefront-auth/internal/scheduler"
	"github.com/iliyamo/storefront-auth/internal/service"
	"github.com/iliyamo/storefront-auth/internal/utils"
	"github.com/iliyamo/storefront-auth/internal/validation"
)

const auditLogPath = "logs/auth.log"

func main() {
	// .env is optional; real deployments set variables directly
	_ = godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		log.WithError(err).Fatal("schema migration failed")
	}
	cancelMigrate()

	codec, err := utils.NewTokenCodec(cfg.Token())
	if err != nil {
		log.WithError(err).Fatal("token codec")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := metrics.NewRecorder()

	publisher := service.NewAMQPPublisher(cfg.AMQPURL, 1024, log.WithField("component", "publisher"))
	go publisher.Run(ctx)

	consumer := &queue.AuditConsumer{URL: cfg.AMQPURL, LogPath: auditLogPath, Log: log.WithField("component", "audit-consumer")}
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("audit consumer stopped")
		}
	}()

	sessions := service.NewSessionManager(
		repository.NewUserRepo(db),
		repository.NewSessionRepo(db),
		codec,
		service.Options{
			BcryptCost: cfg.BcryptCost,
			Events:     publisher,
			Metrics:    rec,
			Log:        log.WithField("component", "sessions"),
		},
	)

	sweeper, err := scheduler.NewSweeper(cfg.SweepSchedule, sessions, log)
	if err != nil {
		log.WithError(err).Fatal("session sweeper")
	}
	sweeper.Start()

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log.WithField("component", "ratelimit"))

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.EchoValidator{}
	e.Use(echomw.Recover())
	e.Use(requestLogger(log))

	authn := middleware.NewAuthenticator(codec)
	cookies := handler.CookieConfig{
		Secure:        cfg.CookieSecure,
		Domain:        cfg.CookieDomain,
		AccessMaxAge:  codec.AccessTTL(),
		RefreshMaxAge: codec.RefreshTTL(),
	}
	router.RegisterRoutes(e, db, rec)
	router.RegisterAuth(e, handler.NewAuthHandler(sessions, cookies, log), authn, limit)
	router.RegisterAdmin(e, handler.NewAdminUserHandler(sessions, log), authn)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	sweeper.Stop(shutdownCtx)
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.IsProd() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL; using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func requestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":    v.Method,
				"path":      v.URIPath,
				"status":    v.Status,
				"latency":   v.Latency.String(),
				"remote_ip": v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	})
}
