package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"stock-insurance-backend/internal/cache"
	"stock-insurance-backend/internal/config"
	"stock-insurance-backend/internal/handler"
	"stock-insurance-backend/internal/holiday"
	"stock-insurance-backend/internal/mail"
	"stock-insurance-backend/internal/scheduler"
	"stock-insurance-backend/internal/service"
	"stock-insurance-backend/internal/stockdata"
	"stock-insurance-backend/internal/store"
)

func init() {
	config.LoadEnvFile(".env")
}

func main() {
	cfg := config.Load()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(config.ParseLogLevel(cfg.LogLevel))
	log := logrus.WithField("component", "server")

	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, using in-memory history cache")
		} else {
			defer rc.Close()
			stockdata.SetCacheProvider(rc)
			log.Infof("history cache backed by redis at %s", cfg.Redis.Addr)
		}
	}

	runStore, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.WithError(err).Fatal("unable to open simulation store")
	}
	defer runStore.Close()

	sim := service.NewSimulationService(cfg.Simulation, runStore)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs := scheduler.New(cfg.Scheduler, sim)
	if loc, err := cfg.Scheduler.Location(); err == nil {
		cal := holiday.NewCalendar(loc)
		if err := cal.LoadFile(cfg.Scheduler.HolidayFile); err != nil {
			log.WithError(err).Warn("unable to load holiday calendar")
		}
		log.Infof("trading calendar loaded with %d holidays", cal.Len())
		jobs.Calendar = cal
	}
	if mailer := mail.New(cfg.Mail); mailer.Enabled() {
		jobs.Notifier = mailer
	}
	if err := jobs.Start(ctx); err != nil {
		log.WithError(err).Fatal("unable to start scheduler")
	}
	defer jobs.Stop()

	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r, &handler.Handler{
		Sim:  sim,
		Runs: runStore,
		Auth: handler.NewAuth(cfg.Auth),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Infof("server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
