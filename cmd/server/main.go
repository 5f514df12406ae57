package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"petsoft/internal/app"
	"petsoft/internal/auth"
	"petsoft/internal/billing"
	"petsoft/internal/cache"
	"petsoft/internal/config"
	apphttp "petsoft/internal/http"
	"petsoft/internal/service"
)

func main() {
	bootLogger := logrus.New()
	bootLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		bootLogger.Fatalf("invalid config: %v", err)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := app.OpenRepositories(ctx, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer repos.Close()

	store, closeStore, err := app.NewCacheStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup cache: %v", err)
	}
	defer closeStore()

	sessions, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.TokenTTL(), store)
	if err != nil {
		logger.Fatalf("setup sessions: %v", err)
	}

	userService := service.NewUserService(repos.Users, logger)
	petService := service.NewPetService(repos.Pets, cache.NewPetLists(store, cfg.Cache.TTL), service.PetConfig{
		Delay:  cfg.Actions.Delay,
		Logger: logger,
	})

	images, err := app.NewImageStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	payments := billing.NewService(billing.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		PriceID:       cfg.Stripe.PriceID,
		BaseURL:       cfg.Server.BaseURL,
	}, userService, logger)
	if !payments.CheckoutEnabled() {
		logger.Info("stripe not configured, checkout disabled")
	}
	if cfg.Stripe.WebhookSecret == "" {
		logger.Warn("stripe webhook secret not set, webhooks will be rejected")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Options{
		Users:          userService,
		Pets:           petService,
		Sessions:       sessions,
		Payments:       payments,
		Images:         images,
		Logger:         logger,
		AccessRequired: cfg.Access.Required,
		CookieSecure:   cfg.Auth.CookieSecure,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}
