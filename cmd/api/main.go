package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hotelwizard/internal/config"
	"hotelwizard/internal/crm"
	"hotelwizard/internal/database"
	"hotelwizard/internal/logging"
	"hotelwizard/internal/middleware"
	"hotelwizard/internal/modules/payment"
	"hotelwizard/internal/modules/reservation"
	jwtsvc "hotelwizard/internal/pkg/jwt"
	"hotelwizard/internal/realtime"
	"hotelwizard/internal/repository"
	"hotelwizard/internal/session"
	"hotelwizard/internal/storage/cookiestore"
	"hotelwizard/internal/storage/redisstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("db migrate failed", zap.Error(err))
	}

	var cache redis.Cmdable
	if cfg.RedisAddr != "" {
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Fatal("redis connect failed", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		cache = client
	} else {
		logger.Warn("REDIS_ADDR is empty, drafts are kept in process memory")
	}

	crmClient := crm.New(crm.Config{
		BaseURL: cfg.CRMBaseURL,
		Token:   cfg.CRMToken,
		Timeout: cfg.CRMTimeout,
	}, nil, logger.Named("crm"))

	var provider payment.Provider
	if cfg.StripeSecretKey != "" {
		provider = payment.NewStripeProvider(cfg.StripeSecretKey)
	} else {
		logger.Warn("STRIPE_SECRET_KEY is empty, payments are disabled")
	}

	attemptRepo := repository.NewPaymentAttemptRepository(db)
	paymentService := payment.NewService(
		attemptRepo,
		crmClient,
		provider,
		payment.Config{Currency: cfg.PaymentCurrency},
		logging.Loggerf(logger.Named("payment")),
	)
	paymentHandler := payment.NewHandler(paymentService, logging.Loggerf(logger.Named("payment")))

	states := jwtsvc.New(cfg.CorrelationSecret, cfg.CorrelationTTL)
	hub := realtime.NewHub(logger.Named("realtime"))
	defer hub.Close()

	factory := session.NewFactory(session.FactoryDeps{
		Rooms:      crmClient,
		RoomTypes:  crmClient,
		Redirect:   paymentService,
		Cards:      paymentService,
		Redis:      cache,
		CacheTTL:   cfg.SessionTTL,
		ReturnBase: cfg.PaymentReturnURL,
		Signer:     states,
		Hub:        hub,
		Logger:     logger.Named("wizard"),
	})
	sessions := session.NewManager(factory, cfg.SessionTTL, logger.Named("session"))
	go sessions.Run(ctx)

	reservationHandler := reservation.NewHandler(sessions, states, hub, reservation.Config{
		FrontendURL:    cfg.FrontendURL,
		Cookies:        cookiestore.Options{Secure: cfg.CookieSecure},
		AllowedOrigins: cfg.AllowedOrigins(),
	}, logger.Named("reservation"))

	r := gin.New()
	r.Use(middleware.ErrorLogger(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(middleware.CORSConfig{
		FrontendURL: cfg.FrontendURL,
		Origins:     cfg.AllowedOrigins(),
		AllowDev:    !cfg.IsProdLike(),
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		wizardGroup := v1.Group("/wizard")
		wizardGroup.Use(session.Middleware(session.CookieConfig{
			Name:     cfg.SessionCookieName,
			MaxAge:   cfg.SessionTTL,
			Secure:   cfg.CookieSecure,
			SameSite: session.ParseSameSite(cfg.CookieSameSite),
		}))
		reservationHandler.RegisterRoutes(wizardGroup, middleware.RateLimit(cfg.RateLimitPerMin, logger))

		internal := v1.Group("/internal")
		internal.Use(middleware.InternalTokenAuth(cfg.InternalToken, logger))
		paymentHandler.RegisterRoutes(internal)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
