package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aiacard/config"
	"aiacard/cron"
	"aiacard/database"
	accountRepo "aiacard/database/repository/account"
	"aiacard/handlers"
	"aiacard/middleware"
	"aiacard/routes"
	"aiacard/services/account"
	"aiacard/services/card"
	"aiacard/services/email"
	"aiacard/services/notification"
	"aiacard/services/otp"
	"aiacard/services/payment"
	"aiacard/services/storage"
	"aiacard/services/wasabi"
	"aiacard/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.GetLogger()
	defer logger.Sync()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	database.InitDB()
	utils.InitRedis()
	if err := utils.FirebaseInit(rootCtx); err != nil {
		logger.Error("main: firebase unavailable, push notifications disabled", zap.Error(err))
	}
	utils.StartHealthMonitor(rootCtx, 30*time.Second, utils.GetOTPCacheClient(), database.MongoClient)

	// repositories.
	accounts := accountRepo.NewMongoAccountRepo(rootCtx, database.MongoClient, cfg.DatabaseName, cfg.CollectionName)

	// background queue.
	var worker *cron.Worker
	if cfg.RedisEnabled {
		worker = cron.NewWorker(cfg)
	}

	// mail.
	mailer, err := email.NewMailer(cfg)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to configure mail: %v", err)
	}
	otpMailer := mailer
	if cfg.EmailQueue && worker != nil {
		otpMailer = email.NewQueuedMailer(worker.Client)
	}

	// services.
	var policy otp.Policy = otp.NoopPolicy{}
	if client := utils.GetOTPCacheClient(); client != nil {
		policy = otp.NewRedisPolicy(client, cfg.OTPResendInterval, cfg.OTPTTL, cfg.OTPMaxAttempts)
	}
	issuer := otp.NewIssuer(accounts, otpMailer, policy, cfg.OTPTTL)
	accountService := account.NewService(accounts, issuer)

	var partner card.Partner
	if client, err := wasabi.NewClient(wasabi.ConfigFromApp(cfg)); err != nil {
		logger.Error("main: wasabi client unavailable, card issuance disabled", zap.Error(err))
	} else {
		partner = client
	}

	gateway := payment.NewStripeGateway(cfg)
	verifier := payment.RailVerifier{
		Card:   payment.NewStripeVerifier(gateway.API),
		Crypto: payment.ManualCryptoVerifier{},
	}
	cardService := card.NewService(accounts, partner, verifier, cfg)
	cardService.Notifier = notification.FromFirebase()

	if worker != nil {
		cardService.Queue = worker.Client
		var queuedDelivery email.Mailer
		if cfg.EmailQueue {
			queuedDelivery = mailer
		}
		worker.Register(cardService, queuedDelivery, cfg)
		if err := worker.Start(); err != nil {
			logger.Sugar().Fatalf("main: failed to start worker: %v", err)
		}
	}

	var photos storage.PhotoStore
	cld, err := utils.Cloudinary()
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize cloudinary storage service: %v", err)
	}
	if cld != nil {
		photos = storage.NewStorageService(cld, cfg.CloudinaryFolder)
	}

	// Create the Gin router.
	router := gin.New()
	var trusted []string
	if len(cfg.TrustedProxies) > 0 {
		trusted = cfg.TrustedProxies
	}
	if err := router.SetTrustedProxies(trusted); err != nil {
		logger.Sugar().Fatalf("main: invalid TRUSTED_PROXIES: %v", err)
	}
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	handlerBundle := handlers.NewHandlerBundle(
		handlers.NewAccountHandler(accountService),
		handlers.NewCardHandler(gateway, cardService),
		handlers.NewStorageHandler(photos, accountService),
	)
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "5000"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	if worker != nil {
		worker.Shutdown()
	}
	if err := database.CloseDB(ctx); err != nil {
		logger.Warn("main: closing MongoDB", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
