package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"rentline/config"
	"rentline/cron"
	"rentline/database"
	"rentline/database/repository"
	"rentline/handlers"
	"rentline/middleware"
	"rentline/routes"
	"rentline/services/agreement"
	"rentline/services/compliance"
	"rentline/services/imaging"
	"rentline/services/storage"
	"rentline/services/tasks"
	"rentline/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := database.InitDB(logger); err != nil {
		logger.Fatal("main: failed to initialize database", zap.Error(err))
	}
	utils.InitSessionCache()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := storage.NewFromConfig(rootCtx, config.AppConfig)
	if err != nil {
		logger.Fatal("main: failed to initialize storage", zap.String("backend", config.AppConfig.StorageBackend), zap.Error(err))
	}

	// repositories.
	db := database.DB()
	bookings := repository.NewMongoBookingRepo(db)
	vehicles := repository.NewMongoVehicleRepo(db)
	agreements := repository.NewMongoAgreementRepo(db)
	records := repository.NewMongoRecordRepo(db)

	indexCtx, cancelIndexes := context.WithTimeout(rootCtx, 30*time.Second)
	for name, ensure := range map[string]func(context.Context) error{
		"bookings":   bookings.EnsureIndexes,
		"vehicles":   vehicles.EnsureIndexes,
		"agreements": agreements.EnsureIndexes,
		"records":    records.EnsureIndexes,
	} {
		if err := ensure(indexCtx); err != nil {
			logger.Error("main: failed to ensure indexes", zap.String("collection", name), zap.Error(err))
		}
	}
	cancelIndexes()

	// services.
	engine := &compliance.Engine{Logger: logger}
	sessions := compliance.NewRedisSessionStore(utils.GetSessionCacheClient(), compliance.DefaultSessionTTL)
	checkoutService := compliance.NewCheckoutService(sessions, bookings, store, logger)
	checkoutService.Location = config.AppConfig.BusinessLocation()

	resolver := imaging.NewResolver(
		imaging.AssetFetcher{FS: os.DirFS(config.AppConfig.AssetDir)},
		config.AppConfig.PublicOrigin,
		config.AppConfig.ImageFetchTimeout,
		logger,
	)
	compositor := agreement.NewCompositor(resolver, config.AppConfig.LogoPaths(), logger)
	compositor.Compress = config.AppConfig.PDFCompression

	enqueuer := tasks.NewEnqueuer(utils.QueueRedisOpt())
	defer enqueuer.Close()

	agreementService := &agreement.DefaultAgreementService{
		Agreements: agreements,
		Bookings:   bookings,
		Vehicles:   vehicles,
		Storage:    store,
		Composer:   compositor,
		Queue:      enqueuer,
		Records:    records,
		Company: agreement.Company{
			Name:    config.AppConfig.CompanyName,
			Address: config.AppConfig.CompanyAddress,
			Phone:   config.AppConfig.CompanyPhone,
			Email:   config.AppConfig.CompanyEmail,
		},
		Logger: logger,
		Now:    time.Now,
	}

	cron.InitAgreementWorker(rootCtx, cron.AgreementGenerator(agreementService), logger)
	utils.StartHealthMonitor(rootCtx, 30*time.Second, utils.GetSessionCacheClient(), database.MongoClient)

	handlerBundle := handlers.NewHandlerBundle(
		handlers.NewComplianceHandler(engine),
		handlers.NewCheckoutHandler(checkoutService),
		handlers.NewAgreementHandler(agreementService),
	)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.RequestID())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))
	router.MaxMultipartMemory = handlers.MaxUploadBytes

	routes.RegisterRoutes(router, handlerBundle)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if err := database.Disconnect(ctx); err != nil {
		logger.Sugar().Errorf("main: failed to disconnect MongoDB: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
