package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medichat/config"
	"medichat/cron"
	"medichat/database"
	commandRepoPkg "medichat/database/repository/command"
	deviceRepoPkg "medichat/database/repository/device"
	leaseRepoPkg "medichat/database/repository/lease"
	messageRepoPkg "medichat/database/repository/message"
	moderatorRepoPkg "medichat/database/repository/moderator"
	modsessionRepoPkg "medichat/database/repository/modsession"
	pairingRepoPkg "medichat/database/repository/pairing"
	phoneRepoPkg "medichat/database/repository/phoneregistry"
	"medichat/handlers"
	"medichat/routes"
	commandSvcPkg "medichat/services/command"
	"medichat/services/dispatch"
	leaseSvcPkg "medichat/services/lease"
	"medichat/services/notification"
	"medichat/services/numbercheck"
	pairingSvcPkg "medichat/services/pairing"
	"medichat/services/sweeper"
	"medichat/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	deviceRepo := deviceRepoPkg.NewMongoDeviceRepo()
	pairingRepo := pairingRepoPkg.NewMongoPairingRepo()
	leaseRepo := leaseRepoPkg.NewMongoLeaseRepo()
	commandRepo := commandRepoPkg.NewMongoCommandRepo()
	messageRepo := messageRepoPkg.NewMongoMessageRepo()
	moderatorRepo := moderatorRepoPkg.NewMongoModeratorRepo()
	sessionRepo := modsessionRepoPkg.NewMongoModeratorSessionRepo()
	phoneRegistry := phoneRepoPkg.NewRedisPhoneRegistry(utils.GetPhoneCacheClient())

	// services.
	notificationService, err := notification.NewDefaultNotificationService(
		deviceRepo, moderatorRepo, utils.GetCacheClient())
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notification service: %v", err)
	}

	pairingService := &pairingSvcPkg.DefaultPairingService{
		Devices: deviceRepo,
		Codes:   pairingRepo,
	}

	leaseService := leaseSvcPkg.NewDefaultLeaseService(
		leaseRepo, deviceRepo, sessionRepo, messageRepo, notificationService)

	commandService := commandSvcPkg.NewDefaultCommandService(commandRepo, messageRepo)

	dispatchService := dispatch.NewDefaultDispatchService(
		commandRepo, messageRepo, deviceRepo, sessionRepo, leaseService, notificationService)

	numberCheckService := numbercheck.NewDefaultNumberCheckService(
		phoneRegistry, commandRepo, messageRepo, sessionRepo, dispatchService)

	sweeperService := sweeper.NewDefaultSweeperService(
		commandRepo, messageRepo, sessionRepo, leaseService)

	// Assemble the handler bundle and register routes.
	handlerBundle := handlers.NewHandlerBundle(
		moderatorRepo, deviceRepo,
		pairingService, leaseService, commandService, dispatchService, numberCheckService)
	routes.RegisterRoutes(router, handlerBundle)

	// Background reconciliation.
	cron.InitSweepWorker(sweeperService)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
