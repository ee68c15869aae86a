// File: agrilink/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrilink/config"
	"agrilink/cron"
	"agrilink/database"
	bookingRepo "agrilink/database/repository/booking"
	notificationRepo "agrilink/database/repository/notification"
	serviceRepo "agrilink/database/repository/service"
	slotRepo "agrilink/database/repository/slot"
	"agrilink/handlers"
	"agrilink/middleware"
	"agrilink/routes"
	"agrilink/services/allocation"
	"agrilink/services/booking"
	"agrilink/services/notification"
	"agrilink/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	slots := slotRepo.NewMongoSlotRepo()
	if err := slots.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure slot indexes: %v", err)
	}
	bookings := bookingRepo.NewMongoBookingRepo()
	if err := bookings.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure booking indexes: %v", err)
	}
	services := serviceRepo.NewMongoServiceRepo()
	notes := notificationRepo.NewMongoNotificationRepo()

	// services.
	queueClient := cron.NewQueueClient()
	notifier := notification.NewAsynqNotificationService(queueClient)

	engine := &allocation.DefaultAllocationEngine{
		Slots:    slots,
		Services: services,
		HoldTTL:  config.HoldTTL(),
		Cache:    utils.GetCacheClient(),
	}

	coordinator := &booking.DefaultBookingCoordinator{
		Engine:   engine,
		Bookings: bookings,
		Services: services,
		Gateway:  &booking.StripeGateway{},
		Notifier: notifier,
	}

	cron.InitWorker(slots, coordinator, notes)

	slotHandler := handlers.NewSlotHandler(engine)
	bookingHandler := handlers.NewBookingHandler(coordinator, logger)

	routes.RegisterRoutes(router, slotHandler, bookingHandler)

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
