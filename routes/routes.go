package routes

import (
	"net/http"
	"time"

	"agrilink/handlers"
	"agrilink/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers all endpoints for the slot-booking core.
func RegisterBookingRoutes(r *gin.Engine, slotH *handlers.SlotHandler, bookingH *handlers.BookingHandler) {
	// Calendar is public: anyone can browse availability.
	services := r.Group("/api/services")
	{
		services.GET("/:id/slots", slotH.GetSlotGrid)
	}

	bookings := r.Group("/api/bookings")
	bookings.Use(middleware.ActorAuthMiddleware())
	{
		bookings.POST("", bookingH.StartBooking)
		bookings.GET("/:id", bookingH.GetBooking)
	}

	// Cancellation reopens booked slots, so it lives on the admin surface,
	// never behind an ordinary customer token.
	admin := r.Group("/api/admin")
	admin.Use(middleware.AdminAuthMiddleware())
	{
		admin.POST("/bookings/:id/cancel", bookingH.CancelBooking)
	}

	// The gateway authenticates out-of-band; no bearer token here.
	payments := r.Group("/api/payments")
	{
		payments.POST("/callback", bookingH.PaymentCallback)
	}
}

// RegisterHealthRoute registers the liveness endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes wires cors and all route groups.
func RegisterRoutes(r *gin.Engine, slotH *handlers.SlotHandler, bookingH *handlers.BookingHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterBookingRoutes(r, slotH, bookingH)
	RegisterHealthRoute(r)
}
