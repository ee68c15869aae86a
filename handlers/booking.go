package handlers

import (
	"errors"
	"net/http"

	bookingRepo "agrilink/database/repository/booking"
	serviceRepo "agrilink/database/repository/service"
	"agrilink/models"
	"agrilink/services/allocation"
	"agrilink/services/booking"
	"agrilink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking flow over HTTP.
type BookingHandler struct {
	Coordinator booking.BookingCoordinator
	Logger      *zap.Logger
}

func NewBookingHandler(coordinator booking.BookingCoordinator, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Coordinator: coordinator, Logger: logger}
}

// StartBooking claims the selected slot for the authenticated customer and
// creates the booking. Losing the slot race comes back as 409 with a
// slot_taken outcome; it is the expected answer when two users pick the same
// cell.
func (h *BookingHandler) StartBooking(c *gin.Context) {
	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if req.PaymentMethod != models.PaymentCOD && req.PaymentMethod != models.PaymentCard {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "paymentMethod must be cod or card")
		return
	}
	req.CustomerID = c.GetString("actorID")

	outcome, err := h.Coordinator.StartBooking(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, allocation.ErrInvalidSlot):
			utils.JSONError(c, http.StatusBadRequest, "invalid slot", "the requested date or time is not bookable for this service")
		case errors.Is(err, serviceRepo.ErrServiceNotFound):
			utils.JSONError(c, http.StatusNotFound, "service not found", req.ServiceID)
		default:
			h.Logger.Error("booking failed", zap.Error(err))
			utils.JSONError(c, http.StatusServiceUnavailable, "booking temporarily unavailable", "please try again shortly")
		}
		return
	}

	switch outcome.Kind {
	case models.OutcomeSlotTaken:
		c.JSON(http.StatusConflict, outcome)
	case models.OutcomeConfirmed:
		c.JSON(http.StatusCreated, outcome)
	case models.OutcomeAwaitingPayment:
		c.JSON(http.StatusAccepted, outcome)
	default:
		c.JSON(http.StatusBadGateway, outcome)
	}
}

// GetBooking returns a booking record.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	record, err := h.Coordinator.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			utils.JSONError(c, http.StatusNotFound, "booking not found", c.Param("id"))
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to load booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, record)
}

// PaymentCallback receives the gateway's payment outcome. A non-2xx answer
// makes the gateway redeliver, so transient faults return 500 while settled
// or unknown bookings are acknowledged.
func (h *BookingHandler) PaymentCallback(c *gin.Context) {
	var result models.PaymentResult
	if err := c.ShouldBindJSON(&result); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := h.Coordinator.OnPaymentResult(c.Request.Context(), result); err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			utils.JSONError(c, http.StatusNotFound, "booking not found", result.BookingID)
			return
		}
		h.Logger.Error("payment callback processing failed",
			zap.String("booking", result.BookingID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "callback processing failed", "will be retried")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// CancelBooking is the administrative cancellation endpoint.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var input struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&input)
	if input.Reason == "" {
		input.Reason = "cancelled by admin"
	}

	if err := h.Coordinator.CancelBooking(c.Request.Context(), c.Param("id"), input.Reason); err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			utils.JSONError(c, http.StatusNotFound, "booking not found", c.Param("id"))
			return
		}
		if errors.Is(err, bookingRepo.ErrStatusConflict) {
			utils.JSONError(c, http.StatusConflict, "booking changed concurrently", "re-read the booking and retry")
			return
		}
		h.Logger.Error("admin cancel failed", zap.String("booking", c.Param("id")), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "cancel failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
