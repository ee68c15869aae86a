package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	serviceRepo "agrilink/database/repository/service"
	"agrilink/models"
	"agrilink/services/allocation"
	"agrilink/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultGridDays = 7
	maxGridDays     = 31
)

// SlotHandler serves the booking-calendar query surface.
type SlotHandler struct {
	Engine allocation.AllocationEngine
}

func NewSlotHandler(engine allocation.AllocationEngine) *SlotHandler {
	return &SlotHandler{Engine: engine}
}

// GetSlotGrid returns the per-cell slot states for a service over a paged
// view window. Defaults to a 7-day page starting today.
func (h *SlotHandler) GetSlotGrid(c *gin.Context) {
	serviceID := c.Param("id")

	start := c.DefaultQuery("start", time.Now().UTC().Format(models.DateLayout))
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(defaultGridDays)))
	if err != nil || days <= 0 || days > maxGridDays {
		utils.JSONError(c, http.StatusBadRequest, "invalid window", "days must be between 1 and 31")
		return
	}

	cells, err := h.Engine.GetSlotGrid(c.Request.Context(), serviceID, start, days)
	if err != nil {
		if errors.Is(err, serviceRepo.ErrServiceNotFound) {
			utils.JSONError(c, http.StatusNotFound, "service not found", serviceID)
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to load slot grid", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"serviceId": serviceID,
		"start":     start,
		"days":      days,
		"slots":     cells,
	})
}
