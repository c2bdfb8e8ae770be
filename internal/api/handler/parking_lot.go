package handler

import (
	"net/http"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/service"

	"github.com/gin-gonic/gin"
)

type ParkingLotHandler struct {
	parkingService *service.ParkingService
}

func NewParkingLotHandler(ps *service.ParkingService) *ParkingLotHandler {
	return &ParkingLotHandler{parkingService: ps}
}

// POST /api/v1/lots
func (h *ParkingLotHandler) CreateLot(c *gin.Context) {
	var dto domain.CreateLotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.parkingService.CreateLot(c.Request.Context(), dto.ToConfig())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// GET /api/v1/lots
func (h *ParkingLotHandler) ListLots(c *gin.Context) {
	c.JSON(http.StatusOK, h.parkingService.ListLots(c.Request.Context()))
}

// GET /api/v1/lots/:id
func (h *ParkingLotHandler) GetLotStatus(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	report, err := h.parkingService.Status(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GET /api/v1/lots/:id/slots
func (h *ParkingLotHandler) GetSlots(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	slots, err := h.parkingService.Slots(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// GET /api/v1/lots/:id/sessions?status=&limit=
func (h *ParkingLotHandler) GetSessions(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var filter domain.SessionFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sessions, err := h.parkingService.ListSessions(c.Request.Context(), id, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GET /api/v1/lots/:id/revenue
func (h *ParkingLotHandler) GetRevenue(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	summary, err := h.parkingService.Revenue(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// DELETE /api/v1/lots/:id/events
func (h *ParkingLotHandler) ClearEvents(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	if err := h.parkingService.ClearEvents(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
