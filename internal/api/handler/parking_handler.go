package handler

import (
	"net/http"
	"time"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/service"

	"github.com/gin-gonic/gin"
)

type ParkingHandler struct {
	parkingService *service.ParkingService
}

func NewParkingHandler(ps *service.ParkingService) *ParkingHandler {
	return &ParkingHandler{parkingService: ps}
}

// POST /api/v1/lots/:id/park
func (h *ParkingHandler) Park(c *gin.Context) {
	lotID, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var dto domain.ParkVehicleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.parkingService.ParkDTO(c.Request.Context(), lotID, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// POST /api/v1/lots/:id/slots/:number/vacate
func (h *ParkingHandler) Vacate(c *gin.Context) {
	lotID, ok := paramInt(c, "id")
	if !ok {
		return
	}
	number, ok := paramInt(c, "number")
	if !ok {
		return
	}

	res, err := h.parkingService.Vacate(c.Request.Context(), lotID, number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toVacateResponse(res))
}

// GET /api/v1/lots/:id/vehicles/:plate
func (h *ParkingHandler) FindVehicle(c *gin.Context) {
	lotID, ok := paramInt(c, "id")
	if !ok {
		return
	}
	slot, err := h.parkingService.FindByPlate(c.Request.Context(), lotID, c.Param("plate"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

func toVacateResponse(res domain.VacateResult) domain.VacateResponse {
	return domain.VacateResponse{
		LotID:           res.LotID,
		SlotNumber:      res.SlotNumber,
		TicketID:        res.TicketID,
		LicensePlate:    res.Vehicle.LicensePlate,
		EntryTime:       res.EntryTime.Format(time.RFC3339),
		ExitTime:        res.ExitTime.Format(time.RFC3339),
		DurationMinutes: int64(res.Duration / time.Minute),
		BilledHours:     res.BilledHours,
		Fee:             res.Fee,
	}
}
