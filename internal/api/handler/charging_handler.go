package handler

import (
	"net/http"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/service"

	"github.com/gin-gonic/gin"
)

type ChargingHandler struct {
	chargingService *service.ChargingService
}

func NewChargingHandler(cs *service.ChargingService) *ChargingHandler {
	return &ChargingHandler{chargingService: cs}
}

// POST /api/v1/lots/:id/charging-stations
func (h *ChargingHandler) CreateStation(c *gin.Context) {
	lotID, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var cfg domain.StationConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.chargingService.CreateStation(c.Request.Context(), lotID, cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// GET /api/v1/lots/:id/charging-stations
func (h *ChargingHandler) ListStations(c *gin.Context) {
	lotID, ok := paramInt(c, "id")
	if !ok {
		return
	}
	reports, err := h.chargingService.ListStations(c.Request.Context(), lotID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GET /api/v1/charging-stations/:station
func (h *ChargingHandler) GetStation(c *gin.Context) {
	stationID, ok := paramInt(c, "station")
	if !ok {
		return
	}
	report, err := h.chargingService.Station(c.Request.Context(), stationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /api/v1/charging-stations/:station/sessions
func (h *ChargingHandler) StartCharging(c *gin.Context) {
	stationID, ok := paramInt(c, "station")
	if !ok {
		return
	}
	var dto domain.StartChargingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cs, err := h.chargingService.StartCharging(c.Request.Context(), stationID, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cs)
}

// POST /api/v1/charging-stations/:station/sessions/:session/stop
func (h *ChargingHandler) StopCharging(c *gin.Context) {
	stationID, ok := paramInt(c, "station")
	if !ok {
		return
	}
	var dto domain.StopChargingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.chargingService.StopCharging(c.Request.Context(), stationID, c.Param("session"), *dto.EnergyKWh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.NewChargeResponse(res))
}

// PUT /api/v1/charging-stations/:station/status
func (h *ChargingHandler) SetStatus(c *gin.Context) {
	stationID, ok := paramInt(c, "station")
	if !ok {
		return
	}
	var dto domain.StationStatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.chargingService.SetStatus(c.Request.Context(), stationID, domain.StationStatus(dto.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
