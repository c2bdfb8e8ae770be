package handler

import (
	"net/http"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/service"

	"github.com/gin-gonic/gin"
)

type LPRHandler struct {
	lprService     *service.LPRService
	parkingService *service.ParkingService
}

func NewLPRHandler(lprService *service.LPRService, parkingService *service.ParkingService) *LPRHandler {
	return &LPRHandler{lprService: lprService, parkingService: parkingService}
}

// POST /api/v1/lpr/recognize
func (h *LPRHandler) Recognize(c *gin.Context) {
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plate, confidence, err := h.lprService.RecognizeBase64(c.Request.Context(), req.ImageBase64)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.LPRResponseDTO{DetectedPlate: plate, Confidence: confidence})
}

// POST /api/v1/lots/:id/lpr/park
func (h *LPRHandler) ParkFromImage(c *gin.Context) {
	lotID, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var req domain.LPRParkDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plate, confidence, err := h.lprService.RecognizeBase64(c.Request.Context(), req.ImageBase64)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.parkingService.ParkDTO(c.Request.Context(), lotID, domain.ParkVehicleDTO{
		LicensePlate:      plate,
		Make:              req.Make,
		Model:             req.Model,
		Color:             req.Color,
		VehicleType:       req.VehicleType,
		PreferredSlotType: req.PreferredSlotType,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"detected_plate": plate,
		"confidence":     confidence,
		"parking":        res,
	})
}
