package handler

import (
	"errors"
	"net/http"
	"strconv"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/repository"
	"smart_parking_lot/internal/service"
	"smart_parking_lot/internal/ticket"

	"github.com/gin-gonic/gin"
)

// statusFor maps service and domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrLotNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, domain.ErrSlotNotFound),
		errors.Is(err, domain.ErrVehicleNotFound),
		errors.Is(err, domain.ErrChargingSessionNotFound),
		errors.Is(err, service.ErrStationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoAvailableSlot),
		errors.Is(err, domain.ErrVehicleAlreadyParked),
		errors.Is(err, domain.ErrSlotNotOccupied),
		errors.Is(err, repository.ErrDuplicateEntry),
		errors.Is(err, service.ErrUserAlreadyExists),
		errors.Is(err, ticket.ErrSessionOpen),
		errors.Is(err, domain.ErrStationUnavailable),
		errors.Is(err, domain.ErrNoAvailableConnector),
		errors.Is(err, domain.ErrInsufficientPower),
		errors.Is(err, domain.ErrVehicleAlreadyCharging):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidVehicleData),
		errors.Is(err, domain.ErrInvalidLotConfig),
		errors.Is(err, domain.ErrInvalidStationConfig),
		errors.Is(err, domain.ErrInvalidChargingRequest),
		errors.Is(err, service.ErrInvalidFilter),
		errors.Is(err, service.ErrInvalidImage),
		errors.Is(err, ticket.ErrInvalidPayload),
		errors.Is(err, ticket.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPlateNotRecognized):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrLPRUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func paramInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}
