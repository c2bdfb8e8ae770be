package domain

import "errors"

var (
	ErrNoAvailableSlot      = errors.New("no available slot")
	ErrSlotNotFound         = errors.New("slot not found")
	ErrSlotNotOccupied      = errors.New("slot not occupied")
	ErrInvalidVehicleData   = errors.New("invalid vehicle data")
	ErrVehicleAlreadyParked = errors.New("vehicle already parked")
	ErrVehicleNotFound      = errors.New("vehicle not found")
	ErrInvalidLotConfig     = errors.New("invalid lot config")
	ErrInvalidSnapshot      = errors.New("invalid lot snapshot")

	ErrInvalidStationConfig    = errors.New("invalid charging station config")
	ErrInvalidChargingRequest  = errors.New("invalid charging request")
	ErrStationUnavailable      = errors.New("charging station unavailable")
	ErrNoAvailableConnector    = errors.New("no available connector")
	ErrInsufficientPower       = errors.New("insufficient charging power")
	ErrVehicleAlreadyCharging  = errors.New("vehicle already charging")
	ErrChargingSessionNotFound = errors.New("charging session not found")
)
