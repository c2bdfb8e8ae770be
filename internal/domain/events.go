package domain

import "time"

const (
	EventVehicleParked     = "vehicle_parked"
	EventVehicleLeft       = "vehicle_left"
	EventChargingStarted   = "ev_charging_started"
	EventChargingCompleted = "ev_charging_completed"
)

// Event is a domain event recorded by a ParkingLot or a ChargingStation.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

type VehicleParkedEvent struct {
	LotID        int         `json:"lot_id"`
	LotName      string      `json:"lot_name"`
	SlotNumber   int         `json:"slot_number"`
	SlotType     SlotType    `json:"slot_type"`
	TicketID     string      `json:"ticket_id"`
	LicensePlate string      `json:"license_plate"`
	VehicleType  VehicleType `json:"vehicle_type"`
	EntryTime    time.Time   `json:"entry_time"`
}

func (e VehicleParkedEvent) EventName() string     { return EventVehicleParked }
func (e VehicleParkedEvent) OccurredAt() time.Time { return e.EntryTime }

type VehicleLeftEvent struct {
	LotID           int         `json:"lot_id"`
	LotName         string      `json:"lot_name"`
	SlotNumber      int         `json:"slot_number"`
	SlotType        SlotType    `json:"slot_type"`
	TicketID        string      `json:"ticket_id"`
	LicensePlate    string      `json:"license_plate"`
	VehicleType     VehicleType `json:"vehicle_type"`
	EntryTime       time.Time   `json:"entry_time"`
	ExitTime        time.Time   `json:"exit_time"`
	DurationMinutes int64       `json:"duration_minutes"`
	BilledHours     int         `json:"billed_hours"`
	Fee             float64     `json:"fee"`
}

func (e VehicleLeftEvent) EventName() string     { return EventVehicleLeft }
func (e VehicleLeftEvent) OccurredAt() time.Time { return e.ExitTime }

type ChargingStartedEvent struct {
	LotID                int         `json:"lot_id"`
	StationID            int         `json:"station_id"`
	ConnectorNumber      int         `json:"connector_number"`
	SessionID            string      `json:"session_id"`
	LicensePlate         string      `json:"license_plate"`
	VehicleType          VehicleType `json:"vehicle_type"`
	ChargerType          ChargerType `json:"charger_type"`
	PowerKW              float64     `json:"power_kw"`
	InitialChargePercent float64     `json:"initial_charge_percent"`
	StartTime            time.Time   `json:"start_time"`
}

func (e ChargingStartedEvent) EventName() string     { return EventChargingStarted }
func (e ChargingStartedEvent) OccurredAt() time.Time { return e.StartTime }

type ChargingCompletedEvent struct {
	LotID              int         `json:"lot_id"`
	StationID          int         `json:"station_id"`
	ConnectorNumber    int         `json:"connector_number"`
	SessionID          string      `json:"session_id"`
	LicensePlate       string      `json:"license_plate"`
	ChargerType        ChargerType `json:"charger_type"`
	EnergyKWh          float64     `json:"energy_kwh"`
	DurationMinutes    int64       `json:"duration_minutes"`
	FinalChargePercent float64     `json:"final_charge_percent"`
	Fee                float64     `json:"fee"`
	EndTime            time.Time   `json:"end_time"`
}

func (e ChargingCompletedEvent) EventName() string     { return EventChargingCompleted }
func (e ChargingCompletedEvent) OccurredAt() time.Time { return e.EndTime }
