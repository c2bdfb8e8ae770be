package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type ParkingSessionStatus string

const (
	SessionActive    ParkingSessionStatus = "active"
	SessionCompleted ParkingSessionStatus = "completed"
)

// ParkingSession is the ticket history record of one stay.
type ParkingSession struct {
	TicketID        string               `json:"ticket_id"`
	LotID           int                  `json:"lot_id"`
	SlotNumber      int                  `json:"slot_number"`
	SlotType        SlotType             `json:"slot_type"`
	LicensePlate    string               `json:"license_plate"`
	VehicleType     VehicleType          `json:"vehicle_type"`
	EntryTime       time.Time            `json:"entry_time"`
	ExitTime        null.Time            `json:"exit_time"`
	DurationMinutes null.Int             `json:"duration_minutes"`
	BilledHours     null.Int             `json:"billed_hours"`
	Fee             null.Float           `json:"fee"`
	Status          ParkingSessionStatus `json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func NewActiveSession(res ParkResult, v *Vehicle) *ParkingSession {
	return &ParkingSession{
		TicketID:     res.TicketID,
		LotID:        res.LotID,
		SlotNumber:   res.SlotNumber,
		SlotType:     res.SlotType,
		LicensePlate: v.LicensePlate,
		VehicleType:  v.Type,
		EntryTime:    res.EntryTime,
		Status:       SessionActive,
	}
}

// SessionFromVacate builds the completed record for a stay.
func SessionFromVacate(res VacateResult) *ParkingSession {
	return &ParkingSession{
		TicketID:        res.TicketID,
		LotID:           res.LotID,
		SlotNumber:      res.SlotNumber,
		SlotType:        res.SlotType,
		LicensePlate:    res.Vehicle.LicensePlate,
		VehicleType:     res.Vehicle.Type,
		EntryTime:       res.EntryTime,
		ExitTime:        null.TimeFrom(res.ExitTime),
		DurationMinutes: null.IntFrom(int64(res.Duration / time.Minute)),
		BilledHours:     null.IntFrom(int64(res.BilledHours)),
		Fee:             null.FloatFrom(res.Fee),
		Status:          SessionCompleted,
	}
}

type RevenueSummary struct {
	LotID             int     `json:"lot_id"`
	CompletedSessions int64   `json:"completed_sessions"`
	ActiveSessions    int64   `json:"active_sessions"`
	TotalRevenue      float64 `json:"total_revenue"`
	AverageFee        float64 `json:"average_fee"`
}

type SessionFilterDTO struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
}
