package domain

import (
	"fmt"
	"strings"
)

const (
	GateMessageEntry = "vehicle_entry"
	GateMessageExit  = "vehicle_exit"
)

// GateMessage is what a gate controller pushes onto the event queue when a
// vehicle arrives at or leaves the lot.
type GateMessage struct {
	MessageType       string `json:"message_type"`
	LotID             int    `json:"lot_id"`
	GateID            string `json:"gate_id"`
	LicensePlate      string `json:"license_plate,omitempty"`
	VehicleType       string `json:"vehicle_type,omitempty"`
	PreferredSlotType string `json:"preferred_slot_type,omitempty"`
	ImageBase64       string `json:"image_base64,omitempty"`
	Timestamp         string `json:"timestamp,omitempty"`
}

func (m GateMessage) Validate() error {
	switch m.MessageType {
	case GateMessageEntry, GateMessageExit:
	default:
		return fmt.Errorf("unknown gate message type %q", m.MessageType)
	}
	if m.LotID <= 0 {
		return fmt.Errorf("gate message without lot id")
	}
	if strings.TrimSpace(m.LicensePlate) == "" && m.ImageBase64 == "" {
		return fmt.Errorf("gate message carries neither plate nor image")
	}
	if m.MessageType == GateMessageEntry && m.VehicleType == "" {
		return fmt.Errorf("entry message without vehicle type")
	}
	return nil
}
