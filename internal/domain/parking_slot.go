package domain

import (
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v4"
)

type SlotType string

const (
	SlotRegular SlotType = "REGULAR"
	SlotEV      SlotType = "EV"
)

func (t SlotType) Valid() bool {
	switch t {
	case SlotRegular, SlotEV:
		return true
	}
	return false
}

// ParseSlotType accepts any casing. An empty string yields an empty type,
// meaning "no preference".
func ParseSlotType(s string) (SlotType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	t := SlotType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown slot type %q", ErrInvalidVehicleData, s)
	}
	return t, nil
}

// Slot is a single parking space. An occupied slot always carries an
// occupant, an entry time and a ticket id; a free slot carries none of them.
type Slot struct {
	Number    int       `json:"slot_number"`
	Type      SlotType  `json:"slot_type"`
	Occupied  bool      `json:"occupied"`
	Occupant  *Vehicle  `json:"occupant,omitempty"`
	EntryTime null.Time `json:"entry_time"`
	TicketID  string    `json:"ticket_id,omitempty"`
}

func (s *Slot) clone() Slot {
	c := *s
	if s.Occupant != nil {
		v := *s.Occupant
		c.Occupant = &v
	}
	return c
}

func (s *Slot) release() {
	s.Occupied = false
	s.Occupant = nil
	s.EntryTime = null.Time{}
	s.TicketID = ""
}

func (s *Slot) validate() error {
	if s.Number <= 0 {
		return fmt.Errorf("slot number %d must be positive", s.Number)
	}
	if !s.Type.Valid() {
		return fmt.Errorf("slot %d has unknown type %q", s.Number, s.Type)
	}
	if !s.Occupied {
		if s.Occupant != nil || s.EntryTime.Valid || s.TicketID != "" {
			return fmt.Errorf("free slot %d carries occupancy data", s.Number)
		}
		return nil
	}
	if s.Occupant == nil || !s.EntryTime.Valid || s.EntryTime.Time.IsZero() || s.TicketID == "" {
		return fmt.Errorf("occupied slot %d is missing occupant, entry time or ticket", s.Number)
	}
	if err := s.Occupant.Validate(); err != nil {
		return fmt.Errorf("slot %d: %w", s.Number, err)
	}
	return nil
}
