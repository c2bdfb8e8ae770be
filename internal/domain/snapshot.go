package domain

import (
	"fmt"
	"sort"
)

// LotSnapshot is the serializable state of a ParkingLot. Pending events are
// not part of it.
type LotSnapshot struct {
	ID            int       `json:"id"`
	Config        LotConfig `json:"config"`
	Slots         []Slot    `json:"slots"`
	TotalSessions int64     `json:"total_sessions"`
	TotalRevenue  float64   `json:"total_revenue"`
}

func (l *ParkingLot) Snapshot() LotSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := LotSnapshot{
		ID:            l.id,
		Config:        l.cfg,
		Slots:         make([]Slot, 0, len(l.slots)),
		TotalSessions: l.totalSessions,
		TotalRevenue:  l.totalRevenue,
	}
	for _, s := range l.slots {
		snap.Slots = append(snap.Slots, s.clone())
	}
	return snap
}

// Clone returns a deep copy that shares no occupant pointers with snap.
func (snap LotSnapshot) Clone() LotSnapshot {
	c := snap
	c.Slots = make([]Slot, len(snap.Slots))
	for i := range snap.Slots {
		c.Slots[i] = snap.Slots[i].clone()
	}
	return c
}

// RestoreParkingLot rebuilds a lot from a snapshot, rejecting any snapshot
// that breaks a lot invariant.
func RestoreParkingLot(snap LotSnapshot, opts ...Option) (*ParkingLot, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	slots := make([]*Slot, 0, len(snap.Slots))
	for i := range snap.Slots {
		s := snap.Slots[i].clone()
		if s.EntryTime.Valid {
			s.EntryTime.Time = s.EntryTime.Time.UTC()
		}
		slots = append(slots, &s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Number < slots[j].Number })

	l := newLot(snap.ID, snap.Config, slots, opts)
	l.totalSessions = snap.TotalSessions
	l.totalRevenue = snap.TotalRevenue
	return l, nil
}

func (snap LotSnapshot) Validate() error {
	if err := snap.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	seen := make(map[int]struct{}, len(snap.Slots))
	plates := make(map[string]int)
	counts := map[SlotType]int{}

	for i := range snap.Slots {
		s := &snap.Slots[i]
		if err := s.validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		if _, dup := seen[s.Number]; dup {
			return fmt.Errorf("%w: duplicate slot number %d", ErrInvalidSnapshot, s.Number)
		}
		seen[s.Number] = struct{}{}
		counts[s.Type]++

		if s.Occupied {
			electric := s.Occupant.Type.IsElectric()
			if (s.Type == SlotEV && !electric) || (s.Type == SlotRegular && electric && !snap.Config.EVCanUseRegular) {
				return fmt.Errorf("%w: %s vehicle in %s slot %d", ErrInvalidSnapshot, s.Occupant.Type, s.Type, s.Number)
			}
			if other, dup := plates[s.Occupant.LicensePlate]; dup {
				return fmt.Errorf("%w: plate %s parked in slots %d and %d", ErrInvalidSnapshot, s.Occupant.LicensePlate, other, s.Number)
			}
			plates[s.Occupant.LicensePlate] = s.Number
		}
	}

	if counts[SlotRegular] != snap.Config.RegularSlots || counts[SlotEV] != snap.Config.EVSlots {
		return fmt.Errorf("%w: slot counts %d regular / %d EV do not match config %d / %d", ErrInvalidSnapshot,
			counts[SlotRegular], counts[SlotEV], snap.Config.RegularSlots, snap.Config.EVSlots)
	}
	if snap.TotalSessions < 0 || snap.TotalRevenue < 0 {
		return fmt.Errorf("%w: negative totals", ErrInvalidSnapshot)
	}
	return nil
}
