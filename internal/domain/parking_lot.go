package domain

import (
	"fmt"
	"sync"
	"time"

	"gopkg.in/guregu/null.v4"
)

// LotConfig is everything needed to build a lot.
type LotConfig struct {
	Name            string `json:"name"`
	RegularSlots    int    `json:"regular_slots"`
	EVSlots         int    `json:"ev_slots"`
	EVCanUseRegular bool   `json:"ev_can_use_regular"`
	Tariff          Tariff `json:"tariff"`
}

func DefaultLotConfig(name string, regular, ev int) LotConfig {
	return LotConfig{
		Name:         name,
		RegularSlots: regular,
		EVSlots:      ev,
		Tariff:       DefaultTariff(),
	}
}

func (c LotConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLotConfig)
	}
	if c.RegularSlots < 0 || c.EVSlots < 0 {
		return fmt.Errorf("%w: slot counts cannot be negative", ErrInvalidLotConfig)
	}
	return c.Tariff.Validate()
}

type Option func(*ParkingLot)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *ParkingLot) { l.now = now }
}

func WithTicketIDs(fn TicketIDFunc) Option {
	return func(l *ParkingLot) { l.newTicketID = fn }
}

// ParkingLot is the allocator aggregate. A single mutex guards every
// operation so that checking for a free slot and occupying it is atomic.
type ParkingLot struct {
	mu sync.Mutex

	id       int
	cfg      LotConfig
	slots    []*Slot
	byNumber map[int]*Slot
	events   []Event

	totalSessions int64
	totalRevenue  float64

	now         func() time.Time
	newTicketID TicketIDFunc
}

// NewParkingLot numbers slots from 1, regular slots first, then EV slots.
func NewParkingLot(id int, cfg LotConfig, opts ...Option) (*ParkingLot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slots := make([]*Slot, 0, cfg.RegularSlots+cfg.EVSlots)
	for i := 0; i < cfg.RegularSlots; i++ {
		slots = append(slots, &Slot{Number: len(slots) + 1, Type: SlotRegular})
	}
	for i := 0; i < cfg.EVSlots; i++ {
		slots = append(slots, &Slot{Number: len(slots) + 1, Type: SlotEV})
	}
	return newLot(id, cfg, slots, opts), nil
}

func newLot(id int, cfg LotConfig, slots []*Slot, opts []Option) *ParkingLot {
	l := &ParkingLot{
		id:          id,
		cfg:         cfg,
		slots:       slots,
		byNumber:    make(map[int]*Slot, len(slots)),
		now:         time.Now,
		newTicketID: NewTicketID,
	}
	for _, s := range slots {
		l.byNumber[s.Number] = s
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *ParkingLot) ID() int { return l.id }

func (l *ParkingLot) Name() string { return l.cfg.Name }

func (l *ParkingLot) Config() LotConfig { return l.cfg }

// Now is the lot clock in UTC.
func (l *ParkingLot) Now() time.Time { return l.now().UTC() }

type ParkResult struct {
	LotID      int       `json:"lot_id"`
	SlotNumber int       `json:"slot_number"`
	SlotType   SlotType  `json:"slot_type"`
	TicketID   string    `json:"ticket_id"`
	EntryTime  time.Time `json:"entry_time"`
}

// Park assigns the first free compatible slot, in slot number order.
// EV vehicles take EV slots and everything else takes regular slots; an EV
// vehicle only falls back to a regular slot when the lot allows it.
// preferred may be empty.
func (l *ParkingLot) Park(v *Vehicle, preferred SlotType) (ParkResult, error) {
	if err := v.Validate(); err != nil {
		return ParkResult{}, err
	}
	if preferred != "" && !preferred.Valid() {
		return ParkResult{}, fmt.Errorf("%w: unknown slot type %q", ErrNoAvailableSlot, preferred)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if s := l.findByPlateLocked(v.LicensePlate); s != nil {
		return ParkResult{}, fmt.Errorf("%w: %s is in slot %d", ErrVehicleAlreadyParked, v.LicensePlate, s.Number)
	}

	candidates := l.candidateTypes(v.Type, preferred)
	if len(candidates) == 0 {
		return ParkResult{}, fmt.Errorf("%w: %s vehicle cannot use a %s slot", ErrNoAvailableSlot, v.Type, preferred)
	}

	var slot *Slot
	for _, t := range candidates {
		if slot = l.firstFreeLocked(t); slot != nil {
			break
		}
	}
	if slot == nil {
		return ParkResult{}, fmt.Errorf("%w: lot %q has no free %v slot", ErrNoAvailableSlot, l.cfg.Name, candidates)
	}

	entry := l.now().UTC()
	occupant := *v
	slot.Occupied = true
	slot.Occupant = &occupant
	slot.EntryTime = null.TimeFrom(entry)
	slot.TicketID = l.newTicketID(entry)

	l.events = append(l.events, VehicleParkedEvent{
		LotID:        l.id,
		LotName:      l.cfg.Name,
		SlotNumber:   slot.Number,
		SlotType:     slot.Type,
		TicketID:     slot.TicketID,
		LicensePlate: occupant.LicensePlate,
		VehicleType:  occupant.Type,
		EntryTime:    entry,
	})

	return ParkResult{
		LotID:      l.id,
		SlotNumber: slot.Number,
		SlotType:   slot.Type,
		TicketID:   slot.TicketID,
		EntryTime:  entry,
	}, nil
}

func (l *ParkingLot) candidateTypes(vt VehicleType, preferred SlotType) []SlotType {
	natural := vt.NaturalSlotType()
	fallback := vt.IsElectric() && l.cfg.EVCanUseRegular

	switch {
	case preferred == "" && fallback:
		return []SlotType{SlotEV, SlotRegular}
	case preferred == "" || preferred == natural:
		return []SlotType{natural}
	case preferred == SlotRegular && fallback:
		return []SlotType{SlotRegular}
	default:
		return nil
	}
}

func (l *ParkingLot) firstFreeLocked(t SlotType) *Slot {
	for _, s := range l.slots {
		if s.Type == t && !s.Occupied {
			return s
		}
	}
	return nil
}

type VacateResult struct {
	LotID       int           `json:"lot_id"`
	SlotNumber  int           `json:"slot_number"`
	SlotType    SlotType      `json:"slot_type"`
	TicketID    string        `json:"ticket_id"`
	Vehicle     Vehicle       `json:"vehicle"`
	EntryTime   time.Time     `json:"entry_time"`
	ExitTime    time.Time     `json:"exit_time"`
	Duration    time.Duration `json:"duration"`
	BilledHours int           `json:"billed_hours"`
	Fee         float64       `json:"fee"`
}

// Vacate frees an occupied slot and bills the stay. A failed call leaves
// the lot untouched.
func (l *ParkingLot) Vacate(slotNumber int) (VacateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.byNumber[slotNumber]
	if !ok {
		return VacateResult{}, fmt.Errorf("%w: %d", ErrSlotNotFound, slotNumber)
	}
	if !slot.Occupied {
		return VacateResult{}, fmt.Errorf("%w: %d", ErrSlotNotOccupied, slotNumber)
	}
	return l.vacateLocked(slot), nil
}

// VacateByPlate frees the slot held by plate under a single lock, so the
// slot cannot change hands between lookup and release.
func (l *ParkingLot) VacateByPlate(plate string) (VacateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	plate = NormalizePlate(plate)
	slot := l.findByPlateLocked(plate)
	if slot == nil {
		return VacateResult{}, fmt.Errorf("%w: %s", ErrVehicleNotFound, plate)
	}
	return l.vacateLocked(slot), nil
}

func (l *ParkingLot) vacateLocked(slot *Slot) VacateResult {
	entry := slot.EntryTime.Time
	exit := l.now().UTC()
	if exit.Before(entry) {
		exit = entry
	}
	duration := exit.Sub(entry)
	fee := l.cfg.Tariff.Quote(duration, slot.Type, slot.Occupant.Type, l.occupancyRateLocked())

	res := VacateResult{
		LotID:       l.id,
		SlotNumber:  slot.Number,
		SlotType:    slot.Type,
		TicketID:    slot.TicketID,
		Vehicle:     *slot.Occupant,
		EntryTime:   entry,
		ExitTime:    exit,
		Duration:    duration,
		BilledHours: BilledHours(duration),
		Fee:         fee,
	}

	slot.release()
	l.totalSessions++
	l.totalRevenue = roundCents(l.totalRevenue + fee)

	l.events = append(l.events, VehicleLeftEvent{
		LotID:           l.id,
		LotName:         l.cfg.Name,
		SlotNumber:      res.SlotNumber,
		SlotType:        res.SlotType,
		TicketID:        res.TicketID,
		LicensePlate:    res.Vehicle.LicensePlate,
		VehicleType:     res.Vehicle.Type,
		EntryTime:       entry,
		ExitTime:        exit,
		DurationMinutes: int64(duration / time.Minute),
		BilledHours:     res.BilledHours,
		Fee:             fee,
	})
	return res
}

// FindByPlate returns a copy of the slot holding plate, or nil.
func (l *ParkingLot) FindByPlate(plate string) *Slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.findByPlateLocked(NormalizePlate(plate))
	if s == nil {
		return nil
	}
	c := s.clone()
	return &c
}

func (l *ParkingLot) findByPlateLocked(plate string) *Slot {
	for _, s := range l.slots {
		if s.Occupied && s.Occupant.LicensePlate == plate {
			return s
		}
	}
	return nil
}

// Slot returns a copy of one slot.
func (l *ParkingLot) Slot(number int) (Slot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.byNumber[number]
	if !ok {
		return Slot{}, fmt.Errorf("%w: %d", ErrSlotNotFound, number)
	}
	return s.clone(), nil
}

// Slots returns copies of every slot in number order.
func (l *ParkingLot) Slots() []Slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Slot, 0, len(l.slots))
	for _, s := range l.slots {
		out = append(out, s.clone())
	}
	return out
}

type StatusReport struct {
	LotID            int     `json:"lot_id"`
	Name             string  `json:"name"`
	TotalSlots       int     `json:"total_slots"`
	RegularSlots     int     `json:"regular_slots"`
	EVSlots          int     `json:"ev_slots"`
	OccupiedSlots    int     `json:"occupied_slots"`
	OccupiedRegular  int     `json:"occupied_regular"`
	OccupiedEV       int     `json:"occupied_ev"`
	AvailableRegular int     `json:"available_regular"`
	AvailableEV      int     `json:"available_ev"`
	OccupancyRate    float64 `json:"occupancy_rate"`
	TotalSessions    int64   `json:"total_sessions"`
	TotalRevenue     float64 `json:"total_revenue"`
}

func (l *ParkingLot) StatusReport() StatusReport {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := StatusReport{
		LotID:         l.id,
		Name:          l.cfg.Name,
		TotalSlots:    len(l.slots),
		TotalSessions: l.totalSessions,
		TotalRevenue:  l.totalRevenue,
	}
	for _, s := range l.slots {
		switch s.Type {
		case SlotEV:
			r.EVSlots++
			if s.Occupied {
				r.OccupiedEV++
			}
		default:
			r.RegularSlots++
			if s.Occupied {
				r.OccupiedRegular++
			}
		}
	}
	r.OccupiedSlots = r.OccupiedRegular + r.OccupiedEV
	r.AvailableRegular = r.RegularSlots - r.OccupiedRegular
	r.AvailableEV = r.EVSlots - r.OccupiedEV
	r.OccupancyRate = l.occupancyRateLocked()
	return r
}

func (l *ParkingLot) occupancyRateLocked() float64 {
	if len(l.slots) == 0 {
		return 0
	}
	occupied := 0
	for _, s := range l.slots {
		if s.Occupied {
			occupied++
		}
	}
	return float64(occupied) / float64(len(l.slots))
}

// Events returns a copy of the pending domain events.
func (l *ParkingLot) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *ParkingLot) ClearEvents() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

// DrainEvents returns the pending events and clears them in one step.
func (l *ParkingLot) DrainEvents() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.events
	l.events = nil
	return out
}
