package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ChargerType string

const (
	ChargerLevel1  ChargerType = "LEVEL_1"
	ChargerLevel2  ChargerType = "LEVEL_2"
	ChargerDCFast  ChargerType = "DC_FAST"
	ChargerTesla   ChargerType = "TESLA"
	ChargerCHAdeMO ChargerType = "CHADEMO"
	ChargerCCS     ChargerType = "CCS"
)

var chargerTypes = []ChargerType{ChargerLevel1, ChargerLevel2, ChargerDCFast, ChargerTesla, ChargerCHAdeMO, ChargerCCS}

func ParseChargerType(s string) (ChargerType, error) {
	t := ChargerType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown charger type %q", ErrInvalidChargingRequest, s)
	}
	return t, nil
}

func (t ChargerType) Valid() bool {
	for _, c := range chargerTypes {
		if c == t {
			return true
		}
	}
	return false
}

// TypicalPowerKW is the default connector rating for the charger type.
func (t ChargerType) TypicalPowerKW() float64 {
	switch t {
	case ChargerLevel1:
		return 1.4
	case ChargerLevel2:
		return 7.2
	case ChargerDCFast, ChargerCHAdeMO:
		return 50
	case ChargerTesla, ChargerCCS:
		return 150
	default:
		return 0
	}
}

// FeeMultiplier scales the per-kWh base rate.
func (t ChargerType) FeeMultiplier() float64 {
	switch t {
	case ChargerLevel2:
		return 1.2
	case ChargerDCFast, ChargerCHAdeMO, ChargerCCS:
		return 1.5
	case ChargerTesla:
		return 1.8
	default:
		return 1.0
	}
}

// Supports reports whether a vehicle of type vt can charge on t.
// Electric motorcycles are limited to AC chargers.
func (t ChargerType) Supports(vt VehicleType) bool {
	switch vt {
	case VehicleEVCar:
		return t.Valid()
	case VehicleEVMotorcycle:
		return t == ChargerLevel1 || t == ChargerLevel2
	default:
		return false
	}
}

const (
	ChargingBaseRatePerKWh = 0.30
	peakStartHour          = 8
	peakEndHour            = 20
	peakMultiplier         = 1.25
	offPeakMultiplier      = 0.75
)

// ChargingFee prices energyKWh delivered on a charger of type t, with the
// peak surcharge decided by the hour of at in its own location.
func ChargingFee(energyKWh float64, t ChargerType, at time.Time) float64 {
	if energyKWh <= 0 {
		return 0
	}
	multiplier := t.FeeMultiplier()
	if h := at.Hour(); h >= peakStartHour && h < peakEndHour {
		multiplier *= peakMultiplier
	} else {
		multiplier *= offPeakMultiplier
	}
	return roundCents(energyKWh * ChargingBaseRatePerKWh * multiplier)
}

type StationStatus string

const (
	StationActive      StationStatus = "active"
	StationMaintenance StationStatus = "maintenance"
	StationOffline     StationStatus = "offline"
)

func (s StationStatus) Valid() bool {
	switch s {
	case StationActive, StationMaintenance, StationOffline:
		return true
	}
	return false
}

type ConnectorConfig struct {
	Type       ChargerType `json:"charger_type" binding:"required"`
	MaxPowerKW float64     `json:"max_power_kw"`
}

// StationConfig describes a charging station attached to a lot.
type StationConfig struct {
	Name            string            `json:"name" binding:"required"`
	MaxTotalPowerKW float64           `json:"max_total_power_kw" binding:"required"`
	Connectors      []ConnectorConfig `json:"connectors" binding:"required,min=1,dive"`
}

func (c StationConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidStationConfig)
	}
	if c.MaxTotalPowerKW <= 0 {
		return fmt.Errorf("%w: max total power must be positive", ErrInvalidStationConfig)
	}
	if len(c.Connectors) == 0 {
		return fmt.Errorf("%w: at least one connector is required", ErrInvalidStationConfig)
	}
	for i, conn := range c.Connectors {
		if !conn.Type.Valid() {
			return fmt.Errorf("%w: connector %d has unknown charger type %q", ErrInvalidStationConfig, i+1, conn.Type)
		}
		if conn.MaxPowerKW < 0 {
			return fmt.Errorf("%w: connector %d power cannot be negative", ErrInvalidStationConfig, i+1)
		}
	}
	return nil
}

// Connector is one charging point of a station. Numbers start at 1.
type Connector struct {
	Number             int         `json:"number"`
	Type               ChargerType `json:"charger_type"`
	MaxPowerKW         float64     `json:"max_power_kw"`
	SessionID          string      `json:"session_id,omitempty"`
	PowerKW            float64     `json:"power_kw"`
	EnergyDeliveredKWh float64     `json:"energy_delivered_kwh"`
	TotalSessions      int64       `json:"total_sessions"`
}

func (c *Connector) Available() bool { return c.SessionID == "" }

// ChargingSession is an in-progress charge.
type ChargingSession struct {
	SessionID            string      `json:"session_id"`
	StationID            int         `json:"station_id"`
	LotID                int         `json:"lot_id"`
	ConnectorNumber      int         `json:"connector_number"`
	ChargerType          ChargerType `json:"charger_type"`
	Vehicle              Vehicle     `json:"vehicle"`
	PowerKW              float64     `json:"power_kw"`
	StartTime            time.Time   `json:"start_time"`
	InitialChargePercent float64     `json:"initial_charge_percent"`
}

// ChargeResult is returned when a charging session stops.
type ChargeResult struct {
	ChargingSession
	EndTime            time.Time     `json:"end_time"`
	Duration           time.Duration `json:"-"`
	EnergyKWh          float64       `json:"energy_kwh"`
	FinalChargePercent float64       `json:"final_charge_percent"`
	Fee                float64       `json:"fee"`
}

type StationOption func(*ChargingStation)

func WithStationClock(now func() time.Time) StationOption {
	return func(s *ChargingStation) { s.now = now }
}

func WithChargingSessionIDs(fn func() string) StationOption {
	return func(s *ChargingStation) { s.newSessionID = fn }
}

func NewChargingSessionID() string {
	return "CHG-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// ChargingStation is the aggregate for the chargers of one lot. The sum of
// the power drawn by active sessions never exceeds MaxTotalPowerKW.
type ChargingStation struct {
	mu sync.Mutex

	id         int
	lotID      int
	cfg        StationConfig
	status     StationStatus
	connectors []*Connector
	sessions   map[string]*ChargingSession
	events     []Event

	totalSessions int64
	totalEnergy   float64
	totalRevenue  float64

	now          func() time.Time
	newSessionID func() string
}

func NewChargingStation(id, lotID int, cfg StationConfig, opts ...StationOption) (*ChargingStation, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Connectors = append([]ConnectorConfig(nil), cfg.Connectors...)
	for i := range cfg.Connectors {
		cfg.Connectors[i].Type = ChargerType(strings.ToUpper(strings.TrimSpace(string(cfg.Connectors[i].Type))))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &ChargingStation{
		id:           id,
		lotID:        lotID,
		cfg:          cfg,
		status:       StationActive,
		sessions:     map[string]*ChargingSession{},
		now:          time.Now,
		newSessionID: NewChargingSessionID,
	}
	for i, c := range cfg.Connectors {
		power := c.MaxPowerKW
		if power == 0 {
			power = c.Type.TypicalPowerKW()
		}
		s.connectors = append(s.connectors, &Connector{Number: i + 1, Type: c.Type, MaxPowerKW: power})
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *ChargingStation) ID() int { return s.id }

func (s *ChargingStation) LotID() int { return s.lotID }

// StartCharging plugs v into the first free connector of chargerType able
// to deliver powerKW.
func (s *ChargingStation) StartCharging(v *Vehicle, chargerType ChargerType, powerKW float64) (ChargingSession, error) {
	if err := v.Validate(); err != nil {
		return ChargingSession{}, err
	}
	if !v.Type.IsElectric() {
		return ChargingSession{}, fmt.Errorf("%w: %s is not an electric vehicle", ErrInvalidChargingRequest, v.LicensePlate)
	}
	if !chargerType.Supports(v.Type) {
		return ChargingSession{}, fmt.Errorf("%w: %s cannot charge on %s", ErrInvalidChargingRequest, v.Type, chargerType)
	}
	if powerKW <= 0 {
		return ChargingSession{}, fmt.Errorf("%w: requested power must be positive", ErrInvalidChargingRequest)
	}
	if v.BatteryCapacityKWh.Valid && v.CurrentChargeKWh.Valid && v.CurrentChargeKWh.Float64 >= v.BatteryCapacityKWh.Float64 {
		return ChargingSession{}, fmt.Errorf("%w: battery of %s is already full", ErrInvalidChargingRequest, v.LicensePlate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StationActive {
		return ChargingSession{}, fmt.Errorf("%w: station %d is %s", ErrStationUnavailable, s.id, s.status)
	}
	for _, cs := range s.sessions {
		if cs.Vehicle.LicensePlate == v.LicensePlate {
			return ChargingSession{}, fmt.Errorf("%w: %s", ErrVehicleAlreadyCharging, v.LicensePlate)
		}
	}
	if available := s.cfg.MaxTotalPowerKW - s.powerInUseLocked(); powerKW > available {
		return ChargingSession{}, fmt.Errorf("%w: requested %.1fkW, available %.1fkW", ErrInsufficientPower, powerKW, available)
	}

	var conn *Connector
	for _, c := range s.connectors {
		if c.Type == chargerType && c.Available() && c.MaxPowerKW >= powerKW {
			conn = c
			break
		}
	}
	if conn == nil {
		return ChargingSession{}, fmt.Errorf("%w: no free %s connector for %.1fkW", ErrNoAvailableConnector, chargerType, powerKW)
	}

	cs := &ChargingSession{
		SessionID:            s.newSessionID(),
		StationID:            s.id,
		LotID:                s.lotID,
		ConnectorNumber:      conn.Number,
		ChargerType:          chargerType,
		Vehicle:              *v,
		PowerKW:              powerKW,
		StartTime:            s.now().UTC(),
		InitialChargePercent: v.ChargePercentage(),
	}
	conn.SessionID = cs.SessionID
	conn.PowerKW = powerKW
	conn.TotalSessions++
	s.sessions[cs.SessionID] = cs
	s.totalSessions++

	s.events = append(s.events, ChargingStartedEvent{
		LotID:                s.lotID,
		StationID:            s.id,
		ConnectorNumber:      conn.Number,
		SessionID:            cs.SessionID,
		LicensePlate:         v.LicensePlate,
		VehicleType:          v.Type,
		ChargerType:          chargerType,
		PowerKW:              powerKW,
		InitialChargePercent: cs.InitialChargePercent,
		StartTime:            cs.StartTime,
	})
	return *cs, nil
}

// StopCharging ends a session that delivered energyKWh and prices it.
// The energy cannot exceed what the connector could deliver in the time
// elapsed, nor the free capacity of a battery with known charge.
func (s *ChargingStation) StopCharging(sessionID string, energyKWh float64) (ChargeResult, error) {
	if energyKWh < 0 || math.IsNaN(energyKWh) || math.IsInf(energyKWh, 0) {
		return ChargeResult{}, fmt.Errorf("%w: delivered energy must be a non-negative number", ErrInvalidChargingRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.sessions[sessionID]
	if !ok {
		return ChargeResult{}, fmt.Errorf("%w: %s", ErrChargingSessionNotFound, sessionID)
	}

	clock := s.now()
	end := clock.UTC()
	if end.Before(cs.StartTime) {
		end = cs.StartTime
	}
	duration := end.Sub(cs.StartTime)
	if limit := cs.PowerKW * duration.Hours(); energyKWh > limit+1e-9 {
		return ChargeResult{}, fmt.Errorf("%w: %.2fkWh exceeds %.2fkWh deliverable at %.1fkW in %s",
			ErrInvalidChargingRequest, energyKWh, limit, cs.PowerKW, duration)
	}
	v := cs.Vehicle
	final := 0.0
	if v.BatteryCapacityKWh.Valid && v.CurrentChargeKWh.Valid {
		headroom := v.BatteryCapacityKWh.Float64 - v.CurrentChargeKWh.Float64
		if energyKWh > headroom+1e-9 {
			return ChargeResult{}, fmt.Errorf("%w: %.2fkWh exceeds free battery capacity %.2fkWh",
				ErrInvalidChargingRequest, energyKWh, headroom)
		}
		final = (v.CurrentChargeKWh.Float64 + energyKWh) / v.BatteryCapacityKWh.Float64 * 100
	}

	fee := ChargingFee(energyKWh, cs.ChargerType, clock)
	for _, c := range s.connectors {
		if c.Number == cs.ConnectorNumber {
			c.SessionID = ""
			c.PowerKW = 0
			c.EnergyDeliveredKWh += energyKWh
		}
	}
	delete(s.sessions, sessionID)
	s.totalEnergy += energyKWh
	s.totalRevenue = roundCents(s.totalRevenue + fee)

	res := ChargeResult{
		ChargingSession:    *cs,
		EndTime:            end,
		Duration:           duration,
		EnergyKWh:          energyKWh,
		FinalChargePercent: final,
		Fee:                fee,
	}
	s.events = append(s.events, ChargingCompletedEvent{
		LotID:              s.lotID,
		StationID:          s.id,
		ConnectorNumber:    cs.ConnectorNumber,
		SessionID:          cs.SessionID,
		LicensePlate:       v.LicensePlate,
		ChargerType:        cs.ChargerType,
		EnergyKWh:          energyKWh,
		DurationMinutes:    int64(duration / time.Minute),
		FinalChargePercent: final,
		Fee:                fee,
		EndTime:            end,
	})
	return res, nil
}

// SessionByPlate returns the active session of plate, if any.
func (s *ChargingStation) SessionByPlate(plate string) (ChargingSession, bool) {
	plate = NormalizePlate(plate)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cs := range s.sessions {
		if cs.Vehicle.LicensePlate == plate {
			return *cs, true
		}
	}
	return ChargingSession{}, false
}

// SetStatus takes the station out of service or back in. It refuses to
// leave active while sessions are running.
func (s *ChargingStation) SetStatus(status StationStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown station status %q", ErrInvalidStationConfig, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if status != StationActive && len(s.sessions) > 0 {
		return fmt.Errorf("%w: %d sessions still charging", ErrStationUnavailable, len(s.sessions))
	}
	s.status = status
	return nil
}

func (s *ChargingStation) powerInUseLocked() float64 {
	total := 0.0
	for _, cs := range s.sessions {
		total += cs.PowerKW
	}
	return total
}

type StationReport struct {
	StationID           int                 `json:"station_id"`
	LotID               int                 `json:"lot_id"`
	Name                string              `json:"name"`
	Status              StationStatus       `json:"status"`
	MaxTotalPowerKW     float64             `json:"max_total_power_kw"`
	PowerInUseKW        float64             `json:"power_in_use_kw"`
	AvailablePowerKW    float64             `json:"available_power_kw"`
	TotalConnectors     int                 `json:"total_connectors"`
	AvailableConnectors int                 `json:"available_connectors"`
	ActiveSessions      []ChargingSession   `json:"active_sessions"`
	Connectors          []Connector         `json:"connectors"`
	AvailableByType     map[ChargerType]int `json:"available_by_type"`
	TotalSessions       int64               `json:"total_sessions"`
	TotalEnergyKWh      float64             `json:"total_energy_kwh"`
	TotalRevenue        float64             `json:"total_revenue"`
}

func (s *ChargingStation) StatusReport() StationReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	inUse := s.powerInUseLocked()
	r := StationReport{
		StationID:        s.id,
		LotID:            s.lotID,
		Name:             s.cfg.Name,
		Status:           s.status,
		MaxTotalPowerKW:  s.cfg.MaxTotalPowerKW,
		PowerInUseKW:     inUse,
		AvailablePowerKW: s.cfg.MaxTotalPowerKW - inUse,
		TotalConnectors:  len(s.connectors),
		ActiveSessions:   make([]ChargingSession, 0, len(s.sessions)),
		Connectors:       make([]Connector, 0, len(s.connectors)),
		AvailableByType:  map[ChargerType]int{},
		TotalSessions:    s.totalSessions,
		TotalEnergyKWh:   s.totalEnergy,
		TotalRevenue:     s.totalRevenue,
	}
	for _, c := range s.connectors {
		r.Connectors = append(r.Connectors, *c)
		if c.Available() {
			r.AvailableConnectors++
			r.AvailableByType[c.Type]++
		}
	}
	for _, cs := range s.sessions {
		r.ActiveSessions = append(r.ActiveSessions, *cs)
	}
	sort.Slice(r.ActiveSessions, func(i, j int) bool {
		return r.ActiveSessions[i].ConnectorNumber < r.ActiveSessions[j].ConnectorNumber
	})
	return r
}

// DrainEvents returns the pending events and clears them in one step.
func (s *ChargingStation) DrainEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.events
	s.events = nil
	return out
}

// StartChargingDTO is the payload that plugs a parked EV into a station.
type StartChargingDTO struct {
	LicensePlate string  `json:"license_plate" binding:"required"`
	ChargerType  string  `json:"charger_type" binding:"required"`
	PowerKW      float64 `json:"power_kw" binding:"required"`
}

// StopChargingDTO reports the energy metered by the connector.
type StopChargingDTO struct {
	EnergyKWh *float64 `json:"energy_kwh" binding:"required"`
}

type StationStatusDTO struct {
	Status string `json:"status" binding:"required"`
}

// ChargeResponse is the API view of a ChargeResult.
type ChargeResponse struct {
	ChargeResult
	DurationMinutes int64 `json:"duration_minutes"`
}

func NewChargeResponse(r ChargeResult) ChargeResponse {
	return ChargeResponse{ChargeResult: r, DurationMinutes: int64(r.Duration / time.Minute)}
}
