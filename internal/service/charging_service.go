package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/events"
	"smart_parking_lot/internal/metrics"

	"go.uber.org/zap"
)

var ErrStationNotFound = errors.New("charging station not found")

// ChargingService runs the EV charging stations attached to the lots. A
// vehicle has to be parked in the station's lot to start charging.
type ChargingService struct {
	mu       sync.RWMutex
	stations map[int]*domain.ChargingStation
	nextID   int

	parking     *ParkingService
	publisher   events.Publisher
	metrics     *metrics.Metrics
	logger      *zap.Logger
	stationOpts []domain.StationOption
}

func NewChargingService(
	parking *ParkingService,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	stationOpts ...domain.StationOption,
) *ChargingService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChargingService{
		stations:    map[int]*domain.ChargingStation{},
		parking:     parking,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
		stationOpts: stationOpts,
	}
}

func (s *ChargingService) CreateStation(ctx context.Context, lotID int, cfg domain.StationConfig) (domain.StationReport, error) {
	if _, err := s.parking.Status(ctx, lotID); err != nil {
		return domain.StationReport{}, err
	}

	s.mu.Lock()
	station, err := domain.NewChargingStation(s.nextID+1, lotID, cfg, s.stationOpts...)
	if err != nil {
		s.mu.Unlock()
		return domain.StationReport{}, err
	}
	s.nextID++
	s.stations[station.ID()] = station
	s.mu.Unlock()

	report := station.StatusReport()
	s.logger.Info("Charging station created",
		zap.Int("lot_id", lotID),
		zap.Int("station_id", report.StationID),
		zap.String("name", report.Name),
		zap.Int("connectors", report.TotalConnectors),
		zap.Float64("max_total_power_kw", report.MaxTotalPowerKW),
	)
	return report, nil
}

func (s *ChargingService) station(stationID int) (*domain.ChargingStation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	station, ok := s.stations[stationID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrStationNotFound, stationID)
	}
	return station, nil
}

func (s *ChargingService) ListStations(ctx context.Context, lotID int) ([]domain.StationReport, error) {
	if _, err := s.parking.Status(ctx, lotID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var stations []*domain.ChargingStation
	for _, st := range s.stations {
		if st.LotID() == lotID {
			stations = append(stations, st)
		}
	}
	s.mu.RUnlock()

	reports := make([]domain.StationReport, 0, len(stations))
	for _, st := range stations {
		reports = append(reports, st.StatusReport())
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].StationID < reports[j].StationID })
	return reports, nil
}

func (s *ChargingService) Station(_ context.Context, stationID int) (domain.StationReport, error) {
	station, err := s.station(stationID)
	if err != nil {
		return domain.StationReport{}, err
	}
	return station.StatusReport(), nil
}

// StartCharging plugs the vehicle parked under plate into the station. The
// battery data recorded at entry bounds the session.
func (s *ChargingService) StartCharging(ctx context.Context, stationID int, dto domain.StartChargingDTO) (domain.ChargingSession, error) {
	station, err := s.station(stationID)
	if err != nil {
		return domain.ChargingSession{}, err
	}
	chargerType, err := domain.ParseChargerType(dto.ChargerType)
	if err != nil {
		return domain.ChargingSession{}, err
	}
	slot, err := s.parking.FindByPlate(ctx, station.LotID(), dto.LicensePlate)
	if err != nil {
		return domain.ChargingSession{}, err
	}

	cs, err := station.StartCharging(slot.Occupant, chargerType, dto.PowerKW)
	if err != nil {
		s.logger.Info("Charging refused",
			zap.Int("station_id", stationID),
			zap.String("license_plate", slot.Occupant.LicensePlate),
			zap.Error(err),
		)
		return domain.ChargingSession{}, err
	}
	s.logger.Info("Charging started",
		zap.Int("lot_id", cs.LotID),
		zap.Int("station_id", stationID),
		zap.Int("connector", cs.ConnectorNumber),
		zap.String("session_id", cs.SessionID),
		zap.String("license_plate", cs.Vehicle.LicensePlate),
		zap.Float64("power_kw", cs.PowerKW),
	)
	s.publish(ctx, station)
	return cs, nil
}

func (s *ChargingService) StopCharging(ctx context.Context, stationID int, sessionID string, energyKWh float64) (domain.ChargeResult, error) {
	station, err := s.station(stationID)
	if err != nil {
		return domain.ChargeResult{}, err
	}
	res, err := station.StopCharging(sessionID, energyKWh)
	if err != nil {
		return domain.ChargeResult{}, err
	}
	s.logger.Info("Charging completed",
		zap.Int("lot_id", res.LotID),
		zap.Int("station_id", stationID),
		zap.String("session_id", res.SessionID),
		zap.String("license_plate", res.Vehicle.LicensePlate),
		zap.Float64("energy_kwh", res.EnergyKWh),
		zap.Duration("duration", res.Duration),
		zap.Float64("fee", res.Fee),
	)
	s.publish(ctx, station)
	if s.metrics != nil {
		s.metrics.ObserveCharge(res.LotID, res.ChargerType, res.EnergyKWh, res.Fee)
	}
	return res, nil
}

func (s *ChargingService) SetStatus(_ context.Context, stationID int, status domain.StationStatus) (domain.StationReport, error) {
	station, err := s.station(stationID)
	if err != nil {
		return domain.StationReport{}, err
	}
	if err := station.SetStatus(status); err != nil {
		return domain.StationReport{}, err
	}
	s.logger.Info("Charging station status changed", zap.Int("station_id", stationID), zap.String("status", string(status)))
	return station.StatusReport(), nil
}

func (s *ChargingService) publish(ctx context.Context, station *domain.ChargingStation) {
	evs := station.DrainEvents()
	if len(evs) == 0 {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evs); err != nil {
		s.logger.Warn("Failed to publish charging events",
			zap.Int("station_id", station.ID()),
			zap.Int("count", len(evs)),
			zap.Error(err),
		)
	}
}
