package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/events"
	"smart_parking_lot/internal/metrics"
	"smart_parking_lot/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrLotNotFound   = errors.New("parking lot not found")
	ErrInvalidFilter = errors.New("invalid session filter")
)

// ParkingService owns the live allocators, one per lot, and keeps the
// repositories, event publishers and metrics in step with them.
type ParkingService struct {
	mu   sync.RWMutex
	lots map[int]*domain.ParkingLot
	// saveMu orders snapshot capture with its write so a stale snapshot
	// never overwrites a newer one. It also guards unsaved.
	saveMu  sync.Mutex
	unsaved map[int]bool

	lotRepo     repository.ParkingLotRepository
	sessionRepo repository.ParkingSessionRepository
	publisher   events.Publisher
	metrics     *metrics.Metrics
	logger      *zap.Logger
	lotOpts     []domain.Option
}

func NewParkingService(
	lotRepo repository.ParkingLotRepository,
	sessionRepo repository.ParkingSessionRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	lotOpts ...domain.Option,
) *ParkingService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParkingService{
		lots:        map[int]*domain.ParkingLot{},
		unsaved:     map[int]bool{},
		lotRepo:     lotRepo,
		sessionRepo: sessionRepo,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
		lotOpts:     lotOpts,
	}
}

// LoadLots restores every stored lot into memory.
func (s *ParkingService) LoadLots(ctx context.Context) error {
	snaps, err := s.lotRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load lots: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snaps {
		lot, err := domain.RestoreParkingLot(snap, s.lotOpts...)
		if err != nil {
			return fmt.Errorf("restore lot %d: %w", snap.ID, err)
		}
		s.lots[lot.ID()] = lot
		s.observeStatus(lot)
		s.logger.Info("Parking lot restored",
			zap.Int("lot_id", lot.ID()),
			zap.String("name", lot.Name()),
			zap.Int("occupied", lot.StatusReport().OccupiedSlots),
		)
	}
	return nil
}

// EnsureDefaultLot creates cfg's lot when no lot is loaded yet.
func (s *ParkingService) EnsureDefaultLot(ctx context.Context, cfg domain.LotConfig) error {
	s.mu.RLock()
	empty := len(s.lots) == 0
	s.mu.RUnlock()
	if !empty {
		return nil
	}
	report, err := s.CreateLot(ctx, cfg)
	if err != nil {
		return err
	}
	s.logger.Info("Default parking lot created", zap.Int("lot_id", report.LotID), zap.String("name", report.Name))
	return nil
}

func (s *ParkingService) CreateLot(ctx context.Context, cfg domain.LotConfig) (domain.StatusReport, error) {
	fresh, err := domain.NewParkingLot(0, cfg)
	if err != nil {
		return domain.StatusReport{}, err
	}
	snap := fresh.Snapshot()
	if err := s.lotRepo.Create(ctx, &snap); err != nil {
		return domain.StatusReport{}, fmt.Errorf("create lot %q: %w", cfg.Name, err)
	}
	lot, err := domain.RestoreParkingLot(snap, s.lotOpts...)
	if err != nil {
		return domain.StatusReport{}, err
	}

	s.mu.Lock()
	s.lots[lot.ID()] = lot
	s.mu.Unlock()

	s.observeStatus(lot)
	return lot.StatusReport(), nil
}

func (s *ParkingService) lot(lotID int) (*domain.ParkingLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrLotNotFound, lotID)
	}
	return lot, nil
}

func (s *ParkingService) ListLots(_ context.Context) []domain.StatusReport {
	s.mu.RLock()
	lots := make([]*domain.ParkingLot, 0, len(s.lots))
	for _, lot := range s.lots {
		lots = append(lots, lot)
	}
	s.mu.RUnlock()

	reports := make([]domain.StatusReport, 0, len(lots))
	for _, lot := range lots {
		reports = append(reports, lot.StatusReport())
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].LotID < reports[j].LotID })
	return reports
}

func (s *ParkingService) Status(_ context.Context, lotID int) (domain.StatusReport, error) {
	lot, err := s.lot(lotID)
	if err != nil {
		return domain.StatusReport{}, err
	}
	return lot.StatusReport(), nil
}

func (s *ParkingService) Slots(_ context.Context, lotID int) ([]domain.Slot, error) {
	lot, err := s.lot(lotID)
	if err != nil {
		return nil, err
	}
	return lot.Slots(), nil
}

// FindByPlate returns the slot holding plate in the given lot.
func (s *ParkingService) FindByPlate(_ context.Context, lotID int, plate string) (*domain.Slot, error) {
	lot, err := s.lot(lotID)
	if err != nil {
		return nil, err
	}
	slot := lot.FindByPlate(plate)
	if slot == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrVehicleNotFound, domain.NormalizePlate(plate))
	}
	return slot, nil
}

// ParkDTO validates a park request and parks the vehicle it describes.
func (s *ParkingService) ParkDTO(ctx context.Context, lotID int, dto domain.ParkVehicleDTO) (domain.ParkResult, error) {
	v, err := dto.ToVehicle()
	if err != nil {
		return domain.ParkResult{}, err
	}
	preferred, err := domain.ParseSlotType(dto.PreferredSlotType)
	if err != nil {
		return domain.ParkResult{}, err
	}
	return s.Park(ctx, lotID, v, preferred)
}

func (s *ParkingService) Park(ctx context.Context, lotID int, v *domain.Vehicle, preferred domain.SlotType) (domain.ParkResult, error) {
	lot, err := s.lot(lotID)
	if err != nil {
		return domain.ParkResult{}, err
	}

	res, err := lot.Park(v, preferred)
	if err != nil {
		s.observeRejection(lotID, err)
		s.logger.Info("Park refused", zap.Int("lot_id", lotID), zap.Error(err))
		return domain.ParkResult{}, err
	}
	s.logger.Info("Vehicle parked",
		zap.Int("lot_id", lotID),
		zap.Int("slot_number", res.SlotNumber),
		zap.String("slot_type", string(res.SlotType)),
		zap.String("ticket_id", res.TicketID),
		zap.String("license_plate", v.LicensePlate),
	)

	s.persist(ctx, lot, res.SlotNumber)
	if _, err := s.sessionRepo.Create(ctx, domain.NewActiveSession(res, v)); err != nil {
		s.logger.Error("Failed to record parking session", zap.String("ticket_id", res.TicketID), zap.Error(err))
	}
	s.publish(ctx, lot)
	if s.metrics != nil {
		s.metrics.ObservePark(lotID, res.SlotType)
	}
	return res, nil
}

func (s *ParkingService) Vacate(ctx context.Context, lotID, slotNumber int) (domain.VacateResult, error) {
	lot, err := s.lot(lotID)
	if err != nil {
		return domain.VacateResult{}, err
	}
	res, err := lot.Vacate(slotNumber)
	if err != nil {
		return domain.VacateResult{}, err
	}
	s.afterVacate(ctx, lot, res)
	return res, nil
}

// VacateByPlate is used by exit gates, which only know the plate.
func (s *ParkingService) VacateByPlate(ctx context.Context, lotID int, plate string) (domain.VacateResult, error) {
	lot, err := s.lot(lotID)
	if err != nil {
		return domain.VacateResult{}, err
	}
	res, err := lot.VacateByPlate(plate)
	if err != nil {
		return domain.VacateResult{}, err
	}
	s.afterVacate(ctx, lot, res)
	return res, nil
}

func (s *ParkingService) afterVacate(ctx context.Context, lot *domain.ParkingLot, res domain.VacateResult) {
	s.logger.Info("Vehicle left",
		zap.Int("lot_id", res.LotID),
		zap.Int("slot_number", res.SlotNumber),
		zap.String("ticket_id", res.TicketID),
		zap.String("license_plate", res.Vehicle.LicensePlate),
		zap.Duration("duration", res.Duration),
		zap.Int("billed_hours", res.BilledHours),
		zap.Float64("fee", res.Fee),
	)

	s.persist(ctx, lot, res.SlotNumber)
	if _, err := s.sessionRepo.Complete(ctx, domain.SessionFromVacate(res)); err != nil {
		s.logger.Error("Failed to complete parking session", zap.String("ticket_id", res.TicketID), zap.Error(err))
	}
	s.publish(ctx, lot)
	if s.metrics != nil {
		s.metrics.ObserveVacate(res.LotID, res.SlotType, res.Fee)
	}
}

// persist saves the lot totals and the changed slot. The in-memory
// allocator stays authoritative when the store is unavailable; after a
// failed save the next one writes every slot.
func (s *ParkingService) persist(ctx context.Context, lot *domain.ParkingLot, slotNumber int) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	var changed []int
	if !s.unsaved[lot.ID()] {
		changed = []int{slotNumber}
	}
	if err := s.lotRepo.Save(ctx, lot.Snapshot(), changed...); err != nil {
		s.unsaved[lot.ID()] = true
		s.logger.Error("Failed to save lot snapshot", zap.Int("lot_id", lot.ID()), zap.Error(err))
	} else {
		delete(s.unsaved, lot.ID())
	}
	s.observeStatus(lot)
}

func (s *ParkingService) publish(ctx context.Context, lot *domain.ParkingLot) {
	evs := lot.DrainEvents()
	if len(evs) == 0 {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evs); err != nil {
		s.logger.Warn("Failed to publish lot events",
			zap.Int("lot_id", lot.ID()),
			zap.Int("count", len(evs)),
			zap.Error(err),
		)
	}
}

func (s *ParkingService) observeStatus(lot *domain.ParkingLot) {
	if s.metrics != nil {
		s.metrics.ObserveStatus(lot.StatusReport())
	}
}

func (s *ParkingService) observeRejection(lotID int, err error) {
	if s.metrics == nil {
		return
	}
	reason := "other"
	switch {
	case errors.Is(err, domain.ErrNoAvailableSlot):
		reason = "no_available_slot"
	case errors.Is(err, domain.ErrVehicleAlreadyParked):
		reason = "already_parked"
	case errors.Is(err, domain.ErrInvalidVehicleData):
		reason = "invalid_vehicle"
	}
	s.metrics.ObserveRejection(lotID, reason)
}

// --- Ticket history ---

func (s *ParkingService) GetSession(ctx context.Context, ticketID string) (*domain.ParkingSession, error) {
	return s.sessionRepo.FindByTicketID(ctx, ticketID)
}

func (s *ParkingService) ListSessions(ctx context.Context, lotID int, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error) {
	if _, err := s.lot(lotID); err != nil {
		return nil, err
	}
	status := domain.ParkingSessionStatus(filter.Status)
	switch status {
	case "", domain.SessionActive, domain.SessionCompleted:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, filter.Status)
	}
	return s.sessionRepo.FindByLot(ctx, lotID, status, filter.Limit)
}

func (s *ParkingService) Revenue(ctx context.Context, lotID int) (*domain.RevenueSummary, error) {
	if _, err := s.lot(lotID); err != nil {
		return nil, err
	}
	return s.sessionRepo.RevenueByLot(ctx, lotID)
}

// RecentExit returns the last completed stay of plate in the lot when it
// ended no more than within ago.
func (s *ParkingService) RecentExit(ctx context.Context, lotID int, plate string, within time.Duration) (*domain.ParkingSession, error) {
	lot, err := s.lot(lotID)
	if err != nil {
		return nil, err
	}
	plate = domain.NormalizePlate(plate)
	session, err := s.sessionRepo.FindLastCompletedByPlate(ctx, lotID, plate)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: no completed stay for %s", domain.ErrVehicleNotFound, plate)
	}
	if err != nil {
		return nil, err
	}
	if !session.ExitTime.Valid || lot.Now().Sub(session.ExitTime.Time) > within {
		return nil, fmt.Errorf("%w: last stay of %s ended too long ago", domain.ErrVehicleNotFound, plate)
	}
	return session, nil
}

// LotName resolves a lot id for receipts.
func (s *ParkingService) LotName(lotID int) string {
	lot, err := s.lot(lotID)
	if err != nil {
		return fmt.Sprintf("Lot %d", lotID)
	}
	return lot.Name()
}

// ClearEvents drops any events a lot recorded but nobody drained.
func (s *ParkingService) ClearEvents(lotID int) error {
	lot, err := s.lot(lotID)
	if err != nil {
		return err
	}
	lot.ClearEvents()
	return nil
}
