package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"smart_parking_lot/internal/domain"

	"go.uber.org/zap"
)

var ErrInvalidGateMessage = errors.New("invalid gate message")

// exitRedeliveryWindow bounds how long after a vacate a repeated exit
// message still reopens the barrier.
const exitRedeliveryWindow = 15 * time.Minute

// BarrierCommander sends a command to the barrier of one gate.
type BarrierCommander interface {
	SendBarrierCommand(ctx context.Context, gateID string, cmd domain.BarrierControlCommandPayload) error
}

// GateService turns gate controller messages into park and vacate calls and
// opens the barrier once the allocator accepted the vehicle.
type GateService struct {
	parking  *ParkingService
	lpr      *LPRService
	barriers BarrierCommander
	logger   *zap.Logger
}

func NewGateService(parking *ParkingService, lpr *LPRService, barriers BarrierCommander, logger *zap.Logger) *GateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GateService{parking: parking, lpr: lpr, barriers: barriers, logger: logger}
}

// HandleDeviceEvent decodes a raw queue body and processes it.
func (s *GateService) HandleDeviceEvent(ctx context.Context, body string) error {
	var msg domain.GateMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGateMessage, err)
	}
	return s.HandleGateMessage(ctx, msg)
}

func (s *GateService) HandleGateMessage(ctx context.Context, msg domain.GateMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGateMessage, err)
	}

	plate, err := s.resolvePlate(ctx, msg)
	if err != nil {
		return err
	}

	switch msg.MessageType {
	case domain.GateMessageEntry:
		return s.handleEntry(ctx, msg, plate)
	case domain.GateMessageExit:
		return s.handleExit(ctx, msg, plate)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidGateMessage, msg.MessageType)
	}
}

func (s *GateService) resolvePlate(ctx context.Context, msg domain.GateMessage) (string, error) {
	if plate := strings.TrimSpace(msg.LicensePlate); plate != "" {
		return domain.NormalizePlate(plate), nil
	}
	if s.lpr == nil {
		return "", ErrLPRUnavailable
	}
	plate, confidence, err := s.lpr.RecognizeBase64(ctx, msg.ImageBase64)
	if err != nil {
		return "", err
	}
	s.logger.Info("Gate plate recognised",
		zap.String("gate_id", msg.GateID),
		zap.String("plate", plate),
		zap.Float32("confidence", confidence),
	)
	return domain.NormalizePlate(plate), nil
}

func (s *GateService) handleEntry(ctx context.Context, msg domain.GateMessage, plate string) error {
	v, err := domain.NewVehicle(plate, "", "", "", domain.VehicleType(strings.ToUpper(strings.TrimSpace(msg.VehicleType))))
	if err != nil {
		return err
	}
	preferred, err := domain.ParseSlotType(msg.PreferredSlotType)
	if err != nil {
		return err
	}

	res, err := s.parking.Park(ctx, msg.LotID, v, preferred)
	if errors.Is(err, domain.ErrVehicleAlreadyParked) {
		// Redelivered entry: the vehicle got its slot, the barrier may not
		// have opened.
		slot, findErr := s.parking.FindByPlate(ctx, msg.LotID, plate)
		if findErr != nil {
			return err
		}
		return s.openBarrier(ctx, msg.GateID, slot.TicketID, "entry")
	}
	if err != nil {
		return err
	}
	return s.openBarrier(ctx, msg.GateID, res.TicketID, "entry")
}

func (s *GateService) handleExit(ctx context.Context, msg domain.GateMessage, plate string) error {
	res, err := s.parking.VacateByPlate(ctx, msg.LotID, plate)
	if errors.Is(err, domain.ErrVehicleNotFound) {
		// Redelivered exit: the stay is already billed, the barrier may not
		// have opened.
		last, findErr := s.parking.RecentExit(ctx, msg.LotID, plate, exitRedeliveryWindow)
		if findErr != nil {
			return err
		}
		return s.openBarrier(ctx, msg.GateID, last.TicketID, "exit")
	}
	if err != nil {
		return err
	}
	return s.openBarrier(ctx, msg.GateID, res.TicketID, "exit")
}

func (s *GateService) openBarrier(ctx context.Context, gateID, ticketID, reason string) error {
	if s.barriers == nil || gateID == "" {
		return nil
	}
	cmd := domain.BarrierControlCommandPayload{
		Command:   domain.BarrierCommandOpen,
		RequestID: reason + ":" + ticketID,
		TicketID:  ticketID,
		Reason:    reason,
	}
	if err := s.barriers.SendBarrierCommand(ctx, gateID, cmd); err != nil {
		return fmt.Errorf("open barrier %s: %w", gateID, err)
	}
	return nil
}

// IsPermanent reports whether retrying the message can never succeed.
func IsPermanent(err error) bool {
	for _, target := range []error{
		ErrInvalidGateMessage,
		ErrLotNotFound,
		ErrPlateNotRecognized,
		ErrInvalidImage,
		ErrLPRUnavailable,
		domain.ErrNoAvailableSlot,
		domain.ErrInvalidVehicleData,
		domain.ErrVehicleNotFound,
		domain.ErrSlotNotFound,
		domain.ErrSlotNotOccupied,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
