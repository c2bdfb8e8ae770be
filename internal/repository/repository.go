package repository

import (
	"context"
	"errors"

	"smart_parking_lot/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

// ParkingLotRepository persists allocator snapshots.
type ParkingLotRepository interface {
	// Create stores a new lot and sets snap.ID.
	Create(ctx context.Context, snap *domain.LotSnapshot) error
	FindByID(ctx context.Context, id int) (*domain.LotSnapshot, error)
	FindAll(ctx context.Context) ([]domain.LotSnapshot, error)
	// Save replaces the stored state of an existing lot. When changed slot
	// numbers are given, only those slots are written along with the lot
	// totals.
	Save(ctx context.Context, snap domain.LotSnapshot, changed ...int) error
}

type ParkingSessionRepository interface {
	Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
	// Complete records exit data for an active session.
	Complete(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
	FindByTicketID(ctx context.Context, ticketID string) (*domain.ParkingSession, error)
	FindByLot(ctx context.Context, lotID int, status domain.ParkingSessionStatus, limit int) ([]domain.ParkingSession, error)
	// FindLastCompletedByPlate returns the stay of plate in the lot that
	// ended most recently.
	FindLastCompletedByPlate(ctx context.Context, lotID int, plate string) (*domain.ParkingSession, error)
	RevenueByLot(ctx context.Context, lotID int) (*domain.RevenueSummary, error)
}
