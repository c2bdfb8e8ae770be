package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/repository"
)

type pgParkingSessionRepository struct {
	db *sql.DB
}

func NewPgParkingSessionRepository(db *sql.DB) repository.ParkingSessionRepository {
	return &pgParkingSessionRepository{db: db}
}

const sessionColumns = `ticket_id, lot_id, slot_number, slot_type, license_plate, vehicle_type, entry_time,
	exit_time, duration_minutes, billed_hours, fee, status, created_at, updated_at`

func (r *pgParkingSessionRepository) Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	query := `INSERT INTO parking_sessions
	           (ticket_id, lot_id, slot_number, slot_type, license_plate, vehicle_type, entry_time, status, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		session.TicketID, session.LotID, session.SlotNumber, string(session.SlotType),
		session.LicensePlate, string(session.VehicleType), session.EntryTime, string(session.Status),
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: ticket '%s'", repository.ErrDuplicateEntry, session.TicketID)
		}
		return nil, fmt.Errorf("ParkingSessionRepository.Create: %w", err)
	}
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return session, nil
}

// Complete upserts so that a stay whose entry row was never written still
// ends up in the history.
func (r *pgParkingSessionRepository) Complete(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	query := `INSERT INTO parking_sessions
	           (ticket_id, lot_id, slot_number, slot_type, license_plate, vehicle_type, entry_time,
	            exit_time, duration_minutes, billed_hours, fee, status, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           ON CONFLICT (ticket_id) DO UPDATE SET
	               exit_time = EXCLUDED.exit_time,
	               duration_minutes = EXCLUDED.duration_minutes,
	               billed_hours = EXCLUDED.billed_hours,
	               fee = EXCLUDED.fee,
	               status = EXCLUDED.status,
	               updated_at = CURRENT_TIMESTAMP
	           RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		session.TicketID, session.LotID, session.SlotNumber, string(session.SlotType),
		session.LicensePlate, string(session.VehicleType), session.EntryTime,
		session.ExitTime, session.DurationMinutes, session.BilledHours, session.Fee, string(session.Status),
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Complete: %w", err)
	}
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return session, nil
}

func (r *pgParkingSessionRepository) FindByTicketID(ctx context.Context, ticketID string) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE ticket_id = $1`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, ticketID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSessionRepository.FindByTicketID: %w", err)
	}
	return session, nil
}

func (r *pgParkingSessionRepository) FindByLot(ctx context.Context, lotID int, status domain.ParkingSessionStatus, limit int) ([]domain.ParkingSession, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions
	           WHERE lot_id = $1 AND ($2 = '' OR status = $2)
	           ORDER BY entry_time DESC LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, lotID, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.FindByLot: %w", err)
	}
	defer rows.Close()

	sessions := []domain.ParkingSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingSessionRepository.FindByLot (scanning row): %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.FindByLot (rows error): %w", err)
	}
	return sessions, nil
}

func (r *pgParkingSessionRepository) FindLastCompletedByPlate(ctx context.Context, lotID int, plate string) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions
	           WHERE lot_id = $1 AND license_plate = $2 AND status = $3
	           ORDER BY exit_time DESC LIMIT 1`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, lotID, plate, string(domain.SessionCompleted)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSessionRepository.FindLastCompletedByPlate: %w", err)
	}
	return session, nil
}

func (r *pgParkingSessionRepository) RevenueByLot(ctx context.Context, lotID int) (*domain.RevenueSummary, error) {
	query := `SELECT
	              COUNT(*) FILTER (WHERE status = $2),
	              COUNT(*) FILTER (WHERE status = $3),
	              COALESCE(SUM(fee) FILTER (WHERE status = $2), 0)
	           FROM parking_sessions WHERE lot_id = $1`

	summary := &domain.RevenueSummary{LotID: lotID}
	err := r.db.QueryRowContext(ctx, query, lotID, string(domain.SessionCompleted), string(domain.SessionActive)).
		Scan(&summary.CompletedSessions, &summary.ActiveSessions, &summary.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.RevenueByLot: %w", err)
	}
	if summary.CompletedSessions > 0 {
		summary.AverageFee = roundCents(summary.TotalRevenue / float64(summary.CompletedSessions))
	}
	return summary, nil
}

func scanSession(row rowScanner) (*domain.ParkingSession, error) {
	var (
		s           domain.ParkingSession
		slotType    string
		vehicleType string
		status      string
	)
	err := row.Scan(
		&s.TicketID, &s.LotID, &s.SlotNumber, &slotType, &s.LicensePlate, &vehicleType, &s.EntryTime,
		&s.ExitTime, &s.DurationMinutes, &s.BilledHours, &s.Fee, &status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.SlotType = domain.SlotType(slotType)
	s.VehicleType = domain.VehicleType(vehicleType)
	s.Status = domain.ParkingSessionStatus(status)
	s.EntryTime = s.EntryTime.In(time.UTC)
	if s.ExitTime.Valid {
		s.ExitTime.Time = s.ExitTime.Time.In(time.UTC)
	}
	s.CreatedAt = s.CreatedAt.In(time.UTC)
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
	return &s, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
