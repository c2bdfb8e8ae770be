package postgresql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionRowColumns = []string{
	"ticket_id", "lot_id", "slot_number", "slot_type", "license_plate", "vehicle_type", "entry_time",
	"exit_time", "duration_minutes", "billed_hours", "fee", "status", "created_at", "updated_at",
}

func TestParkingSessionRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPgParkingSessionRepository(db)

	entry := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	session := &domain.ParkingSession{
		TicketID: "TKT-1", LotID: 1, SlotNumber: 2, SlotType: domain.SlotRegular,
		LicensePlate: "AB-001", VehicleType: domain.VehicleCar, EntryTime: entry, Status: domain.SessionActive,
	}

	mock.ExpectQuery(`INSERT INTO parking_sessions`).
		WithArgs("TKT-1", 1, 2, "REGULAR", "AB-001", "CAR", entry, "active").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(entry, entry))

	created, err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, entry, created.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParkingSessionRepository_CreateDuplicateTicket(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPgParkingSessionRepository(db)

	mock.ExpectQuery(`INSERT INTO parking_sessions`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "parking_sessions_pkey"})

	_, err := repo.Create(context.Background(), &domain.ParkingSession{TicketID: "TKT-1"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParkingSessionRepository_Complete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPgParkingSessionRepository(db)

	entry := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	exit := entry.Add(121 * time.Minute)
	session := domain.SessionFromVacate(domain.VacateResult{
		LotID: 1, SlotNumber: 2, SlotType: domain.SlotRegular, TicketID: "TKT-1",
		Vehicle:   domain.Vehicle{LicensePlate: "AB-001", Type: domain.VehicleCar},
		EntryTime: entry, ExitTime: exit, Duration: 121 * time.Minute, BilledHours: 3, Fee: 15,
	})

	mock.ExpectQuery(`INSERT INTO parking_sessions .* ON CONFLICT \(ticket_id\) DO UPDATE`).
		WithArgs("TKT-1", 1, 2, "REGULAR", "AB-001", "CAR", entry, exit, int64(121), int64(3), 15.0, "completed").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(entry, exit))

	done, err := repo.Complete(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, exit, done.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParkingSessionRepository_FindByTicketID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPgParkingSessionRepository(db)

	entry := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT ticket_id, lot_id`).
		WithArgs("TKT-1").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).
			AddRow("TKT-1", 1, 2, "EV", "EV-001", "EV_CAR", entry, nil, nil, nil, nil, "active", entry, entry))

	session, err := repo.FindByTicketID(context.Background(), "TKT-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SlotEV, session.SlotType)
	assert.Equal(t, domain.VehicleEVCar, session.VehicleType)
	assert.Equal(t, domain.SessionActive, session.Status)
	assert.False(t, session.ExitTime.Valid)
	assert.False(t, session.Fee.Valid)

	mock.ExpectQuery(`SELECT ticket_id, lot_id`).WithArgs("TKT-404").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByTicketID(context.Background(), "TKT-404")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParkingSessionRepository_FindByLot(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPgParkingSessionRepository(db)

	entry := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	exit := entry.Add(time.Hour)
	mock.ExpectQuery(`SELECT ticket_id, lot_id`).
		WithArgs(1, "completed", 100).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).
			AddRow("TKT-2", 1, 1, "REGULAR", "AB-002", "CAR", entry, exit, int64(60), int64(1), 5.0, "completed", entry, exit))

	sessions, err := repo.FindByLot(context.Background(), 1, domain.SessionCompleted, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Fee.Valid)
	assert.InDelta(t, 5.0, sessions[0].Fee.Float64, 1e-9)
	assert.Equal(t, int64(60), sessions[0].DurationMinutes.Int64)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParkingSessionRepository_FindLastCompletedByPlate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPgParkingSessionRepository(db)

	entry := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	exit := entry.Add(2 * time.Hour)
	mock.ExpectQuery(`SELECT ticket_id, lot_id.* WHERE lot_id = \$1 AND license_plate = \$2 AND status = \$3\s+ORDER BY exit_time DESC LIMIT 1`).
		WithArgs(1, "AB-001", "completed").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).
			AddRow("TKT-7", 1, 1, "REGULAR", "AB-001", "CAR", entry, exit, int64(120), int64(2), 10.0, "completed", entry, exit))

	session, err := repo.FindLastCompletedByPlate(context.Background(), 1, "AB-001")
	require.NoError(t, err)
	assert.Equal(t, "TKT-7", session.TicketID)
	assert.Equal(t, exit, session.ExitTime.Time)

	mock.ExpectQuery(`SELECT ticket_id, lot_id`).WithArgs(1, "ZZ-999", "completed").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindLastCompletedByPlate(context.Background(), 1, "ZZ-999")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParkingSessionRepository_RevenueByLot(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPgParkingSessionRepository(db)

	mock.ExpectQuery(`SELECT\s+COUNT`).
		WithArgs(1, "completed", "active").
		WillReturnRows(sqlmock.NewRows([]string{"completed", "active", "revenue"}).AddRow(int64(3), int64(1), 40.0))

	summary, err := repo.RevenueByLot(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.CompletedSessions)
	assert.Equal(t, int64(1), summary.ActiveSessions)
	assert.InDelta(t, 40.0, summary.TotalRevenue, 1e-9)
	assert.InDelta(t, 13.33, summary.AverageFee, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}
