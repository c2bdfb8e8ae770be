package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/repository"

	"gopkg.in/guregu/null.v4"
)

type pgParkingLotRepository struct {
	db *sql.DB
}

func NewPgParkingLotRepository(db *sql.DB) repository.ParkingLotRepository {
	return &pgParkingLotRepository{db: db}
}

const upsertSlotQuery = `INSERT INTO parking_slots
	(lot_id, slot_number, slot_type, occupied, license_plate, vehicle, entry_time, ticket_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (lot_id, slot_number) DO UPDATE SET
		slot_type = EXCLUDED.slot_type,
		occupied = EXCLUDED.occupied,
		license_plate = EXCLUDED.license_plate,
		vehicle = EXCLUDED.vehicle,
		entry_time = EXCLUDED.entry_time,
		ticket_id = EXCLUDED.ticket_id`

func (r *pgParkingLotRepository) Create(ctx context.Context, snap *domain.LotSnapshot) error {
	cfgJSON, err := json.Marshal(snap.Config)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Create (encoding config): %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Create (begin): %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO parking_lots (name, config, total_sessions, total_revenue, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id`
	var id int
	err = tx.QueryRowContext(ctx, query, snap.Config.Name, cfgJSON, snap.TotalSessions, snap.TotalRevenue).Scan(&id)
	if err != nil {
		if constraint, ok := isUniqueViolation(err); ok && constraint == "parking_lots_name_key" {
			return fmt.Errorf("%w: parking lot '%s' already exists", repository.ErrDuplicateEntry, snap.Config.Name)
		}
		return fmt.Errorf("ParkingLotRepository.Create: %w", err)
	}

	if err := upsertSlots(ctx, tx, id, snap.Slots); err != nil {
		return fmt.Errorf("ParkingLotRepository.Create: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ParkingLotRepository.Create (commit): %w", err)
	}
	snap.ID = id
	return nil
}

func (r *pgParkingLotRepository) Save(ctx context.Context, snap domain.LotSnapshot, changed ...int) error {
	cfgJSON, err := json.Marshal(snap.Config)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Save (encoding config): %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Save (begin): %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE parking_lots
	           SET config = $1, total_sessions = $2, total_revenue = $3, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $4`
	result, err := tx.ExecContext(ctx, query, cfgJSON, snap.TotalSessions, snap.TotalRevenue, snap.ID)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Save: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Save (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	if err := upsertSlots(ctx, tx, snap.ID, pickSlots(snap.Slots, changed)); err != nil {
		return fmt.Errorf("ParkingLotRepository.Save: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ParkingLotRepository.Save (commit): %w", err)
	}
	return nil
}

// pickSlots keeps the slots whose numbers are listed, or all of them when
// none are.
func pickSlots(slots []domain.Slot, numbers []int) []domain.Slot {
	if len(numbers) == 0 {
		return slots
	}
	picked := make([]domain.Slot, 0, len(numbers))
	for _, s := range slots {
		for _, n := range numbers {
			if s.Number == n {
				picked = append(picked, s)
				break
			}
		}
	}
	return picked
}

func upsertSlots(ctx context.Context, tx *sql.Tx, lotID int, slots []domain.Slot) error {
	for _, s := range slots {
		var (
			plate   null.String
			vehicle any
		)
		if s.Occupant != nil {
			plate = null.StringFrom(s.Occupant.LicensePlate)
			raw, err := json.Marshal(s.Occupant)
			if err != nil {
				return fmt.Errorf("encoding occupant of slot %d: %w", s.Number, err)
			}
			vehicle = raw
		}
		_, err := tx.ExecContext(ctx, upsertSlotQuery,
			lotID, s.Number, string(s.Type), s.Occupied, plate, vehicle, s.EntryTime, null.NewString(s.TicketID, s.TicketID != ""),
		)
		if err != nil {
			return fmt.Errorf("saving slot %d: %w", s.Number, err)
		}
	}
	return nil
}

func (r *pgParkingLotRepository) FindByID(ctx context.Context, id int) (*domain.LotSnapshot, error) {
	query := `SELECT id, name, config, total_sessions, total_revenue FROM parking_lots WHERE id = $1`
	snap, err := scanLot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.FindByID: %w", err)
	}
	if snap.Slots, err = r.findSlots(ctx, snap.ID); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindByID: %w", err)
	}
	return snap, nil
}

func (r *pgParkingLotRepository) FindAll(ctx context.Context) ([]domain.LotSnapshot, error) {
	query := `SELECT id, name, config, total_sessions, total_revenue FROM parking_lots ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var lots []domain.LotSnapshot
	for rows.Next() {
		snap, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.FindAll (scanning row): %w", err)
		}
		lots = append(lots, *snap)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll (rows error): %w", err)
	}
	rows.Close()

	for i := range lots {
		if lots[i].Slots, err = r.findSlots(ctx, lots[i].ID); err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.FindAll: %w", err)
		}
	}
	return lots, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner) (*domain.LotSnapshot, error) {
	var (
		snap    domain.LotSnapshot
		name    string
		cfgJSON []byte
	)
	if err := row.Scan(&snap.ID, &name, &cfgJSON, &snap.TotalSessions, &snap.TotalRevenue); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfgJSON, &snap.Config); err != nil {
		return nil, fmt.Errorf("decoding config of lot %d: %w", snap.ID, err)
	}
	snap.Config.Name = name
	return &snap, nil
}

func (r *pgParkingLotRepository) findSlots(ctx context.Context, lotID int) ([]domain.Slot, error) {
	query := `SELECT slot_number, slot_type, occupied, vehicle, entry_time, ticket_id
	           FROM parking_slots WHERE lot_id = $1 ORDER BY slot_number`
	rows, err := r.db.QueryContext(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("loading slots of lot %d: %w", lotID, err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		var (
			s        domain.Slot
			slotType string
			vehicle  []byte
			entry    null.Time
			ticket   null.String
		)
		if err := rows.Scan(&s.Number, &slotType, &s.Occupied, &vehicle, &entry, &ticket); err != nil {
			return nil, fmt.Errorf("scanning slot of lot %d: %w", lotID, err)
		}
		s.Type = domain.SlotType(slotType)
		if len(vehicle) > 0 {
			var v domain.Vehicle
			if err := json.Unmarshal(vehicle, &v); err != nil {
				return nil, fmt.Errorf("decoding occupant of slot %d: %w", s.Number, err)
			}
			s.Occupant = &v
		}
		if entry.Valid {
			entry.Time = entry.Time.In(time.UTC)
		}
		s.EntryTime = entry
		s.TicketID = ticket.String
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading slots of lot %d: %w", lotID, err)
	}
	return slots, nil
}
