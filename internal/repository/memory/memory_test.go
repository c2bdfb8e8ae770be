package memory

import (
	"context"
	"testing"
	"time"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParkingLotRepo_CreateSaveFind(t *testing.T) {
	ctx := context.Background()
	repo := NewParkingLotRepo()

	lot, err := domain.NewParkingLot(0, domain.DefaultLotConfig("Central", 2, 1))
	require.NoError(t, err)
	snap := lot.Snapshot()
	require.NoError(t, repo.Create(ctx, &snap))
	assert.Equal(t, 1, snap.ID)

	dup := lot.Snapshot()
	dup.Config.Name = "central"
	assert.ErrorIs(t, repo.Create(ctx, &dup), repository.ErrDuplicateEntry)

	restored, err := domain.RestoreParkingLot(snap)
	require.NoError(t, err)
	_, err = restored.Park(&domain.Vehicle{LicensePlate: "AB-001", Type: domain.VehicleCar}, "")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, restored.Snapshot()))

	found, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, found.Slots[0].Occupant)
	assert.Equal(t, "AB-001", found.Slots[0].Occupant.LicensePlate)

	// Mutating a returned snapshot must not leak into the store.
	found.Slots[0].Occupant.LicensePlate = "ZZ-999"
	again, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "AB-001", again.Slots[0].Occupant.LicensePlate)

	missing := snap
	missing.ID = 42
	assert.ErrorIs(t, repo.Save(ctx, missing), repository.ErrNotFound)
	_, err = repo.FindByID(ctx, 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestParkingLotRepo_FindAllOrdered(t *testing.T) {
	ctx := context.Background()
	repo := NewParkingLotRepo()
	for _, name := range []string{"North", "South", "East"} {
		snap := domain.LotSnapshot{Config: domain.DefaultLotConfig(name, 1, 0)}
		require.NoError(t, repo.Create(ctx, &snap))
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "East", all[2].Config.Name)
}

func TestParkingSessionRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewParkingSessionRepo()
	entry := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	park := domain.ParkResult{LotID: 1, SlotNumber: 1, SlotType: domain.SlotRegular, TicketID: "TKT-1", EntryTime: entry}
	v := &domain.Vehicle{LicensePlate: "AB-001", Type: domain.VehicleCar}
	_, err := repo.Create(ctx, domain.NewActiveSession(park, v))
	require.NoError(t, err)
	_, err = repo.Create(ctx, domain.NewActiveSession(park, v))
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

	other := domain.ParkResult{LotID: 1, SlotNumber: 2, SlotType: domain.SlotRegular, TicketID: "TKT-2", EntryTime: entry.Add(time.Minute)}
	_, err = repo.Create(ctx, domain.NewActiveSession(other, &domain.Vehicle{LicensePlate: "AB-002", Type: domain.VehicleCar}))
	require.NoError(t, err)

	done, err := repo.Complete(ctx, domain.SessionFromVacate(domain.VacateResult{
		LotID: 1, SlotNumber: 1, SlotType: domain.SlotRegular, TicketID: "TKT-1", Vehicle: *v,
		EntryTime: entry, ExitTime: entry.Add(121 * time.Minute), Duration: 121 * time.Minute, BilledHours: 3, Fee: 15,
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, done.Status)

	got, err := repo.FindByTicketID(ctx, "TKT-1")
	require.NoError(t, err)
	assert.InDelta(t, 15.0, got.Fee.Float64, 1e-9)
	_, err = repo.FindByTicketID(ctx, "TKT-404")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	all, err := repo.FindByLot(ctx, 1, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "TKT-2", all[0].TicketID, "newest entry first")

	completed, err := repo.FindByLot(ctx, 1, domain.SessionCompleted, 10)
	require.NoError(t, err)
	require.Len(t, completed, 1)

	last, err := repo.FindLastCompletedByPlate(ctx, 1, "AB-001")
	require.NoError(t, err)
	assert.Equal(t, "TKT-1", last.TicketID)
	_, err = repo.FindLastCompletedByPlate(ctx, 1, "AB-002")
	assert.ErrorIs(t, err, repository.ErrNotFound, "still parked")
	_, err = repo.FindLastCompletedByPlate(ctx, 2, "AB-001")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	summary, err := repo.RevenueByLot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.CompletedSessions)
	assert.Equal(t, int64(1), summary.ActiveSessions)
	assert.InDelta(t, 15.0, summary.TotalRevenue, 1e-9)
	assert.InDelta(t, 15.0, summary.AverageFee, 1e-9)
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo()

	u, err := repo.Create(ctx, &domain.User{Username: "alice", Password: "hash", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 1, u.ID)

	_, err = repo.Create(ctx, &domain.User{Username: "alice"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, found.Role)

	_, err = repo.FindByUsername(ctx, "bob")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
