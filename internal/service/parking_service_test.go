package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/metrics"
	"smart_parking_lot/internal/repository"
	"smart_parking_lot/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evs []domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return p.err
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}

type fixture struct {
	svc       *ParkingService
	lots      *memory.ParkingLotRepo
	sessions  *memory.ParkingSessionRepo
	publisher *recordingPublisher
	clock     *testClock
	lotID     int
}

func newFixture(t *testing.T, cfg domain.LotConfig) *fixture {
	t.Helper()
	f := &fixture{
		lots:      memory.NewParkingLotRepo(),
		sessions:  memory.NewParkingSessionRepo(),
		publisher: &recordingPublisher{},
		clock:     &testClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
	}
	f.svc = NewParkingService(f.lots, f.sessions, f.publisher, metrics.New(), zap.NewNop(), domain.WithClock(f.clock.Now))
	report, err := f.svc.CreateLot(context.Background(), cfg)
	require.NoError(t, err)
	f.lotID = report.LotID
	return f
}

func parkDTO(plate, vehicleType string) domain.ParkVehicleDTO {
	return domain.ParkVehicleDTO{LicensePlate: plate, VehicleType: vehicleType}
}

func TestParkingService_ParkVacateRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.DefaultLotConfig("Central", 2, 1))

	res, err := f.svc.ParkDTO(ctx, f.lotID, parkDTO("ab-001", "car"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.SlotNumber)

	session, err := f.svc.GetSession(ctx, res.TicketID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, session.Status)
	assert.Equal(t, "AB-001", session.LicensePlate)

	stored, err := f.lots.FindByID(ctx, f.lotID)
	require.NoError(t, err)
	assert.True(t, stored.Slots[0].Occupied, "snapshot saved after park")

	f.clock.Advance(121 * time.Minute)
	left, err := f.svc.Vacate(ctx, f.lotID, res.SlotNumber)
	require.NoError(t, err)
	assert.Equal(t, 3, left.BilledHours)
	assert.InDelta(t, 15.0, left.Fee, 1e-9)

	session, err = f.svc.GetSession(ctx, res.TicketID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, session.Status)
	assert.InDelta(t, 15.0, session.Fee.Float64, 1e-9)

	stored, err = f.lots.FindByID(ctx, f.lotID)
	require.NoError(t, err)
	assert.False(t, stored.Slots[0].Occupied)
	assert.Equal(t, int64(1), stored.TotalSessions)

	assert.Equal(t, []string{domain.EventVehicleParked, domain.EventVehicleLeft}, f.publisher.names())

	summary, err := f.svc.Revenue(ctx, f.lotID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.CompletedSessions)
	assert.InDelta(t, 15.0, summary.TotalRevenue, 1e-9)
}

func TestParkingService_ScenarioTwoRegularOneEV(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.DefaultLotConfig("Central", 2, 1))

	_, err := f.svc.ParkDTO(ctx, f.lotID, parkDTO("AB-001", "CAR"))
	require.NoError(t, err)
	_, err = f.svc.ParkDTO(ctx, f.lotID, parkDTO("AB-002", "MOTORCYCLE"))
	require.NoError(t, err)
	ev, err := f.svc.ParkDTO(ctx, f.lotID, parkDTO("EV-001", "EV_CAR"))
	require.NoError(t, err)
	assert.Equal(t, domain.SlotEV, ev.SlotType)

	_, err = f.svc.ParkDTO(ctx, f.lotID, parkDTO("AB-003", "CAR"))
	assert.ErrorIs(t, err, domain.ErrNoAvailableSlot)

	report, err := f.svc.Status(ctx, f.lotID)
	require.NoError(t, err)
	assert.Equal(t, 3, report.OccupiedSlots)
	assert.InDelta(t, 1.0, report.OccupancyRate, 1e-9)

	slot, err := f.svc.FindByPlate(ctx, f.lotID, "ev-001")
	require.NoError(t, err)
	assert.Equal(t, 3, slot.Number)
	_, err = f.svc.FindByPlate(ctx, f.lotID, "ZZ-999")
	assert.ErrorIs(t, err, domain.ErrVehicleNotFound)
}

func TestParkingService_ErrorsAreReturnedUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.DefaultLotConfig("Central", 1, 0))

	_, err := f.svc.ParkDTO(ctx, 99, parkDTO("AB-001", "CAR"))
	assert.ErrorIs(t, err, ErrLotNotFound)

	_, err = f.svc.ParkDTO(ctx, f.lotID, parkDTO("A", "CAR"))
	assert.ErrorIs(t, err, domain.ErrInvalidVehicleData)

	_, err = f.svc.ParkDTO(ctx, f.lotID, domain.ParkVehicleDTO{LicensePlate: "AB-001", VehicleType: "CAR", PreferredSlotType: "VIP"})
	assert.ErrorIs(t, err, domain.ErrInvalidVehicleData)

	_, err = f.svc.Vacate(ctx, f.lotID, 7)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
	_, err = f.svc.Vacate(ctx, f.lotID, 1)
	assert.ErrorIs(t, err, domain.ErrSlotNotOccupied)

	_, err = f.svc.ListSessions(ctx, f.lotID, domain.SessionFilterDTO{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = f.svc.Revenue(ctx, 99)
	assert.ErrorIs(t, err, ErrLotNotFound)

	assert.Empty(t, f.publisher.names())
}

func TestParkingService_PublishFailureDoesNotFailPark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.DefaultLotConfig("Central", 1, 0))
	f.publisher.err = errors.New("redis down")

	_, err := f.svc.ParkDTO(ctx, f.lotID, parkDTO("AB-001", "CAR"))
	require.NoError(t, err)
	assert.Len(t, f.publisher.names(), 1)
}

func TestParkingService_VacateByPlate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.DefaultLotConfig("Central", 2, 0))

	_, err := f.svc.ParkDTO(ctx, f.lotID, parkDTO("AB-001", "CAR"))
	require.NoError(t, err)
	res, err := f.svc.VacateByPlate(ctx, f.lotID, "ab-001")
	require.NoError(t, err)
	assert.Equal(t, 1, res.SlotNumber)

	_, err = f.svc.VacateByPlate(ctx, f.lotID, "AB-001")
	assert.ErrorIs(t, err, domain.ErrVehicleNotFound)
}

func TestParkingService_LoadLotsRestoresState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.DefaultLotConfig("Central", 1, 1))
	_, err := f.svc.ParkDTO(ctx, f.lotID, parkDTO("EV-001", "EV_CAR"))
	require.NoError(t, err)

	restarted := NewParkingService(f.lots, f.sessions, nil, nil, nil)
	require.NoError(t, restarted.LoadLots(ctx))
	require.NoError(t, restarted.EnsureDefaultLot(ctx, domain.DefaultLotConfig("Other", 1, 0)))

	lots := restarted.ListLots(ctx)
	require.Len(t, lots, 1, "default lot is only created for an empty store")
	assert.Equal(t, "Central", lots[0].Name)
	assert.Equal(t, 1, lots[0].OccupiedEV)

	slot, err := restarted.FindByPlate(ctx, f.lotID, "EV-001")
	require.NoError(t, err)
	assert.Equal(t, 2, slot.Number)
}

func TestParkingService_EnsureDefaultLotOnEmptyStore(t *testing.T) {
	ctx := context.Background()
	svc := NewParkingService(memory.NewParkingLotRepo(), memory.NewParkingSessionRepo(), nil, nil, nil)
	require.NoError(t, svc.LoadLots(ctx))
	require.NoError(t, svc.EnsureDefaultLot(ctx, domain.DefaultLotConfig("Main Lot", 3, 1)))

	lots := svc.ListLots(ctx)
	require.Len(t, lots, 1)
	assert.Equal(t, 4, lots[0].TotalSlots)
	assert.Equal(t, "Main Lot", svc.LotName(lots[0].LotID))

	_, err := svc.CreateLot(ctx, domain.DefaultLotConfig("main lot", 1, 0))
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
	_, err = svc.CreateLot(ctx, domain.DefaultLotConfig("", 1, 0))
	assert.ErrorIs(t, err, domain.ErrInvalidLotConfig)
}

func TestParkingService_ListSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.DefaultLotConfig("Central", 2, 0))

	a, err := f.svc.ParkDTO(ctx, f.lotID, parkDTO("AB-001", "CAR"))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.ParkDTO(ctx, f.lotID, parkDTO("AB-002", "CAR"))
	require.NoError(t, err)
	_, err = f.svc.Vacate(ctx, f.lotID, a.SlotNumber)
	require.NoError(t, err)

	active, err := f.svc.ListSessions(ctx, f.lotID, domain.SessionFilterDTO{Status: "active"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "AB-002", active[0].LicensePlate)

	all, err := f.svc.ListSessions(ctx, f.lotID, domain.SessionFilterDTO{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestParkingService_ConcurrentParksKeepSnapshotCurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.DefaultLotConfig("Central", 5, 0))

	var wg sync.WaitGroup
	var mu sync.Mutex
	parked := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			plate := "CC-" + string(rune('A'+i))
			if _, err := f.svc.ParkDTO(ctx, f.lotID, parkDTO(plate, "CAR")); err == nil {
				mu.Lock()
				parked++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, parked)
	stored, err := f.lots.FindByID(ctx, f.lotID)
	require.NoError(t, err)
	occupied := 0
	for _, s := range stored.Slots {
		if s.Occupied {
			occupied++
		}
	}
	assert.Equal(t, 5, occupied, "last saved snapshot reflects the final state")
}

type recordingLotRepo struct {
	*memory.ParkingLotRepo
	mu    sync.Mutex
	saves [][]int
	err   error
}

func (r *recordingLotRepo) Save(ctx context.Context, snap domain.LotSnapshot, changed ...int) error {
	r.mu.Lock()
	r.saves = append(r.saves, changed)
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.ParkingLotRepo.Save(ctx, snap, changed...)
}

func TestParkingService_SavesOnlyTheChangedSlot(t *testing.T) {
	ctx := context.Background()
	repo := &recordingLotRepo{ParkingLotRepo: memory.NewParkingLotRepo()}
	svc := NewParkingService(repo, memory.NewParkingSessionRepo(), nil, nil, nil)
	report, err := svc.CreateLot(ctx, domain.DefaultLotConfig("Central", 3, 1))
	require.NoError(t, err)

	a, err := svc.ParkDTO(ctx, report.LotID, parkDTO("AB-001", "CAR"))
	require.NoError(t, err)
	b, err := svc.ParkDTO(ctx, report.LotID, parkDTO("AB-002", "CAR"))
	require.NoError(t, err)

	repo.err = errors.New("connection refused")
	_, err = svc.Vacate(ctx, report.LotID, a.SlotNumber)
	require.NoError(t, err, "allocator stays authoritative")

	repo.err = nil
	_, err = svc.Vacate(ctx, report.LotID, b.SlotNumber)
	require.NoError(t, err)
	_, err = svc.ParkDTO(ctx, report.LotID, parkDTO("AB-003", "CAR"))
	require.NoError(t, err)

	assert.Equal(t, [][]int{{1}, {2}, {1}, nil, {1}}, repo.saves, "a failed save is followed by a full one")

	stored, err := repo.FindByID(ctx, report.LotID)
	require.NoError(t, err)
	assert.Equal(t, "AB-003", stored.Slots[0].Occupant.LicensePlate)
	assert.False(t, stored.Slots[1].Occupied)
}
