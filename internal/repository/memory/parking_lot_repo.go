package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/repository"
)

// ParkingLotRepo keeps lot snapshots in process when no database is configured.
type ParkingLotRepo struct {
	mu     sync.RWMutex
	nextID int
	lots   map[int]domain.LotSnapshot
}

func NewParkingLotRepo() *ParkingLotRepo {
	return &ParkingLotRepo{
		nextID: 1,
		lots:   map[int]domain.LotSnapshot{},
	}
}

var _ repository.ParkingLotRepository = (*ParkingLotRepo)(nil)

func (r *ParkingLotRepo) Create(_ context.Context, snap *domain.LotSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.lots {
		if strings.EqualFold(existing.Config.Name, snap.Config.Name) {
			return fmt.Errorf("%w: lot name '%s'", repository.ErrDuplicateEntry, snap.Config.Name)
		}
	}
	snap.ID = r.nextID
	r.nextID++
	r.lots[snap.ID] = snap.Clone()
	return nil
}

func (r *ParkingLotRepo) FindByID(_ context.Context, id int) (*domain.LotSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := snap.Clone()
	return &c, nil
}

func (r *ParkingLotRepo) FindAll(_ context.Context) ([]domain.LotSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.LotSnapshot, 0, len(r.lots))
	for _, snap := range r.lots {
		all = append(all, snap.Clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (r *ParkingLotRepo) Save(_ context.Context, snap domain.LotSnapshot, _ ...int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lots[snap.ID]; !ok {
		return repository.ErrNotFound
	}
	r.lots[snap.ID] = snap.Clone()
	return nil
}
