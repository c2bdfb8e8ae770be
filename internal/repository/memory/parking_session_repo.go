package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/repository"
)

type ParkingSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]domain.ParkingSession // ticketID -> session
	now      func() time.Time
}

func NewParkingSessionRepo() *ParkingSessionRepo {
	return &ParkingSessionRepo{
		sessions: map[string]domain.ParkingSession{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.ParkingSessionRepository = (*ParkingSessionRepo)(nil)

func (r *ParkingSessionRepo) Create(_ context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.TicketID]; ok {
		return nil, fmt.Errorf("%w: ticket '%s'", repository.ErrDuplicateEntry, session.TicketID)
	}
	now := r.now()
	session.CreatedAt = now
	session.UpdatedAt = now
	r.sessions[session.TicketID] = *session
	return session, nil
}

func (r *ParkingSessionRepo) Complete(_ context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.sessions[session.TicketID]; ok {
		session.CreatedAt = existing.CreatedAt
	} else {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	r.sessions[session.TicketID] = *session
	return session, nil
}

func (r *ParkingSessionRepo) FindByTicketID(_ context.Context, ticketID string) (*domain.ParkingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[ticketID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *ParkingSessionRepo) FindByLot(_ context.Context, lotID int, status domain.ParkingSessionStatus, limit int) ([]domain.ParkingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	out := []domain.ParkingSession{}
	for _, s := range r.sessions {
		if s.LotID != lotID || (status != "" && s.Status != status) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].TicketID > out[j].TicketID
		}
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ParkingSessionRepo) FindLastCompletedByPlate(_ context.Context, lotID int, plate string) (*domain.ParkingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last *domain.ParkingSession
	for _, s := range r.sessions {
		if s.LotID != lotID || s.LicensePlate != plate || s.Status != domain.SessionCompleted {
			continue
		}
		if last == nil || s.ExitTime.Time.After(last.ExitTime.Time) {
			s := s
			last = &s
		}
	}
	if last == nil {
		return nil, repository.ErrNotFound
	}
	return last, nil
}

func (r *ParkingSessionRepo) RevenueByLot(_ context.Context, lotID int) (*domain.RevenueSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := &domain.RevenueSummary{LotID: lotID}
	for _, s := range r.sessions {
		if s.LotID != lotID {
			continue
		}
		switch s.Status {
		case domain.SessionActive:
			summary.ActiveSessions++
		case domain.SessionCompleted:
			summary.CompletedSessions++
			summary.TotalRevenue += s.Fee.Float64
		}
	}
	summary.TotalRevenue = math.Round(summary.TotalRevenue*100) / 100
	if summary.CompletedSessions > 0 {
		summary.AverageFee = math.Round(summary.TotalRevenue/float64(summary.CompletedSessions)*100) / 100
	}
	return summary, nil
}
