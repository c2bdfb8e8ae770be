package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smart_parking_lot/internal/domain"
)

// Publisher delivers drained lot events to an outside consumer.
type Publisher interface {
	Publish(ctx context.Context, evs []domain.Event) error
}

// Envelope is the wire form shared by every publisher.
type Envelope struct {
	Event      string          `json:"event"`
	LotID      int             `json:"lot_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

func NewEnvelope(ev domain.Event) (Envelope, error) {
	var lotID int
	switch e := ev.(type) {
	case domain.VehicleParkedEvent:
		lotID = e.LotID
	case domain.VehicleLeftEvent:
		lotID = e.LotID
	case domain.ChargingStartedEvent:
		lotID = e.LotID
	case domain.ChargingCompletedEvent:
		lotID = e.LotID
	default:
		return Envelope{}, fmt.Errorf("unsupported event type %T", ev)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", ev.EventName(), err)
	}
	return Envelope{
		Event:      ev.EventName(),
		LotID:      lotID,
		OccurredAt: ev.OccurredAt().UTC(),
		Data:       data,
	}, nil
}

// Multi fans events out to every publisher. A failing publisher does not
// stop the others; their errors are joined.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evs []domain.Event) error {
	if len(evs) == 0 {
		return nil
	}
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops everything.
type Nop struct{}

func (Nop) Publish(context.Context, []domain.Event) error { return nil }
