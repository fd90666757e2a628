package appointment

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hackgods/dental-clinic-booking/internal/calendar"
)

// AvailableSlots returns the daily slots not held by an active appointment
// on date, in schedule order.
func (s *Service) AvailableSlots(ctx context.Context, date time.Time) ([]Slot, error) {
	ctx, span := tracer.Start(ctx, "appointment.available_slots")
	defer span.End()
	span.SetAttributes(attribute.String("dental.date", calendar.Format(date)))

	held, err := s.repo.HeldSlots(ctx, calendar.Day(date))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load held slots: %w", err)
	}
	return freeSlots(held), nil
}

// IsSlotFree reports whether no active appointment holds (date, slot).
// Appointments of excludingPatientID are ignored when it is non-empty.
func (s *Service) IsSlotFree(ctx context.Context, date time.Time, slot Slot, excludingPatientID string) (bool, error) {
	held, err := s.repo.IsSlotHeld(ctx, calendar.Day(date), slot, excludingPatientID)
	if err != nil {
		return false, fmt.Errorf("check slot availability: %w", err)
	}
	return !held, nil
}

func freeSlots(held []Slot) []Slot {
	taken := make(map[Slot]struct{}, len(held))
	for _, h := range held {
		taken[h] = struct{}{}
	}

	free := make([]Slot, 0, len(Slots))
	for _, slot := range Slots {
		if _, ok := taken[slot]; !ok {
			free = append(free, slot)
		}
	}
	return free
}
