package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/careloop/hms-backend/internal/cache"
)

var (
	ErrUnknownSlot = errors.New("time slot is not on the schedule grid")
	ErrPastDate    = errors.New("date cannot be in the past")
	ErrNoSlots     = errors.New("slots must be a non-empty list")
)

// Invalidator is the cache side-channel every availability mutation feeds.
type Invalidator interface {
	Invalidate(ctx context.Context, m cache.Mutation)
}

// Service resolves effective slot availability and applies doctor overrides.
type Service struct {
	repo Repository
	grid Grid
	inv  Invalidator
}

func NewService(repo Repository, grid Grid, inv Invalidator) *Service {
	return &Service{repo: repo, grid: grid, inv: inv}
}

// Grid exposes the injected slot grid for callers that validate input
// against it.
func (s *Service) Grid() Grid {
	return s.grid
}

type lookupKey struct {
	date string
	slot string
}

// ResolveRange layers non-cancelled appointments over availability overrides
// over the default (available) for every grid slot of every date in
// [startDate, startDate+days). Appointment presence and the override flag are
// reported as separate fields: an override cannot free a slot that is
// actually booked.
func (s *Service) ResolveRange(ctx context.Context, doctorID int64, startDate string, days int) ([]DaySchedule, error) {
	if days < 1 {
		days = 1
	}
	endDate := AddDays(startDate, days-1)

	overrides, err := s.repo.ListOverrides(ctx, doctorID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("load availability overrides: %w", err)
	}
	overrideMap := make(map[lookupKey]bool, len(overrides))
	for _, o := range overrides {
		overrideMap[lookupKey{o.Date, o.TimeSlot}] = o.IsAvailable
	}

	bookings, err := s.repo.ActiveBookings(ctx, doctorID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	bookingMap := make(map[lookupKey]string, len(bookings))
	for _, b := range bookings {
		bookingMap[lookupKey{b.Date, b.TimeSlot}] = b.Status
	}

	result := make([]DaySchedule, 0, days)
	for i := 0; i < days; i++ {
		date := AddDays(startDate, i)
		day := DaySchedule{Date: date, Slots: make([]SlotState, 0, s.grid.Len())}

		for _, slot := range s.grid.Slots() {
			state := SlotState{TimeSlot: slot, IsAvailable: true}
			if v, ok := overrideMap[lookupKey{date, slot}]; ok {
				state.IsAvailable = v
			}
			if status, ok := bookingMap[lookupKey{date, slot}]; ok {
				st := status
				state.BookingStatus = &st
			}
			day.Slots = append(day.Slots, state)
		}

		result = append(result, day)
	}

	return result, nil
}

// WeekSchedule resolves a 7-day window for the doctor's own availability
// view. A malformed or missing start date falls back to today: this read path
// degrades gracefully where write paths fail loudly.
func (s *Service) WeekSchedule(ctx context.Context, doctorID int64, rawStartDate string) ([]DaySchedule, error) {
	startDate, err := ParseDate(rawStartDate)
	if err != nil {
		startDate = Today()
	}
	return s.ResolveRange(ctx, doctorID, startDate, 7)
}

// PatientSlots collapses one resolved day into free/booked labels for the
// booking form. A slot is booked when a non-cancelled appointment occupies it
// or an override marks it unavailable, appointment presence taking
// precedence. The date is validated strictly because it feeds a write.
func (s *Service) PatientSlots(ctx context.Context, doctorID int64, rawDate string) ([]PatientSlot, error) {
	date, err := ParseDate(rawDate)
	if err != nil {
		return nil, err
	}
	if BeforeToday(date) {
		return nil, ErrPastDate
	}

	days, err := s.ResolveRange(ctx, doctorID, date, 1)
	if err != nil {
		return nil, err
	}

	slots := make([]PatientSlot, 0, s.grid.Len())
	for _, state := range days[0].Slots {
		status := "free"
		if state.BookingStatus != nil || !state.IsAvailable {
			status = "booked"
		}
		slots = append(slots, PatientSlot{Time: state.TimeSlot, Status: status})
	}
	return slots, nil
}

// UpdateBulk upserts overrides for one (doctor, date). Entries naming slots
// outside the grid are skipped, matching the tolerant bulk contract.
// Re-applying the same update is idempotent.
func (s *Service) UpdateBulk(ctx context.Context, doctorID int64, rawDate string, updates []SlotUpdate) error {
	date, err := ParseDate(rawDate)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return ErrNoSlots
	}

	for _, u := range updates {
		if !s.grid.Contains(u.TimeSlot) {
			continue
		}
		o := Override{
			DoctorID:    doctorID,
			Date:        date,
			TimeSlot:    u.TimeSlot,
			IsAvailable: u.IsAvailable,
		}
		if err := s.repo.UpsertOverride(ctx, o); err != nil {
			return fmt.Errorf("upsert override %s %s: %w", date, u.TimeSlot, err)
		}
	}

	s.inv.Invalidate(ctx, cache.MutationAvailability)
	return nil
}

// Toggle flips or sets one slot's availability. With no explicit value, an
// existing override is inverted and a missing one is created unavailable
// (toggling an untouched slot means closing it).
func (s *Service) Toggle(ctx context.Context, doctorID int64, rawDate, slot string, explicit *bool) (bool, error) {
	date, err := ParseDate(rawDate)
	if err != nil {
		return false, err
	}
	if !s.grid.Contains(slot) {
		return false, ErrUnknownSlot
	}

	var newValue bool
	existing, err := s.repo.GetOverride(ctx, doctorID, date, slot)
	switch {
	case err == nil:
		if explicit != nil {
			newValue = *explicit
		} else {
			newValue = !existing.IsAvailable
		}
	case errors.Is(err, ErrOverrideNotFound):
		if explicit != nil {
			newValue = *explicit
		} else {
			newValue = false
		}
	default:
		return false, fmt.Errorf("load override: %w", err)
	}

	o := Override{
		DoctorID:    doctorID,
		Date:        date,
		TimeSlot:    slot,
		IsAvailable: newValue,
	}
	if err := s.repo.UpsertOverride(ctx, o); err != nil {
		return false, fmt.Errorf("upsert override: %w", err)
	}

	s.inv.Invalidate(ctx, cache.MutationAvailability)
	return newValue, nil
}
