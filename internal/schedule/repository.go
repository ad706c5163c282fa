package schedule

import (
	"context"
	"errors"
)

var ErrOverrideNotFound = errors.New("availability override not found")

// Repository contains all DB interactions needed by the availability service.
type Repository interface {
	// Overrides for one doctor across an inclusive date range.
	ListOverrides(ctx context.Context, doctorID int64, startDate, endDate string) ([]Override, error)
	GetOverride(ctx context.Context, doctorID int64, date, slot string) (*Override, error)
	UpsertOverride(ctx context.Context, o Override) error

	// Non-cancelled appointments occupying slots in the range.
	ActiveBookings(ctx context.Context, doctorID int64, startDate, endDate string) ([]Booking, error)
}
