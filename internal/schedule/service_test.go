package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/hms-backend/internal/cache"
)

type fakeRepo struct {
	overrides map[lookupKey]Override
	bookings  []Booking
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{overrides: make(map[lookupKey]Override)}
}

func (f *fakeRepo) ListOverrides(_ context.Context, _ int64, startDate, endDate string) ([]Override, error) {
	var out []Override
	for k, o := range f.overrides {
		if k.date >= startDate && k.date <= endDate {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetOverride(_ context.Context, _ int64, date, slot string) (*Override, error) {
	o, ok := f.overrides[lookupKey{date, slot}]
	if !ok {
		return nil, ErrOverrideNotFound
	}
	return &o, nil
}

func (f *fakeRepo) UpsertOverride(_ context.Context, o Override) error {
	f.overrides[lookupKey{o.Date, o.TimeSlot}] = o
	return nil
}

func (f *fakeRepo) ActiveBookings(_ context.Context, _ int64, startDate, endDate string) ([]Booking, error) {
	var out []Booking
	for _, b := range f.bookings {
		if b.Date >= startDate && b.Date <= endDate {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeInvalidator struct {
	mutations []cache.Mutation
}

func (f *fakeInvalidator) Invalidate(_ context.Context, m cache.Mutation) {
	f.mutations = append(f.mutations, m)
}

var testGrid = NewGrid([]string{"09:00", "09:30", "10:00"})

func newTestService(repo *fakeRepo) (*Service, *fakeInvalidator) {
	inv := &fakeInvalidator{}
	return NewService(repo, testGrid, inv), inv
}

func TestResolveRangeDefaultsAvailable(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())

	days, err := svc.ResolveRange(context.Background(), 1, "2026-09-07", 2)
	require.NoError(t, err)
	require.Len(t, days, 2)

	assert.Equal(t, "2026-09-07", days[0].Date)
	assert.Equal(t, "2026-09-08", days[1].Date)
	for _, day := range days {
		require.Len(t, day.Slots, testGrid.Len())
		for _, s := range day.Slots {
			assert.True(t, s.IsAvailable)
			assert.Nil(t, s.BookingStatus)
		}
	}
}

func TestResolveRangeAppliesOverride(t *testing.T) {
	repo := newFakeRepo()
	repo.overrides[lookupKey{"2026-09-07", "09:30"}] = Override{
		DoctorID: 1, Date: "2026-09-07", TimeSlot: "09:30", IsAvailable: false,
	}
	svc, _ := newTestService(repo)

	days, err := svc.ResolveRange(context.Background(), 1, "2026-09-07", 1)
	require.NoError(t, err)

	slots := days[0].Slots
	assert.True(t, slots[0].IsAvailable)
	assert.False(t, slots[1].IsAvailable)
	assert.True(t, slots[2].IsAvailable)
}

func TestResolveRangeBookingBesideOverride(t *testing.T) {
	repo := newFakeRepo()
	// the doctor freed the slot but an appointment still sits on it
	repo.overrides[lookupKey{"2026-09-07", "09:00"}] = Override{
		DoctorID: 1, Date: "2026-09-07", TimeSlot: "09:00", IsAvailable: true,
	}
	repo.bookings = []Booking{{Date: "2026-09-07", TimeSlot: "09:00", Status: "BOOKED"}}
	svc, _ := newTestService(repo)

	days, err := svc.ResolveRange(context.Background(), 1, "2026-09-07", 1)
	require.NoError(t, err)

	slot := days[0].Slots[0]
	assert.True(t, slot.IsAvailable)
	require.NotNil(t, slot.BookingStatus)
	assert.Equal(t, "BOOKED", *slot.BookingStatus)
}

func TestPatientSlotsCollapse(t *testing.T) {
	date := AddDays(Today(), 1)
	repo := newFakeRepo()
	repo.overrides[lookupKey{date, "09:30"}] = Override{
		DoctorID: 1, Date: date, TimeSlot: "09:30", IsAvailable: false,
	}
	repo.bookings = []Booking{{Date: date, TimeSlot: "10:00", Status: "COMPLETED"}}
	svc, _ := newTestService(repo)

	slots, err := svc.PatientSlots(context.Background(), 1, date)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	assert.Equal(t, PatientSlot{Time: "09:00", Status: "free"}, slots[0])
	assert.Equal(t, PatientSlot{Time: "09:30", Status: "booked"}, slots[1])
	assert.Equal(t, PatientSlot{Time: "10:00", Status: "booked"}, slots[2])
}

func TestPatientSlotsCancelledFreesSlot(t *testing.T) {
	// cancelled appointments never reach the resolver, the repository filters
	// them; an empty booking list therefore reads as free
	date := AddDays(Today(), 1)
	svc, _ := newTestService(newFakeRepo())

	slots, err := svc.PatientSlots(context.Background(), 1, date)
	require.NoError(t, err)
	for _, s := range slots {
		assert.Equal(t, "free", s.Status)
	}
}

func TestPatientSlotsStrictDate(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())

	_, err := svc.PatientSlots(context.Background(), 1, "not-a-date")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = svc.PatientSlots(context.Background(), 1, "2020-01-01")
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestWeekScheduleLenientDate(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())

	days, err := svc.WeekSchedule(context.Background(), 1, "garbage")
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, Today(), days[0].Date)
}

func TestUpdateBulk(t *testing.T) {
	repo := newFakeRepo()
	svc, inv := newTestService(repo)

	updates := []SlotUpdate{
		{TimeSlot: "09:00", IsAvailable: false},
		{TimeSlot: "23:00", IsAvailable: false}, // not on the grid, skipped
		{TimeSlot: "10:00", IsAvailable: true},
	}
	require.NoError(t, svc.UpdateBulk(context.Background(), 1, "2026-09-07", updates))

	assert.Len(t, repo.overrides, 2)
	assert.False(t, repo.overrides[lookupKey{"2026-09-07", "09:00"}].IsAvailable)
	assert.True(t, repo.overrides[lookupKey{"2026-09-07", "10:00"}].IsAvailable)
	assert.Equal(t, []cache.Mutation{cache.MutationAvailability}, inv.mutations)

	// idempotent re-apply
	require.NoError(t, svc.UpdateBulk(context.Background(), 1, "2026-09-07", updates))
	assert.Len(t, repo.overrides, 2)
}

func TestUpdateBulkValidation(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())

	err := svc.UpdateBulk(context.Background(), 1, "bad-date", []SlotUpdate{{TimeSlot: "09:00"}})
	assert.ErrorIs(t, err, ErrInvalidDate)

	err = svc.UpdateBulk(context.Background(), 1, "2026-09-07", nil)
	assert.ErrorIs(t, err, ErrNoSlots)
}

func TestToggle(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	// no override yet: toggling closes the slot
	got, err := svc.Toggle(ctx, 1, "2026-09-07", "09:00", nil)
	require.NoError(t, err)
	assert.False(t, got)

	// toggling again flips it back
	got, err = svc.Toggle(ctx, 1, "2026-09-07", "09:00", nil)
	require.NoError(t, err)
	assert.True(t, got)

	// explicit value wins over the flip
	open := true
	got, err = svc.Toggle(ctx, 1, "2026-09-07", "09:00", &open)
	require.NoError(t, err)
	assert.True(t, got)

	_, err = svc.Toggle(ctx, 1, "2026-09-07", "13:00", nil)
	assert.ErrorIs(t, err, ErrUnknownSlot)
}
