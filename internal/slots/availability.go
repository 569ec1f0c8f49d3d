package slots

import (
	"context"
	"fmt"
	"time"

	"randevu/internal/model"
)

// OccupancyReader returns non-cancelled reservations intersecting a calendar day.
type OccupancyReader interface {
	ListForDate(ctx context.Context, date time.Time) ([]model.Reservation, error)
	ListForDateAndStaff(ctx context.Context, date time.Time, staffID string) ([]model.Reservation, error)
}

// Tally holds per-day counts derived from one occupancy read.
type Tally struct {
	ByHour   map[int]int
	Delivery int
}

// Count buckets active reservations that start on day by start hour. The reservation
// matching excludeID is skipped so that an edit does not count against itself.
func Count(reservations []model.Reservation, day string, loc *time.Location, excludeID string) Tally {
	t := Tally{ByHour: make(map[int]int)}
	for i := range reservations {
		r := &reservations[i]
		if !r.IsActive() || (excludeID != "" && r.ID == excludeID) {
			continue
		}
		start := r.StartTime.In(loc)
		if start.Format(model.DateLayout) != day {
			continue
		}
		t.ByHour[start.Hour()]++
		if r.Type.CountsTowardDailyCap() {
			t.Delivery++
		}
	}
	return t
}

// Calculator classifies every slot of a day in a single pass over one occupancy read.
type Calculator struct {
	universe *Universe
	reader   OccupancyReader
	loc      *time.Location
}

func NewCalculator(universe *Universe, reader OccupancyReader, loc *time.Location) *Calculator {
	return &Calculator{universe: universe, reader: reader, loc: loc}
}

// Compute builds the day view. On a read failure it returns a fail-safe view with every
// slot occupied together with the error, so callers never over-book on stale data.
func (c *Calculator) Compute(ctx context.Context, date time.Time, settings model.ProfileSettings, typ model.AppointmentType) (model.DayAvailability, error) {
	day := date.In(c.loc).Format(model.DateLayout)
	out := model.DayAvailability{
		Date:      day,
		Available: []int{},
		Occupied:  []int{},
	}

	reservations, err := c.reader.ListForDate(ctx, date)
	if err != nil {
		out.Occupied = c.universe.Hours()
		out.IsDeliveryMaxed = true
		out.Degraded = true
		return out, fmt.Errorf("list reservations for %s: %w", day, err)
	}

	tally := Count(reservations, day, c.loc, "")
	out.DeliveryCount = tally.Delivery

	// Management bypasses capacity, so every slot stays open for it.
	bypass := typ == model.TypeManagement
	for _, h := range c.universe.Hours() {
		if bypass || IsSlotOpen(tally.ByHour[h], settings.MaxSlotAppointment) {
			out.Available = append(out.Available, h)
		} else {
			out.Occupied = append(out.Occupied, h)
		}
	}

	if typ == "" || typ.CountsTowardDailyCap() {
		out.IsDeliveryMaxed = CapReached(tally.Delivery, settings.MaxDailyDelivery)
	}

	return out, nil
}

// IsSlotOpen applies the zero-means-unlimited rule to a slot count.
func IsSlotOpen(count, capacity int) bool {
	return capacity == 0 || count < capacity
}

// CapReached reports whether a bounded cap is exhausted. A zero cap is never reached.
func CapReached(count, capacity int) bool {
	return capacity > 0 && count >= capacity
}
