package validation

import (
	"context"
	"fmt"
	"time"

	"randevu/internal/model"
	"randevu/internal/slots"
)

// Validator evaluates a candidate against the booking rules in a fixed order and stops
// at the first failing rule. Only committed reservations are counted.
type Validator struct {
	universe *slots.Universe
	reader   slots.OccupancyReader
	loc      *time.Location
}

func New(universe *slots.Universe, reader slots.OccupancyReader, loc *time.Location) *Validator {
	return &Validator{universe: universe, reader: reader, loc: loc}
}

// Validate returns a rejection as a result value. The error is reserved for occupancy
// read failures, which callers must treat as retryable and never as admission.
func (v *Validator) Validate(ctx context.Context, c model.Candidate, p model.ProfileSettings) (model.ValidationResult, error) {
	if c.Type == model.TypeManagement {
		return model.Accept(), nil
	}

	if !v.universe.Contains(c.Hour) {
		return model.Reject(model.CodeInvalidHour,
			fmt.Sprintf("invalid hour %d: bookings are only possible between %s", c.Hour, v.universe.Describe())), nil
	}

	day := c.DateString()
	var tally *slots.Tally
	dayTally := func() (*slots.Tally, error) {
		if tally != nil {
			return tally, nil
		}
		list, err := v.reader.ListForDate(ctx, c.Date)
		if err != nil {
			return nil, fmt.Errorf("list reservations for %s: %w", day, err)
		}
		t := slots.Count(list, day, v.loc, c.ExcludeID)
		tally = &t
		return tally, nil
	}

	if p.MaxSlotAppointment > 0 {
		t, err := dayTally()
		if err != nil {
			return model.ValidationResult{}, err
		}
		if count := t.ByHour[c.Hour]; count >= p.MaxSlotAppointment {
			res := model.Reject(model.CodeSlotFull,
				fmt.Sprintf("slot full (%d/%d)", count, p.MaxSlotAppointment))
			res.SuggestAlternatives = true
			return res, nil
		}
	}

	if !c.Type.CountsTowardDailyCap() {
		return model.Accept(), nil
	}

	if p.MaxDailyDelivery > 0 {
		t, err := dayTally()
		if err != nil {
			return model.ValidationResult{}, err
		}
		if slots.CapReached(t.Delivery, p.MaxDailyDelivery) {
			res := model.Reject(model.CodeDailyLimit,
				fmt.Sprintf("daily delivery/shipping limit reached (max %d)", p.MaxDailyDelivery))
			res.IsDayMaxed = true
			return res, nil
		}
	}

	if c.StaffID != "" && p.MaxDailyPerStaff > 0 {
		list, err := v.reader.ListForDateAndStaff(ctx, c.Date, c.StaffID)
		if err != nil {
			return model.ValidationResult{}, fmt.Errorf("list reservations for %s staff %s: %w", day, c.StaffID, err)
		}
		t := slots.Count(list, day, v.loc, c.ExcludeID)
		if slots.CapReached(t.Delivery, p.MaxDailyPerStaff) {
			res := model.Reject(model.CodeStaffDailyLimit,
				fmt.Sprintf("staff daily delivery/shipping limit reached (max %d)", p.MaxDailyPerStaff))
			res.IsDayMaxed = true
			return res, nil
		}
	}

	return model.Accept(), nil
}
