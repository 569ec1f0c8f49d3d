package reservation

import (
	"context"
	"fmt"
	"time"

	"randevu/internal/events"
	"randevu/internal/metrics"
	"randevu/internal/model"
)

// ValidateAndReserve validates a candidate and persists it as one atomic step with
// respect to every other writer. A rejection is returned as a result, not an error.
func (e *Engine) ValidateAndReserve(ctx context.Context, req Request) (model.ReservationResult, error) {
	c, err := e.newCandidate(req)
	if err != nil {
		return model.ReservationResult{}, err
	}
	settings := e.profiles.Get(c.Profile)

	if res, blocked := e.sameDay(c, settings); blocked {
		e.rejected(c, res)
		return model.ReservationResult{ValidationResult: res}, nil
	}

	var out model.ReservationResult
	date := c.DateString()
	err = e.gate.Do(ctx, e.key(date), func() error {
		res, err := e.validator.Validate(ctx, c, settings)
		if err != nil {
			return e.unavailable("validate", err)
		}
		out.ValidationResult = res
		if !res.Valid {
			return nil
		}

		r := e.newReservation(c, settings)
		version, err := e.store.Create(ctx, r)
		if err != nil {
			return e.unavailable("create", err)
		}
		out.Reservation = r
		out.DataVersion = version
		return nil
	})
	if err != nil {
		return model.ReservationResult{}, e.busy(date, err)
	}

	if !out.Valid {
		e.rejected(c, out.ValidationResult)
		return out, nil
	}
	e.committed(events.ReservationCreated, "create", out.Reservation, out.DataVersion)
	return out, nil
}

// ValidateAndUpdate re-validates an existing reservation with req applied, excluding the
// reservation itself from every count, and persists the change.
func (e *Engine) ValidateAndUpdate(ctx context.Context, id string, req Request) (model.ReservationResult, error) {
	if id == "" {
		return model.ReservationResult{}, badRequest("reservation id is required")
	}

	// The pre-read only resolves the gate key; the reservation is read again under the gate.
	existing, err := e.store.Get(ctx, id)
	if err != nil {
		return model.ReservationResult{}, e.storeError("get", id, err)
	}
	pre, err := e.mergeCandidate(existing, req)
	if err != nil {
		return model.ReservationResult{}, err
	}
	key := e.key(pre.DateString())

	var (
		out model.ReservationResult
		c   model.Candidate
	)
	err = e.gate.Do(ctx, key, func() error {
		current, err := e.store.Get(ctx, id)
		if err != nil {
			return e.storeError("get", id, err)
		}
		c, err = e.mergeCandidate(current, req)
		if err != nil {
			return err
		}
		if e.key(c.DateString()) != key {
			return fmt.Errorf("%w: reservation %s changed concurrently", ErrBusy, id)
		}
		settings := e.profiles.Get(c.Profile)

		if c.DateString() != current.Date {
			if res, blocked := e.sameDay(c, settings); blocked {
				out.ValidationResult = res
				return nil
			}
		}

		res, err := e.validator.Validate(ctx, c, settings)
		if err != nil {
			return e.unavailable("validate", err)
		}
		out.ValidationResult = res
		if !res.Valid {
			return nil
		}

		next := *current
		e.apply(&next, c, settings)
		version, err := e.store.Update(ctx, &next)
		if err != nil {
			return e.storeError("update", id, err)
		}
		out.Reservation = &next
		out.DataVersion = version
		return nil
	})
	if err != nil {
		return model.ReservationResult{}, e.busy(pre.DateString(), err)
	}

	if !out.Valid {
		e.rejected(c, out.ValidationResult)
		return out, nil
	}
	e.committed(events.ReservationUpdated, "update", out.Reservation, out.DataVersion)
	return out, nil
}

// AssignStaff moves a reservation to staffID, subject to that staff member's daily cap.
func (e *Engine) AssignStaff(ctx context.Context, id, staffID string) (model.ReservationResult, error) {
	if staffID == "" {
		return model.ReservationResult{}, badRequest("staff_id is required")
	}
	return e.ValidateAndUpdate(ctx, id, Request{StaffID: staffID})
}

// Delete removes a reservation under the gate and returns the new data version.
func (e *Engine) Delete(ctx context.Context, id string) (int64, error) {
	if id == "" {
		return 0, badRequest("reservation id is required")
	}

	existing, err := e.store.Get(ctx, id)
	if err != nil {
		return 0, e.storeError("get", id, err)
	}
	key := e.key(existing.Date)

	var (
		version int64
		deleted *model.Reservation
	)
	err = e.gate.Do(ctx, key, func() error {
		current, err := e.store.Get(ctx, id)
		if err != nil {
			return e.storeError("get", id, err)
		}
		if e.key(current.Date) != key {
			return fmt.Errorf("%w: reservation %s changed concurrently", ErrBusy, id)
		}
		v, err := e.store.Delete(ctx, id)
		if err != nil {
			return e.storeError("delete", id, err)
		}
		version = v
		deleted = current
		return nil
	})
	if err != nil {
		return 0, e.busy(existing.Date, err)
	}

	e.committed(events.ReservationDeleted, "delete", deleted, version)
	return version, nil
}

// sameDay rejects bookings for today when the profile does not allow them.
func (e *Engine) sameDay(c model.Candidate, settings model.ProfileSettings) (model.ValidationResult, bool) {
	if settings.SameDayBooking || c.Type == model.TypeManagement {
		return model.ValidationResult{}, false
	}
	if c.DateString() != e.now().In(e.loc).Format(model.DateLayout) {
		return model.ValidationResult{}, false
	}
	return model.Reject(model.CodeSameDayNotAllowed,
		fmt.Sprintf("same-day booking is not allowed for profile %s", c.Profile)), true
}

func (e *Engine) newReservation(c model.Candidate, settings model.ProfileSettings) *model.Reservation {
	now := e.now()
	r := &model.Reservation{
		ID:        e.newID(),
		Status:    model.StatusConfirmed,
		CreatedAt: now,
	}
	e.apply(r, c, settings)
	return r
}

func (e *Engine) apply(r *model.Reservation, c model.Candidate, settings model.ProfileSettings) {
	minutes := c.Duration
	if minutes == 0 {
		minutes = settings.Duration
	}
	if minutes == 0 {
		minutes = model.DefaultDuration
	}

	r.StartTime = c.StartTime()
	r.EndTime = r.StartTime.Add(time.Duration(minutes) * time.Minute)
	r.Date = c.DateString()
	r.StaffID = c.StaffID
	r.Type = c.Type
	r.Profile = c.Profile
	r.Customer = c.Customer
	r.UpdatedAt = e.now()
}

func (e *Engine) rejected(c model.Candidate, res model.ValidationResult) {
	metrics.IncValidation(false, string(res.Code))
	e.logger.Debug().
		Str("date", c.DateString()).
		Int("hour", c.Hour).
		Str("profile", string(c.Profile)).
		Str("type", string(c.Type)).
		Str("staff", c.StaffID).
		Str("code", string(res.Code)).
		Msg(res.Error)
}

func (e *Engine) committed(eventType, op string, r *model.Reservation, version int64) {
	if op != "delete" {
		metrics.IncValidation(true, "")
	}
	metrics.IncWrite(op)

	e.logger.Info().
		Str("reservation_id", r.ID).
		Str("date", r.Date).
		Int("hour", r.Hour(e.loc)).
		Str("profile", string(r.Profile)).
		Str("type", string(r.Type)).
		Str("staff", r.StaffID).
		Int64("version", version).
		Msgf("reservation %sd", op)

	if e.events == nil {
		return
	}
	err := e.events.PublishJSON(eventType, events.ReservationChanged{
		ReservationID: r.ID,
		Date:          r.Date,
		Hour:          r.Hour(e.loc),
		StaffID:       r.StaffID,
		Type:          string(r.Type),
		Profile:       string(r.Profile),
		DataVersion:   version,
	})
	if err != nil {
		e.logger.Error().Err(err).Str("event", eventType).Str("reservation_id", r.ID).Msg("publish event failed")
	}
}
