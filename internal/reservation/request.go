package reservation

import (
	"strings"
	"time"

	"randevu/internal/model"
)

// Request is the boundary form of a candidate. On update, zero fields keep the stored value.
type Request struct {
	Date     string `json:"date"`
	Hour     *int   `json:"hour"`
	Type     string `json:"appointment_type"`
	StaffID  string `json:"staff_id,omitempty"`
	Profile  string `json:"profile,omitempty"`
	Duration int    `json:"duration,omitempty"`
	model.Customer
}

func (e *Engine) parseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(raw), e.loc)
	if err != nil {
		return time.Time{}, badRequest("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return d, nil
}

func parseType(raw string) (model.AppointmentType, error) {
	t, ok := model.ParseAppointmentType(strings.ToLower(strings.TrimSpace(raw)))
	if !ok {
		return "", badRequest("unknown appointment type %q", raw)
	}
	return t, nil
}

// parseOptionalType allows an empty type, which availability treats as "any".
func parseOptionalType(raw string) (model.AppointmentType, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return parseType(raw)
}

// newCandidate turns a reservation request into a validated candidate.
func (e *Engine) newCandidate(req Request) (model.Candidate, error) {
	if req.Hour == nil {
		return model.Candidate{}, badRequest("hour is required")
	}
	if strings.TrimSpace(req.Type) == "" {
		return model.Candidate{}, badRequest("appointment_type is required")
	}
	return e.buildCandidate(req.Date, *req.Hour, req.Type, req.StaffID, req.Profile, req.Duration, req.Customer)
}

// mergeCandidate overlays req on an existing reservation.
func (e *Engine) mergeCandidate(existing *model.Reservation, req Request) (model.Candidate, error) {
	date := existing.Date
	if req.Date != "" {
		date = req.Date
	}
	hour := existing.Hour(e.loc)
	if req.Hour != nil {
		hour = *req.Hour
	}
	typ := string(existing.Type)
	if req.Type != "" {
		typ = req.Type
	}
	staff := existing.StaffID
	if req.StaffID != "" {
		staff = req.StaffID
	}
	profile := string(existing.Profile)
	if req.Profile != "" {
		profile = req.Profile
	}
	duration := int(existing.Duration() / time.Minute)
	if req.Duration != 0 {
		duration = req.Duration
	}

	customer := existing.Customer
	if req.Name != "" {
		customer.Name = req.Name
	}
	if req.Phone != "" {
		customer.Phone = req.Phone
	}
	if req.Email != "" {
		customer.Email = req.Email
	}
	if req.Note != "" {
		customer.Note = req.Note
	}

	c, err := e.buildCandidate(date, hour, typ, staff, profile, duration, customer)
	if err != nil {
		return c, err
	}
	c.ExcludeID = existing.ID
	return c, nil
}

func (e *Engine) buildCandidate(date string, hour int, typ, staff, profile string, duration int, customer model.Customer) (model.Candidate, error) {
	d, err := e.parseDate(date)
	if err != nil {
		return model.Candidate{}, err
	}
	t, err := parseType(typ)
	if err != nil {
		return model.Candidate{}, err
	}

	c := model.Candidate{
		Date:     d,
		Hour:     hour,
		Type:     t,
		StaffID:  strings.TrimSpace(staff),
		Profile:  model.NormalizeProfileCode(profile),
		Duration: duration,
		Customer: customer,
	}
	if err := c.Validate(); err != nil {
		return model.Candidate{}, badRequest("%s", err.Error())
	}
	return c, nil
}
