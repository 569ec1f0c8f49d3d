package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func datetime(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestParseProfileCode(t *testing.T) {
	tests := []struct {
		in     string
		want   ProfileCode
		wantOK bool
	}{
		{"g", ProfileGeneral, true},
		{"#g", ProfileGeneral, true},
		{"#s/42", ProfileStaff, true},
		{"GENEL", ProfileGeneral, true},
		{"Günlük", ProfileDaily, true},
		{"gunluk", ProfileDaily, true},
		{"YÖNETİM", ProfileManagement, true},
		{"management", ProfileManagement, true},
		{"VIP", ProfileVIP, true},
		{"özel", ProfileVIP, true},
		{"  butik ", ProfileBoutique, true},
		{"personel", ProfileStaff, true},
		{"unknown", "", false},
		{"", "", false},
		{"#", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseProfileCode(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeProfileCode(t *testing.T) {
	assert.Equal(t, ProfileGeneral, NormalizeProfileCode("nope"))
	assert.Equal(t, ProfileGeneral, NormalizeProfileCode(""))
	assert.Equal(t, ProfileVIP, NormalizeProfileCode("#v/7"))
	for _, code := range ProfileCodes {
		assert.Equal(t, code, NormalizeProfileCode(string(code)))
		assert.True(t, code.Valid())
	}
	assert.False(t, ProfileCode("x").Valid())
}

func TestAppointmentType(t *testing.T) {
	typ, ok := ParseAppointmentType("shipping")
	assert.True(t, ok)
	assert.True(t, typ.CountsTowardDailyCap())
	assert.True(t, TypeDelivery.CountsTowardDailyCap())
	assert.False(t, TypeService.CountsTowardDailyCap())
	assert.False(t, TypeManagement.CountsTowardDailyCap())

	_, ok = ParseAppointmentType("walk-in")
	assert.False(t, ok)
}

func TestReservation_Times(t *testing.T) {
	r := Reservation{
		StartTime: datetime(2025, 2, 15, 12, 0),
		EndTime:   datetime(2025, 2, 15, 13, 0),
	}
	assert.Equal(t, time.Hour, r.Duration())

	ist := time.FixedZone("TRT", 3*60*60)
	assert.Equal(t, 15, r.Hour(ist))
	assert.Equal(t, 12, r.Hour(time.UTC))
}

func TestReservation_OverlapsWith(t *testing.T) {
	existing := Reservation{
		StartTime: datetime(2025, 2, 15, 11, 0),
		EndTime:   datetime(2025, 2, 15, 12, 0),
	}

	before := Reservation{StartTime: datetime(2025, 2, 15, 10, 0), EndTime: datetime(2025, 2, 15, 11, 0)}
	assert.False(t, existing.OverlapsWith(&before))

	after := Reservation{StartTime: datetime(2025, 2, 15, 12, 0), EndTime: datetime(2025, 2, 15, 13, 0)}
	assert.False(t, existing.OverlapsWith(&after))

	inner := Reservation{StartTime: datetime(2025, 2, 15, 11, 30), EndTime: datetime(2025, 2, 15, 11, 45)}
	assert.True(t, existing.OverlapsWith(&inner))
}

func TestReservation_IsActive(t *testing.T) {
	assert.True(t, (&Reservation{Status: StatusConfirmed}).IsActive())
	assert.False(t, (&Reservation{Status: StatusCancelled}).IsActive())
}

func TestCandidate_Validate(t *testing.T) {
	day := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	valid := func() Candidate {
		return Candidate{Date: day, Hour: 15, Type: TypeDelivery, Profile: ProfileGeneral}
	}

	tests := []struct {
		name    string
		mutate  func(c *Candidate)
		wantErr string
	}{
		{"ok", func(c *Candidate) {}, ""},
		{"hour outside universe is not a contract error", func(c *Candidate) { c.Hour = 21 }, ""},
		{"missing date", func(c *Candidate) { c.Date = time.Time{} }, "date is required"},
		{"negative hour", func(c *Candidate) { c.Hour = -1 }, "not a clock hour"},
		{"hour 24", func(c *Candidate) { c.Hour = 24 }, "not a clock hour"},
		{"unknown type", func(c *Candidate) { c.Type = "walk-in" }, "unknown appointment type"},
		{"short duration", func(c *Candidate) { c.Duration = 10 }, "duration must be between"},
		{"long duration", func(c *Candidate) { c.Duration = 300 }, "duration must be between"},
		{"long staff id", func(c *Candidate) { c.StaffID = strings.Repeat("x", 101) }, "staff_id exceeds"},
		{"long note", func(c *Candidate) { c.Customer.Note = strings.Repeat("n", 501) }, "note exceeds"},
		{"first long field wins", func(c *Candidate) {
			c.StaffID = strings.Repeat("x", 101)
			c.Customer.Email = strings.Repeat("e", 101)
		}, "staff_id exceeds"},
		{"name before phone", func(c *Candidate) {
			c.Customer.Phone = strings.Repeat("5", 101)
			c.Customer.Name = strings.Repeat("a", 101)
		}, "customer_name exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
			for i := 0; i < 20; i++ {
				assert.Equal(t, err.Error(), c.Validate().Error(), "stable error")
			}
		})
	}
}

func TestCandidate_StartTime(t *testing.T) {
	ist := time.FixedZone("TRT", 3*60*60)
	c := Candidate{Date: time.Date(2025, 2, 15, 0, 0, 0, 0, ist), Hour: 15}
	assert.Equal(t, time.Date(2025, 2, 15, 15, 0, 0, 0, ist), c.StartTime())
	assert.Equal(t, "2025-02-15", c.DateString())
}
