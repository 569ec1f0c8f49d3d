package validation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"randevu/internal/model"
	"randevu/internal/slots"
)

var ist = time.FixedZone("TRT", 3*60*60)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) ListForDate(ctx context.Context, date time.Time) ([]model.Reservation, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reservation), args.Error(1)
}

func (m *mockReader) ListForDateAndStaff(ctx context.Context, date time.Time, staffID string) ([]model.Reservation, error) {
	args := m.Called(ctx, date, staffID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reservation), args.Error(1)
}

func universe() *slots.Universe {
	return slots.NewUniverse([]int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, nil)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, ist)
}

func existing(id string, d time.Time, hour int, typ model.AppointmentType, staff string) model.Reservation {
	start := time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, ist)
	return model.Reservation{
		ID:        id,
		Date:      start.Format(model.DateLayout),
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		StaffID:   staff,
		Type:      typ,
		Status:    model.StatusConfirmed,
	}
}

func deliveries(d time.Time, n int, typ model.AppointmentType, staff string) []model.Reservation {
	out := make([]model.Reservation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, existing(fmt.Sprintf("%s-%d", typ, i), d, 11+i, typ, staff))
	}
	return out
}

func TestValidate_SlotCapacity(t *testing.T) {
	ctx := context.Background()
	d := date(2025, 2, 15)
	settings := model.ProfileSettings{MaxSlotAppointment: 1}
	candidate := model.Candidate{Date: d, Hour: 15, Type: model.TypeService, Profile: model.ProfileGeneral}

	t.Run("EmptySlotIsValid", func(t *testing.T) {
		reader := new(mockReader)
		reader.On("ListForDate", ctx, d).Return([]model.Reservation{}, nil).Once()

		res, err := New(universe(), reader, ist).Validate(ctx, candidate, settings)
		require.NoError(t, err)
		assert.True(t, res.Valid)
		reader.AssertExpectations(t)
	})

	t.Run("SecondCandidateIsRejected", func(t *testing.T) {
		reader := new(mockReader)
		reader.On("ListForDate", ctx, d).Return([]model.Reservation{
			existing("r1", d, 15, model.TypeService, ""),
		}, nil).Once()

		res, err := New(universe(), reader, ist).Validate(ctx, candidate, settings)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Equal(t, model.CodeSlotFull, res.Code)
		assert.Contains(t, res.Error, "slot full (1/1)")
		assert.True(t, res.SuggestAlternatives)
		assert.False(t, res.IsDayMaxed)
	})

	t.Run("EditExcludesOwnReservation", func(t *testing.T) {
		reader := new(mockReader)
		reader.On("ListForDate", ctx, d).Return([]model.Reservation{
			existing("r1", d, 15, model.TypeService, ""),
		}, nil).Once()

		edit := candidate
		edit.ExcludeID = "r1"
		res, err := New(universe(), reader, ist).Validate(ctx, edit, settings)
		require.NoError(t, err)
		assert.True(t, res.Valid)
	})

	t.Run("UnlimitedCapacitySkipsRead", func(t *testing.T) {
		reader := new(mockReader)

		res, err := New(universe(), reader, ist).Validate(ctx, candidate, model.ProfileSettings{})
		require.NoError(t, err)
		assert.True(t, res.Valid)
		reader.AssertNotCalled(t, "ListForDate", mock.Anything, mock.Anything)
	})
}

func TestValidate_DailyDeliveryCap(t *testing.T) {
	ctx := context.Background()
	d := date(2025, 2, 15)
	settings := model.ProfileSettings{MaxSlotAppointment: 1, MaxDailyDelivery: 3}

	reader := new(mockReader)
	reader.On("ListForDate", ctx, d).Return(deliveries(d, 3, model.TypeDelivery, ""), nil)
	v := New(universe(), reader, ist)

	res, err := v.Validate(ctx, model.Candidate{Date: d, Hour: 15, Type: model.TypeDelivery}, settings)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, model.CodeDailyLimit, res.Code)
	assert.True(t, res.IsDayMaxed)

	res, err = v.Validate(ctx, model.Candidate{Date: d, Hour: 15, Type: model.TypeService}, settings)
	require.NoError(t, err)
	assert.True(t, res.Valid, "service is not limited by the delivery cap")

	res, err = v.Validate(ctx, model.Candidate{Date: d, Hour: 15, Type: model.TypeShipping, ExcludeID: "delivery-0"}, settings)
	require.NoError(t, err)
	assert.True(t, res.Valid, "edit of an existing delivery does not count itself")
}

func TestValidate_PerStaffCap(t *testing.T) {
	ctx := context.Background()
	d := date(2025, 2, 20)
	settings := model.ProfileSettings{MaxSlotAppointment: 1, MaxDailyDelivery: 10, MaxDailyPerStaff: 2}
	s1 := deliveries(d, 2, model.TypeShipping, "S1")

	reader := new(mockReader)
	reader.On("ListForDate", ctx, d).Return(s1, nil)
	reader.On("ListForDateAndStaff", ctx, d, "S1").Return(s1, nil)
	reader.On("ListForDateAndStaff", ctx, d, "S2").Return([]model.Reservation{}, nil)
	v := New(universe(), reader, ist)

	res, err := v.Validate(ctx, model.Candidate{Date: d, Hour: 15, Type: model.TypeShipping, StaffID: "S1"}, settings)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, model.CodeStaffDailyLimit, res.Code)
	assert.True(t, res.IsDayMaxed)

	res, err = v.Validate(ctx, model.Candidate{Date: d, Hour: 15, Type: model.TypeShipping, StaffID: "S2"}, settings)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = v.Validate(ctx, model.Candidate{Date: d, Hour: 15, Type: model.TypeShipping}, settings)
	require.NoError(t, err)
	assert.True(t, res.Valid, "no staff means no per-staff rule")
}

func TestValidate_InvalidHour(t *testing.T) {
	reader := new(mockReader)
	v := New(universe(), reader, ist)

	res, err := v.Validate(context.Background(), model.Candidate{Date: date(2025, 2, 15), Hour: 21, Type: model.TypeService},
		model.ProfileSettings{})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, model.CodeInvalidHour, res.Code)
	assert.Contains(t, res.Error, "invalid hour")
	assert.Contains(t, res.Error, "11:00-20:00")
	reader.AssertNotCalled(t, "ListForDate", mock.Anything, mock.Anything)
}

func TestValidate_ManagementBypass(t *testing.T) {
	reader := new(mockReader)
	v := New(universe(), reader, ist)

	settings := model.ProfileSettings{MaxSlotAppointment: 1, MaxDailyDelivery: 1, MaxDailyPerStaff: 1}
	for _, hour := range []int{15, 21, 8} {
		res, err := v.Validate(context.Background(),
			model.Candidate{Date: date(2025, 2, 15), Hour: hour, Type: model.TypeManagement, StaffID: "S1"}, settings)
		require.NoError(t, err)
		assert.True(t, res.Valid)
	}
	reader.AssertNotCalled(t, "ListForDate", mock.Anything, mock.Anything)
}

func TestValidate_RuleOrder(t *testing.T) {
	ctx := context.Background()
	d := date(2025, 2, 15)

	// Slot full and day maxed at once: the slot rule is reported first.
	list := append(deliveries(d, 3, model.TypeDelivery, "S1"), existing("x", d, 15, model.TypeDelivery, "S1"))
	reader := new(mockReader)
	reader.On("ListForDate", ctx, d).Return(list, nil).Once()

	res, err := New(universe(), reader, ist).Validate(ctx,
		model.Candidate{Date: d, Hour: 15, Type: model.TypeDelivery, StaffID: "S1"},
		model.ProfileSettings{MaxSlotAppointment: 1, MaxDailyDelivery: 3, MaxDailyPerStaff: 1})
	require.NoError(t, err)
	assert.Equal(t, model.CodeSlotFull, res.Code)
	reader.AssertExpectations(t)
}

func TestValidate_ZeroCapsNeverReject(t *testing.T) {
	ctx := context.Background()
	d := date(2025, 2, 15)
	crowded := append(deliveries(d, 10, model.TypeDelivery, "S1"), deliveries(d, 10, model.TypeShipping, "S1")...)

	reader := new(mockReader)
	reader.On("ListForDate", ctx, d).Return(crowded, nil).Maybe()
	reader.On("ListForDateAndStaff", ctx, d, "S1").Return(crowded, nil).Maybe()

	res, err := New(universe(), reader, ist).Validate(ctx,
		model.Candidate{Date: d, Hour: 11, Type: model.TypeDelivery, StaffID: "S1"}, model.ProfileSettings{})
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestValidate_ReadFailureIsAnError(t *testing.T) {
	ctx := context.Background()
	d := date(2025, 2, 15)

	reader := new(mockReader)
	reader.On("ListForDate", ctx, d).Return(nil, errors.New("database is locked")).Once()

	res, err := New(universe(), reader, ist).Validate(ctx,
		model.Candidate{Date: d, Hour: 15, Type: model.TypeService}, model.ProfileSettings{MaxSlotAppointment: 1})
	require.Error(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, err.Error(), "2025-02-15")

	staffReader := new(mockReader)
	staffReader.On("ListForDateAndStaff", ctx, d, "S1").Return(nil, errors.New("timeout")).Once()
	_, err = New(universe(), staffReader, ist).Validate(ctx,
		model.Candidate{Date: d, Hour: 15, Type: model.TypeDelivery, StaffID: "S1"}, model.ProfileSettings{MaxDailyPerStaff: 1})
	require.Error(t, err)
}
