package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/dental-clinic-booking/internal/apperr"
	"github.com/hackgods/dental-clinic-booking/internal/appointment"
	"github.com/hackgods/dental-clinic-booking/internal/patient"
)

func TestAvailableSlotsRequiresDate(t *testing.T) {
	h := newTestRouter(nil, nil)

	rec := do(t, h, http.MethodGet, "/api/appointments/available-slots", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Date parameter is required", decode[ErrorResponse](t, rec).Error)

	rec = do(t, h, http.MethodGet, "/api/appointments/available-slots?date=15/10/2026", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailableSlots(t *testing.T) {
	var gotDate time.Time
	appts := &stubAppointments{
		availableSlots: func(_ context.Context, date time.Time) ([]appointment.Slot, error) {
			gotDate = date
			return []appointment.Slot{appointment.Slot0900, appointment.Slot1700}, nil
		},
	}
	h := newTestRouter(appts, nil)

	rec := do(t, h, http.MethodGet, "/api/appointments/available-slots?date=2026-10-15", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[AvailableSlotsResponse](t, rec)
	assert.Equal(t, "2026-10-15", resp.Date)
	assert.Equal(t, []string{"09:00", "17:00"}, resp.AvailableSlots)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), gotDate)
}

func TestCheckAvailability(t *testing.T) {
	var gotExcluding string
	appts := &stubAppointments{
		isSlotFree: func(_ context.Context, _ time.Time, slot appointment.Slot, excluding string) (bool, error) {
			gotExcluding = excluding
			return slot != appointment.Slot1000, nil
		},
	}
	h := newTestRouter(appts, nil)

	rec := do(t, h, http.MethodGet, "/api/appointments/check-availability?date=2026-10-15", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Date and time parameters are required", decode[ErrorResponse](t, rec).Error)

	rec = do(t, h, http.MethodGet, "/api/appointments/check-availability?date=2026-10-15&time=13:00", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/appointments/check-availability?date=2026-10-15&time=10:00&patientId=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidPatientID, decode[ErrorResponse](t, rec).Error)

	rec = do(t, h, http.MethodGet, "/api/appointments/check-availability?date=2026-10-15&time=10:00&patientId=652F1C9E8B3A4D0087654321", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AvailabilityResponse](t, rec)
	assert.False(t, resp.Available)
	assert.Equal(t, "10:00", resp.Time)
	assert.Equal(t, testPatientID, gotExcluding)

	rec = do(t, h, http.MethodGet, "/api/appointments/check-availability?date=2026-10-15&time=11:00", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[AvailabilityResponse](t, rec).Available)
	assert.Empty(t, gotExcluding)
}

func TestCreateAppointment(t *testing.T) {
	var got appointment.BookRequest
	appts := &stubAppointments{
		book: func(_ context.Context, req appointment.BookRequest) (*appointment.Appointment, error) {
			got = req
			return sampleAppointment(), nil
		},
	}
	h := newTestRouter(appts, nil)

	body := `{"patientName":"Jane Roe","patientEmail":"jane@example.com","patientPhone":"+15551234567",
		"date":"2026-10-15","time":"14:00","service":"cleaning","duration":45}`
	rec := do(t, h, http.MethodPost, "/api/appointments", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[AppointmentResponse](t, rec)
	assert.Equal(t, testApptID, resp.ID)
	assert.Equal(t, testPatientID, resp.PatientID)
	assert.Equal(t, "2026-10-15", resp.Date)
	assert.Equal(t, "2:00 PM", resp.FormattedTime)
	assert.Equal(t, "Dr. Smith", resp.Dentist)
	assert.Nil(t, resp.CancelledAt)

	assert.Equal(t, appointment.Slot1400, got.Time)
	assert.Equal(t, appointment.ServiceCleaning, got.Service)
	require.NotNil(t, got.Duration)
	assert.Equal(t, 45, *got.Duration)
}

func TestCreateAppointmentErrors(t *testing.T) {
	ve := &apperr.ValidationError{}
	ve.Add("time", "Invalid time slot. Please select from available slots")
	ve.Add("service", "Invalid service type")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{"slot taken", appointment.ErrSlotUnavailable, http.StatusConflict, "conflict", "Selected time slot is not available"},
		{"duplicate", appointment.ErrDuplicateAppointment, http.StatusConflict, "conflict", "Duplicate appointment detected"},
		{"validation", ve, http.StatusBadRequest, "validation_error",
			"Invalid time slot. Please select from available slots, Invalid service type"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "internal_error", "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appts := &stubAppointments{
				book: func(context.Context, appointment.BookRequest) (*appointment.Appointment, error) {
					return nil, tt.err
				},
			}
			rec := do(t, newTestRouter(appts, nil), http.MethodPost, "/api/appointments", `{}`)
			assert.Equal(t, tt.wantStatus, rec.Code)

			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestCreateAppointmentFieldsListed(t *testing.T) {
	ve := &apperr.ValidationError{}
	ve.Add("time", "Invalid time slot. Please select from available slots")
	ve.Add("service", "Invalid service type")
	appts := &stubAppointments{
		book: func(context.Context, appointment.BookRequest) (*appointment.Appointment, error) {
			return nil, ve
		},
	}

	rec := do(t, newTestRouter(appts, nil), http.MethodPost, "/api/appointments", `{"time":"13:00"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode[ErrorResponse](t, rec).Fields, 2)
}

func TestCreateAppointmentBadJSON(t *testing.T) {
	rec := do(t, newTestRouter(nil, nil), http.MethodPost, "/api/appointments", `{"date":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_body", decode[ErrorResponse](t, rec).Code)
}

func TestMalformedAppointmentIDRejectedBeforeLookup(t *testing.T) {
	called := false
	appts := &stubAppointments{
		get: func(context.Context, string) (*appointment.AppointmentDetail, error) {
			called = true
			return nil, appointment.ErrAppointmentNotFound
		},
	}
	h := newTestRouter(appts, nil)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/appointments/123", ""},
		{http.MethodPut, "/api/appointments/zzzz1c9e8b3a4d0012345678", `{}`},
		{http.MethodDelete, "/api/appointments/123", ""},
		{http.MethodPost, "/api/appointments/123/cancel", ""},
		{http.MethodPost, "/api/appointments/123/reschedule", `{"date":"2026-10-16","time":"09:00"}`},
	} {
		rec := do(t, h, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.path)
		assert.Equal(t, msgInvalidAppointmentID, decode[ErrorResponse](t, rec).Error)
	}
	assert.False(t, called)
}

func TestGetAppointmentIncludesPatient(t *testing.T) {
	appts := &stubAppointments{
		get: func(_ context.Context, id string) (*appointment.AppointmentDetail, error) {
			if id != testApptID {
				return nil, appointment.ErrAppointmentNotFound
			}
			return &appointment.AppointmentDetail{Appointment: *sampleAppointment(), Patient: samplePatient()}, nil
		},
	}
	h := newTestRouter(appts, nil)

	rec := do(t, h, http.MethodGet, "/api/appointments/"+testApptID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[AppointmentDetailResponse](t, rec)
	assert.Equal(t, testApptID, resp.ID)
	require.NotNil(t, resp.Patient)
	assert.Equal(t, testPatientID, resp.Patient.ID)
	require.NotNil(t, resp.Patient.Age)
	assert.Equal(t, 36, *resp.Patient.Age)

	rec = do(t, h, http.MethodGet, "/api/appointments/652f1c9e8b3a4d00ffffffff", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Appointment not found", decode[ErrorResponse](t, rec).Error)
}

func TestCancelAppointment(t *testing.T) {
	var gotReason string
	appts := &stubAppointments{
		cancel: func(_ context.Context, _ string, reason string) (*appointment.Appointment, error) {
			gotReason = reason
			a := sampleAppointment()
			a.Status = appointment.StatusCancelled
			return a, nil
		},
	}
	h := newTestRouter(appts, nil)

	rec := do(t, h, http.MethodPost, "/api/appointments/"+testApptID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Appointment cancelled successfully", decode[MessageResponse](t, rec).Message)
	assert.Empty(t, gotReason)

	rec = do(t, h, http.MethodPost, "/api/appointments/"+testApptID+"/cancel", `{"reason":"Feeling better"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Feeling better", gotReason)
}

func TestDeleteAppointmentNotFound(t *testing.T) {
	appts := &stubAppointments{
		remove: func(context.Context, string) (*appointment.Appointment, error) {
			return nil, appointment.ErrAppointmentNotFound
		},
	}

	rec := do(t, newTestRouter(appts, nil), http.MethodDelete, "/api/appointments/"+testApptID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rec).Code)
}

func TestRescheduleAppointment(t *testing.T) {
	var got appointment.RescheduleRequest
	appts := &stubAppointments{
		reschedule: func(_ context.Context, _ string, req appointment.RescheduleRequest) (*appointment.Appointment, error) {
			got = req
			if req.Time == appointment.Slot0900 {
				return nil, appointment.ErrSlotUnavailable
			}
			a := sampleAppointment()
			a.Time = req.Time
			return a, nil
		},
	}
	h := newTestRouter(appts, nil)
	path := "/api/appointments/" + testApptID + "/reschedule"

	rec := do(t, h, http.MethodPost, path, `{"date":"2026-10-16"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Date and time are required for rescheduling", decode[ErrorResponse](t, rec).Error)

	rec = do(t, h, http.MethodPost, path, `{"date":"2026-10-16","time":"09:00"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, path, `{"date":"2026-10-16","time":"16:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "16:00", decode[AppointmentResponse](t, rec).Time)
	assert.Equal(t, "2026-10-16", got.Date)
}

func TestUpdateAppointmentPassesPatch(t *testing.T) {
	var got appointment.Patch
	appts := &stubAppointments{
		update: func(_ context.Context, _ string, patch appointment.Patch) (*appointment.Appointment, error) {
			got = patch
			a := sampleAppointment()
			a.Status = *patch.Status
			return a, nil
		},
	}

	rec := do(t, newTestRouter(appts, nil), http.MethodPut, "/api/appointments/"+testApptID, `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decode[AppointmentResponse](t, rec).Status)

	require.NotNil(t, got.Status)
	assert.Equal(t, appointment.StatusCompleted, *got.Status)
	assert.Nil(t, got.Time)
	assert.Nil(t, got.Date)
}

func TestListAppointmentsFilter(t *testing.T) {
	var got appointment.Filter
	appts := &stubAppointments{
		list: func(_ context.Context, f appointment.Filter) ([]appointment.Appointment, error) {
			got = f
			return []appointment.Appointment{*sampleAppointment()}, nil
		},
	}
	h := newTestRouter(appts, nil)

	rec := do(t, h, http.MethodGet, "/api/appointments?status=confirmed&date=2026-10-15&patientId="+testPatientID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]AppointmentResponse](t, rec), 1)
	assert.Equal(t, appointment.StatusConfirmed, got.Status)
	require.NotNil(t, got.Date)
	assert.Equal(t, "2026-10-15", got.Date.Format("2006-01-02"))
	assert.Equal(t, testPatientID, got.PatientID)

	rec = do(t, h, http.MethodGet, "/api/appointments?patientId=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	appts := &stubAppointments{
		listUpcoming: func(context.Context, int) ([]appointment.Appointment, error) { return nil, nil },
	}

	rec := do(t, newTestRouter(appts, nil), http.MethodGet, "/api/appointments/recent", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRecentAppointmentsLimit(t *testing.T) {
	var gotLimit int
	appts := &stubAppointments{
		listUpcoming: func(_ context.Context, limit int) ([]appointment.Appointment, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	h := newTestRouter(appts, nil)

	rec := do(t, h, http.MethodGet, "/api/appointments/recent?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, gotLimit)

	rec = do(t, h, http.MethodGet, "/api/appointments/recent?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	appts := &stubAppointments{
		statistics: func(context.Context) (*appointment.Stats, error) {
			return &appointment.Stats{Total: 6, Confirmed: 2, Pending: 1, Completed: 1, Cancelled: 1, NoShow: 1}, nil
		},
	}

	rec := do(t, newTestRouter(appts, nil), http.MethodGet, "/api/appointments/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":6,"confirmed":2,"pending":1,"completed":1,"cancelled":1,"noShow":1}`, rec.Body.String())
}

func TestRangeAppointments(t *testing.T) {
	appts := &stubAppointments{
		listRange: func(_ context.Context, start, end time.Time) ([]appointment.Appointment, error) {
			if start.After(end) {
				return nil, appointment.ErrInvalidRange
			}
			return []appointment.Appointment{*sampleAppointment()}, nil
		},
	}
	h := newTestRouter(appts, nil)

	rec := do(t, h, http.MethodGet, "/api/appointments/range/2026-10-01/2026-10-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]AppointmentResponse](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/appointments/range/2026-10-31/2026-10-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/appointments/range/soon/2026-10-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatientNestedRoutes(t *testing.T) {
	appts := &stubAppointments{
		listByPatient: func(_ context.Context, id string) ([]appointment.Appointment, error) {
			if id != testPatientID {
				return nil, patient.ErrPatientNotFound
			}
			return []appointment.Appointment{*sampleAppointment()}, nil
		},
		patientStats: func(context.Context, string) (*appointment.PatientStats, error) {
			return &appointment.PatientStats{TotalAppointments: 3, UpcomingAppointments: 1, CompletedAppointments: 2}, nil
		},
	}
	h := newTestRouter(appts, nil)

	rec := do(t, h, http.MethodGet, "/api/patients/"+testPatientID+"/appointments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]AppointmentResponse](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/patients/652f1c9e8b3a4d00ffffffff/appointments", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/patients/"+testPatientID+"/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalAppointments":3,"upcomingAppointments":1,"completedAppointments":2}`, rec.Body.String())
}
