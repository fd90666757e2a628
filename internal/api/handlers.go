package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/dental-clinic-booking/internal/appointment"
	"github.com/hackgods/dental-clinic-booking/internal/calendar"
	"github.com/hackgods/dental-clinic-booking/internal/ids"
)

const (
	msgInvalidAppointmentID = "Invalid appointment ID format"
	msgInvalidPatientID     = "Invalid patient ID format"
	msgCancelled            = "Appointment cancelled successfully"
)

func availableSlotsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("date"))
		if raw == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "Date parameter is required")
			return
		}
		date, err := calendar.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "Invalid date format, expected YYYY-MM-DD")
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), date)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailableSlotsResponse{
			Date:           calendar.Format(date),
			AvailableSlots: slotStrings(slots),
		})
	}
}

func checkAvailabilityHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		rawDate := strings.TrimSpace(q.Get("date"))
		slot := appointment.Slot(strings.TrimSpace(q.Get("time")))
		if rawDate == "" || slot == "" {
			writeError(w, http.StatusBadRequest, "missing_parameters", "Date and time parameters are required")
			return
		}
		date, err := calendar.Parse(rawDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "Invalid date format, expected YYYY-MM-DD")
			return
		}
		if !slot.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_time", "Invalid time slot. Please select from available slots")
			return
		}

		var patientID string
		if raw := strings.TrimSpace(q.Get("patientId")); raw != "" {
			id, ok := ids.Normalize(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_id", msgInvalidPatientID)
				return
			}
			patientID = id
		}

		free, err := svc.IsSlotFree(r.Context(), date, slot, patientID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			Date:      calendar.Format(date),
			Time:      string(slot),
			Available: free,
		})
	}
}

func recentAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
				return
			}
			limit = n
		}

		appts, err := svc.ListUpcoming(r.Context(), limit)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(appts))
	}
}

func statsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Statistics(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, StatsResponse{
			Total:     stats.Total,
			Confirmed: stats.Confirmed,
			Pending:   stats.Pending,
			Completed: stats.Completed,
			Cancelled: stats.Cancelled,
			NoShow:    stats.NoShow,
		})
	}
}

func rangeAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := calendar.Parse(chi.URLParam(r, "start"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "Invalid start date")
			return
		}
		end, err := calendar.Parse(chi.URLParam(r, "end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "Invalid end date")
			return
		}

		appts, err := svc.ListRange(r.Context(), start, end)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(appts))
	}
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := appointment.Filter{Status: appointment.Status(strings.TrimSpace(q.Get("status")))}

		if raw := strings.TrimSpace(q.Get("date")); raw != "" {
			date, err := calendar.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "Invalid date format, expected YYYY-MM-DD")
				return
			}
			f.Date = &date
		}
		if raw := strings.TrimSpace(q.Get("patientId")); raw != "" {
			id, ok := ids.Normalize(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_id", msgInvalidPatientID)
				return
			}
			f.PatientID = id
		}

		appts, err := svc.List(r.Context(), f)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(appts))
	}
}

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appointment.BookRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.Book(r.Context(), req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, msgInvalidAppointmentID)
		if !ok {
			return
		}

		var req appointment.RescheduleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Date) == "" || req.Time == "" {
			writeError(w, http.StatusBadRequest, "missing_parameters", "Date and time are required for rescheduling")
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, msgInvalidAppointmentID)
		if !ok {
			return
		}

		// The body is optional; an empty one cancels with the default reason.
		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if _, err := svc.Cancel(r.Context(), id, req.Reason); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: msgCancelled})
	}
}

func getAppointmentHandler(svc AppointmentService, now Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, msgInvalidAppointmentID)
		if !ok {
			return
		}

		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := AppointmentDetailResponse{AppointmentResponse: toAppointmentResponse(&detail.Appointment)}
		if detail.Patient != nil {
			p := toPatientResponse(detail.Patient, now())
			resp.Patient = &p
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, msgInvalidAppointmentID)
		if !ok {
			return
		}

		var patch appointment.Patch
		if !decodeJSON(w, r, &patch) {
			return
		}

		appt, err := svc.Update(r.Context(), id, patch)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, msgInvalidAppointmentID)
		if !ok {
			return
		}

		if _, err := svc.Delete(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: msgCancelled})
	}
}
