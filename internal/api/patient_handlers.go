package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const msgPatientDeleted = "Patient deleted successfully"

func listPatientsHandler(svc PatientService, now Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients, err := svc.List(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientList(patients, now()))
	}
}

func searchPatientsHandler(svc PatientService, now Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients, err := svc.Search(r.Context(), chi.URLParam(r, "query"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientList(patients, now()))
	}
}

func createPatientHandler(svc PatientService, now Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PatientRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		p, err := svc.Create(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPatientResponse(p, now()))
	}
}

func getPatientHandler(svc PatientService, now Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, msgInvalidPatientID)
		if !ok {
			return
		}

		p, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(p, now()))
	}
}

func updatePatientHandler(svc PatientService, now Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, msgInvalidPatientID)
		if !ok {
			return
		}

		var req PatientRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		p, err := svc.Update(r.Context(), id, in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(p, now()))
	}
}

func deletePatientHandler(svc PatientService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, msgInvalidPatientID)
		if !ok {
			return
		}

		if err := svc.Deactivate(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: msgPatientDeleted})
	}
}

func patientAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, msgInvalidPatientID)
		if !ok {
			return
		}

		appts, err := svc.ListByPatient(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(appts))
	}
}

func patientStatsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, msgInvalidPatientID)
		if !ok {
			return
		}

		stats, err := svc.PatientStats(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, PatientStatsResponse{
			TotalAppointments:     stats.TotalAppointments,
			UpcomingAppointments:  stats.UpcomingAppointments,
			CompletedAppointments: stats.CompletedAppointments,
		})
	}
}
