package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/therapease/booking-server-go/internal/errors"
	"github.com/therapease/booking-server-go/internal/middleware"
	"github.com/therapease/booking-server-go/internal/model"
	"github.com/therapease/booking-server-go/internal/service"
)

type SessionHandler struct {
	sessions     *service.SessionService
	requireAuth  func(http.Handler) http.Handler
	requireAdmin func(http.Handler) http.Handler
}

func NewSessionHandler(
	sessions *service.SessionService,
	requireAuth, requireAdmin func(http.Handler) http.Handler,
) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		requireAuth:  requireAuth,
		requireAdmin: requireAdmin,
	}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// The confirm and cancel links arrive by mail; the token in the query
	// is the only credential.
	r.Get("/confirm/{id}", h.Confirm)
	r.Get("/cancel/{id}", h.Cancel)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/", h.List)
		r.Get("/date", h.ByDate)
		r.Get("/month", h.Month)
		r.Get("/{id}", h.Get)
		r.Post("/book/{id}", h.Book)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(h.requireAdmin)

		r.Post("/", h.Create)
		r.Get("/date-detailed", h.ByDateDetailed)
		r.Post("/recurring", h.CreateRecurring)
		r.Post("/template", h.CreateFromTemplate)
		r.Delete("/day/delete", h.ClearDay)
		r.Delete("/recurring/delete/{id}", h.DeleteRecurring)
		r.Delete("/delete/{id}", h.Delete)
	})

	return r
}

// GET /session
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.SessionFilter{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = model.SessionStatus(status)
	}
	if therapistID := r.URL.Query().Get("therapistId"); therapistID != "" {
		filter.TherapistID = therapistID
	}

	sessions, err := h.sessions.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// GET /session/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type createSessionRequest struct {
	Date              time.Time `json:"date"`
	TherapistID       string    `json:"therapistId"`
	DurationInMinutes int       `json:"durationInMinutes"`
	Vacancies         int       `json:"vacancies"`
}

// POST /session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.sessions.Create(r.Context(), service.CreateSessionInput{
		Date:              req.Date,
		TherapistID:       req.TherapistID,
		DurationInMinutes: req.DurationInMinutes,
		Vacancies:         req.Vacancies,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// POST /session/book/{id}
func (h *SessionHandler) Book(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	session, err := h.sessions.Book(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GET /session/confirm/{id}?token=...
func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Confirm(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GET /session/cancel/{id}?token=...
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Cancel(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GET /session/date?date=YYYY-MM-DD
func (h *SessionHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateQuery(r, "date")
	if err != nil {
		writeError(w, err)
		return
	}

	sessions, err := h.sessions.SessionsByDate(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// GET /session/date-detailed?date=YYYY-MM-DD
func (h *SessionHandler) ByDateDetailed(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateQuery(r, "date")
	if err != nil {
		writeError(w, err)
		return
	}

	sessions, err := h.sessions.SessionsByDateDetailed(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// GET /session/month?month=9&year=2026
func (h *SessionHandler) Month(w http.ResponseWriter, r *http.Request) {
	month, err := intQuery(r, "month")
	if err != nil {
		writeError(w, err)
		return
	}
	if month < 1 || month > 12 {
		writeError(w, apperrors.InvalidInput("month", "must be 1-12"))
		return
	}
	year, err := intQuery(r, "year")
	if err != nil {
		writeError(w, err)
		return
	}

	overview, err := h.sessions.MonthOverview(r.Context(), year, time.Month(month))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

type createRecurringRequest struct {
	Date              time.Time        `json:"date"`
	TherapistID       string           `json:"therapistId"`
	DurationInMinutes int              `json:"durationInMinutes"`
	Vacancies         int              `json:"vacancies"`
	Recurrence        model.Recurrence `json:"recurrence"`
}

// POST /session/recurring
func (h *SessionHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req createRecurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.sessions.CreateRecurring(r.Context(), service.CreateRecurringInput{
		Date:              req.Date,
		TherapistID:       req.TherapistID,
		DurationInMinutes: req.DurationInMinutes,
		Vacancies:         req.Vacancies,
		Recurrence:        req.Recurrence,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type createFromTemplateRequest struct {
	Date       time.Time `json:"date"`
	TemplateID string    `json:"templateId"`
}

// POST /session/template
func (h *SessionHandler) CreateFromTemplate(w http.ResponseWriter, r *http.Request) {
	var req createFromTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sessions, err := h.sessions.CreateFromTemplate(r.Context(), req.Date, req.TemplateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessions)
}

// DELETE /session/day/delete?date=YYYY-MM-DD
func (h *SessionHandler) ClearDay(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateQuery(r, "date")
	if err != nil {
		writeError(w, err)
		return
	}

	deleted, err := h.sessions.ClearDay(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// DELETE /session/recurring/delete/{id}
func (h *SessionHandler) DeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.DeleteRecurring(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /session/delete/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
