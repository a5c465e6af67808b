package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/therapease/booking-server-go/internal/model"
	"github.com/therapease/booking-server-go/internal/service"
)

type TherapistHandler struct {
	therapists   *service.TherapistService
	requireAuth  func(http.Handler) http.Handler
	requireAdmin func(http.Handler) http.Handler
}

func NewTherapistHandler(
	therapists *service.TherapistService,
	requireAuth, requireAdmin func(http.Handler) http.Handler,
) *TherapistHandler {
	return &TherapistHandler{
		therapists:   therapists,
		requireAuth:  requireAuth,
		requireAdmin: requireAdmin,
	}
}

func (h *TherapistHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(h.requireAdmin)
		r.Post("/", h.Create)
		r.Delete("/{id}", h.Delete)
	})

	return r
}

// GET /therapist
func (h *TherapistHandler) List(w http.ResponseWriter, r *http.Request) {
	therapists, err := h.therapists.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, therapists)
}

// GET /therapist/{id}
func (h *TherapistHandler) Get(w http.ResponseWriter, r *http.Request) {
	therapist, err := h.therapists.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, therapist)
}

// POST /therapist
func (h *TherapistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTherapistParams
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	therapist, err := h.therapists.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, therapist)
}

// DELETE /therapist/{id}
func (h *TherapistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.therapists.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
