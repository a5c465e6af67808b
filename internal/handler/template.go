package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/therapease/booking-server-go/internal/model"
	"github.com/therapease/booking-server-go/internal/service"
)

type TemplateHandler struct {
	templates    *service.TemplateService
	requireAuth  func(http.Handler) http.Handler
	requireAdmin func(http.Handler) http.Handler
}

func NewTemplateHandler(
	templates *service.TemplateService,
	requireAuth, requireAdmin func(http.Handler) http.Handler,
) *TemplateHandler {
	return &TemplateHandler{
		templates:    templates,
		requireAuth:  requireAuth,
		requireAdmin: requireAdmin,
	}
}

func (h *TemplateHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(h.requireAuth)
	r.Use(h.requireAdmin)

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// GET /template
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// GET /template/{id}
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	template, err := h.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, template)
}

type createTemplateRequest struct {
	TherapistID       string   `json:"therapistId"`
	DurationInMinutes int      `json:"durationInMinutes"`
	Vacancies         int      `json:"vacancies"`
	StartTimes        []string `json:"startTimes"`
}

// POST /template
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	template, err := h.templates.Create(r.Context(), model.CreateTemplateParams{
		TherapistID:       req.TherapistID,
		DurationInMinutes: req.DurationInMinutes,
		Vacancies:         req.Vacancies,
		StartTimes:        req.StartTimes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, template)
}

type updateTemplateRequest struct {
	DurationInMinutes *int     `json:"durationInMinutes"`
	Vacancies         *int     `json:"vacancies"`
	StartTimes        []string `json:"startTimes"`
}

// PUT /template/{id}
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	template, err := h.templates.Update(r.Context(), chi.URLParam(r, "id"), model.UpdateTemplateParams{
		DurationInMinutes: req.DurationInMinutes,
		Vacancies:         req.Vacancies,
		StartTimes:        req.StartTimes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, template)
}

// DELETE /template/{id}
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
