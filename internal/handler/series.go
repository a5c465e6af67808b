package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/therapease/booking-server-go/internal/service"
)

type SeriesHandler struct {
	series       *service.SeriesService
	requireAuth  func(http.Handler) http.Handler
	requireAdmin func(http.Handler) http.Handler
}

func NewSeriesHandler(
	series *service.SeriesService,
	requireAuth, requireAdmin func(http.Handler) http.Handler,
) *SeriesHandler {
	return &SeriesHandler{
		series:       series,
		requireAuth:  requireAuth,
		requireAdmin: requireAdmin,
	}
}

func (h *SeriesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(h.requireAuth)
	r.Use(h.requireAdmin)

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	return r
}

// GET /series
func (h *SeriesHandler) List(w http.ResponseWriter, r *http.Request) {
	series, err := h.series.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// GET /series/{id}
func (h *SeriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	series, err := h.series.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}
