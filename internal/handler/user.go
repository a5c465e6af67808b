package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/therapease/booking-server-go/internal/config"
	"github.com/therapease/booking-server-go/internal/middleware"
	"github.com/therapease/booking-server-go/internal/service"
)

const refreshTokenCookie = "refreshToken"

type UserHandler struct {
	users        *service.UserService
	requireAuth  func(http.Handler) http.Handler
	requireAdmin func(http.Handler) http.Handler
	secureCookie bool
}

func NewUserHandler(
	users *service.UserService,
	requireAuth, requireAdmin func(http.Handler) http.Handler,
	secureCookie bool,
) *UserHandler {
	return &UserHandler{
		users:        users,
		requireAuth:  requireAuth,
		requireAdmin: requireAdmin,
		secureCookie: secureCookie,
	}
}

func (h *UserHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Post("/refresh", h.Refresh)
	r.Post("/verify/{id}", h.Verify)
	r.Post("/code/{id}", h.RequestCode)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/me", h.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(h.requireAdmin)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
	})

	return r
}

// POST /user/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /user/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.users.Login(r.Context(), req.Email, req.Password, r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken, config.RefreshTokenTTL)
	writeJSON(w, http.StatusOK, result)
}

// POST /user/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setRefreshCookie(w, "", -time.Hour)
	w.WriteHeader(http.StatusNoContent)
}

// POST /user/refresh
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var raw string
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		raw = cookie.Value
	}

	accessToken, err := h.users.Refresh(r.Context(), raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
}

type verifyRequest struct {
	Code int `json:"code"`
}

// POST /user/verify/{id}
func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Verify(r.Context(), chi.URLParam(r, "id"), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// POST /user/code/{id}
func (h *UserHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	if err := h.users.RequestVerificationCode(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /user/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GET /user
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// GET /user/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DELETE /user/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) setRefreshCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    value,
		Path:     "/user",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
