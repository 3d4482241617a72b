// internal/auth/handlers.go
package auth

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers all auth routes with the router
func (h *Handler) RegisterRoutes(router *mux.Router, authMiddleware *Middleware) {
	public := router.PathPrefix("/api/v1/auth").Subrouter()
	public.HandleFunc("/register", h.Register).Methods("POST")
	public.HandleFunc("/login", h.Login).Methods("POST")

	protected := router.PathPrefix("/api/v1/auth").Subrouter()
	protected.Use(authMiddleware.Authenticate)
	protected.HandleFunc("/logout", h.Logout).Methods("POST")
	protected.HandleFunc("/logoutall", h.LogoutAll).Methods("POST")
}

// Register handles account creation
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	raw, err := utils.DecodeJSONObject(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	var req RegisterRequest
	if err := utils.Bind(raw, RegisterFields, &req); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, resp, http.StatusCreated)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	raw, err := utils.DecodeJSONObject(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	var req LoginRequest
	if err := utils.Bind(raw, LoginFields, &req); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, resp, http.StatusOK)
}

// Logout revokes the token used for this request
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		utils.WriteError(w, r, h.logger, ErrInvalidToken)
		return
	}

	if err := h.service.Logout(r.Context(), claims); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.MessageResponse(w, "Logged out successfully", http.StatusOK)
}

// LogoutAll revokes every token of the caller
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, r, h.logger, ErrInvalidToken)
		return
	}

	if err := h.service.LogoutAll(r.Context(), userID); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.MessageResponse(w, "Logged out from all devices successfully", http.StatusOK)
}
